// Package diff computes the change events between two poll cycles.
package diff

import "github.com/PhilippVn/ZHS-Scraper/internal/model"

// courseMap is an insertion-ordered identity-key map. A later course with
// an already-seen key overwrites the earlier value but keeps the original
// position, so iteration order is stable regardless of collisions.
type courseMap struct {
	keys    []string
	courses map[string]model.Course
}

func newCourseMap(courses []model.Course, keys model.KeySpec) *courseMap {
	m := &courseMap{courses: make(map[string]model.Course, len(courses))}
	for _, c := range courses {
		id := keys.Identity(c)
		if _, seen := m.courses[id]; !seen {
			m.keys = append(m.keys, id)
		}
		m.courses[id] = c
	}
	return m
}

// Detect compares the previous snapshot against the freshly fetched
// courses and returns the resulting change events:
//
//   - a key only in new yields Added, but only when the new status is in
//     the interesting set;
//   - a key in both with a different status yields StatusChanged, again
//     only when the new status is interesting (transitions into an
//     uninteresting status are dropped);
//   - a key only in old always yields Removed, since a disappearing
//     course is informative whatever its last status was.
//
// Output order is deterministic: new courses in first-seen order, then
// removed courses in first-seen order of the old snapshot.
func Detect(old, latest []model.Course, interesting model.StatusSet, keys model.KeySpec) []model.Change {
	oldMap := newCourseMap(old, keys)
	newMap := newCourseMap(latest, keys)

	var changes []model.Change
	for _, id := range newMap.keys {
		nc := newMap.courses[id]
		oc, existed := oldMap.courses[id]
		switch {
		case !existed:
			if interesting[nc.Status] {
				changes = append(changes, model.Change{Kind: model.ChangeAdded, Course: nc})
			}
		case oc.Status != nc.Status:
			if interesting[nc.Status] {
				prev := oc
				changes = append(changes, model.Change{Kind: model.ChangeStatusUpdated, Course: nc, Old: &prev})
			}
		}
	}

	for _, id := range oldMap.keys {
		if _, still := newMap.courses[id]; !still {
			changes = append(changes, model.Change{Kind: model.ChangeRemoved, Course: oldMap.courses[id]})
		}
	}

	return changes
}
