package model

import "strings"

// Status is the resolved booking state of a course offering.
type Status string

const (
	StatusUnknown      Status = "unknown"
	StatusExpired      Status = "expired"
	StatusWaitlist     Status = "waitlist"
	StatusBookable     Status = "bookable"
	StatusBookableFrom Status = "bookable_from"
)

// StatusSet is the set of statuses that gate Added/StatusChanged events.
type StatusSet map[Status]bool

// NewStatusSet builds a StatusSet from config strings.
func NewStatusSet(statuses []string) StatusSet {
	set := make(StatusSet, len(statuses))
	for _, s := range statuses {
		set[Status(s)] = true
	}
	return set
}

// Field is one labelled cell of a course row.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Fields is the column mapping of a course row. The schema is defined by
// the source page and varies between sources, so this is a generic ordered
// label/value list rather than a fixed struct.
type Fields []Field

// Get returns the value for a label and whether the label is present.
func (f Fields) Get(label string) (string, bool) {
	for _, fl := range f {
		if fl.Label == label {
			return fl.Value, true
		}
	}
	return "", false
}

// Course is one offering as observed in a single poll cycle. Courses are
// built fresh every cycle and never mutated afterwards.
type Course struct {
	SourceName string `json:"source_name"`
	TableName  string `json:"table_name"`
	SourceURL  string `json:"source_url"`
	Status     Status `json:"status"`
	Fields     Fields `json:"fields"`
}

// KeySpec describes how the identity key of a course is derived. The
// candidate labels cover the course-number spellings seen across sources;
// when none is present the fallback labels form a composite key.
type KeySpec struct {
	Candidates []string `yaml:"candidates"`
	Fallback   []string `yaml:"fallback"`
}

// DefaultKeySpec matches the column labels used by the ZHS booking pages.
func DefaultKeySpec() KeySpec {
	return KeySpec{
		Candidates: []string{"Nr.", "Kursnummer", "kurs_nr", "Nr", "KursnrNo."},
		Fallback:   []string{"Tag", "Zeit", "Leitung"},
	}
}

// CourseKey derives the per-table key for a course: the first candidate
// label present wins, otherwise the fallback fields are joined with "_"
// (absent fields become empty strings). Two offerings identical in all
// fallback fields collide; the later one wins in the snapshot map. That is
// an accepted limitation of sources without a course number.
func (k KeySpec) CourseKey(c Course) string {
	for _, label := range k.Candidates {
		if v, ok := c.Fields.Get(label); ok {
			return v
		}
	}
	parts := make([]string, len(k.Fallback))
	for i, label := range k.Fallback {
		parts[i], _ = c.Fields.Get(label)
	}
	return strings.Join(parts, "_")
}

// Identity scopes the course key by source and table so uniqueness holds
// per (source, table), not globally. 0x1f is the ASCII unit separator and
// cannot appear in scraped cell text.
func (k KeySpec) Identity(c Course) string {
	return c.SourceName + "\x1f" + c.TableName + "\x1f" + k.CourseKey(c)
}
