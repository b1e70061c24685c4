// Package scraper runs the poll loop: fetch every configured source,
// diff against the last snapshot, deliver notifications, persist state.
package scraper

import (
	"context"
	"fmt"
	"html"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PhilippVn/ZHS-Scraper/config"
	"github.com/PhilippVn/ZHS-Scraper/internal/alert"
	"github.com/PhilippVn/ZHS-Scraper/internal/diff"
	"github.com/PhilippVn/ZHS-Scraper/internal/fetch"
	"github.com/PhilippVn/ZHS-Scraper/internal/metrics"
	"github.com/PhilippVn/ZHS-Scraper/internal/model"
	"github.com/PhilippVn/ZHS-Scraper/internal/notify"
	"github.com/PhilippVn/ZHS-Scraper/internal/store"
)

// maxConcurrentFetches bounds the per-cycle fetch parallelism. Sources are
// independent reads; results are still processed in configured order so
// diffs stay reproducible.
const maxConcurrentFetches = 4

// mainLoopSubject is the throttle subject for failures not attributable to
// a single source.
const mainLoopSubject = "main loop error"

// Service orchestrates the poll cycles. The configuration file is re-read
// at the start of every cycle; interval, interesting statuses, key
// derivation, and the source list take effect immediately, while the state
// file paths and delivery channels are fixed at construction time.
type Service struct {
	cfgPath string
	verbose bool

	fetcher   fetch.Fetcher
	sender    notify.Sender
	snapshots *store.SnapshotStore
	history   store.HistoryStore // nil when the archive is disabled
	throttle  *alert.Throttle

	mu          sync.RWMutex
	current     store.Snapshot
	lastCycleAt time.Time
}

// NewService creates the orchestrator and loads the persisted snapshot.
// initial supplies the construction time settings (state file locations,
// alert cooldown); history may be nil. A corrupt snapshot is logged and
// replaced by the empty state.
func NewService(cfgPath string, initial *config.Config, fetcher fetch.Fetcher, sender notify.Sender, history store.HistoryStore, verbose bool) *Service {
	s := &Service{
		cfgPath:   cfgPath,
		verbose:   verbose,
		fetcher:   fetcher,
		sender:    sender,
		snapshots: store.NewSnapshotStore(initial.StateFile),
		history:   history,
		throttle:  alert.Open(initial.Alerts.StateFile, initial.Alerts.Cooldown, initial.Alerts.HistoryRetention),
	}

	snap, err := s.snapshots.Load()
	if err != nil {
		log.Printf("Warning: could not load snapshot, starting from empty state: %v", err)
		snap = store.Snapshot{}
	}
	s.current = snap
	return s
}

// Run executes poll cycles until ctx is cancelled. Cancellation takes
// effect between cycles, never mid-cycle. The only fatal condition is a
// missing or unreadable configuration file.
func (s *Service) Run(ctx context.Context) error {
	log.Printf("Course monitoring started (%d known courses).", len(s.Courses()))

	for {
		cfg, err := config.Load(s.cfgPath)
		if err != nil {
			return fmt.Errorf("configuration unavailable, stopping: %w", err)
		}

		s.RunOnce(ctx, cfg)

		if s.verbose {
			log.Printf("Sleeping for %s...", cfg.Interval)
		}
		select {
		case <-ctx.Done():
			log.Println("Shutdown requested, stopping poll loop.")
			return nil
		case <-time.After(cfg.Interval):
		}
	}
}

// RunOnce executes a single poll cycle. Any panic escaping the cycle is
// recovered, routed through the error throttle, and the loop carries on
// with the next cycle.
func (s *Service) RunOnce(ctx context.Context, cfg *config.Config) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Error: poll cycle panicked: %v", r)
			s.alert(ctx, mainLoopSubject, fmt.Sprint(r))
		}
	}()

	metrics.PollCycles.Inc()
	now := time.Now().UTC()

	courses := s.fetchAll(ctx, cfg)

	s.mu.Lock()
	s.lastCycleAt = now
	s.mu.Unlock()

	if len(courses) == 0 {
		log.Println("No courses fetched this cycle; keeping previous snapshot.")
		return
	}

	interesting := model.NewStatusSet(cfg.InterestingStatuses)
	changes := diff.Detect(s.Courses(), courses, interesting, cfg.Key)
	if len(changes) == 0 {
		log.Println("No changes detected.")
		return
	}

	log.Printf("%d change(s) detected.", len(changes))
	for _, ch := range changes {
		metrics.ChangesDetected.WithLabelValues(string(ch.Kind)).Inc()
	}

	if msg, ok := notify.NewComposer(cfg.PriorityFields).Compose(changes); ok {
		if err := s.sender.Send(ctx, msg); err != nil {
			// Best effort: a failed delivery is logged, never retried
			// within the cycle and never escalated.
			log.Printf("Error delivering change notification: %v", err)
		} else {
			metrics.NotificationsSent.Inc()
		}
	}

	newSnap := store.Snapshot{Courses: courses, LastCheckedAt: now}
	if err := s.snapshots.Save(newSnap); err != nil {
		log.Printf("Error persisting snapshot: %v", err)
		s.alert(ctx, mainLoopSubject, fmt.Sprintf("snapshot not persisted: %v", err))
	}
	// The in-memory snapshot advances even when the write failed, so the
	// same changes are not re-notified while this process lives.
	s.setCurrent(newSnap)
	metrics.CoursesTracked.Set(float64(len(courses)))

	if s.history != nil {
		if err := s.history.SaveChanges(ctx, now, changes, cfg.Key); err != nil {
			log.Printf("Error archiving change history: %v", err)
		}
	}
}

// fetchAll fetches every configured source, up to maxConcurrentFetches at
// a time. A failing source is alerted through the throttle and skipped;
// the cycle proceeds with whatever sources succeeded. Aggregation follows
// the configured source order regardless of completion order.
func (s *Service) fetchAll(ctx context.Context, cfg *config.Config) []model.Course {
	results := make([][]model.Course, len(cfg.Sources))
	errs := make([]error, len(cfg.Sources))

	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)
	for i, src := range cfg.Sources {
		g.Go(func() error {
			results[i], errs[i] = s.fetcher.Fetch(ctx, src)
			return nil
		})
	}
	g.Wait()

	var all []model.Course
	for i, src := range cfg.Sources {
		if errs[i] != nil {
			log.Printf("Error fetching %s: %v", src.Name, errs[i])
			metrics.FetchErrors.WithLabelValues(src.Name).Inc()
			s.alert(ctx, "fetch failed: "+src.Name, errs[i].Error())
			continue
		}
		if s.verbose {
			log.Printf("Fetched %d courses from %s.", len(results[i]), src.Name)
		}
		all = append(all, results[i]...)
	}
	return all
}

// alert routes an error through the throttle and, when permitted, delivers
// it over the same channels as change notifications.
func (s *Service) alert(ctx context.Context, subject, message string) {
	now := time.Now().UTC()

	allowed, err := s.throttle.Gate(subject, message, now)
	if err != nil {
		log.Printf("Error persisting alert state: %v", err)
	}
	if !allowed {
		metrics.AlertsSuppressed.Inc()
		log.Printf("Alert %q suppressed, still in cooldown.", subject)
		return
	}

	msg := notify.Message{
		Subject: "[zhsd ERROR] " + subject,
		Plain:   fmt.Sprintf("%s\n\nZeit: %s\n", message, now.Format(time.RFC3339)),
		HTML: fmt.Sprintf("<h1>%s</h1><p>%s</p><p>Zeit: %s</p>",
			html.EscapeString(subject), html.EscapeString(message), now.Format(time.RFC3339)),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		log.Printf("Error delivering alert %q: %v", subject, err)
		return
	}
	metrics.AlertsSent.Inc()
}

func (s *Service) setCurrent(snap store.Snapshot) {
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
}

// Courses returns the courses of the last known snapshot.
func (s *Service) Courses() []model.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Courses
}

// LastChecked returns the timestamp of the last persisted snapshot. It
// only advances when a cycle produced changes; use LastCycleAt for
// liveness.
func (s *Service) LastChecked() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.LastCheckedAt
}

// LastCycleAt returns when the last poll cycle ran, persisted or not.
func (s *Service) LastCycleAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCycleAt
}
