// Package alert rate-limits repeated error notifications per subject,
// backed by a persisted state file that survives process restarts.
package alert

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/PhilippVn/ZHS-Scraper/internal/store"
)

// Entry is one audit line of the persisted error log.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
}

// State is the persisted throttle state. History is append-only; the
// retention cap bounds it, oldest entries first.
type State struct {
	LastAlerted map[string]time.Time `json:"last_alerted"`
	History     []Entry              `json:"history"`
}

// Throttle decides whether an error subject may be alerted again. The
// subject string is the throttling granularity: distinct subjects never
// suppress each other.
type Throttle struct {
	mu        sync.Mutex
	path      string
	cooldown  time.Duration
	retention int
	state     State
}

// Open loads the persisted throttle state from path. A missing file starts
// fresh; an unreadable one is logged and discarded, matching the lenient
// recovery of the error path itself.
func Open(path string, cooldown time.Duration, retention int) *Throttle {
	t := &Throttle{
		path:      path,
		cooldown:  cooldown,
		retention: retention,
		state:     State{LastAlerted: make(map[string]time.Time)},
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: could not read alert state %s: %v. Starting fresh.", path, err)
		}
		return t
	}
	if err := json.Unmarshal(b, &t.state); err != nil {
		log.Printf("Warning: could not decode alert state %s: %v. Starting fresh.", path, err)
		t.state = State{LastAlerted: make(map[string]time.Time)}
	}
	if t.state.LastAlerted == nil {
		t.state.LastAlerted = make(map[string]time.Time)
	}
	return t
}

// ShouldAlert reports whether an alert for subject is permitted at now: no
// alert for that exact subject may have been sent within the cooldown
// window. A subject never alerted before is always eligible.
func (t *Throttle) ShouldAlert(subject string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.state.LastAlerted[subject]
	return !ok || now.Sub(last) >= t.cooldown
}

// Record appends an entry to the error log and persists the state. It is
// called on every error regardless of whether an alert goes out.
func (t *Throttle) Record(subject, message string, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.History = append(t.state.History, Entry{Timestamp: now, Subject: subject, Message: message})
	if t.retention > 0 && len(t.state.History) > t.retention {
		t.state.History = t.state.History[len(t.state.History)-t.retention:]
	}
	return t.persist()
}

// MarkAlerted stamps the subject's last-alerted time and persists, so a
// restart mid-cooldown cannot cause an immediate duplicate alert.
func (t *Throttle) MarkAlerted(subject string, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.LastAlerted[subject] = now
	return t.persist()
}

// Gate is the combined error-path entry point: it records the error,
// decides eligibility, and on a permitted alert stamps the subject before
// persisting once.
func (t *Throttle) Gate(subject, message string, now time.Time) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.History = append(t.state.History, Entry{Timestamp: now, Subject: subject, Message: message})
	if t.retention > 0 && len(t.state.History) > t.retention {
		t.state.History = t.state.History[len(t.state.History)-t.retention:]
	}

	last, seen := t.state.LastAlerted[subject]
	allowed := !seen || now.Sub(last) >= t.cooldown
	if allowed {
		t.state.LastAlerted[subject] = now
	}
	return allowed, t.persist()
}

// HistoryLen returns the current length of the persisted error log.
func (t *Throttle) HistoryLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.state.History)
}

// persist writes the state atomically. Callers must hold t.mu.
func (t *Throttle) persist() error {
	b, err := json.MarshalIndent(&t.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode alert state: %w", err)
	}
	if err := store.WriteAtomic(t.path, b); err != nil {
		return fmt.Errorf("failed to write alert state %s: %w", t.path, err)
	}
	return nil
}
