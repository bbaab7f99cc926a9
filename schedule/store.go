package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// Schedule is one recurring power-off entry. Days are weekday numbers 0-6
// (Sunday first) as strings, matching what the dashboard sends.
type Schedule struct {
	ID      string   `json:"id"`
	Time    string   `json:"time"` // 24-hour "HH:MM"
	Days    []string `json:"days"`
	Enabled bool     `json:"enabled"`
	Created string   `json:"created"` // RFC3339
}

var (
	// ErrNotFound is returned for operations on an unknown schedule id.
	ErrNotFound = errors.New("schedule not found")

	// ErrValidation is returned when schedule input is malformed. No
	// mutation happens in that case.
	ErrValidation = errors.New("invalid schedule")
)

var timeFormat = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Reconciler keeps runtime timers in sync with the store. Implemented by
// TriggerEngine; faked in tests.
type Reconciler interface {
	Reconcile(sch Schedule) error
	Stop(id string)
}

// Store owns the schedule list. Every mutation rewrites the whole JSON file
// through a temp-file rename so readers never observe a partial write, and
// synchronously reconciles the trigger engine before returning. A persist
// failure is logged but does not roll back the in-memory mutation.
type Store struct {
	path      string
	engine    Reconciler
	mu        sync.Mutex
	schedules []Schedule
	lastID    int64
}

// NewStore loads the schedules file (an absent file is an empty store) and
// arms a trigger for every enabled entry.
func NewStore(path string, engine Reconciler) (*Store, error) {
	s := &Store{path: path, engine: engine}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read schedules file: %v", err)
		}
	} else if len(data) > 0 {
		if err := json.Unmarshal(data, &s.schedules); err != nil {
			return nil, fmt.Errorf("failed to parse schedules file: %v", err)
		}
	}

	armed := 0
	for _, sch := range s.schedules {
		if n, err := strconv.ParseInt(sch.ID, 10, 64); err == nil && n > s.lastID {
			s.lastID = n
		}
		if !sch.Enabled {
			continue
		}
		if err := engine.Reconcile(sch); err != nil {
			log.Printf("[SCHEDULE] Failed to arm schedule %s: %v", sch.ID, err)
			continue
		}
		armed++
	}
	log.Printf("[SCHEDULE] Loaded %d schedule(s), armed %d", len(s.schedules), armed)
	return s, nil
}

// List returns a copy of all schedules.
func (s *Store) List() []Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Schedule, len(s.schedules))
	copy(out, s.schedules)
	return out
}

// Get returns the schedule with the given id.
func (s *Store) Get(id string) (Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sch := range s.schedules {
		if sch.ID == id {
			return sch, nil
		}
	}
	return Schedule{}, ErrNotFound
}

// Add validates and stores a new schedule, arming its trigger when enabled.
// The id is the creation time in unix milliseconds; collisions are not
// special-cased, the later write wins.
func (s *Store) Add(timeStr string, days []string, enabled bool) (Schedule, error) {
	if !timeFormat.MatchString(timeStr) {
		return Schedule{}, fmt.Errorf("%w: time must be HH:MM, got %q", ErrValidation, timeStr)
	}
	if len(days) == 0 {
		return Schedule{}, fmt.Errorf("%w: at least one day is required", ErrValidation)
	}
	for _, d := range days {
		n, err := strconv.Atoi(d)
		if err != nil || n < 0 || n > 6 {
			return Schedule{}, fmt.Errorf("%w: day must be 0-6, got %q", ErrValidation, d)
		}
	}

	now := time.Now()

	s.mu.Lock()
	// Ids derive from the creation time in milliseconds; bump on collision
	// so two adds in the same millisecond still get unique ids.
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id

	sch := Schedule{
		ID:      strconv.FormatInt(id, 10),
		Time:    timeStr,
		Days:    append([]string(nil), days...),
		Enabled: enabled,
		Created: now.Format(time.RFC3339),
	}
	s.schedules = append(s.schedules, sch)
	s.persistLocked()
	s.mu.Unlock()

	if enabled {
		if err := s.engine.Reconcile(sch); err != nil {
			log.Printf("[SCHEDULE] Failed to arm schedule %s: %v", sch.ID, err)
		}
	}
	log.Printf("[SCHEDULE] Added schedule %s at %s on days %v (enabled=%v)", sch.ID, sch.Time, sch.Days, enabled)
	return sch, nil
}

// SetEnabled toggles a schedule and synchronously starts or stops its
// trigger before returning.
func (s *Store) SetEnabled(id string, enabled bool) (Schedule, error) {
	s.mu.Lock()
	idx := -1
	for i := range s.schedules {
		if s.schedules[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return Schedule{}, ErrNotFound
	}
	s.schedules[idx].Enabled = enabled
	sch := s.schedules[idx]
	s.persistLocked()
	s.mu.Unlock()

	if enabled {
		if err := s.engine.Reconcile(sch); err != nil {
			log.Printf("[SCHEDULE] Failed to arm schedule %s: %v", sch.ID, err)
		}
	} else {
		s.engine.Stop(id)
	}
	log.Printf("[SCHEDULE] Schedule %s enabled=%v", id, enabled)
	return sch, nil
}

// Remove deletes a schedule and stops its trigger.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	idx := -1
	for i := range s.schedules {
		if s.schedules[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.schedules = append(s.schedules[:idx], s.schedules[idx+1:]...)
	s.persistLocked()
	s.mu.Unlock()

	s.engine.Stop(id)
	log.Printf("[SCHEDULE] Removed schedule %s", id)
	return nil
}

// persistLocked rewrites the whole schedules file. Callers hold s.mu.
func (s *Store) persistLocked() {
	schedules := s.schedules
	if schedules == nil {
		schedules = []Schedule{}
	}
	data, err := json.MarshalIndent(schedules, "", "  ")
	if err != nil {
		log.Printf("[SCHEDULE] Failed to encode schedules: %v", err)
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.Printf("[SCHEDULE] Failed to write schedules file: %v", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		log.Printf("[SCHEDULE] Failed to replace schedules file: %v", err)
	}
}
