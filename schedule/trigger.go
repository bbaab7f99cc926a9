package schedule

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// TriggerEngine maps each enabled schedule to a recurring wall-clock trigger.
// Triggers exist only in memory; they are rebuilt from the store at startup.
// A firing that fails to run the power action is logged and the trigger stays
// armed for its next occurrence.
type TriggerEngine struct {
	cron   *cron.Cron
	action func() error
	mu     sync.Mutex
	armed  map[string]cron.EntryID
}

// NewTriggerEngine starts the cron runtime with the given power action.
func NewTriggerEngine(action func() error) *TriggerEngine {
	e := &TriggerEngine{
		cron:   cron.New(),
		action: action,
		armed:  make(map[string]cron.EntryID),
	}
	e.cron.Start()
	return e
}

// Reconcile arms (or re-arms) the trigger for a schedule. Disabled schedules
// are stopped instead.
func (e *TriggerEngine) Reconcile(sch Schedule) error {
	if !sch.Enabled {
		e.Stop(sch.ID)
		return nil
	}

	spec, err := parseWeekly(sch.Time, sch.Days)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if id, ok := e.armed[sch.ID]; ok {
		e.cron.Remove(id)
	}

	scheduleID := sch.ID
	entryID := e.cron.Schedule(spec, cron.FuncJob(func() {
		log.Printf("[TRIGGER] Schedule %s fired", scheduleID)
		if err := e.action(); err != nil {
			log.Printf("[TRIGGER] Power action for schedule %s failed: %v", scheduleID, err)
		}
	}))
	e.armed[sch.ID] = entryID
	return nil
}

// Stop cancels the trigger for a schedule. Idempotent if already stopped.
func (e *TriggerEngine) Stop(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if entryID, ok := e.armed[id]; ok {
		e.cron.Remove(entryID)
		delete(e.armed, id)
	}
}

// Armed reports whether a trigger is currently registered for the id.
func (e *TriggerEngine) Armed(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.armed[id]
	return ok
}

// ArmedCount returns the number of registered triggers.
func (e *TriggerEngine) ArmedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.armed)
}

// Shutdown stops the cron runtime. Armed entries are discarded.
func (e *TriggerEngine) Shutdown() {
	e.cron.Stop()
}

// weeklyTrigger fires at a fixed time of day on a set of weekdays, every
// week. It implements cron.Schedule directly so next-fire times come from
// the (time, days) pair itself rather than a cron expression string.
type weeklyTrigger struct {
	hour   int
	minute int
	days   map[time.Weekday]bool
}

func parseWeekly(timeStr string, days []string) (weeklyTrigger, error) {
	parts := strings.SplitN(timeStr, ":", 2)
	if len(parts) != 2 {
		return weeklyTrigger{}, fmt.Errorf("%w: time must be HH:MM, got %q", ErrValidation, timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return weeklyTrigger{}, fmt.Errorf("%w: bad hour in %q", ErrValidation, timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return weeklyTrigger{}, fmt.Errorf("%w: bad minute in %q", ErrValidation, timeStr)
	}

	daySet := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		n, err := strconv.Atoi(d)
		if err != nil || n < 0 || n > 6 {
			return weeklyTrigger{}, fmt.Errorf("%w: day must be 0-6, got %q", ErrValidation, d)
		}
		daySet[time.Weekday(n)] = true
	}
	if len(daySet) == 0 {
		return weeklyTrigger{}, fmt.Errorf("%w: at least one day is required", ErrValidation)
	}

	return weeklyTrigger{hour: hour, minute: minute, days: daySet}, nil
}

// Next returns the first instant strictly after t that lands on one of the
// configured weekdays at the configured time of day, in t's location.
func (w weeklyTrigger) Next(t time.Time) time.Time {
	candidate := time.Date(t.Year(), t.Month(), t.Day(), w.hour, w.minute, 0, 0, t.Location())
	for i := 0; i < 8; i++ {
		if candidate.After(t) && w.days[candidate.Weekday()] {
			return candidate
		}
		candidate = candidate.AddDate(0, 0, 1)
	}
	return time.Time{}
}
