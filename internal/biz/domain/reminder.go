package domain

import (
	"time"
)

// Frequency is how often a goal reminder recurs
type Frequency string

// Reminder frequencies.
const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Valid checks the frequency is one of the known values
func (f Frequency) Valid() bool {
	return f == Daily || f == Weekly || f == Monthly
}

// Next advances t by one frequency unit, anchored to anchorHour in t's
// location so reminders keep firing at the same local hour.
func (f Frequency) Next(t time.Time, anchorHour int) time.Time {
	var n time.Time
	switch f {
	case Weekly:
		n = t.AddDate(0, 0, 7)
	case Monthly:
		n = t.AddDate(0, 1, 0)
	default:
		n = t.AddDate(0, 0, 1)
	}
	return time.Date(n.Year(), n.Month(), n.Day(), anchorHour, 0, 0, 0, n.Location())
}

// GoalSchedule represents persisted reminder state for one goal
type GoalSchedule struct {
	ID          int64
	OwnerID     string // linked Discord user ID
	Title       string
	Description string
	Deadline    time.Time
	Frequency   Frequency
	NextDueAt   time.Time
	LastSentAt  time.Time
}

// Due checks whether the schedule should fire at time now
func (g *GoalSchedule) Due(now time.Time) bool {
	return g.Frequency.Valid() && !g.NextDueAt.IsZero() && !g.NextDueAt.After(now)
}

// UrgencyTier buckets a goal by days until its deadline
type UrgencyTier string

// Urgency tiers, from most to least pressing.
const (
	UrgencyOverdue  UrgencyTier = "overdue"
	UrgencyDueToday UrgencyTier = "due-today"
	UrgencyDueSoon  UrgencyTier = "due-soon"
	UrgencyThisWeek UrgencyTier = "this-week"
	UrgencyNormal   UrgencyTier = "normal"
)

// Urgency derives the tier from the deadline relative to now
func (g *GoalSchedule) Urgency(now time.Time) UrgencyTier {
	days := daysUntil(now, g.Deadline)
	switch {
	case days < 0:
		return UrgencyOverdue
	case days == 0:
		return UrgencyDueToday
	case days <= 3:
		return UrgencyDueSoon
	case days <= 7:
		return UrgencyThisWeek
	default:
		return UrgencyNormal
	}
}

// daysUntil counts whole calendar days from now to deadline, negative
// when the deadline has passed.
func daysUntil(now, deadline time.Time) int {
	a := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	b := time.Date(deadline.Year(), deadline.Month(), deadline.Day(), 0, 0, 0, 0, now.Location())
	return int(b.Sub(a) / (24 * time.Hour))
}

// HabitUser represents a user enrolled in habit reminders
type HabitUser struct {
	DiscordID        string
	Timezone         string // IANA zone name, e.g. "Europe/Paris"
	RemindersEnabled bool
	LastReminderSent time.Time
}

// Location resolves the user's timezone, falling back to UTC when the
// stored zone name is unknown.
func (u *HabitUser) Location() (*time.Location, error) {
	if u.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC, err
	}
	return loc, nil
}

// SentToday checks whether a reminder already went out on the calendar
// day containing now, compared in the given location. This is the sole
// duplicate-send guard, so the comparison must use the user's own zone.
func (u *HabitUser) SentToday(now time.Time, loc *time.Location) bool {
	if u.LastReminderSent.IsZero() {
		return false
	}
	return u.LastReminderSent.In(loc).Format(DateLayout) == now.In(loc).Format(DateLayout)
}

// DateLayout is the canonical calendar-day key, rendered in the user's
// timezone when comparing per-day state.
const DateLayout = "2006-01-02"

// Habit represents one tracked habit
type Habit struct {
	ID    int64
	Title string
	Emoji string
}

// HabitDailyStatus is the derived per-day projection of a habit's
// completion state. Computed at send time, never stored.
type HabitDailyStatus struct {
	HabitID     int64
	Title       string
	Emoji       string
	IsCompleted bool
}

// HabitProgress summarizes a day's statuses
type HabitProgress struct {
	Statuses []HabitDailyStatus
}

// Completed counts finished habits
func (p *HabitProgress) Completed() int {
	n := 0
	for _, s := range p.Statuses {
		if s.IsCompleted {
			n++
		}
	}
	return n
}

// Total counts all active habits
func (p *HabitProgress) Total() int {
	return len(p.Statuses)
}

// Percent returns the completion percentage, rounded down
func (p *HabitProgress) Percent() int {
	if len(p.Statuses) == 0 {
		return 0
	}
	return p.Completed() * 100 / p.Total()
}

// Incomplete returns the habits not yet completed today
func (p *HabitProgress) Incomplete() []HabitDailyStatus {
	var out []HabitDailyStatus
	for _, s := range p.Statuses {
		if !s.IsCompleted {
			out = append(out, s)
		}
	}
	return out
}

// AllDone checks whether every habit is completed
func (p *HabitProgress) AllDone() bool {
	return p.Total() > 0 && p.Completed() == p.Total()
}
