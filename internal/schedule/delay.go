// Package schedule computes, for a scheduled time task and a reference
// instant, how long until the task next fires. All functions are pure;
// callers pass the clock in.
package schedule

import (
	"time"

	"github.com/bluelume/bluelume-go/internal/led"
)

const minutesPerDay = 24 * 60

// Delay is a whole-minute countdown decomposed into days, hours and minutes.
type Delay struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// TotalMinutes recomposes the delay into its total whole-minute count.
func (d Delay) TotalMinutes() int {
	return d.Days*minutesPerDay + d.Hours*60 + d.Minutes
}

// Less orders delays lexicographically by (days, hours, minutes). This is
// the ordering used to pick the nearest task: a delay with fewer days sorts
// first regardless of its hours and minutes.
func Less(a, b Delay) bool {
	if a.Days != b.Days {
		return a.Days < b.Days
	}
	if a.Hours != b.Hours {
		return a.Hours < b.Hours
	}
	return a.Minutes < b.Minutes
}

func decompose(totalMinutes int) Delay {
	return Delay{
		Days:    totalMinutes / minutesPerDay,
		Hours:   (totalMinutes % minutesPerDay) / 60,
		Minutes: totalMinutes % 60,
	}
}

// storageWeekday maps Go's weekday numbering (Sunday = 0) onto the stored
// convention (1..7, 1 = Monday). Week tasks carry the stored numbering, so
// both sides of the days-to-target subtraction go through this table.
var storageWeekday = map[time.Weekday]int{
	time.Monday:    1,
	time.Tuesday:   2,
	time.Wednesday: 3,
	time.Thursday:  4,
	time.Friday:    5,
	time.Saturday:  6,
	time.Sunday:    7,
}

// Until returns the delay until the task next fires, evaluated at now in
// now's location. For a one-off task whose instant is strictly in the past
// it returns ok = false; such a task has already fired and must not be
// displayed as upcoming.
func Until(task led.TimeTask, now time.Time) (Delay, bool) {
	switch task.Kind {
	case led.TaskOnce:
		return onceDelay(task.EndTime, now)
	case led.TaskDay:
		return dayDelay(task.At, now), true
	case led.TaskWeek:
		return weekDelay(task.At, task.DayOfWeek, now), true
	default:
		return Delay{}, false
	}
}

func onceDelay(end, now time.Time) (Delay, bool) {
	if end.Before(now) {
		return Delay{}, false
	}
	return decompose(int(end.Sub(now) / time.Minute)), true
}

// dayDelay treats at's local time-of-day as a daily trigger. The result
// never carries a days component: the next occurrence is at most a full
// 1440-minute cycle away, reported as hours and minutes only.
func dayDelay(at, now time.Time) Delay {
	local := at.In(now.Location())
	next := time.Date(now.Year(), now.Month(), now.Day(), local.Hour(), local.Minute(), 0, 0, now.Location())
	if next.Before(now) {
		next = next.AddDate(0, 0, 1)
	}
	minutes := int(next.Sub(now) / time.Minute)
	return Delay{Days: 0, Hours: minutes / 60, Minutes: minutes % 60}
}

// weekDelay treats at's local time-of-day on targetDay (stored 1..7 Monday
// first) as a weekly trigger. When the target weekday is today, the trigger
// counts for today only while its time-of-day has not passed; otherwise it
// rolls a full week ahead.
func weekDelay(at time.Time, targetDay int, now time.Time) Delay {
	local := at.In(now.Location())
	current := storageWeekday[now.Weekday()]
	daysToTarget := (targetDay - current + 7) % 7
	next := time.Date(now.Year(), now.Month(), now.Day(), local.Hour(), local.Minute(), 0, 0, now.Location()).
		AddDate(0, 0, daysToTarget)
	if next.Before(now) {
		next = next.AddDate(0, 0, 7)
	}
	return decompose(int(next.Sub(now) / time.Minute))
}

// Nearest picks the upcoming task with the smallest delay under the
// lexicographic (days, hours, minutes) ordering, after dropping expired
// one-off tasks. ok is false when no task is upcoming. Ties keep the
// earliest task in the slice.
func Nearest(tasks []led.TimeTask, now time.Time) (led.TimeTask, Delay, bool) {
	var (
		best      led.TimeTask
		bestDelay Delay
		found     bool
	)
	for _, task := range tasks {
		d, ok := Until(task, now)
		if !ok {
			continue
		}
		if !found || Less(d, bestDelay) {
			best, bestDelay, found = task, d, true
		}
	}
	return best, bestDelay, found
}
