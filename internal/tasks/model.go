package tasks

import (
	"fmt"
	"strings"
	"time"
)

// MaxTasksPerDay caps how many tasks a single day may hold.
const MaxTasksPerDay = 3

// DateLayout is the calendar date format used for keys and JSON.
const DateLayout = "2006-01-02"

type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Date      string `json:"date"`
}

// DailyTasks is the task list scoped to one calendar date.
type DailyTasks struct {
	Date  string `json:"date"`
	Tasks []Task `json:"tasks"`
}

func emptyDay(date string) DailyTasks {
	return DailyTasks{Date: date, Tasks: []Task{}}
}

// Full reports whether the day has reached MaxTasksPerDay.
func (d DailyTasks) Full() bool {
	return len(d.Tasks) >= MaxTasksPerDay
}

// validate rejects records no sequence of store commands could produce.
func (d DailyTasks) validate() error {
	if len(d.Tasks) > MaxTasksPerDay {
		return fmt.Errorf("%d tasks, at most %d allowed", len(d.Tasks), MaxTasksPerDay)
	}
	for i, t := range d.Tasks {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("task %d has no id", i)
		}
		if strings.TrimSpace(t.Title) == "" {
			return fmt.Errorf("task %s has a blank title", t.ID)
		}
	}
	return nil
}

func (d DailyTasks) clone() DailyTasks {
	out := DailyTasks{Date: d.Date, Tasks: make([]Task, len(d.Tasks))}
	copy(out.Tasks, d.Tasks)
	return out
}

func (d DailyTasks) indexOf(id string) int {
	for i, t := range d.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// ParseDate validates s as a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// DateOf returns the calendar date of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// addDays shifts a YYYY-MM-DD date by n days. The input must be valid.
func addDays(date string, n int) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format(DateLayout)
}
