package task

import (
	"sort"
	"time"
)

type Task struct {
	ID              int64     `json:"id" db:"id"`
	Event           string    `json:"event" db:"event"`
	Day             Day       `json:"day" db:"day"`
	StartTime       TimeOfDay `json:"start_time" db:"start_time"`
	Description     string    `json:"description" db:"description"`
	AdditionalLinks string    `json:"additional_links" db:"additional_links"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

type Day string

const DayFriday Day = "Friday"
const DaySaturday Day = "Saturday"
const DaySunday Day = "Sunday"

// Days допустимые дни в порядке отображения
var Days = []Day{DayFriday, DaySaturday, DaySunday}

const MaxEventLength = 255
const MaxDescriptionLength = 500

type Health string

const HealthHealthy Health = "healthy"
const HealthUnhealthy Health = "unhealthy"

func (d Day) Valid() bool {
	return d.Rank() >= 0
}

// Rank позиция дня в выходных, -1 для остальных значений
func (d Day) Rank() int {
	for i, day := range Days {
		if d == day {
			return i
		}
	}
	return -1
}

func (d Day) String() string {
	return string(d)
}

// Less: a показывается раньше b
func Less(a, b *Task) bool {
	if ra, rb := a.Day.Rank(), b.Day.Rank(); ra != rb {
		return ra < rb
	}
	if c := a.StartTime.Compare(b.StartTime); c != 0 {
		return c < 0
	}
	return a.ID < b.ID
}

func Sort(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return Less(tasks[i], tasks[j])
	})
}

func IsSorted(tasks []*Task) bool {
	return sort.SliceIsSorted(tasks, func(i, j int) bool {
		return Less(tasks[i], tasks[j])
	})
}
