package dashboard

import (
	"time"

	"github.com/SubhabrataBarik/TaskMaster/internal/models"
)

// Buckets groups a page of tasks the way the dashboard shows them.
type Buckets struct {
	Overdue  []models.Task
	Today    []models.Task
	Upcoming []models.Task
}

// Len is the number of tasks across all buckets.
func (b Buckets) Len() int {
	return len(b.Overdue) + len(b.Today) + len(b.Upcoming)
}

// Bucket splits tasks relative to the calendar date of today, keeping input order in each bucket.
//
//   - Overdue: not completed and due before today
//   - Today: due today, whatever the status
//   - Upcoming: everything else, including undated tasks and completed past-due ones
func Bucket(tasks []models.Task, today time.Time) Buckets {
	day := today.Format(models.DateLayout)
	b := Buckets{Overdue: []models.Task{}, Today: []models.Task{}, Upcoming: []models.Task{}}

	for _, t := range tasks {
		due, ok := t.Due()
		if !ok {
			b.Upcoming = append(b.Upcoming, t)
			continue
		}

		switch d := due.Format(models.DateLayout); {
		case d == day:
			b.Today = append(b.Today, t)
		case d < day && !t.Done():
			b.Overdue = append(b.Overdue, t)
		default:
			b.Upcoming = append(b.Upcoming, t)
		}
	}
	return b
}
