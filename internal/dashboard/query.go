package dashboard

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/SubhabrataBarik/TaskMaster/internal/models"
	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
)

// DefaultPageSize matches the API's page size.
const DefaultPageSize = 10

// Timeline is a server-side due date window.
type Timeline string

const (
	TimelineNone    Timeline = ""
	TimelineOverdue Timeline = "overdue"
	TimelineToday   Timeline = "today"
	TimelineWeek    Timeline = "week"
)

// Timelines lists the selectable windows in display order.
var Timelines = []Timeline{TimelineNone, TimelineOverdue, TimelineToday, TimelineWeek}

// ParseTimeline accepts overdue, today, week, or "", "none" and "all" for no window.
func ParseTimeline(s string) (Timeline, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "all":
		return TimelineNone, nil
	case string(TimelineOverdue):
		return TimelineOverdue, nil
	case string(TimelineToday):
		return TimelineToday, nil
	case string(TimelineWeek):
		return TimelineWeek, nil
	}
	return TimelineNone, fmt.Errorf("%w: unknown timeline %q (want overdue, today or week)", shared.ErrInvalidFlag, s)
}

// Next cycles through [Timelines].
func (t Timeline) Next() Timeline {
	for i, v := range Timelines {
		if v == t {
			return Timelines[(i+1)%len(Timelines)]
		}
	}
	return TimelineNone
}

// FilterState is the user's current task filter. The zero value matches everything.
type FilterState struct {
	Status   map[models.Status]bool
	Priority map[models.Priority]bool
	Timeline Timeline
	Search   string
}

// Clone returns a deep copy, so the result can be changed without touching f.
func (f FilterState) Clone() FilterState {
	out := FilterState{Timeline: f.Timeline, Search: f.Search}
	if len(f.Status) > 0 {
		out.Status = make(map[models.Status]bool, len(f.Status))
		for k, v := range f.Status {
			out.Status[k] = v
		}
	}
	if len(f.Priority) > 0 {
		out.Priority = make(map[models.Priority]bool, len(f.Priority))
		for k, v := range f.Priority {
			out.Priority[k] = v
		}
	}
	return out
}

// ToggleStatus adds s to the filter or removes it.
func (f *FilterState) ToggleStatus(s models.Status) {
	if f.Status == nil {
		f.Status = map[models.Status]bool{}
	}
	if f.Status[s] {
		delete(f.Status, s)
		return
	}
	f.Status[s] = true
}

// TogglePriority adds p to the filter or removes it.
func (f *FilterState) TogglePriority(p models.Priority) {
	if f.Priority == nil {
		f.Priority = map[models.Priority]bool{}
	}
	if f.Priority[p] {
		delete(f.Priority, p)
		return
	}
	f.Priority[p] = true
}

// Statuses returns the selected statuses in canonical order.
func (f FilterState) Statuses() []models.Status {
	var out []models.Status
	for _, s := range models.Statuses {
		if f.Status[s] {
			out = append(out, s)
		}
	}
	return out
}

// Priorities returns the selected priorities in canonical order.
func (f FilterState) Priorities() []models.Priority {
	var out []models.Priority
	for _, p := range models.Priorities {
		if f.Priority[p] {
			out = append(out, p)
		}
	}
	return out
}

// Active reports whether any filter is set.
func (f FilterState) Active() bool {
	return len(f.Statuses()) > 0 || len(f.Priorities()) > 0 ||
		f.Timeline != TimelineNone || strings.TrimSpace(f.Search) != ""
}

// Summary describes the active filters, e.g. "Timeline: today | Status: pending | Priority: high".
// It is empty when nothing is filtered.
func (f FilterState) Summary() string {
	var parts []string
	if f.Timeline != TimelineNone {
		parts = append(parts, "Timeline: "+string(f.Timeline))
	}
	if st := f.Statuses(); len(st) > 0 {
		parts = append(parts, "Status: "+joinEnums(st, ", "))
	}
	if pr := f.Priorities(); len(pr) > 0 {
		parts = append(parts, "Priority: "+joinEnums(pr, ", "))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		parts = append(parts, fmt.Sprintf("Search: %q", q))
	}
	return strings.Join(parts, " | ")
}

// PageState tracks pagination as reported by the last list response.
type PageState struct {
	CurrentPage int
	PageSize    int
	TotalCount  int
	HasNext     bool
	HasPrevious bool
}

// NewPageState starts on page 1 with [DefaultPageSize].
func NewPageState() PageState {
	return PageState{CurrentPage: 1, PageSize: DefaultPageSize}
}

// Apply records the count and neighbours of a fetched page.
func (p *PageState) Apply(page *models.Page[models.Task]) {
	if page == nil {
		return
	}
	p.TotalCount = page.Count
	p.HasNext = page.HasNext()
	p.HasPrevious = page.HasPrevious()
}

// TotalPages is the number of pages for TotalCount, at least 1.
func (p PageState) TotalPages() int {
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	return max(1, (p.TotalCount+size-1)/size)
}

// ComputeQuery builds the list query for the given filter and page.
// Set members are emitted in canonical order, so equal states give equal queries.
func ComputeQuery(f FilterState, p PageState) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(max(1, p.CurrentPage)))

	if st := f.Statuses(); len(st) > 0 {
		q.Set("status__in", joinEnums(st, ","))
	}
	if pr := f.Priorities(); len(pr) > 0 {
		q.Set("priority__in", joinEnums(pr, ","))
	}
	if f.Timeline != TimelineNone {
		q.Set("timeline", string(f.Timeline))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Set("search", s)
	}
	return q
}

func joinEnums[T ~string](vals []T, sep string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = string(v)
	}
	return strings.Join(parts, sep)
}
