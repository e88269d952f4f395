package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/SubhabrataBarik/TaskMaster/internal/models"
	"github.com/charmbracelet/log"
)

// ErrStale is returned by [Controller.Load] when a newer load started before this one finished.
var ErrStale = fmt.Errorf("load superseded by a newer request")

// TaskLister fetches one page of tasks. The task service implements it.
type TaskLister interface {
	List(ctx context.Context, query url.Values) (*models.Page[models.Task], error)
}

// Controller owns the dashboard's filter, page and bucket state.
//
// Every load gets a generation number; only the result of the newest generation is applied,
// so a slow response can never overwrite a fresher one.
type Controller struct {
	mu      sync.Mutex
	tasks   TaskLister
	logger  *log.Logger
	now     func() time.Time
	filter  FilterState
	page    PageState
	gen     uint64
	items   []models.Task
	buckets Buckets
	lastErr error
}

// ControllerOpts configures a [Controller].
type ControllerOpts struct {
	Logger   *log.Logger
	Now      func() time.Time
	PageSize int
}

// NewController creates a controller on page 1 with no filters.
func NewController(tasks TaskLister, opts ControllerOpts) *Controller {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	page := NewPageState()
	if opts.PageSize > 0 {
		page.PageSize = opts.PageSize
	}
	return &Controller{
		tasks:   tasks,
		logger:  opts.Logger,
		now:     opts.Now,
		page:    page,
		buckets: Bucket(nil, opts.Now()),
	}
}

// Begin starts a new load and returns its generation and query.
func (c *Controller) Begin() (uint64, url.Values) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return c.gen, ComputeQuery(c.filter, c.page)
}

// Finish applies the outcome of load gen. It returns false, changing nothing, when gen is stale.
// On error the previous tasks are kept and the error is recorded.
func (c *Controller) Finish(gen uint64, page *models.Page[models.Task], err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		c.logger.Debug("discarding stale load", "gen", gen, "latest", c.gen)
		return false
	}

	c.lastErr = err
	if err != nil {
		return true
	}

	var tasks []models.Task
	if page != nil {
		tasks = page.Results
	}
	c.page.Apply(page)
	c.items = tasks
	c.buckets = Bucket(tasks, c.now())
	return true
}

// Load fetches the current page and applies it.
func (c *Controller) Load(ctx context.Context) (Buckets, error) {
	gen, query := c.Begin()
	c.logger.Debug("loading tasks", "gen", gen, "query", query.Encode())

	page, err := c.tasks.List(ctx, query)
	if !c.Finish(gen, page, err) {
		return c.Buckets(), ErrStale
	}
	if err != nil {
		return c.Buckets(), err
	}
	return c.Buckets(), nil
}

// Filter returns a copy of the current filter.
func (c *Controller) Filter() FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter.Clone()
}

// Page returns the current page state.
func (c *Controller) Page() PageState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Buckets returns the buckets of the last applied load.
func (c *Controller) Buckets() Buckets {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buckets
}

// Tasks returns the tasks of the last applied load in server order.
func (c *Controller) Tasks() []models.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Task(nil), c.items...)
}

// Err is the error of the last applied load, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Query is the list query the next load would send.
func (c *Controller) Query() url.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ComputeQuery(c.filter, c.page)
}

// SetFilter replaces the whole filter and returns to page 1.
func (c *Controller) SetFilter(f FilterState) {
	c.update(func() { c.filter = f.Clone() })
}

// ToggleStatus flips one status in the filter and returns to page 1.
func (c *Controller) ToggleStatus(s models.Status) {
	c.update(func() { c.filter.ToggleStatus(s) })
}

// TogglePriority flips one priority in the filter and returns to page 1.
func (c *Controller) TogglePriority(p models.Priority) {
	c.update(func() { c.filter.TogglePriority(p) })
}

// SetTimeline sets the due date window and returns to page 1.
func (c *Controller) SetTimeline(t Timeline) {
	c.update(func() { c.filter.Timeline = t })
}

// SetSearch sets the search text and returns to page 1.
func (c *Controller) SetSearch(q string) {
	c.update(func() { c.filter.Search = strings.TrimSpace(q) })
}

// ClearFilters removes every filter and returns to page 1.
func (c *Controller) ClearFilters() {
	c.update(func() { c.filter = FilterState{} })
}

func (c *Controller) update(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
	c.page.CurrentPage = 1
}

// ChangePage moves to page n, never below 1.
func (c *Controller) ChangePage(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page.CurrentPage = max(1, n)
}

// NextPage advances when the server reported a next page.
func (c *Controller) NextPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.page.HasNext {
		return false
	}
	c.page.CurrentPage++
	return true
}

// PrevPage goes back when the server reported a previous page.
func (c *Controller) PrevPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.page.HasPrevious || c.page.CurrentPage <= 1 {
		return false
	}
	c.page.CurrentPage--
	return true
}

// AfterDelete steps back one page when the deleted task was the only one on the last page.
func (c *Controller) AfterDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := c.page.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if c.page.CurrentPage > 1 && c.page.TotalCount%size == 1 {
		c.page.CurrentPage--
	}
	if c.page.TotalCount > 0 {
		c.page.TotalCount--
	}
}

// Summary describes the active filters. See [FilterState.Summary].
func (c *Controller) Summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter.Summary()
}
