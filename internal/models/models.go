package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for due dates.
const DateLayout = "2006-01-02"

// Priority is a task priority.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority in canonical order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

// ParsePriority parses a case-insensitive priority name.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q (want low, medium or high)", s)
	}
	return p, nil
}

// Status is a task status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	// StatusCancelled exists server side; it is decoded but never sent.
	StatusCancelled Status = "cancelled"
)

// Statuses lists the statuses a client may set or filter on, in canonical order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus parses a status name. Dashes and spaces are accepted in place of underscores.
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	st := Status(norm)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q (want pending, in_progress or completed)", s)
	}
	return st, nil
}

// SubtaskStatus is the two-state status of a subtask.
type SubtaskStatus string

const (
	SubtaskPending   SubtaskStatus = "pending"
	SubtaskCompleted SubtaskStatus = "completed"
)

// Toggle flips pending and completed.
func (s SubtaskStatus) Toggle() SubtaskStatus {
	if s == SubtaskCompleted {
		return SubtaskPending
	}
	return SubtaskCompleted
}

func (s SubtaskStatus) Valid() bool {
	return s == SubtaskPending || s == SubtaskCompleted
}

// Tag is a label attached to a task. Writes send names only.
type Tag struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Task is a to-do item owned by the authenticated user.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status"`
	DueDate     string    `json:"due_date,omitempty"`
	DueTime     string    `json:"due_time,omitempty"`
	Tags        []Tag     `json:"tags,omitempty"`
	Subtasks    []Subtask `json:"subtasks,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Owner       string    `json:"owner,omitempty"`
}

// Due parses DueDate. ok is false when the task has no date or the date is malformed.
func (t Task) Due() (due time.Time, ok bool) {
	if t.DueDate == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, t.DueDate)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Done reports whether the task is completed.
func (t Task) Done() bool { return t.Status == StatusCompleted }

// TagNames returns the task's tag names in order.
func (t Task) TagNames() []string {
	names := make([]string, len(t.Tags))
	for i, tag := range t.Tags {
		names[i] = tag.Name
	}
	return names
}

// UnmarshalJSON accepts tags as either objects or bare names.
func (t *Task) UnmarshalJSON(data []byte) error {
	type alias Task
	aux := struct {
		*alias
		Tags []json.RawMessage `json:"tags"`
	}{alias: (*alias)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	t.Tags = nil
	for _, raw := range aux.Tags {
		var tag Tag
		if bytes.HasPrefix(bytes.TrimSpace(raw), []byte(`"`)) {
			if err := json.Unmarshal(raw, &tag.Name); err != nil {
				return err
			}
		} else if err := json.Unmarshal(raw, &tag); err != nil {
			return err
		}
		t.Tags = append(t.Tags, tag)
	}
	return nil
}

// Hours is an estimate in hours. The API serializes decimals as strings, so both forms decode.
type Hours float64

func (h *Hours) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*h = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid hours %q: %w", s, err)
	}
	*h = Hours(f)
	return nil
}

// Subtask is an ordered checklist entry of a task.
type Subtask struct {
	ID             string        `json:"id"`
	TaskID         string        `json:"task_id,omitempty"`
	Title          string        `json:"title"`
	Status         SubtaskStatus `json:"status"`
	EstimatedHours Hours         `json:"estimated_hours"`
	OrderIndex     int           `json:"order_index"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
}

// Done reports whether the subtask is completed.
func (s Subtask) Done() bool { return s.Status == SubtaskCompleted }

// OrderItem is one entry of a reorder request.
type OrderItem struct {
	ID         string `json:"id"`
	OrderIndex int    `json:"order_index"`
}

// UserID is a user identifier which the API may encode as a number or a string.
type UserID string

func (id *UserID) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" {
		*id = ""
		return nil
	}
	*id = UserID(strings.Trim(s, `"`))
	return nil
}

// User is the authenticated account.
type User struct {
	ID       UserID `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Session is the persisted token pair.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Empty reports whether no access token is held.
func (s Session) Empty() bool { return s.AccessToken == "" }

// TokenResponse is returned by login, refresh and the Google exchange.
// Refresh is empty when a refresh response does not rotate the refresh token.
type TokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// LoginRequest is the body of POST /auth/login/.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return fmt.Errorf("email and password are required")
	}
	return nil
}

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// RegisterRequest is the body of POST /auth/register/.
type RegisterRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

func (r RegisterRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Email) == "":
		return fmt.Errorf("email is required")
	case !strings.Contains(r.Email, "@"):
		return fmt.Errorf("email %q is not valid", r.Email)
	case strings.TrimSpace(r.Username) == "":
		return fmt.Errorf("username is required")
	case len(r.Password) < MinPasswordLength:
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	case r.Password != r.Password2:
		return fmt.Errorf("passwords do not match")
	}
	return nil
}

// TaskInput is the body of POST /tasks/.
type TaskInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Status      Status   `json:"status"`
	DueDate     *string  `json:"due_date"`
	DueTime     *string  `json:"due_time"`
	Tags        []string `json:"tags,omitempty"`
}

// Normalize fills defaults: medium priority, pending status, and null for empty dates.
func (in *TaskInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	if in.DueDate != nil && *in.DueDate == "" {
		in.DueDate = nil
	}
	if in.DueTime != nil && *in.DueTime == "" {
		in.DueTime = nil
	}
}

func (in TaskInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return fmt.Errorf("unknown priority %q", in.Priority)
	}
	if in.Status != "" && !in.Status.Valid() {
		return fmt.Errorf("unknown status %q", in.Status)
	}
	if in.DueDate != nil {
		if err := ValidateDate(*in.DueDate); err != nil {
			return err
		}
	}
	if in.DueTime != nil {
		if err := ValidateTime(*in.DueTime); err != nil {
			return err
		}
	}
	return nil
}

// TaskPatch is the body of PATCH /tasks/{id}/. Only non-nil fields are sent.
// An empty DueDate or DueTime clears the value.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *Priority
	Status      *Status
	DueDate     *string
	DueTime     *string
	Tags        *[]string
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.Status == nil &&
		p.DueDate == nil && p.DueTime == nil && p.Tags == nil
}

func (p TaskPatch) Validate() error {
	if p.IsEmpty() {
		return fmt.Errorf("nothing to update")
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("unknown priority %q", *p.Priority)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("unknown status %q", *p.Status)
	}
	if p.DueDate != nil && *p.DueDate != "" {
		if err := ValidateDate(*p.DueDate); err != nil {
			return err
		}
	}
	if p.DueTime != nil && *p.DueTime != "" {
		if err := ValidateTime(*p.DueTime); err != nil {
			return err
		}
	}
	return nil
}

func (p TaskPatch) MarshalJSON() ([]byte, error) {
	body := map[string]any{}
	if p.Title != nil {
		body["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		body["description"] = *p.Description
	}
	if p.Priority != nil {
		body["priority"] = *p.Priority
	}
	if p.Status != nil {
		body["status"] = *p.Status
	}
	if p.DueDate != nil {
		body["due_date"] = nullable(*p.DueDate)
	}
	if p.DueTime != nil {
		body["due_time"] = nullable(*p.DueTime)
	}
	if p.Tags != nil {
		body["tags"] = *p.Tags
	}
	return json.Marshal(body)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ValidateDate checks the YYYY-MM-DD layout.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return fmt.Errorf("due date %q must be YYYY-MM-DD", s)
	}
	return nil
}

// ValidateTime checks HH:MM or HH:MM:SS.
func ValidateTime(s string) error {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if _, err := time.Parse(layout, s); err == nil {
			return nil
		}
	}
	return fmt.Errorf("due time %q must be HH:MM", s)
}

// Page is one page of a list endpoint.
//
// It decodes both a bare JSON array and a {count,next,previous,results} envelope.
// A bare array becomes a single page whose Count is the number of results.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

type pageEnvelope[T any] struct {
	Count    *int    `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func (p *Page[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*p = Page[T]{Results: []T{}}
		return nil
	case trimmed[0] == '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		if items == nil {
			items = []T{}
		}
		*p = Page[T]{Count: len(items), Results: items}
		return nil
	case trimmed[0] == '{':
		var env pageEnvelope[T]
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return err
		}
		if env.Results == nil {
			env.Results = []T{}
		}
		count := len(env.Results)
		if env.Count != nil {
			count = *env.Count
		}
		*p = Page[T]{Count: count, Next: env.Next, Previous: env.Previous, Results: env.Results}
		return nil
	default:
		return fmt.Errorf("expected a JSON array or page object")
	}
}

// HasNext reports whether the server advertised a following page.
func (p Page[T]) HasNext() bool { return p.Next != nil && *p.Next != "" }

// HasPrevious reports whether the server advertised a preceding page.
func (p Page[T]) HasPrevious() bool { return p.Previous != nil && *p.Previous != "" }
