package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SubhabrataBarik/TaskMaster/internal/models"
	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"

	defaultMockSecret = "taskmaster-mock-secret"
	defaultTagColor   = "#3B82F6"

	// DemoEmail and DemoPassword sign in to a seeded mock backend.
	DemoEmail    = "demo@example.com"
	DemoPassword = "password123"
)

// MockOpts configures a [MockAPI].
type MockOpts struct {
	Prefix        string // path prefix, e.g. "/api"
	Secret        []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RotateRefresh bool
	PageSize      int
	Seed          bool // create the demo user with a handful of tasks
	Logger        *log.Logger
	Now           func() time.Time
}

type mockUser struct {
	id       int
	email    string
	username string
	password string
}

type mockTask struct {
	task  models.Task
	owner int
	seq   int
}

type mockSubtask struct {
	sub   models.Subtask
	owner int
}

type mockClaims struct {
	Type string `json:"token_type"`
	jwt.RegisteredClaims
}

// MockAPI is an in-memory implementation of the TaskMaster REST API.
//
// It issues HS256 JWTs with real expiry so the client's refresh path can be exercised end to end.
type MockAPI struct {
	opts   MockOpts
	logger *log.Logger

	mu        sync.Mutex
	users     map[int]*mockUser
	nextUser  int
	nextSeq   int
	tasks     map[string]*mockTask
	subtasks  map[string]*mockSubtask
	blacklist map[string]bool
	refreshes int
}

// NewMockAPI creates a mock backend. Zero options get development defaults.
func NewMockAPI(opts MockOpts) *MockAPI {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte(defaultMockSecret)
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 5 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 24 * time.Hour
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	opts.Prefix = "/" + strings.Trim(opts.Prefix, "/")
	if opts.Prefix == "/" {
		opts.Prefix = ""
	}

	m := &MockAPI{
		opts:      opts,
		logger:    opts.Logger,
		users:     map[int]*mockUser{},
		nextUser:  1,
		tasks:     map[string]*mockTask{},
		subtasks:  map[string]*mockSubtask{},
		blacklist: map[string]bool{},
	}
	if opts.Seed {
		m.seed()
	}
	return m
}

// Routes returns the HTTP routes this handler serves.
func (m *MockAPI) Routes() []string {
	return []string{m.opts.Prefix + "/auth/", m.opts.Prefix + "/tasks/", m.opts.Prefix + "/subtasks/"}
}

// RefreshCount returns how many refresh requests have been served.
func (m *MockAPI) RefreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes
}

// IssueTokens signs a token pair for the user with the given email.
func (m *MockAPI) IssueTokens(email string) (models.TokenResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.userByEmail(email)
	if u == nil {
		return models.TokenResponse{}, fmt.Errorf("%w: no user %q", shared.ErrNotFound, email)
	}
	return m.issue(u)
}

func (m *MockAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, m.opts.Prefix)
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case match(parts, "auth", "register"):
		m.allow(w, r, m.register, http.MethodPost)
	case match(parts, "auth", "login"):
		m.allow(w, r, m.login, http.MethodPost)
	case match(parts, "auth", "token", "refresh"):
		m.allow(w, r, m.refresh, http.MethodPost)
	case match(parts, "auth", "google"):
		m.allow(w, r, m.google, http.MethodPost)
	case match(parts, "auth", "logout"):
		m.allow(w, r, m.authed(m.logout), http.MethodPost)
	case match(parts, "auth", "me"):
		m.allow(w, r, m.authed(m.me), http.MethodGet)
	case match(parts, "tasks"):
		m.allow(w, r, m.authed(m.tasksCollection), http.MethodGet, http.MethodPost)
	case match(parts, "tasks", "*"):
		m.allow(w, r, m.authed(m.taskDetail(parts[1])), http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete)
	case match(parts, "tasks", "*", "complete"):
		m.allow(w, r, m.authed(m.completeTask(parts[1])), http.MethodPost)
	case match(parts, "tasks", "*", "subtasks"):
		m.allow(w, r, m.authed(m.taskSubtasks(parts[1])), http.MethodGet, http.MethodPost)
	case match(parts, "subtasks", "reorder"):
		m.allow(w, r, m.authed(m.reorder), http.MethodPost)
	case match(parts, "subtasks", "*"):
		m.allow(w, r, m.authed(m.subtaskDetail(parts[1])), http.MethodGet, http.MethodPatch, http.MethodDelete)
	default:
		writeDetail(w, http.StatusNotFound, "Not found.")
	}
}

func match(parts []string, pattern ...string) bool {
	if len(parts) != len(pattern) {
		return false
	}
	for i, p := range pattern {
		if p != "*" && p != parts[i] {
			return false
		}
	}
	return true
}

type userHandler func(w http.ResponseWriter, r *http.Request, u *mockUser)

func (m *MockAPI) allow(w http.ResponseWriter, r *http.Request, h http.HandlerFunc, methods ...string) {
	for _, method := range methods {
		if r.Method == method {
			h(w, r)
			return
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeDetail(w, http.StatusMethodNotAllowed, fmt.Sprintf("Method %q not allowed.", r.Method))
}

// authed resolves the bearer token to a user, answering 401 the way simplejwt does.
func (m *MockAPI) authed(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Authorization header must contain two space-delimited values")
			return
		}

		claims, err := m.parse(token, tokenAccess)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}

		m.mu.Lock()
		u := m.users[atoi(claims.Subject)]
		m.mu.Unlock()
		if u == nil {
			writeDetail(w, http.StatusUnauthorized, "User not found")
			return
		}

		h(w, r, u)
	}
}

func (m *MockAPI) register(w http.ResponseWriter, r *http.Request) {
	var body models.RegisterRequest
	if !decodeBody(w, r, &body) {
		return
	}

	errs := fieldErrors{}
	errs.required("email", body.Email)
	errs.required("username", body.Username)
	errs.required("password", body.Password)
	errs.required("password2", body.Password2)
	if body.Password != "" && len(body.Password) < models.MinPasswordLength {
		errs.add("password", fmt.Sprintf("This password is too short. It must contain at least %d characters.", models.MinPasswordLength))
	}
	if body.Password != body.Password2 {
		errs.add("password", "Password fields didn't match.")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if body.Email != "" && m.userByEmail(body.Email) != nil {
		errs.add("email", "user with this email already exists.")
	}
	if errs.any() {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	u := m.addUser(body.Email, body.Username, body.Password)
	m.logger.Debug("registered user", "id", u.id, "email", u.email)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "User registered successfully",
		"id":       u.id,
		"email":    u.email,
		"username": u.username,
	})
}

func (m *MockAPI) login(w http.ResponseWriter, r *http.Request) {
	var body models.LoginRequest
	if !decodeBody(w, r, &body) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.userByEmail(body.Email)
	if u == nil || u.password != body.Password {
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	tokens, err := m.issue(u)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access":  tokens.Access,
		"refresh": tokens.Refresh,
		"user":    userJSON(u),
	})
}

func (m *MockAPI) refresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++

	if body.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, fieldErrors{"refresh": {"This field is required."}})
		return
	}

	claims, err := m.parse(body.Refresh, tokenRefresh)
	if err != nil || m.blacklist[claims.ID] {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}

	u := m.users[atoi(claims.Subject)]
	if u == nil {
		writeDetail(w, http.StatusUnauthorized, "User not found")
		return
	}

	access, err := m.sign(u, tokenAccess, m.opts.AccessTTL)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := models.TokenResponse{Access: access}
	if m.opts.RotateRefresh {
		m.blacklist[claims.ID] = true
		if resp.Refresh, err = m.sign(u, tokenRefresh, m.opts.RefreshTTL); err != nil {
			writeDetail(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// google accepts any non-empty credential and signs in a user derived from it.
func (m *MockAPI) google(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.AccessToken == "" {
		writeDetail(w, http.StatusBadRequest, "access_token is required")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	handle := body.AccessToken
	if len(handle) > 12 {
		handle = handle[:12]
	}
	email := "google-" + strings.ToLower(handle) + "@example.com"
	u := m.userByEmail(email)
	if u == nil {
		u = m.addUser(email, "google-"+handle, "")
	}

	tokens, err := m.issue(u)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (m *MockAPI) logout(w http.ResponseWriter, r *http.Request, u *mockUser) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	claims, err := m.parse(body.Refresh, tokenRefresh)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Token is invalid or expired")
		return
	}

	m.mu.Lock()
	m.blacklist[claims.ID] = true
	m.mu.Unlock()

	w.WriteHeader(http.StatusResetContent)
}

func (m *MockAPI) me(w http.ResponseWriter, r *http.Request, u *mockUser) {
	writeJSON(w, http.StatusOK, userJSON(u))
}

func (m *MockAPI) tasksCollection(w http.ResponseWriter, r *http.Request, u *mockUser) {
	if r.Method == http.MethodPost {
		m.createTask(w, r, u)
		return
	}
	m.listTasks(w, r, u)
}

func (m *MockAPI) listTasks(w http.ResponseWriter, r *http.Request, u *mockUser) {
	q := r.URL.Query()
	today := m.opts.Now().Format(models.DateLayout)
	weekEnd := m.opts.Now().AddDate(0, 0, 7).Format(models.DateLayout)

	statuses := splitSet(q.Get("status__in"), q.Get("status"))
	priorities := splitSet(q.Get("priority__in"), q.Get("priority"))
	timeline := q.Get("timeline")
	search := strings.ToLower(strings.TrimSpace(q.Get("search")))

	m.mu.Lock()
	var matched []*mockTask
	for _, mt := range m.tasks {
		t := mt.task
		if mt.owner != u.id {
			continue
		}
		if len(statuses) > 0 && !statuses[string(t.Status)] {
			continue
		}
		if len(priorities) > 0 && !priorities[string(t.Priority)] {
			continue
		}
		if !inTimeline(t, timeline, today, weekEnd) {
			continue
		}
		if search != "" && !matchesSearch(t, search) {
			continue
		}
		matched = append(matched, mt)
	}
	sortTasks(matched, q.Get("ordering"))

	results := make([]models.Task, 0, len(matched))
	for _, mt := range matched {
		results = append(results, m.withSubtasks(mt.task))
	}
	m.mu.Unlock()

	page := 1
	if p := q.Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			writeDetail(w, http.StatusNotFound, "Invalid page.")
			return
		}
		page = n
	}

	size := m.opts.PageSize
	pages := max(1, (len(results)+size-1)/size)
	if page > pages {
		writeDetail(w, http.StatusNotFound, "Invalid page.")
		return
	}

	start := (page - 1) * size
	end := min(start+size, len(results))

	env := struct {
		Count    int           `json:"count"`
		Next     *string       `json:"next"`
		Previous *string       `json:"previous"`
		Results  []models.Task `json:"results"`
	}{Count: len(results), Results: results[start:end]}
	if page < pages {
		next := pageURL(r, page+1)
		env.Next = &next
	}
	if page > 1 {
		prev := pageURL(r, page-1)
		env.Previous = &prev
	}
	writeJSON(w, http.StatusOK, env)
}

func (m *MockAPI) createTask(w http.ResponseWriter, r *http.Request, u *mockUser) {
	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}

	now := m.opts.Now().UTC()
	task := models.Task{
		ID:        shared.GenerateID(),
		Priority:  models.PriorityMedium,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Owner:     u.username,
	}
	if _, ok := fields["title"]; !ok {
		writeJSON(w, http.StatusBadRequest, fieldErrors{"title": {"This field is required."}})
		return
	}
	if errs := applyTaskFields(&task, fields); errs.any() {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	m.mu.Lock()
	m.nextSeq++
	m.tasks[task.ID] = &mockTask{task: task, owner: u.id, seq: m.nextSeq}
	m.mu.Unlock()

	writeJSON(w, http.StatusCreated, task)
}

func (m *MockAPI) taskDetail(id string) userHandler {
	return func(w http.ResponseWriter, r *http.Request, u *mockUser) {
		m.mu.Lock()
		defer m.mu.Unlock()

		mt := m.ownedTask(id, u)
		if mt == nil {
			writeDetail(w, http.StatusNotFound, "No Task matches the given query.")
			return
		}

		switch r.Method {
		case http.MethodDelete:
			delete(m.tasks, id)
			for sid, ms := range m.subtasks {
				if ms.sub.TaskID == id {
					delete(m.subtasks, sid)
				}
			}
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPatch, http.MethodPut:
			fields, ok := decodeFields(w, r)
			if !ok {
				return
			}
			updated := mt.task
			if errs := applyTaskFields(&updated, fields); errs.any() {
				writeJSON(w, http.StatusBadRequest, errs)
				return
			}
			updated.UpdatedAt = m.opts.Now().UTC()
			mt.task = updated
			writeJSON(w, http.StatusOK, m.withSubtasks(updated))
		default:
			writeJSON(w, http.StatusOK, m.withSubtasks(mt.task))
		}
	}
}

func (m *MockAPI) completeTask(id string) userHandler {
	return func(w http.ResponseWriter, r *http.Request, u *mockUser) {
		m.mu.Lock()
		defer m.mu.Unlock()

		mt := m.ownedTask(id, u)
		if mt == nil {
			writeDetail(w, http.StatusNotFound, "No Task matches the given query.")
			return
		}
		mt.task.Status = models.StatusCompleted
		mt.task.UpdatedAt = m.opts.Now().UTC()
		writeJSON(w, http.StatusOK, m.withSubtasks(mt.task))
	}
}

func (m *MockAPI) taskSubtasks(id string) userHandler {
	return func(w http.ResponseWriter, r *http.Request, u *mockUser) {
		if r.Method == http.MethodGet {
			m.mu.Lock()
			defer m.mu.Unlock()

			if m.ownedTask(id, u) == nil {
				writeDetail(w, http.StatusNotFound, "No Task matches the given query.")
				return
			}
			writeJSON(w, http.StatusOK, m.subtasksOf(id))
			return
		}

		var body struct {
			Title          string                `json:"title"`
			EstimatedHours *models.Hours         `json:"estimated_hours"`
			Status         *models.SubtaskStatus `json:"status"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		if strings.TrimSpace(body.Title) == "" {
			writeJSON(w, http.StatusBadRequest, fieldErrors{"title": {"This field may not be blank."}})
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()

		if m.ownedTask(id, u) == nil {
			writeDetail(w, http.StatusNotFound, "No Task matches the given query.")
			return
		}

		sub := models.Subtask{
			ID:         shared.GenerateID(),
			TaskID:     id,
			Title:      strings.TrimSpace(body.Title),
			Status:     models.SubtaskPending,
			OrderIndex: len(m.subtasksOf(id)),
		}
		if body.EstimatedHours != nil {
			sub.EstimatedHours = *body.EstimatedHours
		}
		if body.Status != nil {
			if !body.Status.Valid() {
				writeJSON(w, http.StatusBadRequest, fieldErrors{"status": {fmt.Sprintf("%q is not a valid choice.", *body.Status)}})
				return
			}
			m.setSubtaskStatus(&sub, *body.Status)
		}
		m.subtasks[sub.ID] = &mockSubtask{sub: sub, owner: u.id}

		writeJSON(w, http.StatusCreated, sub)
	}
}

func (m *MockAPI) subtaskDetail(id string) userHandler {
	return func(w http.ResponseWriter, r *http.Request, u *mockUser) {
		m.mu.Lock()
		defer m.mu.Unlock()

		ms := m.subtasks[id]
		if ms == nil || ms.owner != u.id {
			writeDetail(w, http.StatusNotFound, "No SubTask matches the given query.")
			return
		}

		switch r.Method {
		case http.MethodDelete:
			delete(m.subtasks, id)
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPatch:
			var body struct {
				Title          *string               `json:"title"`
				Status         *models.SubtaskStatus `json:"status"`
				EstimatedHours *models.Hours         `json:"estimated_hours"`
				OrderIndex     *int                  `json:"order_index"`
			}
			if !decodeBody(w, r, &body) {
				return
			}
			if body.Status != nil && !body.Status.Valid() {
				writeJSON(w, http.StatusBadRequest, fieldErrors{"status": {fmt.Sprintf("%q is not a valid choice.", *body.Status)}})
				return
			}
			if body.Title != nil {
				ms.sub.Title = strings.TrimSpace(*body.Title)
			}
			if body.Status != nil {
				m.setSubtaskStatus(&ms.sub, *body.Status)
			}
			if body.EstimatedHours != nil {
				ms.sub.EstimatedHours = *body.EstimatedHours
			}
			if body.OrderIndex != nil {
				ms.sub.OrderIndex = *body.OrderIndex
			}
			writeJSON(w, http.StatusOK, ms.sub)
		default:
			writeJSON(w, http.StatusOK, ms.sub)
		}
	}
}

func (m *MockAPI) reorder(w http.ResponseWriter, r *http.Request, u *mockUser) {
	var items []models.OrderItem
	if !decodeBody(w, r, &items) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range items {
		if ms := m.subtasks[item.ID]; ms != nil && ms.owner == u.id {
			ms.sub.OrderIndex = item.OrderIndex
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Subtasks reordered successfully"})
}

// setSubtaskStatus keeps completed_at in step with status. Callers hold mu.
func (m *MockAPI) setSubtaskStatus(sub *models.Subtask, status models.SubtaskStatus) {
	sub.Status = status
	if status == models.SubtaskCompleted {
		now := m.opts.Now().UTC()
		sub.CompletedAt = &now
	} else {
		sub.CompletedAt = nil
	}
}

// Callers hold mu for the helpers below.

func (m *MockAPI) ownedTask(id string, u *mockUser) *mockTask {
	mt := m.tasks[id]
	if mt == nil || mt.owner != u.id {
		return nil
	}
	return mt
}

func (m *MockAPI) subtasksOf(taskID string) []models.Subtask {
	subs := []models.Subtask{}
	for _, ms := range m.subtasks {
		if ms.sub.TaskID == taskID {
			subs = append(subs, ms.sub)
		}
	}
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].OrderIndex != subs[j].OrderIndex {
			return subs[i].OrderIndex < subs[j].OrderIndex
		}
		return subs[i].ID < subs[j].ID
	})
	return subs
}

func (m *MockAPI) withSubtasks(t models.Task) models.Task {
	t.Subtasks = m.subtasksOf(t.ID)
	return t
}

func (m *MockAPI) userByEmail(email string) *mockUser {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.email == email {
			return u
		}
	}
	return nil
}

func (m *MockAPI) addUser(email, username, password string) *mockUser {
	u := &mockUser{
		id:       m.nextUser,
		email:    strings.ToLower(strings.TrimSpace(email)),
		username: strings.TrimSpace(username),
		password: password,
	}
	m.users[u.id] = u
	m.nextUser++
	return u
}

func (m *MockAPI) issue(u *mockUser) (models.TokenResponse, error) {
	access, err := m.sign(u, tokenAccess, m.opts.AccessTTL)
	if err != nil {
		return models.TokenResponse{}, err
	}
	refresh, err := m.sign(u, tokenRefresh, m.opts.RefreshTTL)
	if err != nil {
		return models.TokenResponse{}, err
	}
	return models.TokenResponse{Access: access, Refresh: refresh}, nil
}

func (m *MockAPI) sign(u *mockUser, kind string, ttl time.Duration) (string, error) {
	now := m.opts.Now()
	claims := mockClaims{
		Type: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(u.id),
			ID:        shared.GenerateID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.opts.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

func (m *MockAPI) parse(token, kind string) (*mockClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.opts.Now),
		jwt.WithExpirationRequired(),
	)

	claims := &mockClaims{}
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.opts.Secret, nil
	}); err != nil {
		return nil, err
	}
	if claims.Type != kind {
		return nil, fmt.Errorf("expected %s token, got %q", kind, claims.Type)
	}
	return claims, nil
}

func (m *MockAPI) seed() {
	u := m.addUser(DemoEmail, "demo", DemoPassword)
	now := m.opts.Now()
	day := func(offset int) *string {
		d := now.AddDate(0, 0, offset).Format(models.DateLayout)
		return &d
	}

	seeds := []struct {
		title    string
		priority models.Priority
		status   models.Status
		due      *string
		tags     []string
		subtasks []string
	}{
		{"Renew passport", models.PriorityHigh, models.StatusPending, day(-2), []string{"personal"}, nil},
		{"Write sprint report", models.PriorityMedium, models.StatusInProgress, day(0), []string{"work"}, []string{"Collect metrics", "Draft summary", "Send to team"}},
		{"Water the plants", models.PriorityLow, models.StatusCompleted, day(0), nil, nil},
		{"Book dentist", models.PriorityMedium, models.StatusPending, day(3), []string{"personal", "health"}, nil},
		{"Read design doc", models.PriorityLow, models.StatusPending, nil, []string{"work"}, nil},
	}

	for i, s := range seeds {
		created := now.Add(time.Duration(i-len(seeds)) * time.Minute).UTC()
		task := models.Task{
			ID:        shared.GenerateID(),
			Title:     s.title,
			Priority:  s.priority,
			Status:    s.status,
			Tags:      tagsFor(s.tags),
			CreatedAt: created,
			UpdatedAt: created,
			Owner:     u.username,
		}
		if s.due != nil {
			task.DueDate = *s.due
		}
		m.nextSeq++
		m.tasks[task.ID] = &mockTask{task: task, owner: u.id, seq: m.nextSeq}

		for j, title := range s.subtasks {
			sub := models.Subtask{
				ID:             shared.GenerateID(),
				TaskID:         task.ID,
				Title:          title,
				Status:         models.SubtaskPending,
				EstimatedHours: models.Hours(j + 1),
				OrderIndex:     j,
			}
			m.subtasks[sub.ID] = &mockSubtask{sub: sub, owner: u.id}
		}
	}
}

var stringFields = map[string]bool{
	"title": true, "description": true, "priority": true, "status": true, "due_date": true, "due_time": true,
}

// applyTaskFields validates and copies writable fields onto t.
func applyTaskFields(t *models.Task, fields map[string]json.RawMessage) fieldErrors {
	errs := fieldErrors{}

	for name, raw := range fields {
		var s *string
		if stringFields[name] {
			if err := json.Unmarshal(raw, &s); err != nil {
				errs.add(name, "Not a valid string.")
				continue
			}
		}

		switch name {
		case "title":
			if s == nil || strings.TrimSpace(*s) == "" {
				errs.add(name, "This field may not be blank.")
				continue
			}
			t.Title = strings.TrimSpace(*s)
		case "description":
			t.Description = deref(s)
		case "priority":
			p := models.Priority(deref(s))
			if !p.Valid() {
				errs.add(name, fmt.Sprintf("%q is not a valid choice.", deref(s)))
				continue
			}
			t.Priority = p
		case "status":
			st := models.Status(deref(s))
			if !st.Valid() && st != models.StatusCancelled {
				errs.add(name, fmt.Sprintf("%q is not a valid choice.", deref(s)))
				continue
			}
			t.Status = st
		case "due_date":
			if s != nil && models.ValidateDate(*s) != nil {
				errs.add(name, "Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
				continue
			}
			t.DueDate = deref(s)
		case "due_time":
			if s != nil && models.ValidateTime(*s) != nil {
				errs.add(name, "Time has wrong format. Use one of these formats instead: hh:mm[:ss[.uuuuuu]].")
				continue
			}
			t.DueTime = deref(s)
		case "tags":
			var names []string
			if err := json.Unmarshal(raw, &names); err != nil {
				errs.add(name, "Expected a list of items.")
				continue
			}
			if len(names) > 20 {
				errs.add(name, "Too many tags.")
				continue
			}
			t.Tags = tagsFor(names)
		}
	}
	return errs
}

func tagsFor(names []string) []models.Tag {
	var tags []models.Tag
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		tags = append(tags, models.Tag{ID: shared.GenerateID(), Name: n, Color: defaultTagColor})
	}
	return tags
}

func inTimeline(t models.Task, timeline, today, weekEnd string) bool {
	switch timeline {
	case "overdue":
		return t.DueDate != "" && t.DueDate < today && !t.Done()
	case "today":
		return t.DueDate == today
	case "week":
		return t.DueDate != "" && t.DueDate >= today && t.DueDate <= weekEnd
	default:
		return true
	}
}

func matchesSearch(t models.Task, q string) bool {
	if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Description), q) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(tag.Name, q) {
			return true
		}
	}
	return false
}

var priorityRank = map[models.Priority]int{models.PriorityLow: 0, models.PriorityMedium: 1, models.PriorityHigh: 2}

// sortTasks orders by -created_at unless ordering names due_date, priority or created_at.
func sortTasks(tasks []*mockTask, ordering string) {
	desc := strings.HasPrefix(ordering, "-")
	field := strings.TrimPrefix(ordering, "-")

	less := func(a, b *mockTask) bool { return a.seq > b.seq }
	switch field {
	case "due_date":
		less = func(a, b *mockTask) bool {
			if a.task.DueDate == b.task.DueDate {
				return a.seq > b.seq
			}
			if a.task.DueDate == "" || b.task.DueDate == "" {
				return b.task.DueDate == ""
			}
			return (a.task.DueDate < b.task.DueDate) != desc
		}
	case "priority":
		less = func(a, b *mockTask) bool {
			ra, rb := priorityRank[a.task.Priority], priorityRank[b.task.Priority]
			if ra == rb {
				return a.seq > b.seq
			}
			return (ra < rb) != desc
		}
	case "created_at":
		less = func(a, b *mockTask) bool { return (a.seq < b.seq) != desc }
	}
	sort.SliceStable(tasks, func(i, j int) bool { return less(tasks[i], tasks[j]) })
}

func splitSet(lists ...string) map[string]bool {
	set := map[string]bool{}
	for _, l := range lists {
		for _, v := range strings.Split(l, ",") {
			if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
				set[v] = true
			}
		}
	}
	return set
}

func pageURL(r *http.Request, page int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	return u.String()
}

func userJSON(u *mockUser) map[string]any {
	return map[string]any{"id": u.id, "email": u.email, "username": u.username}
}

// fieldErrors is the DRF validation error shape.
type fieldErrors map[string][]string

func (e fieldErrors) add(field, msg string) { e[field] = append(e[field], msg) }

func (e fieldErrors) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.add(field, "This field is required.")
	}
}

func (e fieldErrors) any() bool { return len(e) > 0 }

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		writeDetail(w, http.StatusBadRequest, "JSON parse error - "+err.Error())
		return false
	}
	return true
}

func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, bool) {
	fields := map[string]json.RawMessage{}
	return fields, decodeBody(w, r, &fields)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Transport serves requests in process with Handler instead of the network.
type Transport struct {
	Handler http.Handler
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	r := req.Clone(req.Context())
	if r.Body == nil {
		r.Body = http.NoBody
	}
	if r.Host == "" {
		r.Host = req.URL.Host
	}

	rec := httptest.NewRecorder()
	t.Handler.ServeHTTP(rec, r)

	resp := rec.Result()
	resp.Request = req
	return resp, nil
}
