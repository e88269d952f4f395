package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/SubhabrataBarik/TaskMaster/internal/models"
	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
)

const tasksPath = "/tasks/"

// TaskService wraps the /tasks/ endpoints.
type TaskService struct {
	api *APIService
}

func NewTaskService(api *APIService) *TaskService {
	return &TaskService{api: api}
}

// List returns one page of tasks matching query.
func (s *TaskService) List(ctx context.Context, query url.Values) (*models.Page[models.Task], error) {
	var page models.Page[models.Task]
	if err := s.api.doJSON(ctx, Request{Method: http.MethodGet, Path: tasksPath, Query: query}, &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		page.Results = []models.Task{}
	}
	return &page, nil
}

func (s *TaskService) Get(ctx context.Context, id string) (*models.Task, error) {
	path, err := taskPath(id)
	if err != nil {
		return nil, err
	}

	var task models.Task
	if err := s.api.doJSON(ctx, Request{Method: http.MethodGet, Path: path}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Create normalizes and validates in before sending it.
func (s *TaskService) Create(ctx context.Context, in models.TaskInput) (*models.Task, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	var task models.Task
	if err := s.api.doJSON(ctx, Request{Method: http.MethodPost, Path: tasksPath, Body: in}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Update sends only the fields set in patch.
func (s *TaskService) Update(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	path, err := taskPath(id)
	if err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	var task models.Task
	if err := s.api.doJSON(ctx, Request{Method: http.MethodPatch, Path: path, Body: patch}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) Delete(ctx context.Context, id string) error {
	path, err := taskPath(id)
	if err != nil {
		return err
	}
	return s.api.doJSON(ctx, Request{Method: http.MethodDelete, Path: path}, nil)
}

// Complete marks a task completed through the dedicated action endpoint.
func (s *TaskService) Complete(ctx context.Context, id string) (*models.Task, error) {
	path, err := taskPath(id)
	if err != nil {
		return nil, err
	}

	var task models.Task
	if err := s.api.doJSON(ctx, Request{Method: http.MethodPost, Path: path + "complete/"}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func taskPath(id string) (string, error) {
	return resourcePath(tasksPath, id, "task id")
}

func resourcePath(prefix, id, what string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, what)
	}
	return prefix + url.PathEscape(id) + "/", nil
}
