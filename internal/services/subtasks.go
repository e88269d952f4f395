package services

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/SubhabrataBarik/TaskMaster/internal/models"
	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
)

const (
	subtasksPath = "/subtasks/"
	reorderPath  = "/subtasks/reorder/"
)

// SubtaskService wraps the subtask endpoints.
type SubtaskService struct {
	api *APIService
}

func NewSubtaskService(api *APIService) *SubtaskService {
	return &SubtaskService{api: api}
}

// List returns the subtasks of a task ordered by order_index.
func (s *SubtaskService) List(ctx context.Context, taskID string) ([]models.Subtask, error) {
	path, err := taskPath(taskID)
	if err != nil {
		return nil, err
	}

	var page models.Page[models.Subtask]
	if err := s.api.doJSON(ctx, Request{Method: http.MethodGet, Path: path + "subtasks/"}, &page); err != nil {
		return nil, err
	}

	items := page.Results
	if items == nil {
		items = []models.Subtask{}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].OrderIndex < items[j].OrderIndex })
	return items, nil
}

// Add appends a subtask to a task. Negative hours are rejected.
func (s *SubtaskService) Add(ctx context.Context, taskID, title string, hours float64) (*models.Subtask, error) {
	path, err := taskPath(taskID)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: subtask title is required", shared.ErrInvalidInput)
	}
	if hours < 0 {
		return nil, fmt.Errorf("%w: estimated hours cannot be negative", shared.ErrInvalidInput)
	}

	body := struct {
		Title          string  `json:"title"`
		EstimatedHours float64 `json:"estimated_hours"`
	}{title, hours}

	var subtask models.Subtask
	if err := s.api.doJSON(ctx, Request{Method: http.MethodPost, Path: path + "subtasks/", Body: body}, &subtask); err != nil {
		return nil, err
	}
	return &subtask, nil
}

func (s *SubtaskService) SetStatus(ctx context.Context, id string, status models.SubtaskStatus) (*models.Subtask, error) {
	path, err := resourcePath(subtasksPath, id, "subtask id")
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown subtask status %q", shared.ErrInvalidInput, status)
	}

	var subtask models.Subtask
	body := map[string]models.SubtaskStatus{"status": status}
	if err := s.api.doJSON(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, &subtask); err != nil {
		return nil, err
	}
	return &subtask, nil
}

// Toggle flips a subtask between pending and completed.
func (s *SubtaskService) Toggle(ctx context.Context, subtask models.Subtask) (*models.Subtask, error) {
	return s.SetStatus(ctx, subtask.ID, subtask.Status.Toggle())
}

func (s *SubtaskService) Delete(ctx context.Context, id string) error {
	path, err := resourcePath(subtasksPath, id, "subtask id")
	if err != nil {
		return err
	}
	return s.api.doJSON(ctx, Request{Method: http.MethodDelete, Path: path}, nil)
}

// Reorder persists a complete ordering as a JSON array of {id, order_index}.
func (s *SubtaskService) Reorder(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for _, item := range items {
		if item.ID == "" {
			return fmt.Errorf("%w: reorder item without id", shared.ErrInvalidInput)
		}
	}
	return s.api.doJSON(ctx, Request{Method: http.MethodPost, Path: reorderPath, Body: items}, nil)
}
