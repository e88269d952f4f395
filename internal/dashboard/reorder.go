package dashboard

import (
	"fmt"

	"github.com/SubhabrataBarik/TaskMaster/internal/models"
	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
)

// Move returns a copy of items with the element at from moved to to.
func Move[T any](items []T, from, to int) ([]T, error) {
	n := len(items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, fmt.Errorf("%w: cannot move %d to %d in a list of %d", shared.ErrInvalidArgument, from, to, n)
	}

	out := make([]T, 0, n)
	moved := items[from]
	for i, it := range items {
		if i != from {
			out = append(out, it)
		}
	}
	out = append(out[:to], append([]T{moved}, out[to:]...)...)
	return out, nil
}

// Reorder moves subtasks[from] to position to and renumbers every subtask from 0.
//
// Moving S1 from 0 to 2 in [S1,S2,S3] yields [{S2,0},{S3,1},{S1,2}].
func Reorder(subtasks []models.Subtask, from, to int) ([]models.OrderItem, error) {
	moved, err := Move(subtasks, from, to)
	if err != nil {
		return nil, err
	}
	return OrderItems(moved), nil
}

// OrderItems numbers subtasks by their position.
func OrderItems(subtasks []models.Subtask) []models.OrderItem {
	items := make([]models.OrderItem, len(subtasks))
	for i, s := range subtasks {
		items[i] = models.OrderItem{ID: s.ID, OrderIndex: i}
	}
	return items
}
