package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SubhabrataBarik/TaskMaster/internal/models"
)

// TaskSnapshot is the cached result of the last task listing.
type TaskSnapshot struct {
	Query       string
	Page        models.Page[models.Task]
	HasNext     bool
	HasPrevious bool
	FetchedAt   time.Time
}

// TaskCacheRepository stores the most recent page of tasks, replacing it wholesale on each write.
type TaskCacheRepository struct {
	db *sql.DB
}

// NewTaskCacheRepository creates a new [TaskCacheRepository] with the given database connection
func NewTaskCacheRepository(db *sql.DB) *TaskCacheRepository {
	return &TaskCacheRepository{db: db}
}

// Replace swaps the cached page for page, recording the query that produced it.
func (r *TaskCacheRepository) Replace(query string, page *models.Page[models.Task]) error {
	now := time.Now().UTC()

	return inTx(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM task_cache`); err != nil {
			return fmt.Errorf("failed to clear task cache: %w", err)
		}

		for i, task := range page.Results {
			payload, err := json.Marshal(task)
			if err != nil {
				return fmt.Errorf("failed to encode task %s: %w", task.ID, err)
			}
			if _, err := tx.Exec(
				`INSERT INTO task_cache (id, position, payload, fetched_at) VALUES (?, ?, ?, ?)`,
				task.ID, i, string(payload), now,
			); err != nil {
				return fmt.Errorf("failed to cache task %s: %w", task.ID, err)
			}
		}

		meta := `
			INSERT INTO task_cache_meta (id, query, total_count, has_next, has_previous, fetched_at)
			VALUES (1, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				query = excluded.query,
				total_count = excluded.total_count,
				has_next = excluded.has_next,
				has_previous = excluded.has_previous,
				fetched_at = excluded.fetched_at
		`
		if _, err := tx.Exec(meta, query, page.Count, boolToInt(page.HasNext()), boolToInt(page.HasPrevious()), now); err != nil {
			return fmt.Errorf("failed to record task cache metadata: %w", err)
		}
		return nil
	})
}

// Snapshot returns the cached page. ok is false when nothing has been cached.
func (r *TaskCacheRepository) Snapshot() (snap *TaskSnapshot, ok bool, err error) {
	snap = &TaskSnapshot{}
	var hasNext, hasPrevious int

	err = r.db.QueryRow(
		`SELECT query, total_count, has_next, has_previous, fetched_at FROM task_cache_meta WHERE id = 1`,
	).Scan(&snap.Query, &snap.Page.Count, &hasNext, &hasPrevious, &snap.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query task cache metadata: %w", err)
	}
	snap.HasNext = hasNext == 1
	snap.HasPrevious = hasPrevious == 1

	rows, err := r.db.Query(`SELECT payload FROM task_cache ORDER BY position`)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query task cache: %w", err)
	}
	defer rows.Close()

	snap.Page.Results = []models.Task{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, false, fmt.Errorf("failed to scan cached task: %w", err)
		}
		var task models.Task
		if err := json.Unmarshal([]byte(payload), &task); err != nil {
			return nil, false, fmt.Errorf("failed to decode cached task: %w", err)
		}
		snap.Page.Results = append(snap.Page.Results, task)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to read task cache: %w", err)
	}

	return snap, true, nil
}

// Invalidate drops the cached page.
func (r *TaskCacheRepository) Invalidate() error {
	return inTx(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM task_cache`); err != nil {
			return fmt.Errorf("failed to clear task cache: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM task_cache_meta`); err != nil {
			return fmt.Errorf("failed to clear task cache metadata: %w", err)
		}
		return nil
	})
}
