package repositories

import (
	"database/sql"
	"testing"

	"github.com/SubhabrataBarik/TaskMaster/internal/models"
	"github.com/SubhabrataBarik/TaskMaster/internal/session"
	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestSessionRepository(t *testing.T) {
	var _ session.Backend = (*SessionRepository)(nil)

	t.Run("Load Empty", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		sess, err := repo.Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !sess.Empty() {
			t.Errorf("expected empty session, got %+v", sess)
		}
	})

	t.Run("Save Overwrites Pair", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSessionRepository(db)

		if err := repo.Save(models.Session{AccessToken: "A1", RefreshToken: "R1"}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if err := repo.Save(models.Session{AccessToken: "A2", RefreshToken: "R2"}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		sess, err := repo.Load()
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if sess.AccessToken != "A2" || sess.RefreshToken != "R2" {
			t.Errorf("expected (A2, R2), got %+v", sess)
		}

		var rows int
		if err := db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&rows); err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if rows != 1 {
			t.Errorf("expected a single session row, got %d", rows)
		}

		updated, err := repo.UpdatedAt()
		if err != nil || updated.IsZero() {
			t.Errorf("expected updated_at, got %v (%v)", updated, err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		repo.Save(models.Session{AccessToken: "A1", RefreshToken: "R1"})

		if err := repo.Delete(); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		sess, _ := repo.Load()
		if !sess.Empty() {
			t.Errorf("expected empty session after delete, got %+v", sess)
		}
	})

	t.Run("Backs A Store", func(t *testing.T) {
		store := session.NewStore(NewSessionRepository(setupTestDB(t)), nil)
		store.Set("a", "r")
		if store.Access() != "a" || store.Refresh() != "r" {
			t.Errorf("unexpected pair %+v", store.Session())
		}
	})

	t.Run("Closed Database Degrades", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSessionRepository(db)
		db.Close()

		if _, err := repo.Load(); err == nil {
			t.Error("expected error from closed database")
		}

		store := session.NewStore(repo, nil)
		store.Set("a", "r")
		if store.Access() != "a" {
			t.Error("expected store to keep working in memory")
		}
	})
}

func TestTaskCacheRepository(t *testing.T) {
	next := "http://x/tasks/?page=2"
	page := &models.Page[models.Task]{
		Count: 12,
		Next:  &next,
		Results: []models.Task{
			{ID: "t2", Title: "Second", Priority: models.PriorityHigh, Status: models.StatusPending},
			{ID: "t1", Title: "First", Priority: models.PriorityLow, Status: models.StatusCompleted, DueDate: "2026-10-15"},
		},
	}

	t.Run("Empty Snapshot", func(t *testing.T) {
		repo := NewTaskCacheRepository(setupTestDB(t))

		snap, ok, err := repo.Snapshot()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok || snap != nil {
			t.Errorf("expected no snapshot, got %+v", snap)
		}
	})

	t.Run("Replace And Snapshot Keep Order", func(t *testing.T) {
		repo := NewTaskCacheRepository(setupTestDB(t))

		if err := repo.Replace("page=1", page); err != nil {
			t.Fatalf("failed to replace: %v", err)
		}

		snap, ok, err := repo.Snapshot()
		if err != nil || !ok {
			t.Fatalf("expected snapshot, got ok=%v err=%v", ok, err)
		}
		if snap.Query != "page=1" || snap.Page.Count != 12 || !snap.HasNext || snap.HasPrevious {
			t.Errorf("unexpected metadata: %+v", snap)
		}
		if len(snap.Page.Results) != 2 || snap.Page.Results[0].ID != "t2" || snap.Page.Results[1].DueDate != "2026-10-15" {
			t.Errorf("unexpected results: %+v", snap.Page.Results)
		}
	})

	t.Run("Replace Drops Previous Rows", func(t *testing.T) {
		repo := NewTaskCacheRepository(setupTestDB(t))
		repo.Replace("page=1", page)

		smaller := &models.Page[models.Task]{Count: 1, Results: []models.Task{{ID: "t9", Title: "Only"}}}
		if err := repo.Replace("page=1&search=only", smaller); err != nil {
			t.Fatalf("failed to replace: %v", err)
		}

		snap, _, _ := repo.Snapshot()
		if len(snap.Page.Results) != 1 || snap.Page.Results[0].ID != "t9" {
			t.Errorf("expected only t9, got %+v", snap.Page.Results)
		}
	})

	t.Run("Invalidate", func(t *testing.T) {
		repo := NewTaskCacheRepository(setupTestDB(t))
		repo.Replace("page=1", page)

		if err := repo.Invalidate(); err != nil {
			t.Fatalf("failed to invalidate: %v", err)
		}
		if _, ok, _ := repo.Snapshot(); ok {
			t.Error("expected no snapshot after invalidate")
		}
	})
}
