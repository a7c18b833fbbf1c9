package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/ad/persona-onboarding/internal/models"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *DBQueue {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := InitSchema(sqlDB); err != nil {
		t.Fatal(err)
	}

	queue := NewDBQueueForTest(sqlDB)
	t.Cleanup(func() {
		queue.Close()
		sqlDB.Close()
	})
	return queue
}

func createTestPersona(t *testing.T, queue *DBQueue, id string) {
	t.Helper()
	repo := NewPersonaRepository(queue)
	if err := repo.Create(context.Background(), &models.Persona{ID: id, DisplayName: "Test " + id}); err != nil {
		t.Fatalf("Failed to create persona: %v", err)
	}
}
