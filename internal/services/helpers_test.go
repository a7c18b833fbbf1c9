package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/ad/persona-onboarding/internal/db"
	"github.com/ad/persona-onboarding/internal/models"
	"github.com/ad/persona-onboarding/internal/wizard"
	_ "modernc.org/sqlite"
)

func setupTestStore(t *testing.T) *db.Store {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.InitSchema(sqlDB); err != nil {
		t.Fatal(err)
	}

	s := db.NewStore(db.NewDBQueueForTest(sqlDB))
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func createPersona(t *testing.T, s *db.Store, id string) {
	t.Helper()
	if err := s.CreatePersona(context.Background(), &models.Persona{ID: id, DisplayName: "Test " + id}); err != nil {
		t.Fatalf("Failed to create persona: %v", err)
	}
}

func textPayload(data string) models.Payload {
	return models.Payload{Data: []byte(data)}
}

func resumePayload(content string) models.Payload {
	return models.Payload{Upload: &models.Upload{
		FileName:    "resume.pdf",
		ContentType: "application/pdf",
		Content:     []byte(content),
	}}
}

func newTestSubmissions(s *db.Store) *SubmissionService {
	return NewSubmissionService(s, wizard.MustDefaultRegistry(), 0)
}
