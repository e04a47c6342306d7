package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/venuepass/visitor-management/internal/model"
)

func newFieldConfigMock(t *testing.T) (*FieldConfigRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewFieldConfigRepo(db, "https://visit.example.com"), mock
}

var saveFields = []model.Field{
	{ID: 4, Name: "company", Label: "Company", Type: "text", Visible: true},
}

func TestSaveAllocatesNextIteration(t *testing.T) {
	repo, mock := newFieldConfigMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT MAX\(iteration\) FROM field_configurations`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"MAX(iteration)"}).AddRow(3))
	mock.ExpectExec(`INSERT INTO field_configurations`).
		WithArgs(7, 4, sqlmock.AnyArg(), "https://visit.example.com/entry?premise_id=7&v=4").
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectQuery(`SELECT created_at FROM field_configurations`).
		WithArgs(41).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	cfg, err := repo.Save(context.Background(), 7, saveFields)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if cfg.Iteration != 4 {
		t.Fatalf("iteration = %d, want 4", cfg.Iteration)
	}
	if cfg.QRPayload != "https://visit.example.com/entry?premise_id=7&v=4" {
		t.Fatalf("qr payload %q does not pin the new iteration", cfg.QRPayload)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveFirstIterationIsOne(t *testing.T) {
	repo, mock := newFieldConfigMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT MAX\(iteration\) FROM field_configurations`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"MAX(iteration)"}).AddRow(nil))
	mock.ExpectExec(`INSERT INTO field_configurations`).
		WithArgs(7, 1, sqlmock.AnyArg(), "https://visit.example.com/entry?premise_id=7&v=1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT created_at FROM field_configurations`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	cfg, err := repo.Save(context.Background(), 7, saveFields)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if cfg.Iteration != 1 {
		t.Fatalf("iteration = %d, want 1", cfg.Iteration)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveIterationLookupFailureFallsBackToOne(t *testing.T) {
	repo, mock := newFieldConfigMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT MAX\(iteration\) FROM field_configurations`).
		WithArgs(7).
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectExec(`INSERT INTO field_configurations`).
		WithArgs(7, 1, sqlmock.AnyArg(), "https://visit.example.com/entry?premise_id=7&v=1").
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectQuery(`SELECT created_at FROM field_configurations`).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	cfg, err := repo.Save(context.Background(), 7, saveFields)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if cfg.Iteration != 1 {
		t.Fatalf("iteration = %d, want fallback 1", cfg.Iteration)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
