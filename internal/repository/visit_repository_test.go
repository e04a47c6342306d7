package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/venuepass/visitor-management/internal/model"
)

func newVisitMock(t *testing.T) (*VisitRepo, *sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewVisitRepo(db), db, mock
}

var approvedEntry = model.PendingEntry{
	UUID:       "0b8f3c1e-9f1a-4d0e-8d4b-6f1f1a2b3c4d",
	PremiseID:  7,
	Name:       "Dana Visitor",
	IDNumber:   "AB123456",
	Phone:      "+15550100",
	FieldsJSON: `{"name":"Dana Visitor"}`,
	Photo:      "",
	Signature:  "sig",
}

func TestCreateFromEntryBlockedByOpenVisit(t *testing.T) {
	repo, db, mock := newVisitMock(t)

	mock.ExpectBegin()
	// The open-visit guard rejects by matching zero rows; nothing else
	// may run against the visit afterwards.
	mock.ExpectExec(`INSERT INTO visits`).
		WithArgs(approvedEntry.UUID, 7, approvedEntry.Name, approvedEntry.IDNumber,
			approvedEntry.Phone, approvedEntry.FieldsJSON, "", "sig",
			model.VisitStatusApproved, 12, 7, approvedEntry.IDNumber).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	_, err = repo.CreateFromEntryTx(context.Background(), tx, approvedEntry, 12)
	if !errors.Is(err, ErrOpenVisit) {
		t.Fatalf("err = %v, want ErrOpenVisit", err)
	}
	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateFromEntryCopiesSubmission(t *testing.T) {
	repo, db, mock := newVisitMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO visits`).
		WillReturnResult(sqlmock.NewResult(88, 1))
	mock.ExpectQuery(`SELECT (.+) FROM visits WHERE id = \?`).
		WithArgs(88).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "uuid", "premise_id", "name", "idnumber", "phone", "fields_json",
			"photo", "signature", "status", "approved_by", "entry_approved_at",
			"checked_in_at", "checked_out_at", "checkout_reason",
		}).AddRow(88, approvedEntry.UUID, 7, approvedEntry.Name, approvedEntry.IDNumber,
			approvedEntry.Phone, approvedEntry.FieldsJSON, "", "sig",
			model.VisitStatusApproved, 12, now, now, nil, nil))
	mock.ExpectCommit()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	v, err := repo.CreateFromEntryTx(context.Background(), tx, approvedEntry, 12)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if v.ID != 88 {
		t.Fatalf("id = %d, want 88", v.ID)
	}
	if v.UUID != approvedEntry.UUID {
		t.Fatalf("uuid %q not carried over from the entry", v.UUID)
	}
	if v.Status != model.VisitStatusApproved || !v.Open() {
		t.Fatalf("new visit not open and approved: %+v", v)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCheckoutAlreadyClosedVisit(t *testing.T) {
	repo, db, mock := newVisitMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE visits SET checked_out_at`).
		WithArgs(model.VisitStatusExited, 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	err = repo.CheckoutTx(context.Background(), tx, 5, "")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
