package repository

import (
	"context"
	"database/sql"

	"github.com/venuepass/visitor-management/internal/model"
)

// AdmissionStore composes the entry and visit repositories into the
// atomic decision operations the admission engine needs. Every
// multi-step decision runs inside one transaction: the stale-visit
// checkout, the conditional visit insert and the entry delete commit
// together or not at all, so a failure mid-sequence never leaves the
// old visit closed with the new entry still undecided.
type AdmissionStore struct {
	db      *sql.DB
	entries *EntryRepo
	visits  *VisitRepo
}

// NewAdmissionStore returns an AdmissionStore over the given database
// and repositories. All dependencies must be non-nil.
func NewAdmissionStore(db *sql.DB, entries *EntryRepo, visits *VisitRepo) *AdmissionStore {
	if db == nil || entries == nil || visits == nil {
		panic("nil dependency passed to NewAdmissionStore")
	}
	return &AdmissionStore{db: db, entries: entries, visits: visits}
}

// Entry loads a pending entry, mapping a missing row to ErrNotFound.
func (s *AdmissionStore) Entry(ctx context.Context, entryID uint64) (model.PendingEntry, error) {
	e, err := s.entries.GetByID(ctx, entryID)
	if err == sql.ErrNoRows {
		return model.PendingEntry{}, ErrNotFound
	}
	return e, err
}

// OpenVisit returns the most recent open visit for the identity, or nil.
func (s *AdmissionStore) OpenVisit(ctx context.Context, premiseID uint64, idnumber string) (*model.Visit, error) {
	return s.visits.OpenByIdentity(ctx, premiseID, idnumber)
}

// Approve creates the visit and deletes the entry in one transaction.
// The conditional insert carries the open-visit uniqueness check, so a
// concurrent approval of the same identity makes exactly one of the two
// transactions fail with ErrOpenVisit.
func (s *AdmissionStore) Approve(ctx context.Context, entry model.PendingEntry, approvedBy uint64) (model.Visit, error) {
	var visit model.Visit
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		v, err := s.visits.CreateFromEntryTx(ctx, tx, entry, approvedBy)
		if err != nil {
			return err
		}
		if err := s.entries.DeleteTx(ctx, tx, entry.ID); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound // entry resolved concurrently; roll the visit back
			}
			return err
		}
		visit = v
		return nil
	})
	return visit, err
}

// CheckoutAndApprove closes the stale visit, creates the new one and
// deletes the entry, all in one transaction.
func (s *AdmissionStore) CheckoutAndApprove(ctx context.Context, entry model.PendingEntry, staleVisitID uint64, checkoutReason string, approvedBy uint64) (model.Visit, error) {
	var visit model.Visit
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.visits.CheckoutTx(ctx, tx, staleVisitID, checkoutReason); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound // stale visit already closed elsewhere
			}
			return err
		}
		v, err := s.visits.CreateFromEntryTx(ctx, tx, entry, approvedBy)
		if err != nil {
			return err
		}
		if err := s.entries.DeleteTx(ctx, tx, entry.ID); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return err
		}
		visit = v
		return nil
	})
	return visit, err
}

// CheckoutAndDeny closes the stale visit and marks the entry denied in
// one transaction.
func (s *AdmissionStore) CheckoutAndDeny(ctx context.Context, entry model.PendingEntry, staleVisitID uint64, checkoutReason, denyReason string, deniedBy uint64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.visits.CheckoutTx(ctx, tx, staleVisitID, checkoutReason); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return err
		}
		if err := s.entries.DenyTx(ctx, tx, entry.ID, denyReason, deniedBy); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return err
		}
		return nil
	})
}

// Deny marks the entry denied; the row is retained for audit.
func (s *AdmissionStore) Deny(ctx context.Context, entryID uint64, reason string, deniedBy uint64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.entries.DenyTx(ctx, tx, entryID, reason, deniedBy); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return err
		}
		return nil
	})
}

// Checkout closes an open visit and returns its updated record.
func (s *AdmissionStore) Checkout(ctx context.Context, visitID uint64, reason string) (model.Visit, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.visits.CheckoutTx(ctx, tx, visitID, reason); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return model.Visit{}, err
	}
	return s.visits.GetByID(ctx, visitID)
}

func (s *AdmissionStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
