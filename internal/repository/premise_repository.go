package repository

import (
	"context"
	"database/sql"

	"github.com/venuepass/visitor-management/internal/model"
)

// PremiseRepo provides CRUD operations for premises. Premises are never
// hard-deleted from this service; removal is an external admin action.
type PremiseRepo struct{ db *sql.DB }

// NewPremiseRepo returns a new PremiseRepo bound to the given database.
func NewPremiseRepo(db *sql.DB) *PremiseRepo { return &PremiseRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning multiple repositories.
func (r *PremiseRepo) DB() *sql.DB { return r.db }

// Create inserts a premise for the given owner and returns the populated
// record.
func (r *PremiseRepo) Create(ctx context.Context, ownerID uint64, name, contactPhone, businessType string) (model.Premise, error) {
	const q = `INSERT INTO premises (owner_id, name, contact_phone, business_type) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, ownerID, name, contactPhone, businessType)
	if err != nil {
		return model.Premise{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Premise{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID returns one premise. sql.ErrNoRows is returned when it does
// not exist.
func (r *PremiseRepo) GetByID(ctx context.Context, id uint64) (model.Premise, error) {
	const q = `SELECT id, owner_id, name, contact_phone, business_type,
	                  exit_tracking, multi_entry, notifications_enabled,
	                  created_at, updated_at
	           FROM premises WHERE id = ?`
	var p model.Premise
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.ContactPhone, &p.BusinessType,
		&p.ExitTracking, &p.MultiEntry, &p.NotificationsEnabled,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return model.Premise{}, ErrNotFound
	}
	return p, err
}

// GetOwned returns the premise only when it belongs to the given owner.
// It returns ErrNotFound when the premise does not exist and
// ErrForbidden when it is owned by someone else.
func (r *PremiseRepo) GetOwned(ctx context.Context, id, ownerID uint64) (model.Premise, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Premise{}, err
	}
	if p.OwnerID != ownerID {
		return model.Premise{}, ErrForbidden
	}
	return p, nil
}

// ListByOwner returns all premises registered by an owner, newest first.
func (r *PremiseRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Premise, error) {
	const q = `SELECT id, owner_id, name, contact_phone, business_type,
	                  exit_tracking, multi_entry, notifications_enabled,
	                  created_at, updated_at
	           FROM premises WHERE owner_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Premise, 0)
	for rows.Next() {
		var p model.Premise
		if err := rows.Scan(
			&p.ID, &p.OwnerID, &p.Name, &p.ContactPhone, &p.BusinessType,
			&p.ExitTracking, &p.MultiEntry, &p.NotificationsEnabled,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateSettings persists the mutable premise attributes and feature
// flags. Ownership must have been checked by the caller via GetOwned.
func (r *PremiseRepo) UpdateSettings(ctx context.Context, p model.Premise) error {
	const q = `UPDATE premises
	           SET name = ?, contact_phone = ?, business_type = ?,
	               exit_tracking = ?, multi_entry = ?, notifications_enabled = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		p.Name, p.ContactPhone, p.BusinessType,
		p.ExitTracking, p.MultiEntry, p.NotificationsEnabled, p.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// No row changed: either missing or identical values; re-check existence.
		if _, err := r.GetByID(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}
