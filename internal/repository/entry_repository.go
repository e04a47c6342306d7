package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/venuepass/visitor-management/internal/model"
)

// EntryRepo provides data access to the pending_entries table. A row
// exists only while an intake submission awaits a decision or after a
// denial (denied rows are retained for audit); approval deletes the row
// in the same transaction that creates the visit.
type EntryRepo struct{ db *sql.DB }

// NewEntryRepo returns a new EntryRepo bound to the given database.
func NewEntryRepo(db *sql.DB) *EntryRepo { return &EntryRepo{db: db} }

// DB exposes the underlying handle for transaction orchestration.
func (r *EntryRepo) DB() *sql.DB { return r.db }

const entryColumns = `id, uuid, premise_id, config_iteration, name, idnumber, phone,
	fields_json, photo, signature, status, denial_reason, submitted_at, processed_at, denied_by`

// Create inserts a pending entry with status PENDING and returns the
// populated record.
func (r *EntryRepo) Create(ctx context.Context, e model.PendingEntry) (model.PendingEntry, error) {
	const q = `INSERT INTO pending_entries
	           (uuid, premise_id, config_iteration, name, idnumber, phone, fields_json, photo, signature, status, submitted_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		e.UUID, e.PremiseID, e.ConfigIteration, e.Name, e.IDNumber, e.Phone,
		e.FieldsJSON, e.Photo, e.Signature, model.EntryStatusPending,
		e.SubmittedAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return model.PendingEntry{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.PendingEntry{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID returns one entry by primary key.
func (r *EntryRepo) GetByID(ctx context.Context, id uint64) (model.PendingEntry, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM pending_entries WHERE id = ?`, id))
}

// GetByUUID returns one entry by its public identifier.
func (r *EntryRepo) GetByUUID(ctx context.Context, uuid string) (model.PendingEntry, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM pending_entries WHERE uuid = ?`, uuid))
}

// ListByPremise returns the premise's entries, newest first, optionally
// filtered by status ("" returns all).
func (r *EntryRepo) ListByPremise(ctx context.Context, premiseID uint64, status string) ([]model.PendingEntry, error) {
	q := `SELECT ` + entryColumns + ` FROM pending_entries WHERE premise_id = ?`
	args := []interface{}{premiseID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY submitted_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.PendingEntry, 0)
	for rows.Next() {
		e, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DenyTx marks a still-pending entry as denied with the supplied reason
// inside the given transaction. It returns sql.ErrNoRows when the entry
// is no longer pending (already denied or already approved and deleted),
// which protects against two staff racing on the same entry.
func (r *EntryRepo) DenyTx(ctx context.Context, tx *sql.Tx, entryID uint64, reason string, deniedBy uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE pending_entries
		 SET status = ?, denial_reason = ?, processed_at = UTC_TIMESTAMP(), denied_by = ?
		 WHERE id = ? AND status = ?`,
		model.EntryStatusDenied, reason, deniedBy, entryID, model.EntryStatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteTx removes an entry inside the given transaction; used by the
// approval path once the visit row has been created. sql.ErrNoRows is
// returned when the entry was already resolved by a concurrent decision.
func (r *EntryRepo) DeleteTx(ctx context.Context, tx *sql.Tx, entryID uint64) error {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM pending_entries WHERE id = ? AND status = ?`,
		entryID, model.EntryStatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *EntryRepo) scanOne(row *sql.Row) (model.PendingEntry, error) {
	var e model.PendingEntry
	var denial sql.NullString
	var processed sql.NullTime
	var deniedBy sql.NullInt64
	err := row.Scan(&e.ID, &e.UUID, &e.PremiseID, &e.ConfigIteration,
		&e.Name, &e.IDNumber, &e.Phone, &e.FieldsJSON, &e.Photo, &e.Signature,
		&e.Status, &denial, &e.SubmittedAt, &processed, &deniedBy)
	if err != nil {
		return model.PendingEntry{}, err
	}
	applyEntryNullables(&e, denial, processed, deniedBy)
	return e, nil
}

func (r *EntryRepo) scanRow(rows *sql.Rows) (model.PendingEntry, error) {
	var e model.PendingEntry
	var denial sql.NullString
	var processed sql.NullTime
	var deniedBy sql.NullInt64
	err := rows.Scan(&e.ID, &e.UUID, &e.PremiseID, &e.ConfigIteration,
		&e.Name, &e.IDNumber, &e.Phone, &e.FieldsJSON, &e.Photo, &e.Signature,
		&e.Status, &denial, &e.SubmittedAt, &processed, &deniedBy)
	if err != nil {
		return model.PendingEntry{}, err
	}
	applyEntryNullables(&e, denial, processed, deniedBy)
	return e, nil
}

func applyEntryNullables(e *model.PendingEntry, denial sql.NullString, processed sql.NullTime, deniedBy sql.NullInt64) {
	if denial.Valid {
		v := denial.String
		e.DenialReason = &v
	}
	if processed.Valid {
		t := processed.Time
		e.ProcessedAt = &t
	}
	if deniedBy.Valid {
		v := uint64(deniedBy.Int64)
		e.DeniedBy = &v
	}
}

// PruneDenied deletes denied entries older than the retention window.
// Kept separate from the admission workflow; intended for a periodic
// maintenance call.
func (r *EntryRepo) PruneDenied(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_entries WHERE status = ? AND processed_at < ?`,
		model.EntryStatusDenied, olderThan.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
