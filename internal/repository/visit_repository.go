package repository

import (
	"context"
	"database/sql"

	"github.com/venuepass/visitor-management/internal/model"
)

// VisitRepo provides data access to the visits table. The table carries
// the single cross-request invariant of the system: at most one open
// visit (checked_out_at IS NULL) per (premise_id, idnumber). Inserts go
// through a conditional INSERT ... SELECT so the check and the write are
// one atomic statement; the check-then-act window of a separate lookup
// cannot produce a second open visit.
type VisitRepo struct{ db *sql.DB }

// NewVisitRepo returns a new VisitRepo bound to the given database.
func NewVisitRepo(db *sql.DB) *VisitRepo { return &VisitRepo{db: db} }

// DB exposes the underlying handle for transaction orchestration.
func (r *VisitRepo) DB() *sql.DB { return r.db }

const visitColumns = `id, uuid, premise_id, name, idnumber, phone, fields_json, photo, signature,
	status, approved_by, entry_approved_at, checked_in_at, checked_out_at, checkout_reason`

// CreateFromEntryTx creates the visit for an approved entry inside the
// given transaction. The insert succeeds only while no open visit exists
// for the same identity at the premise; otherwise no row is written and
// ErrOpenVisit is returned. Approval time and check-in time are the same
// instant.
func (r *VisitRepo) CreateFromEntryTx(ctx context.Context, tx *sql.Tx, e model.PendingEntry, approvedBy uint64) (model.Visit, error) {
	const q = `INSERT INTO visits
	           (uuid, premise_id, name, idnumber, phone, fields_json, photo, signature,
	            status, approved_by, entry_approved_at, checked_in_at)
	           SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP(), UTC_TIMESTAMP()
	           FROM DUAL
	           WHERE NOT EXISTS (
	               SELECT 1 FROM visits
	               WHERE premise_id = ? AND idnumber = ? AND checked_out_at IS NULL
	           )`
	res, err := tx.ExecContext(ctx, q,
		e.UUID, e.PremiseID, e.Name, e.IDNumber, e.Phone, e.FieldsJSON, e.Photo, e.Signature,
		model.VisitStatusApproved, approvedBy,
		e.PremiseID, e.IDNumber)
	if err != nil {
		return model.Visit{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Visit{}, err
	}
	if n == 0 {
		return model.Visit{}, ErrOpenVisit
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Visit{}, err
	}
	return r.getByIDTx(ctx, tx, uint64(id))
}

// OpenByIdentity returns the most recent open visit for the identity at
// the premise, or nil when none exists. Should the invariant ever be
// violated upstream, ordering by check-in time picks exactly one visit
// to present for resolution.
func (r *VisitRepo) OpenByIdentity(ctx context.Context, premiseID uint64, idnumber string) (*model.Visit, error) {
	const q = `SELECT ` + visitColumns + `
	           FROM visits
	           WHERE premise_id = ? AND idnumber = ? AND checked_out_at IS NULL
	           ORDER BY checked_in_at DESC
	           LIMIT 1`
	v, err := scanVisit(r.db.QueryRowContext(ctx, q, premiseID, idnumber))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetByID returns one visit by primary key.
func (r *VisitRepo) GetByID(ctx context.Context, id uint64) (model.Visit, error) {
	return scanVisit(r.db.QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE id = ?`, id))
}

// GetByUUID returns one visit by its public identifier.
func (r *VisitRepo) GetByUUID(ctx context.Context, uuid string) (model.Visit, error) {
	return scanVisit(r.db.QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE uuid = ?`, uuid))
}

func (r *VisitRepo) getByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Visit, error) {
	return scanVisit(tx.QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE id = ?`, id))
}

// ListByPremise returns the premise's visits, newest first. When
// openOnly is true, only visits without a check-out are returned.
func (r *VisitRepo) ListByPremise(ctx context.Context, premiseID uint64, openOnly bool) ([]model.Visit, error) {
	q := `SELECT ` + visitColumns + ` FROM visits WHERE premise_id = ?`
	if openOnly {
		q += ` AND checked_out_at IS NULL`
	}
	q += ` ORDER BY checked_in_at DESC`
	rows, err := r.db.QueryContext(ctx, q, premiseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Visit, 0)
	for rows.Next() {
		v, err := scanVisitRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CheckoutTx closes an open visit inside the given transaction, setting
// checked_out_at, the optional reason and the EXITED status. It returns
// sql.ErrNoRows when the visit does not exist or is already closed, so
// a double checkout never overwrites the first one's timestamp.
func (r *VisitRepo) CheckoutTx(ctx context.Context, tx *sql.Tx, visitID uint64, reason string) error {
	var res sql.Result
	var err error
	if reason == "" {
		res, err = tx.ExecContext(ctx,
			`UPDATE visits SET checked_out_at = UTC_TIMESTAMP(), status = ?
			 WHERE id = ? AND checked_out_at IS NULL`,
			model.VisitStatusExited, visitID)
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE visits SET checked_out_at = UTC_TIMESTAMP(), checkout_reason = ?, status = ?
			 WHERE id = ? AND checked_out_at IS NULL`,
			reason, model.VisitStatusExited, visitID)
	}
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

func scanVisit(row *sql.Row) (model.Visit, error) {
	var v model.Visit
	var checkedOut sql.NullTime
	var reason sql.NullString
	err := row.Scan(&v.ID, &v.UUID, &v.PremiseID, &v.Name, &v.IDNumber, &v.Phone,
		&v.FieldsJSON, &v.Photo, &v.Signature, &v.Status, &v.ApprovedBy,
		&v.EntryApprovedAt, &v.CheckedInAt, &checkedOut, &reason)
	if err != nil {
		return model.Visit{}, err
	}
	applyVisitNullables(&v, checkedOut, reason)
	return v, nil
}

func scanVisitRow(rows *sql.Rows) (model.Visit, error) {
	var v model.Visit
	var checkedOut sql.NullTime
	var reason sql.NullString
	err := rows.Scan(&v.ID, &v.UUID, &v.PremiseID, &v.Name, &v.IDNumber, &v.Phone,
		&v.FieldsJSON, &v.Photo, &v.Signature, &v.Status, &v.ApprovedBy,
		&v.EntryApprovedAt, &v.CheckedInAt, &checkedOut, &reason)
	if err != nil {
		return model.Visit{}, err
	}
	applyVisitNullables(&v, checkedOut, reason)
	return v, nil
}

func applyVisitNullables(v *model.Visit, checkedOut sql.NullTime, reason sql.NullString) {
	if checkedOut.Valid {
		t := checkedOut.Time
		v.CheckedOutAt = &t
	}
	if reason.Valid {
		s := reason.String
		v.CheckoutReason = &s
	}
}
