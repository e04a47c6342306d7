package repository

import (
	"context"
	"database/sql"
	"log"

	"github.com/venuepass/visitor-management/internal/fieldconfig"
	"github.com/venuepass/visitor-management/internal/model"
	"github.com/venuepass/visitor-management/internal/qr"
)

// FieldConfigRepo persists the append-only field configuration history
// of each premise. Every save creates a new iteration and a new QR
// payload; old iterations are never mutated so printed codes keep
// resolving to the exact field set they were generated with.
type FieldConfigRepo struct {
	db      *sql.DB
	baseURL string // public origin embedded into QR payloads
}

// NewFieldConfigRepo returns a FieldConfigRepo. baseURL is the external
// origin entry URLs are issued against.
func NewFieldConfigRepo(db *sql.DB, baseURL string) *FieldConfigRepo {
	return &FieldConfigRepo{db: db, baseURL: baseURL}
}

// Save normalizes and appends a new configuration iteration for the
// premise. The new iteration is exactly one above the current maximum;
// when the lookup finds no prior configuration the iteration defaults
// to 1. The row is inserted together with its derived QR payload in one
// transaction so a reader never observes an iteration without a payload.
func (r *FieldConfigRepo) Save(ctx context.Context, premiseID uint64, fields []model.Field) (model.FieldConfiguration, error) {
	normalized := fieldconfig.Normalize(fields)
	raw, err := fieldconfig.Encode(normalized)
	if err != nil {
		return model.FieldConfiguration{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.FieldConfiguration{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the premise's history while allocating the next iteration so
	// two concurrent saves cannot pick the same number.
	var next uint32 = 1
	var max sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT MAX(iteration) FROM field_configurations WHERE premise_id = ? FOR UPDATE`,
		premiseID).Scan(&max)
	switch {
	case err != nil:
		// Lookup failure falls back to iteration 1 rather than blocking
		// the save; the unique index still rejects a real collision.
		log.Printf("fieldconfig: iteration lookup failed for premise %d: %v", premiseID, err)
	case max.Valid:
		next = uint32(max.Int64) + 1
	}

	payload := qr.IssueURL(r.baseURL, premiseID, next)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO field_configurations (premise_id, iteration, fields_json, qr_payload) VALUES (?, ?, ?, ?)`,
		premiseID, next, string(raw), payload)
	if err != nil {
		return model.FieldConfiguration{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.FieldConfiguration{}, err
	}

	var createdAt sql.NullTime
	if err := tx.QueryRowContext(ctx,
		`SELECT created_at FROM field_configurations WHERE id = ?`, id).Scan(&createdAt); err != nil {
		return model.FieldConfiguration{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.FieldConfiguration{}, err
	}
	committed = true

	cfg := model.FieldConfiguration{
		ID:        uint64(id),
		PremiseID: premiseID,
		Iteration: next,
		Fields:    normalized,
		QRPayload: payload,
	}
	if createdAt.Valid {
		cfg.CreatedAt = createdAt.Time
	}
	return cfg, nil
}

// Load returns the highest-iteration configuration for the premise.
// When no configuration exists yet, a synthetic iteration-0 record with
// the default field set is returned so callers always have a form to
// render; the first save will then create iteration 1.
func (r *FieldConfigRepo) Load(ctx context.Context, premiseID uint64) (model.FieldConfiguration, error) {
	const q = `SELECT id, premise_id, iteration, fields_json, qr_payload, created_at
	           FROM field_configurations
	           WHERE premise_id = ?
	           ORDER BY iteration DESC
	           LIMIT 1`
	cfg, err := r.scanOne(r.db.QueryRowContext(ctx, q, premiseID))
	if err == sql.ErrNoRows {
		return model.FieldConfiguration{
			PremiseID: premiseID,
			Iteration: 0,
			Fields:    fieldconfig.Defaults(),
		}, nil
	}
	return cfg, err
}

// LoadIteration returns the exact configuration iteration pinned by a
// QR code's v parameter. sql.ErrNoRows is returned when that iteration
// was never issued for the premise.
func (r *FieldConfigRepo) LoadIteration(ctx context.Context, premiseID uint64, iteration uint32) (model.FieldConfiguration, error) {
	const q = `SELECT id, premise_id, iteration, fields_json, qr_payload, created_at
	           FROM field_configurations
	           WHERE premise_id = ? AND iteration = ?
	           LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, premiseID, iteration))
}

func (r *FieldConfigRepo) scanOne(row *sql.Row) (model.FieldConfiguration, error) {
	var cfg model.FieldConfiguration
	var raw []byte
	if err := row.Scan(&cfg.ID, &cfg.PremiseID, &cfg.Iteration, &raw, &cfg.QRPayload, &cfg.CreatedAt); err != nil {
		return model.FieldConfiguration{}, err
	}
	// Malformed stored payloads degrade to the default field set instead
	// of failing the caller; the intake form always has a form to render.
	cfg.Fields = fieldconfig.Decode(raw)
	return cfg, nil
}
