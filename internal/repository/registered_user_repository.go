package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/venuepass/visitor-management/internal/model"
	"github.com/venuepass/visitor-management/internal/utils"
)

// RegisteredUserRepo persists reusable visitor identity profiles created
// through the registration upsell after a check-in.
type RegisteredUserRepo struct{ db *sql.DB }

// NewRegisteredUserRepo returns a new RegisteredUserRepo bound to the
// given database.
func NewRegisteredUserRepo(db *sql.DB) *RegisteredUserRepo { return &RegisteredUserRepo{db: db} }

const registeredUserColumns = `id, code, name, email, phone, idnumber, photo, password_hash, created_at, updated_at`

// Create inserts a profile with a bcrypt-hashed credential and returns
// the populated record. ErrEmailExists is returned on email collision.
func (r *RegisteredUserRepo) Create(ctx context.Context, u model.RegisteredUser, password string, cost int) (model.RegisteredUser, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.RegisteredUser{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO registered_users (code, name, email, phone, idnumber, photo, password_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Code, u.Name, strings.ToLower(strings.TrimSpace(u.Email)), u.Phone, u.IDNumber, u.Photo, hash)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.RegisteredUser{}, ErrEmailExists
		}
		return model.RegisteredUser{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.RegisteredUser{}, err
	}
	return r.getByID(ctx, uint64(id))
}

// FindByIdentifier looks a profile up by whichever identifier the
// returning visitor supplied: lookup code, email or phone, tried in
// that order. nil is returned when nothing matches; the intake form
// then renders without prefill.
func (r *RegisteredUserRepo) FindByIdentifier(ctx context.Context, code, email, phone string) (*model.RegisteredUser, error) {
	type probe struct{ column, value string }
	probes := []probe{
		{"code", strings.TrimSpace(code)},
		{"email", strings.ToLower(strings.TrimSpace(email))},
		{"phone", strings.TrimSpace(phone)},
	}
	for _, p := range probes {
		if p.value == "" {
			continue
		}
		u, err := r.getBy(ctx, p.column, p.value)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &u, nil
	}
	return nil, nil
}

func (r *RegisteredUserRepo) getByID(ctx context.Context, id uint64) (model.RegisteredUser, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+registeredUserColumns+` FROM registered_users WHERE id = ?`, id))
}

func (r *RegisteredUserRepo) getBy(ctx context.Context, column, value string) (model.RegisteredUser, error) {
	// column is one of the fixed probe names above, never caller input.
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+registeredUserColumns+` FROM registered_users WHERE `+column+` = ? LIMIT 1`, value))
}

func (r *RegisteredUserRepo) scanOne(row *sql.Row) (model.RegisteredUser, error) {
	var u model.RegisteredUser
	err := row.Scan(&u.ID, &u.Code, &u.Name, &u.Email, &u.Phone, &u.IDNumber,
		&u.Photo, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
