package pgrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/maskot/crm/core/admin"
)

type adminRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r adminRow) toDomain() admin.Admin {
	return admin.Admin{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type adminRepository struct {
	db *sqlx.DB
}

var _ admin.Repository = (*adminRepository)(nil) // interface compliance check

func NewAdminRepository(db *sqlx.DB) *adminRepository {
	return &adminRepository{db: db}
}

func (repo adminRepository) CheckAdminEmailUniqueness(ctx context.Context, email string, excludedAdmins ...admin.Admin) error {
	query := `SELECT EXISTS (SELECT 1 FROM users_admin WHERE email = $1`
	args := []interface{}{email}
	if len(excludedAdmins) > 0 {
		ids := make([]string, 0, len(excludedAdmins))
		for _, a := range excludedAdmins {
			ids = append(ids, a.ID)
		}
		query += ` AND NOT (id = ANY($2))`
		args = append(args, pq.Array(ids))
	}
	query += `)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking admin email uniqueness")
	}
	if exists {
		return admin.ErrEmailExists
	}
	return nil
}

func (repo adminRepository) CreateAdmin(ctx context.Context, adm admin.Admin) (admin.Admin, error) {
	adm.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO users_admin (id, name, email, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		adm.ID, adm.Name, adm.Email, adm.PasswordHash, adm.CreatedAt, adm.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return admin.Admin{}, admin.ErrEmailExists
		}
		return admin.Admin{}, errors.Wrap(err, "inserting admin")
	}
	return adm, nil
}

func (repo adminRepository) GetAdmin(ctx context.Context, filter admin.GetFilter) (admin.Admin, error) {
	var row adminRow
	var err error

	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return admin.Admin{}, admin.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM users_admin WHERE id = $1`, filter.ID)
	case filter.Email != "":
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM users_admin WHERE email = $1`, filter.Email)
	default:
		return admin.Admin{}, admin.ErrNotFound
	}

	if err != nil {
		if err == sql.ErrNoRows {
			return admin.Admin{}, admin.ErrNotFound
		}
		return admin.Admin{}, errors.Wrap(err, "finding admin")
	}
	return row.toDomain(), nil
}

func (repo adminRepository) UpdateAdmin(ctx context.Context, adm admin.Admin) (admin.Admin, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE users_admin SET name = $2, email = $3, password_hash = $4, updated_at = $5 WHERE id = $1`,
		adm.ID, adm.Name, adm.Email, adm.PasswordHash, adm.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return admin.Admin{}, admin.ErrEmailExists
		}
		return admin.Admin{}, errors.Wrap(err, "updating admin")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return admin.Admin{}, admin.ErrNotFound
	}
	return adm, nil
}
