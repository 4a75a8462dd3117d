package pgrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/maskot/crm/core"
	"github.com/maskot/crm/core/schooluser"
)

type userRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash []byte    `db:"password_hash"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	SchoolID     string    `db:"school_id"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) toDomain() schooluser.User {
	return schooluser.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		IsActive:     r.IsActive,
		SchoolID:     r.SchoolID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ schooluser.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) CheckUserEmailUniqueness(ctx context.Context, email string, excludedUsers ...schooluser.User) error {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += ` AND NOT (id = ANY($2))`
		args = append(args, pq.Array(ids))
	}
	query += `)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking user email uniqueness")
	}
	if exists {
		return schooluser.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr schooluser.User) (schooluser.User, error) {
	usr.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, is_active, school_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		usr.ID, usr.Name, usr.Email, usr.PasswordHash, usr.Role, usr.IsActive,
		usr.SchoolID, usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return schooluser.User{}, schooluser.ErrEmailExists
		}
		return schooluser.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsersBySchool(ctx context.Context, schoolID string, ordering []core.DBOrdering) ([]schooluser.User, error) {
	var rows []userRow
	query := `SELECT * FROM users WHERE school_id = $1` + orderBy(ordering)
	if err := repo.db.SelectContext(ctx, &rows, query, schoolID); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]schooluser.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toDomain())
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter schooluser.GetFilter) (schooluser.User, error) {
	var row userRow
	var err error

	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return schooluser.User{}, schooluser.ErrNotFound
		}
		if filter.SchoolID != "" {
			// tenant-scoped lookup: an id from another school is simply not found
			err = repo.db.GetContext(ctx, &row,
				`SELECT * FROM users WHERE id = $1 AND school_id = $2`, filter.ID, filter.SchoolID)
		} else {
			err = repo.db.GetContext(ctx, &row, `SELECT * FROM users WHERE id = $1`, filter.ID)
		}
	case filter.Email != "":
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM users WHERE email = $1`, filter.Email)
	default:
		return schooluser.User{}, schooluser.ErrNotFound
	}

	if err != nil {
		if err == sql.ErrNoRows {
			return schooluser.User{}, schooluser.ErrNotFound
		}
		return schooluser.User{}, errors.Wrap(err, "finding user")
	}
	return row.toDomain(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr schooluser.User) (schooluser.User, error) {
	// school_id is immutable and deliberately absent from the SET list
	res, err := repo.db.ExecContext(ctx,
		`UPDATE users SET name = $2, email = $3, password_hash = $4, role = $5, is_active = $6, updated_at = $7
		 WHERE id = $1`,
		usr.ID, usr.Name, usr.Email, usr.PasswordHash, usr.Role, usr.IsActive, usr.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return schooluser.User{}, schooluser.ErrEmailExists
		}
		return schooluser.User{}, errors.Wrap(err, "updating user")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return schooluser.User{}, schooluser.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return schooluser.ErrNotFound
	}
	return nil
}
