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
	"github.com/maskot/crm/core/school"
)

type schoolRow struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	CorporateName string    `db:"corporate_name"`
	TaxID         string    `db:"tax_id"`
	Email         string    `db:"email"`
	Phone         string    `db:"phone"`
	Address       string    `db:"address"`
	City          string    `db:"city"`
	State         string    `db:"state"`
	ZipCode       string    `db:"zip_code"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r schoolRow) toDomain() school.School {
	return school.School{
		ID:            r.ID,
		Name:          r.Name,
		CorporateName: r.CorporateName,
		TaxID:         r.TaxID,
		Email:         r.Email,
		Phone:         r.Phone,
		Address:       r.Address,
		City:          r.City,
		State:         r.State,
		ZipCode:       r.ZipCode,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo schoolRepository) CheckSchoolUniqueness(ctx context.Context, name, email, taxID string, excludedSchools ...school.School) error {
	query := `SELECT EXISTS (
		SELECT 1 FROM schools WHERE (name = $1 OR email = $2 OR (tax_id <> '' AND tax_id = $3))`
	args := []interface{}{name, email, taxID}
	if len(excludedSchools) > 0 {
		ids := make([]string, 0, len(excludedSchools))
		for _, s := range excludedSchools {
			ids = append(ids, s.ID)
		}
		query += ` AND NOT (id = ANY($4))`
		args = append(args, pq.Array(ids))
	}
	query += `)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking school uniqueness")
	}
	if exists {
		return school.ErrExists
	}
	return nil
}

func (repo schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	sch.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO schools
			(id, name, corporate_name, tax_id, email, phone, address, city, state, zip_code, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sch.ID, sch.Name, sch.CorporateName, sch.TaxID, sch.Email, sch.Phone,
		sch.Address, sch.City, sch.State, sch.ZipCode, sch.Status, sch.CreatedAt, sch.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return school.School{}, school.ErrExists
		}
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	return sch, nil
}

func (repo schoolRepository) QuerySchools(ctx context.Context, ordering []core.DBOrdering) ([]school.School, error) {
	var rows []schoolRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM schools`+orderBy(ordering)); err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	schools := make([]school.School, 0, len(rows))
	for _, r := range rows {
		schools = append(schools, r.toDomain())
	}
	return schools, nil
}

func (repo schoolRepository) GetSchool(ctx context.Context, filter school.GetFilter) (school.School, error) {
	var row schoolRow
	var err error

	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return school.School{}, school.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM schools WHERE id = $1`, filter.ID)
	case filter.Email != "":
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM schools WHERE email = $1`, filter.Email)
	default:
		return school.School{}, school.ErrNotFound
	}

	if err != nil {
		if err == sql.ErrNoRows {
			return school.School{}, school.ErrNotFound
		}
		return school.School{}, errors.Wrap(err, "finding school")
	}
	return row.toDomain(), nil
}

func (repo schoolRepository) UpdateSchool(ctx context.Context, sch school.School) (school.School, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE schools SET
			name = $2, corporate_name = $3, tax_id = $4, email = $5, phone = $6,
			address = $7, city = $8, state = $9, zip_code = $10, status = $11, updated_at = $12
		 WHERE id = $1`,
		sch.ID, sch.Name, sch.CorporateName, sch.TaxID, sch.Email, sch.Phone,
		sch.Address, sch.City, sch.State, sch.ZipCode, sch.Status, sch.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return school.School{}, school.ErrExists
		}
		return school.School{}, errors.Wrap(err, "updating school")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return school.School{}, school.ErrNotFound
	}
	return sch, nil
}

func (repo schoolRepository) DeleteSchool(ctx context.Context, id string) error {
	// users and prospects go with it (FK ON DELETE CASCADE)
	res, err := repo.db.ExecContext(ctx, `DELETE FROM schools WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting school")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return school.ErrNotFound
	}
	return nil
}
