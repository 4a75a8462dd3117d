package pgrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/maskot/crm/core"
	"github.com/maskot/crm/core/prospect"
)

type prospectRow struct {
	ID              string    `db:"id"`
	StudentName     string    `db:"student_name"`
	GuardianName    string    `db:"guardian_name"`
	GuardianEmail   string    `db:"guardian_email"`
	GuardianPhone   string    `db:"guardian_phone"`
	GradeOfInterest string    `db:"grade_of_interest"`
	Status          string    `db:"status"`
	Source          string    `db:"source"`
	Notes           string    `db:"notes"`
	SchoolID        string    `db:"school_id"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r prospectRow) toDomain() prospect.Prospect {
	return prospect.Prospect{
		ID:              r.ID,
		StudentName:     r.StudentName,
		GuardianName:    r.GuardianName,
		GuardianEmail:   r.GuardianEmail,
		GuardianPhone:   r.GuardianPhone,
		GradeOfInterest: r.GradeOfInterest,
		Status:          r.Status,
		Source:          r.Source,
		Notes:           r.Notes,
		SchoolID:        r.SchoolID,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type prospectRepository struct {
	db *sqlx.DB
}

var _ prospect.Repository = (*prospectRepository)(nil) // interface compliance check

func NewProspectRepository(db *sqlx.DB) *prospectRepository {
	return &prospectRepository{db: db}
}

func (repo prospectRepository) CreateProspect(ctx context.Context, pros prospect.Prospect) (prospect.Prospect, error) {
	pros.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO prospects (id, student_name, guardian_name, guardian_email, guardian_phone,
		   grade_of_interest, status, source, notes, school_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		pros.ID, pros.StudentName, pros.GuardianName, pros.GuardianEmail, pros.GuardianPhone,
		pros.GradeOfInterest, pros.Status, pros.Source, pros.Notes, pros.SchoolID,
		pros.CreatedAt, pros.UpdatedAt,
	)
	if err != nil {
		return prospect.Prospect{}, errors.Wrap(err, "inserting prospect")
	}
	return pros, nil
}

func (repo prospectRepository) QueryProspectsBySchool(ctx context.Context, schoolID string, ordering []core.DBOrdering) ([]prospect.Prospect, error) {
	var rows []prospectRow
	query := `SELECT * FROM prospects WHERE school_id = $1` + orderBy(ordering)
	if err := repo.db.SelectContext(ctx, &rows, query, schoolID); err != nil {
		return nil, errors.Wrap(err, "querying prospects")
	}
	prospects := make([]prospect.Prospect, 0, len(rows))
	for _, r := range rows {
		prospects = append(prospects, r.toDomain())
	}
	return prospects, nil
}

func (repo prospectRepository) GetProspect(ctx context.Context, id, schoolID string) (prospect.Prospect, error) {
	if _, err := uuid.Parse(id); err != nil {
		return prospect.Prospect{}, prospect.ErrNotFound
	}

	var row prospectRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM prospects WHERE id = $1 AND school_id = $2`, id, schoolID)
	if err != nil {
		if err == sql.ErrNoRows {
			return prospect.Prospect{}, prospect.ErrNotFound
		}
		return prospect.Prospect{}, errors.Wrap(err, "finding prospect")
	}
	return row.toDomain(), nil
}

func (repo prospectRepository) UpdateProspect(ctx context.Context, pros prospect.Prospect) (prospect.Prospect, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE prospects SET student_name = $3, guardian_name = $4, guardian_email = $5, guardian_phone = $6,
		   grade_of_interest = $7, status = $8, source = $9, notes = $10, updated_at = $11
		 WHERE id = $1 AND school_id = $2`,
		pros.ID, pros.SchoolID, pros.StudentName, pros.GuardianName, pros.GuardianEmail, pros.GuardianPhone,
		pros.GradeOfInterest, pros.Status, pros.Source, pros.Notes, pros.UpdatedAt,
	)
	if err != nil {
		return prospect.Prospect{}, errors.Wrap(err, "updating prospect")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return prospect.Prospect{}, prospect.ErrNotFound
	}
	return pros, nil
}

func (repo prospectRepository) DeleteProspect(ctx context.Context, id, schoolID string) error {
	res, err := repo.db.ExecContext(ctx,
		`DELETE FROM prospects WHERE id = $1 AND school_id = $2`, id, schoolID)
	if err != nil {
		return errors.Wrap(err, "deleting prospect")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return prospect.ErrNotFound
	}
	return nil
}
