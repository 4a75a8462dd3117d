package prospect

import (
	"context"
	"errors"
	"time"

	"github.com/maskot/crm/core"
)

var ErrNotFound = errors.New("prospect não encontrado nesta escola")

type (
	Repository interface {
		CreateProspect(ctx context.Context, p Prospect) (Prospect, error)
		// QueryProspectsBySchool returns only the given school's prospects.
		QueryProspectsBySchool(ctx context.Context, schoolID string, ordering []core.DBOrdering) ([]Prospect, error)
		// GetProspect filters on both id and schoolID: an id belonging to another
		// school behaves exactly like a missing id.
		GetProspect(ctx context.Context, id, schoolID string) (Prospect, error)
		UpdateProspect(ctx context.Context, p Prospect) (Prospect, error)
		DeleteProspect(ctx context.Context, id, schoolID string) error
	}

	ServiceInterface interface {
		Create(schoolID string, np NewProspect) (Prospect, error)
		QueryBySchool(schoolID string, ordering ...core.DBOrdering) ([]Prospect, error)
		GetByID(id, schoolID string) (Prospect, error)
		Update(orig Prospect, up UpdateProspect) (Prospect, error)
		Delete(id, schoolID string) error
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) Create(schoolID string, np NewProspect) (Prospect, error) {
	now := time.Now().UTC()
	p := Prospect{
		StudentName:     np.StudentName,
		GuardianName:    np.GuardianName,
		GuardianEmail:   np.GuardianEmail,
		GuardianPhone:   np.GuardianPhone,
		GradeOfInterest: np.GradeOfInterest,
		Status:          np.Status,
		Source:          np.Source,
		Notes:           np.Notes,
		SchoolID:        schoolID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if p.Status == "" {
		p.Status = StatusNewContact
	}
	return svc.repo.CreateProspect(context.Background(), p)
}

func (svc *service) QueryBySchool(schoolID string, ordering ...core.DBOrdering) ([]Prospect, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{
			{Field: "status", Ascending: true},
			{Field: "updated_at", Ascending: false},
		}
	}
	return svc.repo.QueryProspectsBySchool(context.Background(), schoolID, ordering)
}

func (svc *service) GetByID(id, schoolID string) (Prospect, error) {
	return svc.repo.GetProspect(context.Background(), id, schoolID)
}

func (svc *service) Update(orig Prospect, up UpdateProspect) (Prospect, error) {
	p := orig
	if up.StudentName != "" {
		p.StudentName = up.StudentName
	}
	if up.GuardianName != nil {
		p.GuardianName = *up.GuardianName
	}
	if up.GuardianEmail != nil { // explicit empty value clears the field
		p.GuardianEmail = core.CleanString(*up.GuardianEmail, true /* lower */)
	}
	if up.GuardianPhone != nil {
		p.GuardianPhone = *up.GuardianPhone
	}
	if up.GradeOfInterest != "" {
		p.GradeOfInterest = up.GradeOfInterest
	}
	if up.Status != "" { // direct overwrite, no funnel-ordering constraint
		p.Status = up.Status
	}
	if up.Source != nil {
		p.Source = *up.Source
	}
	if up.Notes != nil {
		p.Notes = *up.Notes
	}
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateProspect(context.Background(), p)
}

func (svc *service) Delete(id, schoolID string) error {
	return svc.repo.DeleteProspect(context.Background(), id, schoolID)
}
