package school

import (
	"context"
	"errors"
	"time"

	"github.com/maskot/crm/core"
)

var (
	ErrNotFound = errors.New("escola não encontrada")
	ErrExists   = errors.New("CNPJ, email ou nome da escola já cadastrado")
)

type (
	GetFilter struct {
		ID    string
		Email string
	}

	Repository interface {
		CheckSchoolUniqueness(ctx context.Context, name, email, taxID string, excludedSchools ...School) error
		CreateSchool(ctx context.Context, sch School) (School, error)
		QuerySchools(ctx context.Context, ordering []core.DBOrdering) ([]School, error)
		GetSchool(ctx context.Context, filter GetFilter) (School, error)
		UpdateSchool(ctx context.Context, sch School) (School, error)
		// DeleteSchool cascades to the school's users and prospects.
		DeleteSchool(ctx context.Context, id string) error
	}

	ServiceInterface interface {
		CheckUniqueness(name, email, taxID string, excludedSchools ...School) error
		Create(ns NewSchool) (School, error)
		QueryAll(ordering ...core.DBOrdering) ([]School, error)
		GetByID(id string) (School, error)
		Update(orig School, us UpdateSchool) (School, error)
		Delete(id string) error
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) CheckUniqueness(name, email, taxID string, excludedSchools ...School) error {
	if err := svc.repo.CheckSchoolUniqueness(context.Background(), name, email, taxID, excludedSchools...); err != nil {
		if err == ErrExists {
			return core.NewConflictError(err)
		}
		return err
	}
	return nil
}

func (svc *service) Create(ns NewSchool) (School, error) {
	now := time.Now().UTC()
	sch := School{
		Name:          ns.Name,
		CorporateName: ns.CorporateName,
		TaxID:         ns.TaxID,
		Email:         ns.Email,
		Phone:         ns.Phone,
		Address:       ns.Address,
		City:          ns.City,
		State:         ns.State,
		ZipCode:       ns.ZipCode,
		Status:        StatusActive, // created by a platform admin, no approval step
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	sch, err := svc.repo.CreateSchool(context.Background(), sch)
	if err == ErrExists {
		return School{}, core.NewConflictError(err)
	}
	return sch, err
}

func (svc *service) QueryAll(ordering ...core.DBOrdering) ([]School, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	return svc.repo.QuerySchools(context.Background(), ordering)
}

func (svc *service) GetByID(id string) (School, error) {
	return svc.repo.GetSchool(context.Background(), GetFilter{ID: id})
}

func (svc *service) Update(orig School, us UpdateSchool) (School, error) {
	sch := orig
	sch.Name = us.Name
	sch.CorporateName = pickString(us.CorporateName, orig.CorporateName)
	sch.TaxID = us.TaxID
	sch.Email = us.Email
	sch.Phone = pickString(us.Phone, orig.Phone)
	sch.Address = pickString(us.Address, orig.Address)
	sch.City = pickString(us.City, orig.City)
	sch.State = pickString(us.State, orig.State)
	sch.ZipCode = pickString(us.ZipCode, orig.ZipCode)
	sch.Status = us.Status
	sch.UpdatedAt = time.Now().UTC()

	sch, err := svc.repo.UpdateSchool(context.Background(), sch)
	if err == ErrExists {
		return School{}, core.NewConflictError(err)
	}
	return sch, err
}

func (svc *service) Delete(id string) error {
	return svc.repo.DeleteSchool(context.Background(), id)
}

func pickString(val, fallback string) string {
	if val != "" {
		return val
	}
	return fallback
}
