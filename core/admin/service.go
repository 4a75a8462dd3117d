package admin

import (
	"context"
	"errors"
	"time"

	"github.com/maskot/crm/core"
)

var (
	ErrNotFound        = errors.New("administrador não encontrado")
	ErrEmailExists     = errors.New("este email de administrador já está cadastrado")
	ErrInvalidPassword = errors.New("senha incorreta")
)

type (
	GetFilter struct {
		ID    string
		Email string
	}

	Repository interface {
		CheckAdminEmailUniqueness(ctx context.Context, email string, excludedAdmins ...Admin) error
		CreateAdmin(ctx context.Context, adm Admin) (Admin, error)
		GetAdmin(ctx context.Context, filter GetFilter) (Admin, error)
		UpdateAdmin(ctx context.Context, adm Admin) (Admin, error)
	}

	ServiceInterface interface {
		CheckEmailUniqueness(email string, excludedAdmins ...Admin) error
		Register(na NewAdmin) (Admin, error)
		GetByID(id string) (Admin, error)
		GetByEmail(email string) (Admin, error)
		Authenticate(email, pwd string) (Admin, error)
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) CheckEmailUniqueness(email string, excludedAdmins ...Admin) error {
	if err := svc.repo.CheckAdminEmailUniqueness(context.Background(), email, excludedAdmins...); err != nil {
		if err == ErrEmailExists {
			return core.NewConflictError(err)
		}
		return err
	}
	return nil
}

func (svc *service) Register(na NewAdmin) (Admin, error) {
	now := time.Now().UTC()
	adm := Admin{
		Name:      na.Name,
		Email:     na.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := adm.SetPassword(na.Password); err != nil {
		return Admin{}, err
	}
	adm, err := svc.repo.CreateAdmin(context.Background(), adm)
	if err == ErrEmailExists { // lookup-then-write race caught by the store
		return Admin{}, core.NewConflictError(err)
	}
	return adm, err
}

func (svc *service) GetByID(id string) (Admin, error) {
	return svc.repo.GetAdmin(context.Background(), GetFilter{ID: id})
}

func (svc *service) GetByEmail(email string) (Admin, error) {
	return svc.repo.GetAdmin(context.Background(), GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) Authenticate(email, pwd string) (Admin, error) {
	adm, err := svc.GetByEmail(email)
	if err != nil {
		return Admin{}, err
	}
	if err := adm.CheckPassword(pwd); err != nil {
		return Admin{}, ErrInvalidPassword
	}
	return adm, nil
}
