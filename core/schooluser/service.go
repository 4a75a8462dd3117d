package schooluser

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/maskot/crm/core"
)

var (
	ErrNotFound        = errors.New("utilizador não encontrado")
	ErrEmailExists     = errors.New("este email já está em uso")
	ErrInvalidPassword = errors.New("senha incorreta")
	ErrInactive        = errors.New("conta de utilizador inativa")
)

type (
	// GetFilter addresses a user by ID (optionally tenant-scoped) or by email.
	GetFilter struct {
		ID       string
		SchoolID string
		Email    string
	}

	Repository interface {
		CheckUserEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryUsersBySchool(ctx context.Context, schoolID string, ordering []core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUser(ctx context.Context, id string) error
	}

	ServiceInterface interface {
		CheckEmailUniqueness(email string, excludedUsers ...User) error
		Create(schoolID string, nu NewUser) (User, error)
		QueryBySchool(schoolID string, ordering ...core.DBOrdering) ([]User, error)
		GetByID(id, schoolID string) (User, error)
		GetByEmail(email string) (User, error)
		Authenticate(email, pwd string) (User, error)
		Update(orig User, uu UpdateUser) (User, error)
		Delete(id string) error
		RequestPasswordReset(email string) error
		ResetPassword(rp ResetUserPassword) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *service) CheckEmailUniqueness(email string, excludedUsers ...User) error {
	if err := svc.repo.CheckUserEmailUniqueness(context.Background(), email, excludedUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewConflictError(err)
		}
		return err
	}
	return nil
}

func (svc *service) Create(schoolID string, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		IsActive:  true,
		SchoolID:  schoolID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if nu.IsActive != nil {
		usr.IsActive = *nu.IsActive
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.CreateUser(context.Background(), usr)
	if err == ErrEmailExists { // lookup-then-write race caught by the store
		return User{}, core.NewConflictError(err)
	}
	return usr, err
}

func (svc *service) QueryBySchool(schoolID string, ordering ...core.DBOrdering) ([]User, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	return svc.repo.QueryUsersBySchool(context.Background(), schoolID, ordering)
}

func (svc *service) GetByID(id, schoolID string) (User, error) {
	return svc.repo.GetUser(context.Background(), GetFilter{ID: id, SchoolID: schoolID})
}

func (svc *service) GetByEmail(email string) (User, error) {
	return svc.repo.GetUser(context.Background(), GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) Authenticate(email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return User{}, err
	}
	if !usr.IsActive {
		return User{}, ErrInactive
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidPassword
	}
	return usr, nil
}

// Update persists uu on top of orig, hashing the password only when a new
// value was provided. SchoolID is never touched.
func (svc *service) Update(orig User, uu UpdateUser) (User, error) {
	usr := orig
	usr.Name = uu.Name
	usr.Email = uu.Email
	usr.Role = uu.Role
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	usr.UpdatedAt = time.Now().UTC()

	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}

	usr, err := svc.repo.UpdateUser(context.Background(), usr)
	if err == ErrEmailExists {
		return User{}, core.NewConflictError(err)
	}
	return usr, err
}

func (svc *service) Delete(id string) error {
	return svc.repo.DeleteUser(context.Background(), id)
}

// RequestPasswordReset emails a one-shot reset link to the user.
// ErrNotFound surfaces to the caller so it can hide it from attackers.
func (svc *service) RequestPasswordReset(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}

	token, err := MakeToken(usr, svc.conf)
	if err != nil {
		return err
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Redefinição de senha",
		TemplateName: "password-reset",
		TemplateData: struct {
			Name  string
			UID   string
			Token string
		}{usr.Name, EncodeUID(usr), token},
	})
	return nil
}

// ResetPassword verifies the one-shot token and sets the new password.
// The token embeds the current password hash, so a successful reset
// invalidates it immediately.
func (svc *service) ResetPassword(rp ResetUserPassword) error {
	uid, err := DecodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.repo.GetUser(context.Background(), GetFilter{ID: uid})
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	if err := VerifyToken(usr, rp.Token, svc.conf); err != nil {
		return core.NewValidationError(err)
	}
	if err := usr.SetPassword(rp.Password); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(context.Background(), usr)
	return err
}
