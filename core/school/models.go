package school

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/maskot/crm/core"
)

// Tenant statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusPending  = "pending"
	StatusTrial    = "trial"
)

var AllStatuses = []string{StatusActive, StatusInactive, StatusPending, StatusTrial}

var (
	schoolStatusTag  = "schoolstatus"
	schoolStatusText = "status de escola inválido"
)

// School is a tenant: every SchoolUser and Prospect belongs to exactly one.
type School struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CorporateName string    `json:"corporateName,omitempty"`
	TaxID         string    `json:"cnpj,omitempty"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	City          string    `json:"city,omitempty"`
	State         string    `json:"state,omitempty"`
	ZipCode       string    `json:"zipCode,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"` // UTC
	UpdatedAt     time.Time `json:"updatedAt"` // UTC
}

// NewSchool contains information needed to create a new School.
type NewSchool struct {
	Name          string `json:"name" validate:"required"`
	CorporateName string `json:"corporateName"`
	TaxID         string `json:"cnpj"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state" validate:"omitempty,len=2"`
	ZipCode       string `json:"zipCode"`
}

func (ns *NewSchool) Validate(validate *validator.Validate, svc ServiceInterface) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.TaxID = core.CleanString(ns.TaxID)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckUniqueness(ns.Name, ns.Email, ns.TaxID)
}

// UpdateSchool defines what information may be provided to modify an existing School.
// Zero-valued fields keep the stored value.
type UpdateSchool struct {
	Name          string `json:"name"`
	CorporateName string `json:"corporateName"`
	TaxID         string `json:"cnpj"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state" validate:"omitempty,len=2"`
	ZipCode       string `json:"zipCode"`
	Status        string `json:"status" validate:"omitempty,schoolstatus"`
}

func (us *UpdateSchool) Validate(orig School, validate *validator.Validate, svc ServiceInterface) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if email := core.CleanString(us.Email, true /* lower */); email != "" {
		us.Email = email
	} else {
		us.Email = orig.Email
	}
	if taxID := core.CleanString(us.TaxID); taxID != "" {
		us.TaxID = taxID
	} else {
		us.TaxID = orig.TaxID
	}
	if us.Status == "" {
		us.Status = orig.Status
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckUniqueness(us.Name, us.Email, us.TaxID, orig)
}

// InitValidators registers school specific validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(schoolStatusTag, schoolStatusValidation)
	core.RegisterCustomTranslation(validate, translator, schoolStatusTag, schoolStatusText)
}

func schoolStatusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	for _, s := range AllStatuses {
		if status == s {
			return true
		}
	}
	return false
}
