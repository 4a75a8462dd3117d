package prospect

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/maskot/crm/core"
)

// Funnel stages a Prospect can occupy, in pipeline order. Transitions are NOT
// constrained to this ordering: any stage may directly overwrite any other.
const (
	StatusNewContact        = "NOVO_CONTATO"
	StatusQualification     = "QUALIFICACAO"
	StatusVisitScheduled    = "VISITA_AGENDADA"
	StatusProposalPresented = "PROPOSTA_APRESENTADA"
	StatusNegotiation       = "NEGOCIACAO"
	StatusEnrolled          = "MATRICULADO"
	StatusDiscarded         = "DESCARTADO"
	StatusLost              = "PERDIDO"
)

var AllStatuses = []string{
	StatusNewContact,
	StatusQualification,
	StatusVisitScheduled,
	StatusProposalPresented,
	StatusNegotiation,
	StatusEnrolled,
	StatusDiscarded,
	StatusLost,
}

var (
	prospectStatusTag  = "prospectstatus"
	prospectStatusText = "status de prospect inválido"
)

// Prospect is an enrollment lead, scoped entirely to one school.
type Prospect struct {
	ID              string    `json:"id"`
	StudentName     string    `json:"studentName"`
	GuardianName    string    `json:"guardianName,omitempty"`
	GuardianEmail   string    `json:"guardianEmail,omitempty"`
	GuardianPhone   string    `json:"guardianPhone,omitempty"`
	GradeOfInterest string    `json:"gradeOfInterest,omitempty"`
	Status          string    `json:"status"`
	Source          string    `json:"source,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	SchoolID        string    `json:"schoolId"`
	CreatedAt       time.Time `json:"createdAt"` // UTC
	UpdatedAt       time.Time `json:"updatedAt"` // UTC
}

// NewProspect contains information needed to create a new Prospect.
type NewProspect struct {
	StudentName     string `json:"studentName" validate:"required"`
	GuardianName    string `json:"guardianName"`
	GuardianEmail   string `json:"guardianEmail" validate:"omitempty,email"`
	GuardianPhone   string `json:"guardianPhone"`
	GradeOfInterest string `json:"gradeOfInterest"`
	Status          string `json:"status" validate:"omitempty,prospectstatus"`
	Source          string `json:"source"`
	Notes           string `json:"notes"`
}

func (np *NewProspect) Validate(validate *validator.Validate) error {
	np.StudentName = core.CleanString(np.StudentName)
	np.GuardianEmail = core.CleanString(np.GuardianEmail, true /* lower */)
	return validate.Struct(np)
}

// UpdateProspect defines what information may be provided to modify an existing
// Prospect. Pointer fields distinguish "clear" from "keep".
type UpdateProspect struct {
	StudentName     string  `json:"studentName"`
	GuardianName    *string `json:"guardianName"`
	GuardianEmail   *string `json:"guardianEmail"`
	GuardianPhone   *string `json:"guardianPhone"`
	GradeOfInterest string  `json:"gradeOfInterest"`
	Status          string  `json:"status" validate:"omitempty,prospectstatus"`
	Source          *string `json:"source"`
	Notes           *string `json:"notes"`
}

func (up *UpdateProspect) Validate(validate *validator.Validate) error {
	up.StudentName = core.CleanString(up.StudentName)
	return validate.Struct(up)
}

// InitValidators registers prospect specific validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(prospectStatusTag, prospectStatusValidation)
	core.RegisterCustomTranslation(validate, translator, prospectStatusTag, prospectStatusText)
}

func prospectStatusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	for _, s := range AllStatuses {
		if status == s {
			return true
		}
	}
	return false
}
