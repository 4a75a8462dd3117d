package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/maskot/crm/core"
	"github.com/maskot/crm/core/admin"
	"github.com/maskot/crm/core/prospect"
	"github.com/maskot/crm/core/school"
	"github.com/maskot/crm/core/schooluser"
)

var (
	errUserNotFoundCreds = echo.NewHTTPError(http.StatusUnauthorized,
		"Credenciais inválidas. Utilizador não encontrado.")
	errUserInactive = echo.NewHTTPError(http.StatusForbidden,
		"Acesso negado. Conta de utilizador inativa.")

	errOnlySchoolAdmins = echo.NewHTTPError(http.StatusForbidden,
		"Apenas administradores da escola podem gerir utilizadores.")
	errRoleNotAllowed = echo.NewHTTPError(http.StatusForbidden,
		"Acesso negado. Papel de utilizador não autorizado.")
	errNoCreateSchoolAdmin = echo.NewHTTPError(http.StatusForbidden,
		"Não é permitido criar outro administrador da escola por esta interface.")
	errNoPromoteSchoolAdmin = echo.NewHTTPError(http.StatusForbidden,
		"Não é permitido promover outro utilizador a administrador da escola.")
	errNoSelfChange = echo.NewHTTPError(http.StatusForbidden,
		"Não pode alterar o seu próprio papel ou estado da conta por aqui.")
	errNoPeerAdminRoleChange = echo.NewHTTPError(http.StatusForbidden,
		"Não pode alterar o papel de outro administrador da escola.")
	errNoSelfDelete = echo.NewHTTPError(http.StatusForbidden,
		"Não pode excluir a sua própria conta de administrador.")
	errNoPeerAdminDelete = echo.NewHTTPError(http.StatusForbidden,
		"Não é permitido excluir outro administrador da escola.")
)

var (
	userOrderFields     = []string{"name", "email", "role", "is_active", "created_at", "updated_at"}
	prospectOrderFields = []string{"student_name", "status", "source", "created_at", "updated_at"}
)

const passwordResetSentText = "Se o email informado estiver associado a uma conta ativa, " +
	"você receberá em instantes as instruções para redefinir sua senha."

type schoolAPI struct {
	deps ServerDeps
}

func registerSchoolAPI(g *echo.Group, deps ServerDeps) {
	api := schoolAPI{deps: deps}

	// un-authed endpoints
	// TODO: rate limit `/password-reset` & `/password-reset-confirm`
	ag := g.Group("/auth/school")
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.requestPasswordReset)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	gate := schoolAuthMiddleware(deps.Conf, deps.UserSvc)

	ug := g.Group("/school/users", gate, schoolRoleMiddleware(errOnlySchoolAdmins, schooluser.RoleSchoolAdmin))
	ug.GET("", api.listUsers)
	ug.POST("", api.createUser)
	ug.PUT("/:userId", api.updateUser)
	ug.DELETE("/:userId", api.deleteUser)

	pg := g.Group("/school/prospects", gate, schoolRoleMiddleware(errRoleNotAllowed, schooluser.AllRoles...))
	pg.POST("", api.createProspect)
	pg.GET("", api.listProspects)
	pg.GET("/:prospectId", api.retrieveProspect)
	pg.PUT("/:prospectId", api.updateProspect)
	pg.DELETE("/:prospectId", api.deleteProspect)
}

// Handlers

func (api *schoolAPI) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.Authenticate(data.Email, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case schooluser.ErrNotFound:
			return errUserNotFoundCreds
		case schooluser.ErrInactive:
			return errUserInactive
		case schooluser.ErrInvalidPassword:
			return errWrongPasswordCreds
		}
		return errors.Wrap(err, "authenticating school user")
	}

	token, err := GenerateToken(GetSchoolClaims(usr, api.deps.Conf), api.deps.Conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, SchoolLoginResponse{
		Message: "Login bem-sucedido!",
		Token:   token,
		User:    usr,
	})
}

func (api *schoolAPI) requestPasswordReset(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if err := api.deps.UserSvc.RequestPasswordReset(data.Email); !(err == nil || errors.Cause(err) == schooluser.ErrNotFound) {
		// do not return errors to attackers
		api.deps.Logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: passwordResetSentText})
}

func (api *schoolAPI) confirmPasswordReset(ctx echo.Context) error {
	var data schooluser.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if err := api.deps.UserSvc.ResetPassword(data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Senha redefinida com sucesso."})
}

func (api *schoolAPI) listUsers(ctx echo.Context) error {
	ctxUsr, err := getContextSchoolUser(ctx)
	if err != nil {
		return err
	}

	ordering := new(Ordering)
	ordering.Bind(ctx, userOrderFields...)

	users, err := api.deps.UserSvc.QueryBySchool(ctxUsr.SchoolID, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying school users")
	}
	if users == nil {
		users = []schooluser.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *schoolAPI) createUser(ctx echo.Context) error {
	ctxUsr, err := getContextSchoolUser(ctx)
	if err != nil {
		return err
	}

	var data schooluser.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	// a SCHOOL_ADMIN can only mint self-service roles
	if data.Role == schooluser.RoleSchoolAdmin {
		return errNoCreateSchoolAdmin
	}
	if err := data.Validate(api.deps.Validate, api.deps.UserSvc); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.Create(ctxUsr.SchoolID, data)
	if err != nil {
		return errors.Wrap(err, "creating school user")
	}
	return ctx.JSON(http.StatusCreated, UserResponse{
		Message: fmt.Sprintf("Utilizador %s criado com sucesso!", usr.Role),
		User:    usr,
	})
}

func (api *schoolAPI) updateUser(ctx echo.Context) error {
	ctxUsr, err := getContextSchoolUser(ctx)
	if err != nil {
		return err
	}
	target, err := api.getUser(ctx, ctxUsr.SchoolID)
	if err != nil {
		return err
	}

	var data schooluser.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}

	if target.ID == ctxUsr.ID {
		// own role and active flag are off limits on this surface
		if (data.Role != "" && data.Role != target.Role) || data.IsActive != nil {
			return errNoSelfChange
		}
	} else {
		if data.Role == schooluser.RoleSchoolAdmin {
			return errNoPromoteSchoolAdmin
		}
		if target.IsSchoolAdmin() && data.Role != "" && data.Role != target.Role {
			return errNoPeerAdminRoleChange
		}
	}

	if err := data.Validate(target, api.deps.Validate, api.deps.UserSvc); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.Update(target, data)
	if err != nil {
		return errors.Wrap(err, "updating school user")
	}
	return ctx.JSON(http.StatusOK, UserResponse{
		Message: "Utilizador atualizado com sucesso!",
		User:    usr,
	})
}

func (api *schoolAPI) deleteUser(ctx echo.Context) error {
	ctxUsr, err := getContextSchoolUser(ctx)
	if err != nil {
		return err
	}
	if ctx.Param("userId") == ctxUsr.ID {
		return errNoSelfDelete
	}

	target, err := api.getUser(ctx, ctxUsr.SchoolID)
	if err != nil {
		return err
	}
	if target.IsSchoolAdmin() {
		return errNoPeerAdminDelete
	}

	if err := api.deps.UserSvc.Delete(target.ID); err != nil {
		return errors.Wrap(err, "deleting school user")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Utilizador excluído com sucesso."})
}

func (api *schoolAPI) createProspect(ctx echo.Context) error {
	ctxUsr, err := getContextSchoolUser(ctx)
	if err != nil {
		return err
	}

	var data prospect.NewProspect
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProspect")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	pros, err := api.deps.ProspectSvc.Create(ctxUsr.SchoolID, data)
	if err != nil {
		return errors.Wrap(err, "creating prospect")
	}
	return ctx.JSON(http.StatusCreated, pros)
}

func (api *schoolAPI) listProspects(ctx echo.Context) error {
	ctxUsr, err := getContextSchoolUser(ctx)
	if err != nil {
		return err
	}

	ordering := new(Ordering)
	ordering.Bind(ctx, prospectOrderFields...)

	prospects, err := api.deps.ProspectSvc.QueryBySchool(ctxUsr.SchoolID, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying prospects")
	}
	if prospects == nil {
		prospects = []prospect.Prospect{}
	}
	return ctx.JSON(http.StatusOK, prospects)
}

func (api *schoolAPI) retrieveProspect(ctx echo.Context) error {
	pros, err := api.getProspect(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pros)
}

func (api *schoolAPI) updateProspect(ctx echo.Context) error {
	orig, err := api.getProspect(ctx)
	if err != nil {
		return err
	}

	var data prospect.UpdateProspect
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProspect")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	pros, err := api.deps.ProspectSvc.Update(orig, data)
	if err != nil {
		return errors.Wrap(err, "updating prospect")
	}
	return ctx.JSON(http.StatusOK, pros)
}

func (api *schoolAPI) deleteProspect(ctx echo.Context) error {
	pros, err := api.getProspect(ctx)
	if err != nil {
		return err
	}
	ctxUsr, _ := getContextSchoolUser(ctx)

	if err := api.deps.ProspectSvc.Delete(pros.ID, ctxUsr.SchoolID); err != nil {
		return errors.Wrap(err, "deleting prospect")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Prospect excluído com sucesso."})
}

func (api *schoolAPI) getUser(ctx echo.Context, schoolID string) (schooluser.User, error) {
	usr, err := api.deps.UserSvc.GetByID(ctx.Param("userId"), schoolID)
	if err != nil {
		if errors.Cause(err) == schooluser.ErrNotFound {
			return schooluser.User{}, core.NewNotFoundError(err)
		}
		return schooluser.User{}, errors.Wrap(err, "finding user by ID")
	}
	return usr, nil
}

// getProspect resolves :prospectId within the caller's school; a prospect
// belonging to another school is indistinguishable from a missing one.
func (api *schoolAPI) getProspect(ctx echo.Context) (prospect.Prospect, error) {
	ctxUsr, err := getContextSchoolUser(ctx)
	if err != nil {
		return prospect.Prospect{}, err
	}
	pros, err := api.deps.ProspectSvc.GetByID(ctx.Param("prospectId"), ctxUsr.SchoolID)
	if err != nil {
		if errors.Cause(err) == prospect.ErrNotFound {
			return prospect.Prospect{}, core.NewNotFoundError(err)
		}
		return prospect.Prospect{}, errors.Wrap(err, "finding prospect by ID")
	}
	return pros, nil
}

// Requests & Responses

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}

	AdminResponse struct {
		Message string      `json:"message"`
		Admin   admin.Admin `json:"admin"`
	}

	AdminLoginResponse struct {
		Message string      `json:"message"`
		Token   string      `json:"token"`
		Admin   admin.Admin `json:"admin"`
	}

	SchoolLoginResponse struct {
		Message string          `json:"message"`
		Token   string          `json:"token"`
		User    schooluser.User `json:"user"`
	}

	SchoolResponse struct {
		Message string        `json:"message"`
		School  school.School `json:"school"`
	}

	UserResponse struct {
		Message string          `json:"message"`
		User    schooluser.User `json:"user"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
