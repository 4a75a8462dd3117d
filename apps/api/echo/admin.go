package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/maskot/crm/core"
	"github.com/maskot/crm/core/admin"
	"github.com/maskot/crm/core/school"
	"github.com/maskot/crm/core/schooluser"
)

var (
	errAdminNotFoundCreds = echo.NewHTTPError(http.StatusUnauthorized,
		"Credenciais inválidas. Administrador não encontrado.")
	errWrongPasswordCreds = echo.NewHTTPError(http.StatusUnauthorized,
		"Credenciais inválidas. Senha incorreta.")
)

var schoolOrderFields = []string{"name", "email", "status", "city", "state", "created_at", "updated_at"}

type adminAPI struct {
	deps ServerDeps
}

func registerAdminAPI(g *echo.Group, deps ServerDeps) {
	api := adminAPI{deps: deps}

	ag := g.Group("/admin/auth")
	// TODO: rate limit `/login` and lock `/register` behind a bootstrap flag
	ag.POST("/login", api.login)
	ag.POST("/register", api.register)

	sg := g.Group("/admin/schools", adminAuthMiddleware(deps.Conf))
	sg.POST("", api.createSchool)
	sg.GET("", api.listSchools)
	sg.GET("/:schoolId", api.retrieveSchool)
	sg.PUT("/:schoolId", api.updateSchool)
	sg.DELETE("/:schoolId", api.deleteSchool)

	sg.POST("/:schoolId/users", api.createSchoolUser)
	sg.GET("/:schoolId/users", api.listSchoolUsers)
	sg.PUT("/:schoolId/users/:userId", api.updateSchoolUser)
	sg.DELETE("/:schoolId/users/:userId", api.deleteSchoolUser)
}

// Handlers

func (api *adminAPI) register(ctx echo.Context) error {
	var data admin.NewAdmin
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAdmin")
	}
	if err := data.Validate(api.deps.Validate, api.deps.AdminSvc); err != nil {
		return err
	}

	adm, err := api.deps.AdminSvc.Register(data)
	if err != nil {
		return errors.Wrap(err, "registering admin")
	}
	return ctx.JSON(http.StatusCreated, AdminResponse{
		Message: "Administrador registrado com sucesso!",
		Admin:   adm,
	})
}

func (api *adminAPI) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	adm, err := api.deps.AdminSvc.Authenticate(data.Email, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case admin.ErrNotFound:
			return errAdminNotFoundCreds
		case admin.ErrInvalidPassword:
			return errWrongPasswordCreds
		}
		return errors.Wrap(err, "authenticating admin")
	}

	token, err := GenerateToken(GetAdminClaims(adm, api.deps.Conf), api.deps.Conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, AdminLoginResponse{
		Message: "Login bem-sucedido!",
		Token:   token,
		Admin:   adm,
	})
}

func (api *adminAPI) createSchool(ctx echo.Context) error {
	var data school.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	if err := data.Validate(api.deps.Validate, api.deps.SchoolSvc); err != nil {
		return err
	}

	sch, err := api.deps.SchoolSvc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	return ctx.JSON(http.StatusCreated, SchoolResponse{
		Message: "Escola criada com sucesso!",
		School:  sch,
	})
}

func (api *adminAPI) listSchools(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx, schoolOrderFields...)

	schools, err := api.deps.SchoolSvc.QueryAll(ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	if schools == nil {
		schools = []school.School{}
	}
	return ctx.JSON(http.StatusOK, schools)
}

func (api *adminAPI) retrieveSchool(ctx echo.Context) error {
	sch, err := api.getSchool(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *adminAPI) updateSchool(ctx echo.Context) error {
	orig, err := api.getSchool(ctx)
	if err != nil {
		return err
	}

	var data school.UpdateSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchool")
	}
	if err := data.Validate(orig, api.deps.Validate, api.deps.SchoolSvc); err != nil {
		return err
	}

	sch, err := api.deps.SchoolSvc.Update(orig, data)
	if err != nil {
		return errors.Wrap(err, "updating school")
	}
	return ctx.JSON(http.StatusOK, SchoolResponse{
		Message: "Escola atualizada com sucesso!",
		School:  sch,
	})
}

func (api *adminAPI) deleteSchool(ctx echo.Context) error {
	sch, err := api.getSchool(ctx)
	if err != nil {
		return err
	}
	if err := api.deps.SchoolSvc.Delete(sch.ID); err != nil {
		return errors.Wrap(err, "deleting school")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Escola deletada com sucesso."})
}

func (api *adminAPI) createSchoolUser(ctx echo.Context) error {
	sch, err := api.getSchool(ctx)
	if err != nil {
		return err
	}

	var data schooluser.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.deps.Validate, api.deps.UserSvc); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.Create(sch.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating school user")
	}
	return ctx.JSON(http.StatusCreated, UserResponse{
		Message: fmt.Sprintf("Utilizador %s criado com sucesso para a escola %s!", usr.Role, sch.Name),
		User:    usr,
	})
}

func (api *adminAPI) listSchoolUsers(ctx echo.Context) error {
	sch, err := api.getSchool(ctx)
	if err != nil {
		return err
	}

	ordering := new(Ordering)
	ordering.Bind(ctx, userOrderFields...)

	users, err := api.deps.UserSvc.QueryBySchool(sch.ID, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying school users")
	}
	if users == nil {
		users = []schooluser.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *adminAPI) updateSchoolUser(ctx echo.Context) error {
	sch, err := api.getSchool(ctx)
	if err != nil {
		return err
	}
	orig, err := api.getSchoolUser(ctx, sch.ID)
	if err != nil {
		return err
	}

	var data schooluser.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err := data.Validate(orig, api.deps.Validate, api.deps.UserSvc); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.Update(orig, data)
	if err != nil {
		return errors.Wrap(err, "updating school user")
	}
	return ctx.JSON(http.StatusOK, UserResponse{
		Message: "Utilizador atualizado com sucesso!",
		User:    usr,
	})
}

func (api *adminAPI) deleteSchoolUser(ctx echo.Context) error {
	sch, err := api.getSchool(ctx)
	if err != nil {
		return err
	}
	usr, err := api.getSchoolUser(ctx, sch.ID)
	if err != nil {
		return err
	}

	if err := api.deps.UserSvc.Delete(usr.ID); err != nil {
		return errors.Wrap(err, "deleting school user")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Utilizador excluído com sucesso."})
}

// getSchool resolves the :schoolId path param; a missing school is a 404
// regardless of which nested resource was addressed.
func (api *adminAPI) getSchool(ctx echo.Context) (school.School, error) {
	sch, err := api.deps.SchoolSvc.GetByID(ctx.Param("schoolId"))
	if err != nil {
		if errors.Cause(err) == school.ErrNotFound {
			return school.School{}, core.NewNotFoundError(err)
		}
		return school.School{}, errors.Wrap(err, "finding school by ID")
	}
	return sch, nil
}

func (api *adminAPI) getSchoolUser(ctx echo.Context, schoolID string) (schooluser.User, error) {
	usr, err := api.deps.UserSvc.GetByID(ctx.Param("userId"), schoolID)
	if err != nil {
		if errors.Cause(err) == schooluser.ErrNotFound {
			return schooluser.User{}, core.NewNotFoundError(err)
		}
		return schooluser.User{}, errors.Wrap(err, "finding user by ID")
	}
	return usr, nil
}
