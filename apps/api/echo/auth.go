package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/maskot/crm/core"
	"github.com/maskot/crm/core/admin"
	"github.com/maskot/crm/core/schooluser"
)

const (
	contextAdminClaimsKey = "adminClaims"
	contextSchoolUserKey  = "schoolUser"
)

var (
	errTokenMissing = echo.NewHTTPError(http.StatusUnauthorized,
		"Acesso negado. Token não fornecido ou mal formatado.")
	errTokenExpired = echo.NewHTTPError(http.StatusUnauthorized,
		"Acesso negado. Token expirado.")
	errTokenInvalid = echo.NewHTTPError(http.StatusUnauthorized,
		"Acesso negado. Token inválido.")
	errAdminScope = echo.NewHTTPError(http.StatusForbidden,
		"Acesso negado. Token inválido ou papel não autorizado.")
	errSchoolScope = echo.NewHTTPError(http.StatusForbidden,
		"Acesso negado. Token inválido (payload incorreto).")
	errSchoolUserGone = echo.NewHTTPError(http.StatusUnauthorized,
		"Acesso negado. Utilizador não encontrado, inativo ou não pertence a esta escola.")
)

type (
	// AdminClaims is the authorization payload carried by platform-admin tokens.
	AdminClaims struct {
		jwt.StandardClaims
		AdminID string `json:"adminId"`
		Email   string `json:"email"`
		Role    string `json:"role"`
	}

	// SchoolClaims is the authorization payload carried by school-user tokens.
	SchoolClaims struct {
		jwt.StandardClaims
		UserID   string `json:"userId"`
		Email    string `json:"email"`
		Role     string `json:"role"`
		SchoolID string `json:"schoolId"`
	}
)

func GetAdminClaims(adm admin.Admin, conf *core.Config) *AdminClaims {
	now := time.Now()
	return &AdminClaims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   adm.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		AdminID: adm.ID,
		Email:   adm.Email,
		Role:    admin.RoleSuperAdmin,
	}
}

func GetSchoolClaims(usr schooluser.User, conf *core.Config) *SchoolClaims {
	now := time.Now()
	return &SchoolClaims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		UserID:   usr.ID,
		Email:    usr.Email,
		Role:     usr.Role,
		SchoolID: usr.SchoolID,
	}
}

// GenerateToken generates a signed JWT token string representing the claims.
// Admin and school tokens share the signing key; the payload shape is what
// tells them apart.
func GenerateToken(claims jwt.Claims, conf *core.Config) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func extractToken(ctx echo.Context) (string, error) {
	header := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", errTokenMissing
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		return "", errTokenMissing
	}
	return raw, nil
}

func parseToken(raw string, claims jwt.Claims, conf *core.Config) error {
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", token.Header["alg"])
		}
		return []byte(conf.SecretKey), nil
	})
	if err != nil {
		if vErr, ok := err.(*jwt.ValidationError); ok && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return errTokenExpired
		}
		return errTokenInvalid
	}
	return nil
}

// adminAuthMiddleware guards the platform-admin surface. The claims alone
// authorize: the admin store is not consulted again here.
func adminAuthMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			raw, err := extractToken(ctx)
			if err != nil {
				return err
			}
			claims := new(AdminClaims)
			if err := parseToken(raw, claims, conf); err != nil {
				return err
			}
			if claims.AdminID == "" || claims.Role != admin.RoleSuperAdmin {
				return errAdminScope
			}
			ctx.Set(contextAdminClaimsKey, *claims)
			return next(ctx)
		}
	}
}

// schoolAuthMiddleware guards the school surface. Unlike the admin gate it
// re-fetches the user on every request, so deactivation and deletion take
// effect immediately even with an outstanding token.
func schoolAuthMiddleware(conf *core.Config, svc schooluser.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			raw, err := extractToken(ctx)
			if err != nil {
				return err
			}
			claims := new(SchoolClaims)
			if err := parseToken(raw, claims, conf); err != nil {
				return err
			}
			if claims.UserID == "" || claims.SchoolID == "" || claims.Role == "" {
				return errSchoolScope
			}
			usr, err := svc.GetByID(claims.UserID, claims.SchoolID)
			if err != nil {
				if errors.Cause(err) == schooluser.ErrNotFound {
					return errSchoolUserGone
				}
				// store failure, not an auth verdict
				return err
			}
			if !usr.IsActive {
				return errSchoolUserGone
			}
			ctx.Set(contextSchoolUserKey, usr)
			return next(ctx)
		}
	}
}

func getContextAdminClaims(ctx echo.Context) (AdminClaims, error) {
	if claims, ok := ctx.Get(contextAdminClaimsKey).(AdminClaims); ok {
		return claims, nil
	}
	return AdminClaims{}, errTokenInvalid
}

func getContextSchoolUser(ctx echo.Context) (schooluser.User, error) {
	if usr, ok := ctx.Get(contextSchoolUserKey).(schooluser.User); ok {
		return usr, nil
	}
	return schooluser.User{}, errTokenInvalid
}
