package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	echoapi "github.com/maskot/crm/apps/api/echo"
	"github.com/maskot/crm/core"
	"github.com/maskot/crm/core/admin"
	"github.com/maskot/crm/core/prospect"
	"github.com/maskot/crm/core/school"
	"github.com/maskot/crm/core/schooluser"
	emailsvc "github.com/maskot/crm/services/email"
	testutil "github.com/maskot/crm/tests"
)

const reqMsg = "este campo é obrigatório"

func Test_home(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
	if want := "Servidor do Maskot CRM Educacional no ar!"; rec.Body.String() != want {
		t.Errorf("failed! body = %q; want %q", rec.Body.String(), want)
	}
}

func Test_adminApi_login(t *testing.T) {
	resetDB(t)

	adm := testutil.CreateAdmin(t, adminRepo, "Root", "root@test.cd", "LolC@t123")

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{
				Message: "Erro de validação.",
				Details: map[string]string{"email": reqMsg, "password": reqMsg},
			}),
		},
		{
			name: "unknown admin", wantCode: http.StatusUnauthorized,
			body:     marchallObj(t, echoapi.LoginRequest{Email: "lol@test.cd", Password: "LolC@t123"}),
			wantData: marchallObj(t, echoapi.ErrorResponse{Message: "Credenciais inválidas. Administrador não encontrado."}),
		},
		{
			name: "wrong password", wantCode: http.StatusUnauthorized,
			body:     marchallObj(t, echoapi.LoginRequest{Email: adm.Email, Password: "lol"}),
			wantData: marchallObj(t, echoapi.ErrorResponse{Message: "Credenciais inválidas. Senha incorreta."}),
		},
		{
			name: "login OK", wantCode: http.StatusOK,
			body: marchallObj(t, echoapi.LoginRequest{Email: adm.Email, Password: "LolC@t123"}),
		},
		{
			name: "login OK (email case-insensitive)", wantCode: http.StatusOK,
			body: marchallObj(t, echoapi.LoginRequest{Email: "ROOT@test.cd", Password: "LolC@t123"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/admin/auth/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess the token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.AdminLoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Message != "Login bem-sucedido!" {
					t.Errorf("failed! message = %q", respData.Message)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				if respData.Admin.ID != adm.ID {
					t.Errorf("failed! admin.ID = %q; want %q", respData.Admin.ID, adm.ID)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_adminApi_register(t *testing.T) {
	resetDB(t)

	testutil.CreateAdmin(t, adminRepo, "Root", "root@test.cd", "LolC@t123")

	type newAdmin struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{
				Message: "Erro de validação.",
				Details: map[string]string{"name": reqMsg, "email": reqMsg, "password": reqMsg},
			}),
		},
		{
			name: "duplicate email", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, newAdmin{Name: "Root II", Email: "root@test.cd", Password: "LolC@t123"}),
			wantData: marchallObj(t, echoapi.ErrorResponse{Message: "este email de administrador já está cadastrado"}),
		},
		{
			name: "duplicate email (case-insensitive)", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, newAdmin{Name: "Root II", Email: "Root@Test.cd", Password: "LolC@t123"}),
			wantData: marchallObj(t, echoapi.ErrorResponse{Message: "este email de administrador já está cadastrado"}),
		},
		{
			name: "registered", wantCode: http.StatusCreated,
			body: marchallObj(t, newAdmin{Name: "Root II", Email: "root2@test.cd", Password: "LolC@t123"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/admin/auth/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.AdminResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Message != "Administrador registrado com sucesso!" {
					t.Errorf("failed! message = %q", respData.Message)
				}
				if respData.Admin.ID == "" {
					t.Error("failed! empty admin ID")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_schoolApi_login(t *testing.T) {
	resetDB(t)

	sch := testutil.CreateSchool(t, schoolRepo, "Escola Alfa", "alfa@test.cd", "")
	usr := testutil.CreateUser(t, usrRepo, sch.ID, "Ana", "ana@test.cd", "LolC@t123", schooluser.RoleTeacher, true)
	testutil.CreateUser(t, usrRepo, sch.ID, "Zé", "ze@test.cd", "LolC@t123", schooluser.RoleStaff, false)

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{
				Message: "Erro de validação.",
				Details: map[string]string{"email": reqMsg, "password": reqMsg},
			}),
		},
		{
			name: "unknown user", wantCode: http.StatusUnauthorized,
			body:     marchallObj(t, echoapi.LoginRequest{Email: "lol@test.cd", Password: "LolC@t123"}),
			wantData: marchallObj(t, echoapi.ErrorResponse{Message: "Credenciais inválidas. Utilizador não encontrado."}),
		},
		{
			name: "inactive user", wantCode: http.StatusForbidden,
			body:     marchallObj(t, echoapi.LoginRequest{Email: "ze@test.cd", Password: "LolC@t123"}),
			wantData: marchallObj(t, echoapi.ErrorResponse{Message: "Acesso negado. Conta de utilizador inativa."}),
		},
		{
			name: "wrong password", wantCode: http.StatusUnauthorized,
			body:     marchallObj(t, echoapi.LoginRequest{Email: usr.Email, Password: "lol"}),
			wantData: marchallObj(t, echoapi.ErrorResponse{Message: "Credenciais inválidas. Senha incorreta."}),
		},
		{
			name: "login OK", wantCode: http.StatusOK,
			body: marchallObj(t, echoapi.LoginRequest{Email: usr.Email, Password: "LolC@t123"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/school/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.SchoolLoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				if respData.User.ID != usr.ID {
					t.Errorf("failed! user.ID = %q; want %q", respData.User.ID, usr.ID)
				}
				if respData.User.SchoolID != sch.ID {
					t.Errorf("failed! user.SchoolID = %q; want %q", respData.User.SchoolID, sch.ID)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

// the admin gate trusts claims alone; the school gate re-fetches the user, so
// deactivation and deletion take effect while a token is still outstanding.
func Test_authMiddlewares(t *testing.T) {
	resetDB(t)

	adm := testutil.CreateAdmin(t, adminRepo, "Root", "root@test.cd", "LolC@t123")
	sch := testutil.CreateSchool(t, schoolRepo, "Escola Alfa", "alfa@test.cd", "")
	schAdmin := testutil.CreateUser(t, usrRepo, sch.ID, "Ana", "ana@test.cd", "LolC@t123", schooluser.RoleSchoolAdmin, true)
	naughty := testutil.CreateUser(t, usrRepo, sch.ID, "Zé", "ze@test.cd", "LolC@t123", schooluser.RoleStaff, false)
	ghost := testutil.CreateUser(t, usrRepo, sch.ID, "Bia", "bia@test.cd", "LolC@t123", schooluser.RoleTeacher, true)

	ghostToken := getUserToken(t, ghost)
	if err := usrRepo.DeleteUser(context.Background(), ghost.ID); err != nil {
		t.Fatalf("DeleteUser(): %v", err)
	}

	expiredClaims := echoapi.GetAdminClaims(adm, conf)
	expiredClaims.ExpiresAt = time.Now().Add(-time.Hour).Unix()
	expiredToken, err := echoapi.GenerateToken(expiredClaims, conf)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	adminGone := marchallObj(t, echoapi.ErrorResponse{
		Message: "Acesso negado. Token inválido ou papel não autorizado."})
	schoolScope := marchallObj(t, echoapi.ErrorResponse{
		Message: "Acesso negado. Token inválido (payload incorreto)."})
	userGone := marchallObj(t, echoapi.ErrorResponse{
		Message: "Acesso negado. Utilizador não encontrado, inativo ou não pertence a esta escola."})

	tests := []httpTest{
		// admin surface
		{name: "admin: token required", path: "/api/admin/schools", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin: garbage token", path: "/api/admin/schools", token: "lol", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)},
		{name: "admin: expired token", path: "/api/admin/schools", token: expiredToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errExpiredToken)},
		{name: "admin: school token rejected", path: "/api/admin/schools", token: getUserToken(t, schAdmin), wantCode: http.StatusForbidden, wantData: adminGone},
		// school surface
		{name: "school: token required", path: "/api/school/prospects", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "school: garbage token", path: "/api/school/prospects", token: "lol", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)},
		{name: "school: admin token rejected", path: "/api/school/prospects", token: getAdminToken(t, adm), wantCode: http.StatusForbidden, wantData: schoolScope},
		{name: "school: inactive user", path: "/api/school/prospects", token: getUserToken(t, naughty), wantCode: http.StatusUnauthorized, wantData: userGone},
		{name: "school: deleted user", path: "/api/school/prospects", token: ghostToken, wantCode: http.StatusUnauthorized, wantData: userGone},
		// active admin token passes the gate
		{name: "admin: OK", path: "/api/admin/schools", token: getAdminToken(t, adm), wantCode: http.StatusOK, wantData: marchallList(t, sch)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// a store failure while resolving the token's user is a server error, not an
// auth verdict; only a missing or inactive user earns the 401.
func Test_authMiddlewares_storeFailure(t *testing.T) {
	resetDB(t)

	sch := testutil.CreateSchool(t, schoolRepo, "Escola Alfa", "alfa@test.cd", "")
	usr := testutil.CreateUser(t, usrRepo, sch.ID, "Ana", "ana@test.cd", "LolC@t123", schooluser.RoleSchoolAdmin, true)

	usrSvc := schooluser.NewService(downUserRepo{usrRepo}, emailsvc.NewConsoleServiceMock(conf), conf)
	brokenApp := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         testLogger{},
		AdminSvc:       admin.NewService(adminRepo),
		SchoolSvc:      school.NewService(schoolRepo),
		UserSvc:        usrSvc,
		ProspectSvc:    prospect.NewService(prosRepo),
		Validate:       validator.New(),
		Translator:     core.NewTranslator(),
		DisableReqLogs: true,
	})

	tt := httpTest{
		name: "user store down", method: http.MethodGet, path: "/api/school/prospects",
		token:    getUserToken(t, usr),
		wantCode: http.StatusInternalServerError,
		wantData: marchallObj(t, echoapi.ErrorResponse{Message: "Erro interno do servidor."}),
	}
	req, rec := newAuthRequest(tt.method, tt.path, tt.token)
	brokenApp.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

// downUserRepo fails every lookup, standing in for an unreachable database.
type downUserRepo struct {
	schooluser.Repository
}

func (downUserRepo) GetUser(context.Context, schooluser.GetFilter) (schooluser.User, error) {
	return schooluser.User{}, errors.New("user store unavailable")
}
