package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	echoapi "github.com/maskot/crm/apps/api/echo"
	"github.com/maskot/crm/core/schooluser"
	testutil "github.com/maskot/crm/tests"
)

// Every /api/school/users route is SCHOOL_ADMIN-only; teachers and staff
// manage prospects, not accounts.
func Test_schoolApi_userRoleGate(t *testing.T) {
	resetDB(t)

	sch := testutil.CreateSchool(t, schoolRepo, "Escola Alfa", "alfa@test.cd", "")
	tea := testutil.CreateUser(t, usrRepo, sch.ID, "Tomás", "tomas@test.cd", "LolC@t123", schooluser.RoleTeacher, true)
	stf := testutil.CreateUser(t, usrRepo, sch.ID, "Stela", "stela@test.cd", "LolC@t123", schooluser.RoleStaff, true)

	forbidden := marchallObj(t, echoapi.ErrorResponse{Message: "Apenas administradores da escola podem gerir utilizadores."})

	tests := []httpTest{
		{name: "teacher: list", method: http.MethodGet, path: "/api/school/users", token: getUserToken(t, tea)},
		{name: "teacher: create", method: http.MethodPost, path: "/api/school/users", token: getUserToken(t, tea)},
		{name: "staff: update", method: http.MethodPut, path: "/api/school/users/" + tea.ID, token: getUserToken(t, stf)},
		{name: "staff: delete", method: http.MethodDelete, path: "/api/school/users/" + tea.ID, token: getUserToken(t, stf)},
	}
	for _, tt := range tests {
		tt.wantCode = http.StatusForbidden
		tt.wantData = forbidden

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_schoolApi_userManagement(t *testing.T) {
	resetDB(t)

	alfa := testutil.CreateSchool(t, schoolRepo, "Escola Alfa", "alfa@test.cd", "")
	beta := testutil.CreateSchool(t, schoolRepo, "Escola Beta", "beta@test.cd", "")

	diana := testutil.CreateUser(t, usrRepo, alfa.ID, "Diana", "diana@test.cd", "LolC@t123", schooluser.RoleSchoolAdmin, true)
	eva := testutil.CreateUser(t, usrRepo, alfa.ID, "Eva", "eva@test.cd", "LolC@t123", schooluser.RoleSchoolAdmin, true)
	stela := testutil.CreateUser(t, usrRepo, alfa.ID, "Stela", "stela@test.cd", "LolC@t123", schooluser.RoleStaff, true)
	tomas := testutil.CreateUser(t, usrRepo, alfa.ID, "Tomás", "tomas@test.cd", "LolC@t123", schooluser.RoleTeacher, true)
	intruder := testutil.CreateUser(t, usrRepo, beta.ID, "Bia", "bia@test.cd", "LolC@t123", schooluser.RoleTeacher, true)

	dianaToken := getUserToken(t, diana)

	t.Run("list is scoped to own school", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallList(t, diana, eva, stela, tomas)}
		req, rec := newAuthRequest(http.MethodGet, "/api/school/users", dianaToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("create", func(t *testing.T) {
		tests := []httpTest{
			{
				name: "minting a SCHOOL_ADMIN is reserved to platform admins", wantCode: http.StatusForbidden,
				body:     marchallObj(t, schooluser.NewUser{Name: "Dir. II", Email: "dir2@test.cd", Password: "LolC@t123", Role: schooluser.RoleSchoolAdmin}),
				wantData: marchallObj(t, echoapi.ErrorResponse{Message: "Não é permitido criar outro administrador da escola por esta interface."}),
			},
			{
				name: "duplicate email (even from another school)", wantCode: http.StatusBadRequest,
				body:     marchallObj(t, schooluser.NewUser{Name: "Bia II", Email: intruder.Email, Password: "LolC@t123", Role: schooluser.RoleStaff}),
				wantData: marchallObj(t, echoapi.ErrorResponse{Message: "este email já está em uso"}),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodPost, "/api/school/users", dianaToken, tt.body)
				app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}

		t.Run("teacher created in own school", func(t *testing.T) {
			body := marchallObj(t, schooluser.NewUser{Name: "Hugo", Email: "hugo@test.cd", Password: "LolC@t123", Role: schooluser.RoleTeacher})
			req, rec := newAuthRequest(http.MethodPost, "/api/school/users", dianaToken, body)
			app.ServeHTTP(rec, req)

			if rec.Code != http.StatusCreated {
				t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
			}
			var respData echoapi.UserResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
				t.Fatalf("json.Unmarshal() failed! err %v", err)
			}
			if want := "Utilizador TEACHER criado com sucesso!"; respData.Message != want {
				t.Errorf("failed! message = %q; want %q", respData.Message, want)
			}
			if respData.User.SchoolID != alfa.ID {
				t.Errorf("failed! user.SchoolID = %q; want %q", respData.User.SchoolID, alfa.ID)
			}
		})
	})

	t.Run("update restrictions", func(t *testing.T) {
		active := false
		selfChange := marchallObj(t, echoapi.ErrorResponse{Message: "Não pode alterar o seu próprio papel ou estado da conta por aqui."})

		tests := []httpTest{
			{
				name: "own role is off limits", path: "/api/school/users/" + diana.ID,
				body: marchallObj(t, schooluser.UpdateUser{Role: schooluser.RoleTeacher}), wantData: selfChange,
			},
			{
				name: "own active flag is off limits", path: "/api/school/users/" + diana.ID,
				body: marchallObj(t, schooluser.UpdateUser{IsActive: &active}), wantData: selfChange,
			},
			{
				name: "no promoting to SCHOOL_ADMIN", path: "/api/school/users/" + tomas.ID,
				body:     marchallObj(t, schooluser.UpdateUser{Role: schooluser.RoleSchoolAdmin}),
				wantData: marchallObj(t, echoapi.ErrorResponse{Message: "Não é permitido promover outro utilizador a administrador da escola."}),
			},
			{
				name: "no changing a peer admin's role", path: "/api/school/users/" + eva.ID,
				body:     marchallObj(t, schooluser.UpdateUser{Role: schooluser.RoleStaff}),
				wantData: marchallObj(t, echoapi.ErrorResponse{Message: "Não pode alterar o papel de outro administrador da escola."}),
			},
		}
		for _, tt := range tests {
			tt.wantCode = http.StatusForbidden

			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodPut, tt.path, dianaToken, tt.body)
				app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}

		t.Run("own name change is fine", func(t *testing.T) {
			body := marchallObj(t, schooluser.UpdateUser{Name: "Diana S."})
			req, rec := newAuthRequest(http.MethodPut, "/api/school/users/"+diana.ID, dianaToken, body)
			app.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
			}
			var respData echoapi.UserResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
				t.Fatalf("json.Unmarshal() failed! err %v", err)
			}
			if respData.User.Name != "Diana S." || respData.User.Role != schooluser.RoleSchoolAdmin {
				t.Errorf("failed! user = %+v", respData.User)
			}
		})

		t.Run("demoting a teacher to staff is fine", func(t *testing.T) {
			body := marchallObj(t, schooluser.UpdateUser{Role: schooluser.RoleStaff})
			req, rec := newAuthRequest(http.MethodPut, "/api/school/users/"+tomas.ID, dianaToken, body)
			app.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
			}
			var respData echoapi.UserResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
				t.Fatalf("json.Unmarshal() failed! err %v", err)
			}
			if respData.User.Role != schooluser.RoleStaff {
				t.Errorf("failed! role = %q; want %q", respData.User.Role, schooluser.RoleStaff)
			}
		})
	})

	t.Run("delete restrictions", func(t *testing.T) {
		notFoundData := marchallObj(t, echoapi.ErrorResponse{Message: "utilizador não encontrado"})

		tests := []httpTest{
			{
				name: "no self delete", path: "/api/school/users/" + diana.ID, wantCode: http.StatusForbidden,
				wantData: marchallObj(t, echoapi.ErrorResponse{Message: "Não pode excluir a sua própria conta de administrador."}),
			},
			{
				name: "no deleting a peer admin", path: "/api/school/users/" + eva.ID, wantCode: http.StatusForbidden,
				wantData: marchallObj(t, echoapi.ErrorResponse{Message: "Não é permitido excluir outro administrador da escola."}),
			},
			{
				name: "another school's user is simply not found", path: "/api/school/users/" + intruder.ID,
				wantCode: http.StatusNotFound, wantData: notFoundData,
			},
			{
				name: "staff deleted", path: "/api/school/users/" + stela.ID, wantCode: http.StatusOK,
				wantData: marchallObj(t, echoapi.MessageResponse{Message: "Utilizador excluído com sucesso."}),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodDelete, tt.path, dianaToken, tt.body)
				app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})
}
