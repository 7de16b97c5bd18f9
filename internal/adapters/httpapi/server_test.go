package httpapi

import (
	"net/http"
	"testing"
	"time"
)

func TestLogin_ValidCredentials_ReturnsToken(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	id := api.register(t, "a@b.com", "Secret@1", "Driver")

	rec := api.do(t, http.MethodPost, "/api/user/login", "", map[string]string{
		"Email":    "a@b.com",
		"Password": "Secret@1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var out LoginResponse
	mustDecode(t, rec, &out)
	if out.Token == "" {
		t.Fatalf("expected Token in body=%s", rec.Body.String())
	}

	me := api.do(t, http.MethodGet, "/api/user/me", out.Token, nil)
	if me.Code != http.StatusOK {
		t.Fatalf("me status=%d body=%s", me.Code, me.Body.String())
	}
	var p MeResponse
	mustDecode(t, me, &p)
	if p.ID != id || p.Email != "a@b.com" || len(p.Roles) != 1 || p.Roles[0] != "Driver" {
		t.Fatalf("me=%+v, want id=%s", p, id)
	}
}

func TestLogin_Failures_AreIndistinguishable(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.register(t, "a@b.com", "Secret@1", "Driver")

	wrongPW := api.do(t, http.MethodPost, "/api/user/login", "", map[string]string{
		"Email": "a@b.com", "Password": "Wrong@123",
	})
	unknown := api.do(t, http.MethodPost, "/api/user/login", "", map[string]string{
		"Email": "nobody@b.com", "Password": "Secret@1",
	})

	for name, rec := range map[string]int{"wrong password": wrongPW.Code, "unknown email": unknown.Code} {
		if rec != http.StatusUnauthorized {
			t.Fatalf("%s: status=%d, want 401", name, rec)
		}
	}
	var a, b ErrorResponse
	mustDecode(t, wrongPW, &a)
	mustDecode(t, unknown, &b)
	if a.Error.Code != "UNAUTHORIZED" || a.Error.Message != "Invalid login." {
		t.Fatalf("error=%+v", a.Error)
	}
	if a.Error.Code != b.Error.Code || a.Error.Message != b.Error.Message || len(a.Error.Details) != 0 || len(b.Error.Details) != 0 {
		t.Fatalf("responses differ: %+v vs %+v", a.Error, b.Error)
	}
	if a.Error.RequestID == "" {
		t.Fatalf("expected requestId to be set")
	}
}

func TestLogin_ValidationErrors_400(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	cases := []struct {
		name   string
		body   any
		fields []string
	}{
		{name: "missing both", body: map[string]string{}, fields: []string{"Email", "Password"}},
		{name: "bad email", body: map[string]string{"Email": "not-an-email", "Password": "Secret@1"}, fields: []string{"Email"}},
		{name: "short password", body: map[string]string{"Email": "a@b.com", "Password": "S@1a"}, fields: []string{"Password"}},
		{name: "weak password", body: map[string]string{"Email": "a@b.com", "Password": "secret11"}, fields: []string{"Password"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/user/login", "", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
			}
			var er ErrorResponse
			mustDecode(t, rec, &er)
			if er.Error.Code != "VALIDATION_ERROR" {
				t.Fatalf("code=%q", er.Error.Code)
			}
			for _, f := range tc.fields {
				if _, ok := er.Error.Details[f]; !ok {
					t.Fatalf("details=%v, want key %q", er.Error.Details, f)
				}
			}
		})
	}
}

func TestLogin_MalformedBody_400(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/user/login", "", "{")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRegister_ConflictsAndUnknownRole(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.register(t, "a@b.com", "Secret@1", "Driver")

	dup := api.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"EmailAddress": "A@B.com", "Password": "Secret@1", "ConfirmPassword": "Secret@1",
		"FullName": "Other", "Role": "Customer",
	})
	if dup.Code != http.StatusConflict {
		t.Fatalf("duplicate status=%d body=%s", dup.Code, dup.Body.String())
	}

	unknown := api.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"EmailAddress": "c@d.com", "Password": "Secret@1", "ConfirmPassword": "Secret@1",
		"FullName": "Other", "Role": "Pilot",
	})
	if unknown.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown role status=%d body=%s", unknown.Code, unknown.Body.String())
	}
	var er ErrorResponse
	mustDecode(t, unknown, &er)
	if er.Error.Code != "UNKNOWN_ROLE" {
		t.Fatalf("code=%q", er.Error.Code)
	}
}

func TestRegister_ValidationErrors_400(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"EmailAddress":    "a@b.com",
		"Password":        "Secret@1",
		"ConfirmPassword": "Secret@2",
		"FullName":        "",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var er ErrorResponse
	mustDecode(t, rec, &er)
	for _, f := range []string{"ConfirmPassword", "FullName", "Role"} {
		if _, ok := er.Error.Details[f]; !ok {
			t.Fatalf("details=%v, want key %q", er.Error.Details, f)
		}
	}
	if _, ok := er.Error.Details["Password"]; ok {
		t.Fatalf("valid password reported as invalid: %v", er.Error.Details)
	}
}

func TestMe_ExpiredToken_401(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.register(t, "a@b.com", "Secret@1", "Driver")
	rec := api.do(t, http.MethodPost, "/api/user/login", "", map[string]string{
		"Email": "a@b.com", "Password": "Secret@1",
	})
	var out LoginResponse
	mustDecode(t, rec, &out)

	api.clk.Advance(time.Hour + time.Second)
	me := api.do(t, http.MethodGet, "/api/user/me", out.Token, nil)
	if me.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d body=%s", me.Code, me.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}
