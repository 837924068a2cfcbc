package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error)
	loginFn    func(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error)
	profileFn  func(ctx context.Context, userID string) (*domain.PublicUser, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	return s.loginFn(ctx, in)
}

func (s *stubAuthService) GetUserProfile(ctx context.Context, userID string) (*domain.PublicUser, error) {
	return s.profileFn(ctx, userID)
}

func newTestContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func newTestHandler(stub *stubAuthService, logs *bytes.Buffer) *AuthHandler {
	return NewAuthHandler(stub, middleware.NewAuditor(zerolog.New(logs), nil))
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if env["success"] != true {
		t.Fatalf("expected success envelope, got %+v", env)
	}
	data, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %+v", env["data"])
	}
	return data
}

func aliceResult() *ports.AuthResult {
	return &ports.AuthResult{
		User:         domain.PublicUser{ID: "u-1", Name: "Alice", Email: "alice@x.com", Role: domain.RoleUser},
		Token:        "access-token",
		RefreshToken: "refresh-token",
		ExpiresIn:    900,
	}
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			if in.Name != "Alice" || in.Email != "alice@x.com" || in.Password != "Passw0rd" || in.Role != "" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return aliceResult(), nil
		},
	}
	var logs bytes.Buffer
	h := newTestHandler(stub, &logs)

	c, rec := newTestContext(http.MethodPost, "/api/v1/auth/register",
		`{"name":"Alice","email":"alice@x.com","password":"Passw0rd"}`)

	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	data := decodeData(t, rec)
	if data["token"] != "access-token" || data["refreshToken"] != "refresh-token" || data["expiresIn"] != float64(900) {
		t.Fatalf("unexpected token fields: %+v", data)
	}
	user, ok := data["user"].(map[string]any)
	if !ok || user["email"] != "alice@x.com" || user["role"] != "USER" {
		t.Fatalf("unexpected user payload: %+v", data["user"])
	}
	if _, leaked := user["password"]; leaked {
		t.Fatalf("password leaked in response")
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatalf("password hash leaked in response")
	}
}

func TestAuthHandler_Register_ValidationErrors(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	var logs bytes.Buffer
	h := newTestHandler(stub, &logs)

	c, _ := newTestContext(http.MethodPost, "/api/v1/auth/register",
		`{"name":"A","email":"not-an-email","password":"weak","role":"ROOT"}`)

	err := h.Register(c)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	got := map[string]int{}
	for _, f := range ve.Fields {
		got[f.Field]++
	}
	for _, field := range []string{"name", "email", "role", "password"} {
		if got[field] == 0 {
			t.Fatalf("expected an error for %q, got %+v", field, ve.Fields)
		}
	}
	// "weak" is too short and lacks an uppercase letter and a digit.
	if got["password"] != 3 {
		t.Fatalf("expected 3 password errors, got %d: %+v", got["password"], ve.Fields)
	}
}

func TestAuthHandler_Register_MissingPasswordSkipsStrength(t *testing.T) {
	stub := &stubAuthService{}
	var logs bytes.Buffer
	h := newTestHandler(stub, &logs)

	c, _ := newTestContext(http.MethodPost, "/api/v1/auth/register",
		`{"name":"Alice","email":"alice@x.com"}`)

	var ve *domain.ValidationError
	if err := h.Register(c); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Fields) != 1 || ve.Fields[0].Field != "password" || ve.Fields[0].Message != "Password is required" {
		t.Fatalf("unexpected fields: %+v", ve.Fields)
	}
}

func TestAuthHandler_Register_UserExists(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			return nil, domain.ErrUserExists
		},
	}
	var logs bytes.Buffer
	h := newTestHandler(stub, &logs)

	c, _ := newTestContext(http.MethodPost, "/api/v1/auth/register",
		`{"name":"Bob","email":"bob@x.com","password":"Passw0rd"}`)

	if err := h.Register(c); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{}
	var logs bytes.Buffer
	h := newTestHandler(stub, &logs)

	c, _ := newTestContext(http.MethodPost, "/api/v1/auth/register", "not-json")

	err := h.Register(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
			if in.Email != "alice@x.com" || in.Password != "Passw0rd" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return aliceResult(), nil
		},
	}
	var logs bytes.Buffer
	h := newTestHandler(stub, &logs)

	c, rec := newTestContext(http.MethodPost, "/api/v1/auth/login", `{"email":"alice@x.com","password":"Passw0rd"}`)

	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if data := decodeData(t, rec); data["token"] != "access-token" {
		t.Fatalf("expected token, got %v", data["token"])
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	var logs bytes.Buffer
	h := newTestHandler(stub, &logs)

	c, _ := newTestContext(http.MethodPost, "/api/v1/auth/login", `{"email":"alice@x.com","password":"bad"}`)

	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{}
	var logs bytes.Buffer
	h := newTestHandler(stub, &logs)

	c, _ := newTestContext(http.MethodPost, "/api/v1/auth/login", "{")

	var he *echo.HTTPError
	if err := h.Login(c); !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestAuthHandler_Profile(t *testing.T) {
	stub := &stubAuthService{
		profileFn: func(ctx context.Context, userID string) (*domain.PublicUser, error) {
			if userID != "u-1" {
				t.Fatalf("unexpected user id %q", userID)
			}
			u := aliceResult().User
			return &u, nil
		},
	}
	var logs bytes.Buffer
	h := newTestHandler(stub, &logs)

	c, rec := newTestContext(http.MethodGet, "/api/v1/auth/profile", "")
	middleware.SetClaims(c, &domain.Claims{UserID: "u-1", Email: "alice@x.com", Role: domain.RoleUser})

	if err := h.Profile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	user, ok := decodeData(t, rec)["user"].(map[string]any)
	if !ok || user["id"] != "u-1" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
}

func TestAuthHandler_Profile_WithoutClaims(t *testing.T) {
	var logs bytes.Buffer
	h := newTestHandler(&stubAuthService{}, &logs)

	c, _ := newTestContext(http.MethodGet, "/api/v1/auth/profile", "")

	if err := h.Profile(c); !errors.Is(err, domain.ErrAccessTokenRequired) {
		t.Fatalf("expected ErrAccessTokenRequired, got %v", err)
	}
}

func TestAuthHandler_Logout_Audits(t *testing.T) {
	var logs bytes.Buffer
	h := newTestHandler(&stubAuthService{}, &logs)

	c, rec := newTestContext(http.MethodPost, "/api/v1/auth/logout", "")
	middleware.SetClaims(c, &domain.Claims{UserID: "u-1", Email: "alice@x.com", Role: domain.RoleUser})

	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(logs.String(), `"audit_type":"logout"`) {
		t.Fatalf("expected logout audit entry, got %s", logs.String())
	}
}

func TestAuthHandler_RefreshToken_NotImplemented(t *testing.T) {
	var logs bytes.Buffer
	h := newTestHandler(&stubAuthService{}, &logs)

	c, _ := newTestContext(http.MethodPost, "/api/v1/auth/refresh-token", "")

	if err := h.RefreshToken(c); !errors.Is(err, domain.ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
}

func TestAuthHandler_Session(t *testing.T) {
	var logs bytes.Buffer
	h := newTestHandler(&stubAuthService{}, &logs)

	c, rec := newTestContext(http.MethodGet, "/api/v1/auth/session", "")
	if err := h.Session(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if data := decodeData(t, rec); data["authenticated"] != false {
		t.Fatalf("expected anonymous session, got %+v", data)
	}

	c, rec = newTestContext(http.MethodGet, "/api/v1/auth/session", "")
	middleware.SetClaims(c, &domain.Claims{UserID: "u-1", Role: domain.RoleAdmin})
	if err := h.Session(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	data := decodeData(t, rec)
	claims, ok := data["claims"].(map[string]any)
	if data["authenticated"] != true || !ok || claims["userId"] != "u-1" {
		t.Fatalf("expected authenticated session, got %+v", data)
	}
}

func TestAuthHandler_GetUser_NotFound(t *testing.T) {
	stub := &stubAuthService{
		profileFn: func(ctx context.Context, userID string) (*domain.PublicUser, error) {
			return nil, domain.ErrUserNotFound
		},
	}
	var logs bytes.Buffer
	h := newTestHandler(stub, &logs)

	c, _ := newTestContext(http.MethodGet, "/api/v1/auth/users/missing", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")

	if err := h.GetUser(c); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
