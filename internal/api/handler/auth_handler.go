package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/api/response"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/core/security"
)

// AuthHandler handles HTTP requests for account and session operations.
type AuthHandler struct {
	authService ports.AuthService
	audit       *middleware.Auditor
}

func NewAuthHandler(authService ports.AuthService, audit *middleware.Auditor) *AuthHandler {
	return &AuthHandler{authService: authService, audit: audit}
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  response.Envelope{data=authResponse}
// @Failure      400   {object}  response.Envelope
// @Failure      409   {object}  response.Envelope
// @Failure      500   {object}  response.Envelope
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := validateRegister(c, req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	result, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(registerOutcome(err)).Inc()
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	return response.Success(c, http.StatusCreated, "User registered successfully", toAuthResponse(result))
}

// validateRegister runs the struct rules and, when a password was supplied,
// the password strength rules, reporting every violation at once.
func validateRegister(c echo.Context, req registerRequest) error {
	var fields []domain.FieldError
	if err := c.Validate(&req); err != nil {
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		fields = append(fields, ve.Fields...)
	}
	if req.Password != "" {
		for _, msg := range security.ValidateStrength(req.Password).Errors {
			fields = append(fields, domain.FieldError{Field: "password", Message: msg})
		}
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields...)
	}
	return nil
}

func registerOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserExists):
		return "conflict"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}

// Login authenticates a user and returns a token pair.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  response.Envelope{data=authResponse}
// @Failure      400   {object}  response.Envelope
// @Failure      401   {object}  response.Envelope
// @Failure      429   {object}  response.Envelope
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		case errors.Is(err, domain.ErrTooManyAttempts):
			metrics.LoginAttemptsTotal.WithLabelValues("throttled").Inc()
		default:
			metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return response.Success(c, http.StatusOK, "Login successful", toAuthResponse(result))
}

// Profile returns the authenticated user.
//
// @Summary      Current user profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Envelope{data=userResponse}
// @Failure      401  {object}  response.Envelope
// @Failure      404  {object}  response.Envelope
// @Router       /auth/profile [get]
func (h *AuthHandler) Profile(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}

	user, err := h.authService.GetUserProfile(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, "User profile retrieved successfully", userResponse{User: *user})
}

// Logout acknowledges a logout. Tokens are stateless, so nothing is revoked;
// the event is only recorded in the audit trail.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Envelope
// @Failure      401  {object}  response.Envelope
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}

	h.audit.Record(c, domain.AuditEvent{
		Type:    domain.AuditLogout,
		Outcome: domain.AuditSuccess,
		UserID:  claims.UserID,
		Email:   claims.Email,
		Role:    claims.Role,
	})
	return response.Success(c, http.StatusOK, "Logout successful", nil)
}

// RefreshToken is reserved for the refresh flow.
//
// @Summary      Refresh access token
// @Tags         auth
// @Produce      json
// @Failure      501  {object}  response.Envelope
// @Router       /auth/refresh-token [post]
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	return domain.ErrNotImplemented
}

// Session reports whether the request carries a valid access token.
//
// @Summary      Session state
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Envelope{data=sessionResponse}
// @Router       /auth/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return response.Success(c, http.StatusOK, "Anonymous session", sessionResponse{})
	}
	return response.Success(c, http.StatusOK, "Authenticated session", sessionResponse{
		Authenticated: true,
		Claims:        claims,
	})
}

// GetUser returns any user by id. Mounted behind role and permission gates.
//
// @Summary      Get user by id
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  response.Envelope{data=userResponse}
// @Failure      401  {object}  response.Envelope
// @Failure      404  {object}  response.Envelope
// @Router       /auth/users/{id} [get]
func (h *AuthHandler) GetUser(c echo.Context) error {
	user, err := h.authService.GetUserProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, "User retrieved successfully", userResponse{User: *user})
}

func toAuthResponse(r *ports.AuthResult) authResponse {
	return authResponse{
		User:         r.User,
		Token:        r.Token,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    r.ExpiresIn,
	}
}
