package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/MrEthical07/accountauth"
	"github.com/MrEthical07/accountauth/metrics/export/prometheus"
	"github.com/MrEthical07/accountauth/middleware"
)

// authEngine is the part of *accountauth.Engine the HTTP handlers call.
type authEngine interface {
	middleware.Authenticator
	SendVerificationCode(ctx context.Context, key string) (string, error)
	Signup(ctx context.Context, in accountauth.SignupInput) (*accountauth.Account, error)
	Login(ctx context.Context, email, password string) (accountauth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (accountauth.TokenPair, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error
	MetricsSnapshot() accountauth.MetricsSnapshot
	AuditDropped() uint64
}

type healthFunc func(ctx context.Context) error

type server struct {
	engine   authEngine
	validate *validator.Validate
	log      *zap.Logger
	health   healthFunc
}

type sendCodeRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type signupRequest struct {
	Email            string `json:"email" validate:"required,email,max=254"`
	Name             string `json:"name" validate:"required,max=100"`
	Password         string `json:"password" validate:"required,min=6,max=20"`
	VerificationCode string `json:"verificationCode" validate:"required,numeric,min=6,max=10"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type resetConfirmRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Code        string `json:"code" validate:"required,numeric,min=6,max=10"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=20"`
}

type tokenResponse struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	TokenType        string    `json:"tokenType"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

type accountResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func newServer(engine authEngine, log *zap.Logger, health healthFunc) *server {
	return &server{
		engine:   engine,
		validate: validator.New(),
		log:      log.Named("http"),
		health:   health,
	}
}

// routes builds the router. Everything below /api/auth/, /health and
// /metrics is public; the rest passes through the guard.
func (s *server) routes(trustProxy bool) http.Handler {
	r := mux.NewRouter()
	r.Use(mux.MiddlewareFunc(middleware.RequestContext(trustProxy)))
	r.Use(mux.MiddlewareFunc(middleware.Guard(s.engine, middleware.WithLogger(s.log))))

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", prometheus.NewPrometheusExporterFromSource(s.engine).Handler()).Methods(http.MethodGet)

	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/send-code", s.handleSendCode).Methods(http.MethodPost)
	auth.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	auth.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	auth.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	auth.HandleFunc("/password-reset", s.handleResetRequest).Methods(http.MethodPost)
	auth.HandleFunc("/password-reset/confirm", s.handleResetConfirm).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(mux.MiddlewareFunc(middleware.RequireRole("ADMIN")))
	admin.HandleFunc("/security", s.handleSecurity).Methods(http.MethodGet)

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, err := s.engine.SendVerificationCode(r.Context(), req.Email); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (s *server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !s.decode(w, r, &req) {
		return
	}
	acct, err := s.engine.Signup(r.Context(), accountauth.SignupInput{
		Email:            req.Email,
		Name:             req.Name,
		Password:         req.Password,
		VerificationCode: req.VerificationCode,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountResponse{ID: acct.ID, Email: acct.Email, Name: acct.Name, Role: acct.Role})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}
	pair, err := s.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(pair))
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !s.decode(w, r, &req) {
		return
	}
	pair, err := s.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(pair))
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	access, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || access == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.engine.Logout(r.Context(), access, req.RefreshToken); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.RequestPasswordReset(r.Context(), req.Email); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (s *server) handleResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.ConfirmPasswordReset(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := accountauth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{ID: id.UserID, Email: id.Email, Name: id.Name, Role: id.Role})
}

func (s *server) handleSecurity(w http.ResponseWriter, _ *http.Request) {
	reporter, ok := s.engine.(interface {
		SecurityReport() accountauth.SecurityReport
	})
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, reporter.SecurityReport())
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, "invalid field: "+verrs[0].Field())
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// fail maps engine errors to HTTP statuses. Login and token failures stay
// uniform so callers learn nothing about which check failed.
func (s *server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, accountauth.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many requests")
	case errors.Is(err, accountauth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, accountauth.ErrUnauthorized),
		errors.Is(err, accountauth.ErrRefreshInvalid):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, accountauth.ErrAccountExists):
		writeError(w, http.StatusConflict, "account already exists")
	case errors.Is(err, accountauth.ErrVerificationFailed):
		writeError(w, http.StatusBadRequest, "verification failed")
	case errors.Is(err, accountauth.ErrPasswordPolicy):
		writeError(w, http.StatusBadRequest, "password does not meet policy")
	case errors.Is(err, accountauth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, accountauth.ErrMailDelivery):
		writeError(w, http.StatusBadGateway, "could not deliver email")
	case errors.Is(err, accountauth.ErrVerificationUnavailable),
		errors.Is(err, accountauth.ErrRateLimiterUnavailable),
		errors.Is(err, accountauth.ErrAccountUnavailable),
		errors.Is(err, accountauth.ErrRevocationUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		s.log.Error("unhandled engine error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func toTokenResponse(p accountauth.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		TokenType:        p.TokenType,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
