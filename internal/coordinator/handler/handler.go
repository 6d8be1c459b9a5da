// Package handler exposes the coordinator account HTTP surface.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Dibyendu78/Brain-O-Math/internal/coordinator/service"
	"github.com/Dibyendu78/Brain-O-Math/internal/platform/middleware"
	dErrors "github.com/Dibyendu78/Brain-O-Math/pkg/domainerrors"
	"github.com/Dibyendu78/Brain-O-Math/pkg/httputil"
	"github.com/Dibyendu78/Brain-O-Math/pkg/requestcontext"
)

type Handler struct {
	service *service.Service
	tokens  middleware.TokenValidator
	logger  *slog.Logger
}

func New(svc *service.Service, tokens middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{service: svc, tokens: tokens, logger: logger}
}

// Routes mounts the account endpoints. Signup, login and forgot-password are
// public; profile requires a bearer token.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.signup)
	r.Post("/login", h.login)
	r.Post("/forgot-password", h.forgotPassword)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.tokens, h.logger))
		r.Get("/profile", h.profile)
	})
	return r
}

type signupRequest struct {
	SchoolName    string `json:"schoolName"`
	SchoolAddress string `json:"schoolAddress"`
	Name          string `json:"coordinatorName"`
	Email         string `json:"coordinatorEmail"`
	Phone         string `json:"coordinatorPhone"`
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	coordinator, err := h.service.Signup(r.Context(), service.SignupInput{
		SchoolName:    req.SchoolName,
		SchoolAddress: req.SchoolAddress,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{
		Success: true,
		Message: "Registration successful. Your login password is the last 4 digits of your phone number.",
		Data:    coordinator,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{
		"token":       result.Token,
		"coordinator": result.Coordinator,
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{
		Success: true,
		Message: "Login credentials have been sent to your email.",
	})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	coordinatorID := requestcontext.CoordinatorID(r.Context())
	if coordinatorID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	coordinator, err := h.service.GetByID(r.Context(), coordinatorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, coordinator)
}
