// Package handler exposes the registration HTTP surface: the
// coordinator-facing roster and payment endpoints plus the public
// submission and status routes.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	coordservice "github.com/Dibyendu78/Brain-O-Math/internal/coordinator/service"
	"github.com/Dibyendu78/Brain-O-Math/internal/platform/middleware"
	"github.com/Dibyendu78/Brain-O-Math/internal/registration/service"
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

// Routes mounts the registration endpoints. Direct submission and the
// status lookup are public; roster and payment routes need a bearer token.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/submit", h.submitDirect)
	r.Get("/status/{registrationId}", h.status)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.tokens, h.logger))
		r.Get("/", h.get)
		r.Post("/students", h.addStudent)
		r.Put("/students/{index}", h.updateStudent)
		r.Delete("/students/{index}", h.removeStudent)
		r.Post("/payment", h.submitPayment)
	})
	return r
}

func coordinatorID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := requestcontext.CoordinatorID(r.Context())
	if id == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return id, true
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := coordinatorID(w, r)
	if !ok {
		return
	}
	view, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

type studentRequest struct {
	Name          string `json:"name"`
	Grade         int    `json:"class"`
	Section       string `json:"section"`
	Subjects      string `json:"subjects"`
	ParentName    string `json:"parentName"`
	ParentContact string `json:"parentContact"`
}

func (s studentRequest) toInput() service.StudentInput {
	return service.StudentInput{
		Name:          s.Name,
		Grade:         s.Grade,
		Section:       s.Section,
		Subjects:      s.Subjects,
		ParentName:    s.ParentName,
		ParentContact: s.ParentContact,
	}
}

func (h *Handler) addStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := coordinatorID(w, r)
	if !ok {
		return
	}
	var req studentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	view, err := h.service.AddStudent(r.Context(), id, req.toInput())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusCreated, view)
}

func rosterIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid student position"))
		return 0, false
	}
	return index, true
}

func (h *Handler) updateStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := coordinatorID(w, r)
	if !ok {
		return
	}
	index, ok := rosterIndex(w, r)
	if !ok {
		return
	}
	var req studentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	view, err := h.service.UpdateStudent(r.Context(), id, index, req.toInput())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

func (h *Handler) removeStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := coordinatorID(w, r)
	if !ok {
		return
	}
	index, ok := rosterIndex(w, r)
	if !ok {
		return
	}
	view, err := h.service.RemoveStudent(r.Context(), id, index)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

type paymentRequest struct {
	UTR string `json:"utrNumber"`
}

func (h *Handler) submitPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := coordinatorID(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	registration, err := h.service.SubmitPayment(r.Context(), id, req.UTR)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{
		Success: true,
		Message: "Payment details submitted. Your registration will be confirmed after verification.",
		Data:    registration,
	})
}

type directRequest struct {
	SchoolName    string           `json:"schoolName"`
	SchoolAddress string           `json:"schoolAddress"`
	Name          string           `json:"coordinatorName"`
	Email         string           `json:"coordinatorEmail"`
	Phone         string           `json:"coordinatorPhone"`
	Students      []studentRequest `json:"students"`
	UTR           string           `json:"utrNumber"`
	TotalAmount   int              `json:"totalAmount"`
}

func (h *Handler) submitDirect(w http.ResponseWriter, r *http.Request) {
	var req directRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	students := make([]service.StudentInput, 0, len(req.Students))
	for _, s := range req.Students {
		students = append(students, s.toInput())
	}
	view, err := h.service.SubmitDirect(r.Context(), service.DirectInput{
		Coordinator: coordservice.SignupInput{
			SchoolName:    req.SchoolName,
			SchoolAddress: req.SchoolAddress,
			Name:          req.Name,
			Email:         req.Email,
			Phone:         req.Phone,
		},
		Students:    students,
		UTR:         req.UTR,
		TotalAmount: req.TotalAmount,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{
		Success: true,
		Message: "Registration submitted. Your login password is the last 4 digits of your phone number.",
		Data:    view,
	})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.FetchByPublicID(r.Context(), chi.URLParam(r, "registrationId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}
