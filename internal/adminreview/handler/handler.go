// Package handler exposes the admin HTTP surface behind the admin token.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Dibyendu78/Brain-O-Math/internal/adminreview/service"
	"github.com/Dibyendu78/Brain-O-Math/internal/platform/middleware"
	"github.com/Dibyendu78/Brain-O-Math/internal/registration/models"
	regstore "github.com/Dibyendu78/Brain-O-Math/internal/registration/store"
	dErrors "github.com/Dibyendu78/Brain-O-Math/pkg/domainerrors"
	"github.com/Dibyendu78/Brain-O-Math/pkg/httputil"
)

type Handler struct {
	service *service.Service
	tokens  middleware.TokenValidator
	logger  *slog.Logger
}

func New(svc *service.Service, tokens middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{service: svc, tokens: tokens, logger: logger}
}

// Routes mounts the admin endpoints. Everything except login requires an
// admin token.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.login)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(h.tokens, h.logger))
		r.Get("/stats", h.stats)
		r.Get("/revenue", h.revenue)
		r.Get("/revenue/records", h.listRevenue)
		r.Get("/registrations", h.listRegistrations)
		r.Put("/registrations/{ref}/status", h.reviewRegistration)
		r.Get("/registrations/{ref}/audit", h.auditTrail)
		r.Get("/students", h.listStudents)
		r.Put("/students/{id}/status", h.reviewStudent)
		r.Get("/export/registrations", h.exportRegistrations)
		r.Get("/export/students", h.exportStudents)
	})
	return r
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
	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, stats)
}

func (h *Handler) revenue(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.RevenueReport(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, report)
}

func (h *Handler) listRevenue(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	records, total, err := h.service.ListRevenue(r.Context(), page, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{
		Success:    true,
		Data:       records,
		Pagination: httputil.NewPagination(page, limit, total),
	})
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = service.DefaultPageSize
	}
	return page, limit
}

func (h *Handler) listRegistrations(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	rows, total, err := h.service.ListRegistrations(r.Context(), regstore.RegistrationFilter{
		PaymentStatus: models.PaymentStatus(r.URL.Query().Get("paymentStatus")),
		Approval:      models.ApprovalStatus(r.URL.Query().Get("status")),
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{
		Success:    true,
		Data:       rows,
		Pagination: httputil.NewPagination(page, limit, total),
	})
}

func (h *Handler) listStudents(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	grade, _ := strconv.Atoi(r.URL.Query().Get("class"))
	rows, total, err := h.service.ListStudents(r.Context(), regstore.StudentFilter{
		RegistrationID: r.URL.Query().Get("registrationId"),
		Status:         models.StudentStatus(r.URL.Query().Get("status")),
		Category:       r.URL.Query().Get("category"),
		Grade:          grade,
		Page:           page,
		Limit:          limit,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{
		Success:    true,
		Data:       rows,
		Pagination: httputil.NewPagination(page, limit, total),
	})
}

type statusRequest struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
}

// decision maps the request onto an approval decision. Clients may send
// either the approval status or the equivalent payment outcome.
func (s statusRequest) decision() models.ApprovalStatus {
	if s.Status != "" {
		return models.ApprovalStatus(s.Status)
	}
	switch models.PaymentStatus(s.PaymentStatus) {
	case models.PaymentVerified:
		return models.ApprovalApproved
	case models.PaymentRejected:
		return models.ApprovalRejected
	}
	return models.ApprovalStatus(s.PaymentStatus)
}

func (h *Handler) reviewRegistration(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	claims, _ := middleware.ClaimsFrom(r.Context())
	actor := "admin"
	if claims != nil && claims.Email != "" {
		actor = claims.Email
	}
	decision := req.decision()
	row, err := h.service.Review(r.Context(), chi.URLParam(r, "ref"), decision, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{
		Success: true,
		Message: "Registration " + string(decision),
		Data:    row,
	})
}

func (h *Handler) reviewStudent(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	student, err := h.service.ReviewStudent(r.Context(), chi.URLParam(r, "id"),
		models.StudentStatus(req.Status))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, student)
}

func (h *Handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.AuditTrail(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, events)
}

func (h *Handler) exportRegistrations(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="registrations.csv"`)
	if err := h.service.ExportRegistrationsCSV(r.Context(), w); err != nil {
		h.logger.ErrorContext(r.Context(), "registration export failed", "error", err)
	}
}

func (h *Handler) exportStudents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="students.csv"`)
	if err := h.service.ExportStudentsCSV(r.Context(), w); err != nil {
		h.logger.ErrorContext(r.Context(), "student export failed", "error", err)
	}
}
