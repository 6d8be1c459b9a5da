// Package service implements the admin review surface: dashboard stats,
// filtered listings, the review decision with its cascades, and CSV export.
//
// A review decision touches four places: the registration's payment and
// approval statuses, every student on it, the revenue ledger, and the
// notification queue. Only the registration write can fail the request;
// the cascades are applied afterwards and failures there are logged.
package service

import (
	"context"
	"crypto/subtle"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Dibyendu78/Brain-O-Math/internal/audit"
	coordmodels "github.com/Dibyendu78/Brain-O-Math/internal/coordinator/models"
	coordstore "github.com/Dibyendu78/Brain-O-Math/internal/coordinator/store"
	"github.com/Dibyendu78/Brain-O-Math/internal/notify"
	"github.com/Dibyendu78/Brain-O-Math/internal/platform/metrics"
	"github.com/Dibyendu78/Brain-O-Math/internal/registration/models"
	regstore "github.com/Dibyendu78/Brain-O-Math/internal/registration/store"
	"github.com/Dibyendu78/Brain-O-Math/internal/revenue"
	dErrors "github.com/Dibyendu78/Brain-O-Math/pkg/domainerrors"
	"github.com/Dibyendu78/Brain-O-Math/pkg/requestcontext"
	"github.com/Dibyendu78/Brain-O-Math/pkg/sentinel"
)

// DefaultPageSize is used when a listing request does not name a limit.
const DefaultPageSize = 20

// AdminTokenIssuer signs admin bearer tokens.
type AdminTokenIssuer interface {
	IssueAdminToken(email string) (string, error)
}

// AuditRecorder accepts transition events without blocking.
type AuditRecorder interface {
	Record(event audit.Event)
}

// Dispatcher queues notifications for background delivery.
type Dispatcher interface {
	Enqueue(e notify.Event) bool
}

// Service owns the admin surface.
type Service struct {
	registrations regstore.RegistrationStore
	students      regstore.StudentStore
	accounts      coordstore.Store
	ledger        revenue.Store
	audits        AuditRecorder
	auditLog      audit.Store
	notify        Dispatcher
	tokens        AdminTokenIssuer
	metrics       *metrics.Metrics
	logger        *slog.Logger

	adminEmail    string
	adminPassword string
}

func New(
	registrations regstore.RegistrationStore,
	students regstore.StudentStore,
	accounts coordstore.Store,
	ledger revenue.Store,
	audits AuditRecorder,
	auditLog audit.Store,
	dispatcher Dispatcher,
	tokens AdminTokenIssuer,
	m *metrics.Metrics,
	logger *slog.Logger,
	adminEmail, adminPassword string,
) *Service {
	return &Service{
		registrations: registrations,
		students:      students,
		accounts:      accounts,
		ledger:        ledger,
		audits:        audits,
		auditLog:      auditLog,
		notify:        dispatcher,
		tokens:        tokens,
		metrics:       m,
		logger:        logger,
		adminEmail:    adminEmail,
		adminPassword: adminPassword,
	}
}

// Login checks the configured admin credentials and issues an admin token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.adminEmail)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) == 1
	if !emailOK || !passwordOK {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid admin credentials")
	}
	token, err := s.tokens.IssueAdminToken(email)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return token, nil
}

// Stats is the dashboard summary.
type Stats struct {
	Registrations     int              `json:"totalRegistrations"`
	Students          int              `json:"totalStudents"`
	PendingPayments   int              `json:"pendingPayments"`
	SubmittedPayments int              `json:"submittedPayments"`
	VerifiedPayments  int              `json:"verifiedPayments"`
	RejectedPayments  int              `json:"rejectedPayments"`
	Revenue           *revenue.Summary `json:"revenue"`
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	registrations, err := s.registrations.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count registrations")
	}
	students, err := s.students.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count students")
	}
	payments, err := s.registrations.CountByPayment(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count payments")
	}
	summary, err := s.ledger.Summarize(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to summarize revenue")
	}
	return &Stats{
		Registrations:     registrations,
		Students:          students,
		PendingPayments:   payments[models.PaymentPending],
		SubmittedPayments: payments[models.PaymentSubmitted],
		VerifiedPayments:  payments[models.PaymentVerified],
		RejectedPayments:  payments[models.PaymentRejected],
		Revenue:           summary,
	}, nil
}

// RevenueReport is the revenue page payload.
type RevenueReport struct {
	Summary *revenue.Summary        `json:"summary"`
	Monthly []*revenue.MonthlyTotal `json:"monthly"`
	Recent  []*revenue.Record       `json:"recent"`
}

func (s *Service) RevenueReport(ctx context.Context) (*RevenueReport, error) {
	summary, err := s.ledger.Summarize(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to summarize revenue")
	}
	monthly, err := s.ledger.Monthly(ctx, 12)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to roll up revenue")
	}
	recent, err := s.ledger.Recent(ctx, 10)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load recent revenue")
	}
	return &RevenueReport{Summary: summary, Monthly: monthly, Recent: recent}, nil
}

// ListRevenue returns one page of the ledger, newest first, plus the
// unpaged total.
func (s *Service) ListRevenue(ctx context.Context, page, limit int) ([]*revenue.Record, int, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	records, total, err := s.ledger.List(ctx, page, limit)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list revenue records")
	}
	return records, total, nil
}

// RegistrationRow is one listing entry with the coordinator joined in.
type RegistrationRow struct {
	*models.Registration
	SchoolName       string `json:"schoolName"`
	CoordinatorName  string `json:"coordinatorName"`
	CoordinatorEmail string `json:"coordinatorEmail"`
	CoordinatorPhone string `json:"coordinatorPhone"`
	StudentCount     int    `json:"studentCount"`
}

func (s *Service) joinCoordinators(ctx context.Context, registrations []*models.Registration) (map[string]*coordmodels.Coordinator, error) {
	ids := make([]string, 0, len(registrations))
	for _, registration := range registrations {
		ids = append(ids, registration.CoordinatorID)
	}
	coordinators, err := s.accounts.FindByIDs(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load coordinators")
	}
	return coordinators, nil
}

func (s *Service) toRows(ctx context.Context, registrations []*models.Registration) ([]*RegistrationRow, error) {
	coordinators, err := s.joinCoordinators(ctx, registrations)
	if err != nil {
		return nil, err
	}
	rows := make([]*RegistrationRow, 0, len(registrations))
	for _, registration := range registrations {
		row := &RegistrationRow{
			Registration: registration,
			StudentCount: len(registration.StudentIDs),
		}
		if coordinator, ok := coordinators[registration.CoordinatorID]; ok {
			row.SchoolName = coordinator.SchoolName
			row.CoordinatorName = coordinator.Name
			row.CoordinatorEmail = coordinator.Email
			row.CoordinatorPhone = coordinator.Phone
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ListRegistrations returns one page of registrations with coordinator
// details, newest first.
func (s *Service) ListRegistrations(ctx context.Context, filter regstore.RegistrationFilter) ([]*RegistrationRow, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultPageSize
	}
	if filter.PaymentStatus != "" && !models.ValidPaymentStatus(string(filter.PaymentStatus)) {
		return nil, 0, dErrors.New(dErrors.CodeValidation, "unknown payment status")
	}
	if filter.Approval != "" && !models.ValidApprovalStatus(string(filter.Approval)) {
		return nil, 0, dErrors.New(dErrors.CodeValidation, "unknown status")
	}
	registrations, total, err := s.registrations.List(ctx, filter)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	rows, err := s.toRows(ctx, registrations)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// StudentRow is one student listing entry with its school joined in.
type StudentRow struct {
	*models.Student
	RegistrationNumber string `json:"registrationNumber"`
	SchoolName         string `json:"schoolName"`
}

// ListStudents returns one page of students with registration and school
// details.
func (s *Service) ListStudents(ctx context.Context, filter regstore.StudentFilter) ([]*StudentRow, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultPageSize
	}
	if filter.Status != "" && !models.ValidStudentStatus(string(filter.Status)) {
		return nil, 0, dErrors.New(dErrors.CodeValidation, "unknown status")
	}
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list students")
	}
	rows, err := s.studentRows(ctx, students)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (s *Service) studentRows(ctx context.Context, students []*models.Student) ([]*StudentRow, error) {
	registrations := make(map[string]*models.Registration)
	for _, student := range students {
		if _, seen := registrations[student.RegistrationID]; seen {
			continue
		}
		registration, err := s.registrations.FindByID(ctx, student.RegistrationID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
		}
		registrations[student.RegistrationID] = registration
	}

	distinct := make([]*models.Registration, 0, len(registrations))
	for _, registration := range registrations {
		distinct = append(distinct, registration)
	}
	coordinators, err := s.joinCoordinators(ctx, distinct)
	if err != nil {
		return nil, err
	}

	rows := make([]*StudentRow, 0, len(students))
	for _, student := range students {
		row := &StudentRow{Student: student}
		if registration, ok := registrations[student.RegistrationID]; ok {
			row.RegistrationNumber = registration.PublicID
			if coordinator, ok := coordinators[registration.CoordinatorID]; ok {
				row.SchoolName = coordinator.SchoolName
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Service) resolve(ctx context.Context, ref string) (*models.Registration, error) {
	registration, err := s.registrations.FindByID(ctx, ref)
	if err == nil {
		return registration, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	registration, err = s.registrations.FindByPublicID(ctx, ref)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	return registration, nil
}

// paymentFor maps a review decision to the payment status it implies.
func paymentFor(decision models.ApprovalStatus) models.PaymentStatus {
	if decision == models.ApprovalApproved {
		return models.PaymentVerified
	}
	return models.PaymentRejected
}

// Review applies an admin decision to a registration, addressed by internal
// or public ID. Approving verifies the payment; rejecting rejects it. The
// decision cascades to the students, reconciles the revenue ledger, records
// the transition and notifies the coordinator.
func (s *Service) Review(ctx context.Context, ref string, decision models.ApprovalStatus, actor string) (*RegistrationRow, error) {
	if decision != models.ApprovalApproved && decision != models.ApprovalRejected {
		return nil, dErrors.New(dErrors.CodeValidation, "status must be approved or rejected")
	}

	registration, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	targetPayment := paymentFor(decision)
	now := requestcontext.Now(ctx)
	var fromPayment models.PaymentStatus
	var fromApproval models.ApprovalStatus

	updated, err := s.registrations.Execute(ctx, registration.ID,
		func(r *models.Registration) error {
			if !r.Approval.CanTransitionTo(decision) {
				return dErrors.Newf(dErrors.CodeConflict,
					"registration is already %s", r.Approval)
			}
			if !r.PaymentStatus.CanTransitionTo(targetPayment) {
				return dErrors.Newf(dErrors.CodeConflict,
					"cannot move payment from %s to %s", r.PaymentStatus, targetPayment)
			}
			return nil
		},
		func(r *models.Registration) error {
			fromPayment = r.PaymentStatus
			fromApproval = r.Approval
			r.Approval = decision
			r.PaymentStatus = targetPayment
			r.UpdatedAt = now
			return nil
		})
	if err != nil {
		return nil, err
	}
	s.metrics.ReviewsApplied.WithLabelValues(string(decision)).Inc()

	s.cascade(ctx, updated, decision, now)
	coordinator := s.notifyDecision(ctx, updated, decision)
	s.reconcileLedger(ctx, updated, coordinator, now)
	s.audits.Record(audit.Event{
		ID:             uuid.NewString(),
		RegistrationID: updated.PublicID,
		FromPayment:    string(fromPayment),
		ToPayment:      string(updated.PaymentStatus),
		FromApproval:   string(fromApproval),
		ToApproval:     string(updated.Approval),
		TotalAmount:    updated.TotalAmount,
		StudentCount:   len(updated.StudentIDs),
		Actor:          actor,
		At:             now,
	})

	row := &RegistrationRow{Registration: updated, StudentCount: len(updated.StudentIDs)}
	if coordinator != nil {
		row.SchoolName = coordinator.SchoolName
		row.CoordinatorName = coordinator.Name
		row.CoordinatorEmail = coordinator.Email
		row.CoordinatorPhone = coordinator.Phone
	}
	return row, nil
}

func (s *Service) cascade(ctx context.Context, registration *models.Registration, decision models.ApprovalStatus, now time.Time) {
	err := s.students.UpdateStatusByRegistration(ctx, registration.ID, models.StudentStatusFor(decision), now)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to cascade decision to students",
			"registration_id", registration.PublicID, "error", err)
	}
}

// reconcileLedger brings the revenue ledger in line with the payment
// status: verified payments have exactly one record, everything else none.
func (s *Service) reconcileLedger(ctx context.Context, registration *models.Registration, coordinator *coordmodels.Coordinator, now time.Time) {
	var err error
	switch registration.PaymentStatus {
	case models.PaymentVerified:
		record := &revenue.Record{
			ID:             uuid.NewString(),
			RegistrationID: registration.ID,
			PublicID:       registration.PublicID,
			CoordinatorID:  registration.CoordinatorID,
			Amount:         registration.TotalAmount,
			StudentCount:   len(registration.StudentIDs),
			Outcome:        revenue.OutcomeVerified,
			VerifiedAt:     now,
		}
		if coordinator != nil {
			record.SchoolName = coordinator.SchoolName
			record.CoordinatorName = coordinator.Name
		}
		err = s.ledger.CreateIfAbsent(ctx, record)
	default:
		err = s.ledger.DeleteByRegistration(ctx, registration.ID)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to reconcile revenue ledger",
			"registration_id", registration.PublicID, "error", err)
	}
}

func (s *Service) notifyDecision(ctx context.Context, registration *models.Registration, decision models.ApprovalStatus) *coordmodels.Coordinator {
	coordinator, err := s.accounts.FindByID(ctx, registration.CoordinatorID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load coordinator for notification",
			"registration_id", registration.PublicID, "error", err)
		return nil
	}
	kind := notify.KindPaymentVerified
	if decision == models.ApprovalRejected {
		kind = notify.KindPaymentRejected
	}
	s.notify.Enqueue(notify.Event{
		Kind:            kind,
		CoordinatorName: coordinator.Name,
		Email:           coordinator.Email,
		SchoolName:      coordinator.SchoolName,
		RegistrationID:  registration.PublicID,
		StudentCount:    len(registration.StudentIDs),
		TotalAmount:     registration.TotalAmount,
	})
	return coordinator
}

// ReviewStudent sets one student's status without touching the
// registration-level decision.
func (s *Service) ReviewStudent(ctx context.Context, studentID string, status models.StudentStatus) (*models.Student, error) {
	if !models.ValidStudentStatus(string(status)) {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown status")
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "student not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load student")
	}
	if student.Status != status && !student.Status.CanTransitionTo(status) {
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"cannot move student from %s to %s", student.Status, status)
	}
	student.Status = status
	student.UpdatedAt = requestcontext.Now(ctx)
	if err := s.students.Update(ctx, student); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update student")
	}
	return student, nil
}

// ExportRegistrationsCSV streams every registration with coordinator
// details as CSV.
func (s *Service) ExportRegistrationsCSV(ctx context.Context, w io.Writer) error {
	registrations, _, err := s.registrations.List(ctx, regstore.RegistrationFilter{})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	rows, err := s.toRows(ctx, registrations)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{
		"Registration ID", "School Name", "Coordinator", "Email", "Phone",
		"Students", "Total Amount", "Payment Status", "Status", "UTR", "Created At",
	}
	if err := cw.Write(header); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write csv")
	}
	for _, row := range rows {
		record := []string{
			row.PublicID, row.SchoolName, row.CoordinatorName,
			row.CoordinatorEmail, row.CoordinatorPhone,
			strconv.Itoa(row.StudentCount), strconv.Itoa(row.TotalAmount),
			string(row.PaymentStatus), string(row.Approval), row.UTR,
			row.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write csv")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write csv")
	}
	return nil
}

// ExportStudentsCSV streams every student with school details as CSV.
func (s *Service) ExportStudentsCSV(ctx context.Context, w io.Writer) error {
	students, _, err := s.students.List(ctx, regstore.StudentFilter{})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list students")
	}
	rows, err := s.studentRows(ctx, students)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{
		"Student ID", "Name", "Class", "Section", "Subjects", "Category",
		"Fee", "Parent Name", "Parent Contact", "Status", "Registration ID",
		"School Name",
	}
	if err := cw.Write(header); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write csv")
	}
	for _, row := range rows {
		record := []string{
			row.PublicID, row.Name, strconv.Itoa(row.Grade), row.Section,
			string(row.Subjects), string(row.Category), strconv.Itoa(row.Fee),
			row.ParentName, row.ParentContact, string(row.Status),
			row.RegistrationNumber, row.SchoolName,
		}
		if err := cw.Write(record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write csv")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write csv")
	}
	return nil
}

// AuditTrail returns the recorded transitions for a registration.
func (s *Service) AuditTrail(ctx context.Context, ref string) ([]audit.Event, error) {
	registration, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	events, err := s.auditLog.ListByRegistration(ctx, registration.PublicID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit trail")
	}
	return events, nil
}
