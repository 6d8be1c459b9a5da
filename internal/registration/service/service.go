// Package service orchestrates the registration lifecycle: opening the
// aggregate, roster changes, and payment submission.
//
// Fees, categories and totals are always computed here from grade and
// subjects; client-supplied amounts are only ever checked, never trusted.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	coordmodels "github.com/Dibyendu78/Brain-O-Math/internal/coordinator/models"
	coordservice "github.com/Dibyendu78/Brain-O-Math/internal/coordinator/service"
	coordstore "github.com/Dibyendu78/Brain-O-Math/internal/coordinator/store"
	"github.com/Dibyendu78/Brain-O-Math/internal/domain"
	"github.com/Dibyendu78/Brain-O-Math/internal/notify"
	"github.com/Dibyendu78/Brain-O-Math/internal/platform/metrics"
	"github.com/Dibyendu78/Brain-O-Math/internal/registration/models"
	"github.com/Dibyendu78/Brain-O-Math/internal/registration/store"
	"github.com/Dibyendu78/Brain-O-Math/internal/sequence"
	dErrors "github.com/Dibyendu78/Brain-O-Math/pkg/domainerrors"
	"github.com/Dibyendu78/Brain-O-Math/pkg/requestcontext"
	"github.com/Dibyendu78/Brain-O-Math/pkg/sentinel"
)

// Dispatcher queues notifications for background delivery.
type Dispatcher interface {
	Enqueue(e notify.Event) bool
}

// AccountEnsurer resolves or creates the coordinator account behind a
// direct submission.
type AccountEnsurer interface {
	EnsureAccount(ctx context.Context, in coordservice.SignupInput) (*coordmodels.Coordinator, error)
}

// Service owns the registration aggregate.
type Service struct {
	registrations store.RegistrationStore
	students      store.StudentStore
	accounts      coordstore.Store
	ensurer       AccountEnsurer
	sequence      sequence.Allocator
	notify        Dispatcher
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

func New(
	registrations store.RegistrationStore,
	students store.StudentStore,
	accounts coordstore.Store,
	ensurer AccountEnsurer,
	seq sequence.Allocator,
	dispatcher Dispatcher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		registrations: registrations,
		students:      students,
		accounts:      accounts,
		ensurer:       ensurer,
		sequence:      seq,
		notify:        dispatcher,
		metrics:       m,
		logger:        logger,
	}
}

// View is a registration hydrated with its students in roster order.
type View struct {
	Registration *models.Registration `json:"registration"`
	Students     []*models.Student    `json:"students"`
}

func (s *Service) hydrate(ctx context.Context, registration *models.Registration) (*View, error) {
	students, err := s.students.FindByIDs(ctx, registration.StudentIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load students")
	}
	return &View{Registration: registration, Students: students}, nil
}

// Open returns the coordinator's registration, creating an empty one on
// first call. Repeated calls return the same aggregate.
func (s *Service) Open(ctx context.Context, coordinatorID string) (*models.Registration, error) {
	registration, err := s.registrations.FindByCoordinator(ctx, coordinatorID)
	if err == nil {
		return registration, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}

	coordinator, err := s.accounts.FindByID(ctx, coordinatorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "coordinator not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load coordinator")
	}

	registration = models.NewRegistration(
		uuid.NewString(), coordinator.RegistrationID, coordinatorID,
		requestcontext.Now(ctx),
	)
	err = s.registrations.Create(ctx, registration)
	if errors.Is(err, sentinel.ErrConflict) {
		// Lost a race with a concurrent first call; the winner's aggregate
		// is the one to use.
		registration, err = s.registrations.FindByCoordinator(ctx, coordinatorID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
		}
		return registration, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create registration")
	}
	s.metrics.RegistrationsCreated.Inc()
	return registration, nil
}

// Get returns the coordinator's hydrated registration.
func (s *Service) Get(ctx context.Context, coordinatorID string) (*View, error) {
	registration, err := s.Open(ctx, coordinatorID)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, registration)
}

// StudentInput is the enrollment form for one student.
type StudentInput struct {
	Name          string
	Grade         int
	Section       string
	Subjects      string
	ParentName    string
	ParentContact string
}

func (in StudentInput) enrollment() models.Enrollment {
	return models.Enrollment{
		Name:          strings.TrimSpace(in.Name),
		Grade:         in.Grade,
		Section:       strings.TrimSpace(in.Section),
		Subjects:      in.Subjects,
		ParentName:    strings.TrimSpace(in.ParentName),
		ParentContact: strings.TrimSpace(in.ParentContact),
	}
}

func (s *Service) buildStudent(ctx context.Context, registrationID string, in StudentInput) (*models.Student, error) {
	seq, err := s.sequence.Next(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate student id")
	}
	return models.NewStudent(
		uuid.NewString(), domain.FormatStudentID(seq), registrationID,
		in.enrollment(), requestcontext.Now(ctx),
	)
}

// AddStudent enrolls one student on the coordinator's registration. The
// aggregate must not be locked by a submitted payment.
func (s *Service) AddStudent(ctx context.Context, coordinatorID string, in StudentInput) (*View, error) {
	registration, err := s.Open(ctx, coordinatorID)
	if err != nil {
		return nil, err
	}
	if err := registration.CanModifyStudents(); err != nil {
		return nil, err
	}

	student, err := s.buildStudent(ctx, registration.ID, in)
	if err != nil {
		return nil, err
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store student")
	}

	now := requestcontext.Now(ctx)
	updated, err := s.registrations.Execute(ctx, registration.ID,
		func(r *models.Registration) error { return r.CanModifyStudents() },
		func(r *models.Registration) error {
			r.AddStudent(student.ID, student.Fee, now)
			return nil
		})
	if err != nil {
		// the roster write lost; drop the orphaned student row
		if deleteErr := s.students.Delete(ctx, student.ID); deleteErr != nil {
			s.logger.ErrorContext(ctx, "failed to clean up orphaned student",
				"student_id", student.ID, "error", deleteErr)
		}
		return nil, err
	}
	s.metrics.StudentsEnrolled.Inc()
	return s.hydrate(ctx, updated)
}

func (s *Service) resolveStudent(ctx context.Context, registration *models.Registration, index int) (*models.Student, error) {
	studentID, err := registration.StudentIDAt(index)
	if err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "student not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load student")
	}
	return student, nil
}

// UpdateStudent revises the student at a roster position and reconciles
// the registration total with the fee change.
func (s *Service) UpdateStudent(ctx context.Context, coordinatorID string, index int, in StudentInput) (*View, error) {
	registration, err := s.mustFind(ctx, coordinatorID)
	if err != nil {
		return nil, err
	}
	if err := registration.CanModifyStudents(); err != nil {
		return nil, err
	}

	student, err := s.resolveStudent(ctx, registration, index)
	if err != nil {
		return nil, err
	}
	previous := *student

	now := requestcontext.Now(ctx)
	delta, err := student.Revise(in.enrollment(), now)
	if err != nil {
		return nil, err
	}
	if err := s.students.Update(ctx, student); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update student")
	}

	updated, err := s.registrations.Execute(ctx, registration.ID,
		func(r *models.Registration) error { return r.CanModifyStudents() },
		func(r *models.Registration) error {
			r.AdjustTotal(delta, now)
			return nil
		})
	if err != nil {
		if revertErr := s.students.Update(ctx, &previous); revertErr != nil {
			s.logger.ErrorContext(ctx, "failed to revert student after total update failure",
				"student_id", student.ID, "error", revertErr)
		}
		return nil, err
	}
	return s.hydrate(ctx, updated)
}

// RemoveStudent drops the student at a roster position and shrinks the
// total by that student's fee.
func (s *Service) RemoveStudent(ctx context.Context, coordinatorID string, index int) (*View, error) {
	registration, err := s.mustFind(ctx, coordinatorID)
	if err != nil {
		return nil, err
	}
	if err := registration.CanModifyStudents(); err != nil {
		return nil, err
	}

	student, err := s.resolveStudent(ctx, registration, index)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	updated, err := s.registrations.Execute(ctx, registration.ID,
		func(r *models.Registration) error { return r.CanModifyStudents() },
		func(r *models.Registration) error {
			if !r.RemoveStudent(student.ID, student.Fee, now) {
				return dErrors.New(dErrors.CodeNotFound, "student not found")
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	if err := s.students.Delete(ctx, student.ID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.ErrorContext(ctx, "failed to delete removed student",
			"student_id", student.ID, "error", err)
	}
	return s.hydrate(ctx, updated)
}

func (s *Service) mustFind(ctx context.Context, coordinatorID string) (*models.Registration, error) {
	registration, err := s.registrations.FindByCoordinator(ctx, coordinatorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no registration found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	return registration, nil
}

func (s *Service) checkUTRUnclaimed(ctx context.Context, utr string) error {
	_, err := s.registrations.FindByUTR(ctx, utr)
	if err == nil {
		return dErrors.New(dErrors.CodeConflict, "this UTR number has already been used")
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check UTR")
	}
	return nil
}

// SubmitPayment records the bank reference and locks the roster. The UTR
// must be twelve digits and unclaimed across all registrations.
func (s *Service) SubmitPayment(ctx context.Context, coordinatorID, utr string) (*models.Registration, error) {
	canonical, err := domain.CanonicalUTR(utr)
	if err != nil {
		return nil, err
	}
	if err := s.checkUTRUnclaimed(ctx, canonical); err != nil {
		return nil, err
	}

	registration, err := s.mustFind(ctx, coordinatorID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	updated, err := s.registrations.Execute(ctx, registration.ID,
		func(r *models.Registration) error { return r.CanSubmitPayment() },
		func(r *models.Registration) error {
			r.ApplyPaymentSubmission(canonical, now)
			return nil
		})
	if errors.Is(err, sentinel.ErrConflict) {
		// unique index on utr caught a concurrent claim
		return nil, dErrors.New(dErrors.CodeConflict, "this UTR number has already been used")
	}
	if err != nil {
		return nil, err
	}
	s.metrics.PaymentsSubmitted.Inc()

	s.notifySubmission(ctx, updated)
	return updated, nil
}

func (s *Service) notifySubmission(ctx context.Context, registration *models.Registration) {
	coordinator, err := s.accounts.FindByID(ctx, registration.CoordinatorID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load coordinator for notification",
			"registration_id", registration.PublicID, "error", err)
		return
	}
	s.notify.Enqueue(notify.Event{
		Kind:            notify.KindSubmissionReceived,
		CoordinatorName: coordinator.Name,
		Email:           coordinator.Email,
		SchoolName:      coordinator.SchoolName,
		RegistrationID:  registration.PublicID,
		StudentCount:    len(registration.StudentIDs),
		TotalAmount:     registration.TotalAmount,
	})
}

// DirectInput is a complete one-shot submission: school, students and
// payment reference together.
type DirectInput struct {
	Coordinator coordservice.SignupInput
	Students    []StudentInput
	UTR         string
	TotalAmount int
}

// SubmitDirect handles the single-form flow: it resolves the coordinator
// account, enrolls every student, checks the claimed total against the
// server-computed one, and records the payment reference in one pass.
func (s *Service) SubmitDirect(ctx context.Context, in DirectInput) (*View, error) {
	if len(in.Students) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one student is required")
	}

	// validate everything before touching storage
	expectedTotal := 0
	for _, studentIn := range in.Students {
		fee, err := studentIn.enrollment().Validate()
		if err != nil {
			return nil, err
		}
		expectedTotal += fee
	}
	if in.TotalAmount != expectedTotal {
		return nil, dErrors.Newf(dErrors.CodeMismatch,
			"total amount mismatch: expected %d", expectedTotal)
	}
	canonical, err := domain.CanonicalUTR(in.UTR)
	if err != nil {
		return nil, err
	}
	if err := s.checkUTRUnclaimed(ctx, canonical); err != nil {
		return nil, err
	}

	coordinator, err := s.ensurer.EnsureAccount(ctx, in.Coordinator)
	if err != nil {
		return nil, err
	}
	registration, err := s.Open(ctx, coordinator.ID)
	if err != nil {
		return nil, err
	}
	if err := registration.CanModifyStudents(); err != nil {
		return nil, err
	}

	students := make([]*models.Student, 0, len(in.Students))
	for _, studentIn := range in.Students {
		student, err := s.buildStudent(ctx, registration.ID, studentIn)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	if err := s.students.CreateBatch(ctx, students); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store students")
	}

	now := requestcontext.Now(ctx)
	updated, err := s.registrations.Execute(ctx, registration.ID,
		func(r *models.Registration) error { return r.CanModifyStudents() },
		func(r *models.Registration) error {
			for _, student := range students {
				r.AddStudent(student.ID, student.Fee, now)
			}
			if err := r.CanSubmitPayment(); err != nil {
				return err
			}
			r.ApplyPaymentSubmission(canonical, now)
			return nil
		})
	if err != nil {
		for _, student := range students {
			if deleteErr := s.students.Delete(ctx, student.ID); deleteErr != nil {
				s.logger.ErrorContext(ctx, "failed to clean up student after direct submission failure",
					"student_id", student.ID, "error", deleteErr)
			}
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "this UTR number has already been used")
		}
		return nil, err
	}
	s.metrics.StudentsEnrolled.Add(float64(len(students)))
	s.metrics.PaymentsSubmitted.Inc()

	s.notifySubmission(ctx, updated)
	return s.hydrate(ctx, updated)
}

// FetchByPublicID is the public status lookup by registration ID.
func (s *Service) FetchByPublicID(ctx context.Context, publicID string) (*View, error) {
	registration, err := s.registrations.FindByPublicID(ctx, strings.TrimSpace(publicID))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	return s.hydrate(ctx, registration)
}
