// Package service implements coordinator account lifecycle: signup with a
// derived credential, login, and credential recovery.
package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dibyendu78/Brain-O-Math/internal/coordinator/models"
	"github.com/Dibyendu78/Brain-O-Math/internal/coordinator/store"
	"github.com/Dibyendu78/Brain-O-Math/internal/domain"
	"github.com/Dibyendu78/Brain-O-Math/internal/notify"
	dErrors "github.com/Dibyendu78/Brain-O-Math/pkg/domainerrors"
	"github.com/Dibyendu78/Brain-O-Math/pkg/requestcontext"
	"github.com/Dibyendu78/Brain-O-Math/pkg/sentinel"
)

// TokenIssuer signs coordinator bearer tokens.
type TokenIssuer interface {
	IssueCoordinatorToken(coordinatorID, email, schoolName, registrationID string) (string, error)
}

// Dispatcher queues notifications for background delivery.
type Dispatcher interface {
	Enqueue(e notify.Event) bool
}

// Service orchestrates coordinator accounts.
type Service struct {
	accounts store.Store
	tokens   TokenIssuer
	notify   Dispatcher
	logger   *slog.Logger
}

func New(accounts store.Store, tokens TokenIssuer, dispatcher Dispatcher, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		tokens:   tokens,
		notify:   dispatcher,
		logger:   logger,
	}
}

// SignupInput is the school and delegate information supplied at signup or
// on a direct submission.
type SignupInput struct {
	SchoolName    string
	SchoolAddress string
	Name          string
	Email         string
	Phone         string
}

func (in *SignupInput) normalize() error {
	in.SchoolName = strings.TrimSpace(in.SchoolName)
	in.SchoolAddress = strings.TrimSpace(in.SchoolAddress)
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.SchoolName == "" || in.Name == "" || in.Email == "" || in.Phone == "" {
		return dErrors.New(dErrors.CodeValidation, "school name, coordinator name, email and phone are required")
	}
	email, err := domain.CanonicalEmail(in.Email)
	if err != nil {
		return err
	}
	in.Email = email
	if !domain.ValidPhone(in.Phone) {
		return dErrors.New(dErrors.CodeValidation, "phone must be exactly 10 digits")
	}
	return nil
}

// registrationIDAttempts bounds regeneration after a random-suffix
// collision before giving up with a conflict.
const registrationIDAttempts = 5

// Signup creates an account with a derived credential and queues the
// welcome notification after the write commits. The email must be unseen.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.Coordinator, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if _, err := s.accounts.FindByEmail(ctx, in.Email); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email")
	}

	coordinator, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}

	s.notify.Enqueue(notify.Event{
		Kind:            notify.KindWelcome,
		CoordinatorName: coordinator.Name,
		Email:           coordinator.Email,
		SchoolName:      coordinator.SchoolName,
		RegistrationID:  coordinator.RegistrationID,
	})
	return coordinator, nil
}

// EnsureAccount returns the account for the email, creating it when unseen.
// Used by the direct submission path; no welcome notification is queued
// here, the submission notification covers it.
func (s *Service) EnsureAccount(ctx context.Context, in SignupInput) (*models.Coordinator, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	coordinator, err := s.accounts.FindByEmail(ctx, in.Email)
	if err == nil {
		return coordinator, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up coordinator")
	}
	return s.create(ctx, in)
}

func (s *Service) create(ctx context.Context, in SignupInput) (*models.Coordinator, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(domain.CredentialFromPhone(in.Phone)), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive credential")
	}

	now := requestcontext.Now(ctx)
	for attempt := 0; attempt < registrationIDAttempts; attempt++ {
		coordinator, err := models.New(
			uuid.NewString(),
			in.SchoolName, in.SchoolAddress, in.Name, in.Email, in.Phone,
			string(hash), domain.NewRegistrationID(), now,
		)
		if err != nil {
			return nil, err
		}
		err = s.accounts.Create(ctx, coordinator)
		if err == nil {
			return coordinator, nil
		}
		if errors.Is(err, sentinel.ErrConflict) {
			// Email was pre-checked, so a conflict here is almost always the
			// random registration-ID suffix; regenerate and retry.
			continue
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create coordinator")
	}
	return nil, dErrors.New(dErrors.CodeConflict, "could not allocate a unique registration id")
}

var fourDigits = regexp.MustCompile(`^[0-9]{4}$`)

// LoginResult carries the bearer token and the account it identifies.
type LoginResult struct {
	Token       string
	Coordinator *models.Coordinator
}

// Login verifies the derived credential and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email and password are required")
	}
	if !fourDigits.MatchString(password) {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be exactly 4 digits")
	}
	canonical, err := domain.CanonicalEmail(email)
	if err != nil {
		return nil, err
	}

	coordinator, err := s.accounts.FindByEmail(ctx, canonical)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up coordinator")
	}

	if bcrypt.CompareHashAndPassword([]byte(coordinator.CredentialHash), []byte(password)) != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
	}

	signed, err := s.tokens.IssueCoordinatorToken(
		coordinator.ID, coordinator.Email, coordinator.SchoolName, coordinator.RegistrationID,
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return &LoginResult{Token: signed, Coordinator: coordinator}, nil
}

// ForgotPassword queues a credentials notification for the account. The
// credential sent is the derived last-4, not anything stored.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	canonical, err := domain.CanonicalEmail(email)
	if err != nil {
		return err
	}
	coordinator, err := s.accounts.FindByEmail(ctx, canonical)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no account found with this email address")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up coordinator")
	}

	s.notify.Enqueue(notify.Event{
		Kind:            notify.KindCredentials,
		CoordinatorName: coordinator.Name,
		Email:           coordinator.Email,
		SchoolName:      coordinator.SchoolName,
		RegistrationID:  coordinator.RegistrationID,
		Credential:      domain.CredentialFromPhone(coordinator.Phone),
	})
	return nil
}

// GetByID fetches one account.
func (s *Service) GetByID(ctx context.Context, id string) (*models.Coordinator, error) {
	coordinator, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "coordinator not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up coordinator")
	}
	return coordinator, nil
}
