package models

import (
	"time"

	"github.com/Dibyendu78/Brain-O-Math/internal/domain"
	dErrors "github.com/Dibyendu78/Brain-O-Math/pkg/domainerrors"
)

// Coordinator is one school's delegate.
//
// Invariants:
//   - Email is canonical (lowercased) and globally unique
//   - Phone is exactly 10 digits
//   - CredentialHash is a bcrypt hash of the last 4 phone digits, never the
//     raw phone number
//   - RegistrationID is the human-readable identifier printed on all
//     correspondence, unique across coordinators
//
// Accounts are immutable after creation except administratively.
type Coordinator struct {
	ID             string    `json:"id"`
	SchoolName     string    `json:"schoolName"`
	SchoolAddress  string    `json:"schoolAddress"`
	Name           string    `json:"coordinatorName"`
	Email          string    `json:"coordinatorEmail"`
	Phone          string    `json:"coordinatorPhone"`
	CredentialHash string    `json:"-"`
	RegistrationID string    `json:"registrationId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// New validates the immutable fields and constructs a Coordinator. Email
// must already be canonical and the credential already hashed.
func New(id, schoolName, schoolAddress, name, email, phone, credentialHash, registrationID string, now time.Time) (*Coordinator, error) {
	if schoolName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "school name is required")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "coordinator name is required")
	}
	if !domain.ValidPhone(phone) {
		return nil, dErrors.New(dErrors.CodeValidation, "phone must be exactly 10 digits")
	}
	if credentialHash == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "credential hash is required")
	}
	if schoolAddress == "" {
		schoolAddress = "Not provided"
	}
	return &Coordinator{
		ID:             id,
		SchoolName:     schoolName,
		SchoolAddress:  schoolAddress,
		Name:           name,
		Email:          email,
		Phone:          phone,
		CredentialHash: credentialHash,
		RegistrationID: registrationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
