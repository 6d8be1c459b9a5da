// Package models holds the registration aggregate and its state machines.
//
// A registration belongs to one coordinator and collects students, a running
// total, and a payment lifecycle. State changes are expressed as
// validate-then-apply pairs so stores can run both under one lock.
package models

import (
	"regexp"
	"time"

	"github.com/Dibyendu78/Brain-O-Math/internal/domain"
	dErrors "github.com/Dibyendu78/Brain-O-Math/pkg/domainerrors"
)

// PaymentStatus tracks the payment lifecycle of a registration.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSubmitted PaymentStatus = "submitted"
	PaymentVerified  PaymentStatus = "verified"
	PaymentRejected  PaymentStatus = "rejected"
)

// paymentTransitions is the full transition table. A submitted reference can
// be verified or rejected, and a review decision can be flipped, but nothing
// ever returns to pending or submitted.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:   {PaymentSubmitted},
	PaymentSubmitted: {PaymentVerified, PaymentRejected},
	PaymentVerified:  {PaymentRejected},
	PaymentRejected:  {PaymentVerified},
}

// CanTransitionTo reports whether the payment status may move to target.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// ValidPaymentStatus reports whether s names a known payment status.
func ValidPaymentStatus(s string) bool {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentSubmitted, PaymentVerified, PaymentRejected:
		return true
	}
	return false
}

// ApprovalStatus tracks the admin decision on a registration.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

var approvalTransitions = map[ApprovalStatus][]ApprovalStatus{
	ApprovalPending:  {ApprovalApproved, ApprovalRejected},
	ApprovalApproved: {ApprovalRejected},
	ApprovalRejected: {ApprovalApproved},
}

// CanTransitionTo reports whether the approval status may move to target.
func (s ApprovalStatus) CanTransitionTo(target ApprovalStatus) bool {
	for _, next := range approvalTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// ValidApprovalStatus reports whether s names a known approval status.
func ValidApprovalStatus(s string) bool {
	switch ApprovalStatus(s) {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// Registration is the aggregate root: one per coordinator, carrying the
// ordered student roster, the server-computed total, and the payment state.
type Registration struct {
	ID            string         `json:"id"`
	PublicID      string         `json:"registrationId"`
	CoordinatorID string         `json:"coordinatorId"`
	StudentIDs    []string       `json:"-"`
	TotalAmount   int            `json:"totalAmount"`
	PaymentStatus PaymentStatus  `json:"paymentStatus"`
	Approval      ApprovalStatus `json:"status"`
	UTR           string         `json:"utrNumber,omitempty"`
	PaymentDate   *time.Time     `json:"paymentDate,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// NewRegistration opens an empty registration for a coordinator.
func NewRegistration(id, publicID, coordinatorID string, now time.Time) *Registration {
	return &Registration{
		ID:            id,
		PublicID:      publicID,
		CoordinatorID: coordinatorID,
		StudentIDs:    []string{},
		PaymentStatus: PaymentPending,
		Approval:      ApprovalPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CanModifyStudents rejects roster changes once a payment reference has
// been submitted. Rejection does not reopen the roster: the submitted
// total and UTR stay what the admin decided on.
func (r *Registration) CanModifyStudents() error {
	if r.PaymentStatus == PaymentPending {
		return nil
	}
	return dErrors.New(dErrors.CodeLocked,
		"registration is locked: payment has already been submitted")
}

// CanSubmitPayment checks the reference may be recorded: the roster must be
// non-empty and the payment not already submitted or decided.
func (r *Registration) CanSubmitPayment() error {
	if len(r.StudentIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation,
			"cannot submit payment for a registration with no students")
	}
	if !r.PaymentStatus.CanTransitionTo(PaymentSubmitted) {
		return dErrors.New(dErrors.CodeConflict,
			"payment has already been submitted for this registration")
	}
	return nil
}

// ApplyPaymentSubmission records the reference. Callers validate first.
func (r *Registration) ApplyPaymentSubmission(utr string, now time.Time) {
	r.UTR = utr
	r.PaymentStatus = PaymentSubmitted
	r.PaymentDate = &now
	r.UpdatedAt = now
}

// AddStudent appends the student and grows the total.
func (r *Registration) AddStudent(studentID string, fee int, now time.Time) {
	r.StudentIDs = append(r.StudentIDs, studentID)
	r.TotalAmount += fee
	r.UpdatedAt = now
}

// AdjustTotal applies a fee delta after a student edit.
func (r *Registration) AdjustTotal(delta int, now time.Time) {
	r.TotalAmount += delta
	r.UpdatedAt = now
}

// RemoveStudent drops the student and shrinks the total. Returns false when
// the student is not on the roster.
func (r *Registration) RemoveStudent(studentID string, fee int, now time.Time) bool {
	for i, id := range r.StudentIDs {
		if id == studentID {
			r.StudentIDs = append(r.StudentIDs[:i], r.StudentIDs[i+1:]...)
			r.TotalAmount -= fee
			r.UpdatedAt = now
			return true
		}
	}
	return false
}

// StudentIDAt resolves a position on the ordered roster.
func (r *Registration) StudentIDAt(index int) (string, error) {
	if index < 0 || index >= len(r.StudentIDs) {
		return "", dErrors.New(dErrors.CodeNotFound, "no student at this position")
	}
	return r.StudentIDs[index], nil
}

// StudentStatus is the per-student verification state, cascaded from the
// registration decision or set individually by an admin.
type StudentStatus string

const (
	StudentPending  StudentStatus = "pending"
	StudentVerified StudentStatus = "verified"
	StudentRejected StudentStatus = "rejected"
)

var studentTransitions = map[StudentStatus][]StudentStatus{
	StudentPending:  {StudentVerified, StudentRejected},
	StudentVerified: {StudentRejected},
	StudentRejected: {StudentVerified},
}

// CanTransitionTo reports whether the student status may move to target.
func (s StudentStatus) CanTransitionTo(target StudentStatus) bool {
	for _, next := range studentTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// ValidStudentStatus reports whether s names a known student status.
func ValidStudentStatus(s string) bool {
	switch StudentStatus(s) {
	case StudentPending, StudentVerified, StudentRejected:
		return true
	}
	return false
}

// StudentStatusFor maps a registration decision onto the student state the
// cascade applies.
func StudentStatusFor(decision ApprovalStatus) StudentStatus {
	switch decision {
	case ApprovalApproved:
		return StudentVerified
	case ApprovalRejected:
		return StudentRejected
	}
	return StudentPending
}

// Student is one enrolled participant. Fee and category are always derived
// on the server from grade and subjects, never taken from the client.
type Student struct {
	ID             string          `json:"id"`
	PublicID       string          `json:"studentId"`
	RegistrationID string          `json:"-"`
	Name           string          `json:"name"`
	Grade          int             `json:"class"`
	Section        string          `json:"section,omitempty"`
	Subjects       domain.Subjects `json:"subjects"`
	Category       domain.Category `json:"category"`
	Fee            int             `json:"fee"`
	ParentName     string          `json:"parentName,omitempty"`
	ParentContact  string          `json:"parentContact,omitempty"`
	Status         StudentStatus   `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Enrollment carries the coordinator-supplied fields for one student.
// Category and fee never appear here.
type Enrollment struct {
	Name          string
	Grade         int
	Section       string
	Subjects      string
	ParentName    string
	ParentContact string
}

var parentContactPattern = regexp.MustCompile(`^[0-9]{10}$`)

func (e Enrollment) validate() (domain.Subjects, domain.Category, error) {
	if e.Name == "" {
		return "", "", dErrors.New(dErrors.CodeValidation, "student name is required")
	}
	parsed, err := domain.ParseSubjects(e.Subjects)
	if err != nil {
		return "", "", err
	}
	category, err := domain.CategoryFor(e.Grade)
	if err != nil {
		return "", "", err
	}
	if e.ParentContact != "" && !parentContactPattern.MatchString(e.ParentContact) {
		return "", "", dErrors.New(dErrors.CodeValidation, "parent contact must be exactly 10 digits")
	}
	return parsed, category, nil
}

// Validate checks every field and returns the derived fee, without
// building a record.
func (e Enrollment) Validate() (int, error) {
	parsed, _, err := e.validate()
	if err != nil {
		return 0, err
	}
	return domain.FeeFor(parsed), nil
}

// NewStudent validates the enrollment input and derives category and fee.
func NewStudent(id, publicID, registrationID string, in Enrollment, now time.Time) (*Student, error) {
	parsed, category, err := in.validate()
	if err != nil {
		return nil, err
	}
	return &Student{
		ID:             id,
		PublicID:       publicID,
		RegistrationID: registrationID,
		Name:           in.Name,
		Grade:          in.Grade,
		Section:        in.Section,
		Subjects:       parsed,
		Category:       category,
		Fee:            domain.FeeFor(parsed),
		ParentName:     in.ParentName,
		ParentContact:  in.ParentContact,
		Status:         StudentPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Revise re-validates the editable fields and re-derives category and fee.
// Returns the fee delta against the previous fee.
func (s *Student) Revise(in Enrollment, now time.Time) (int, error) {
	parsed, category, err := in.validate()
	if err != nil {
		return 0, err
	}
	previousFee := s.Fee
	s.Name = in.Name
	s.Grade = in.Grade
	s.Section = in.Section
	s.Subjects = parsed
	s.Category = category
	s.Fee = domain.FeeFor(parsed)
	s.ParentName = in.ParentName
	s.ParentContact = in.ParentContact
	s.UpdatedAt = now
	return s.Fee - previousFee, nil
}
