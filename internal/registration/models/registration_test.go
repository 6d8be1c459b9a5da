package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	dErrors "github.com/Dibyendu78/Brain-O-Math/pkg/domainerrors"
)

var testTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func TestPaymentTransitions(t *testing.T) {
	cases := []struct {
		from    PaymentStatus
		to      PaymentStatus
		allowed bool
	}{
		{PaymentPending, PaymentSubmitted, true},
		{PaymentPending, PaymentVerified, false},
		{PaymentPending, PaymentRejected, false},
		{PaymentSubmitted, PaymentVerified, true},
		{PaymentSubmitted, PaymentRejected, true},
		{PaymentSubmitted, PaymentPending, false},
		{PaymentVerified, PaymentRejected, true},
		{PaymentVerified, PaymentSubmitted, false},
		{PaymentRejected, PaymentVerified, true},
		{PaymentRejected, PaymentPending, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestApprovalTransitions(t *testing.T) {
	require.True(t, ApprovalPending.CanTransitionTo(ApprovalApproved))
	require.True(t, ApprovalPending.CanTransitionTo(ApprovalRejected))
	require.True(t, ApprovalApproved.CanTransitionTo(ApprovalRejected))
	require.True(t, ApprovalRejected.CanTransitionTo(ApprovalApproved))
	require.False(t, ApprovalApproved.CanTransitionTo(ApprovalPending))
	require.False(t, ApprovalRejected.CanTransitionTo(ApprovalPending))
}

func TestStudentTransitions(t *testing.T) {
	require.True(t, StudentPending.CanTransitionTo(StudentVerified))
	require.True(t, StudentVerified.CanTransitionTo(StudentRejected))
	require.True(t, StudentRejected.CanTransitionTo(StudentVerified))
	require.False(t, StudentVerified.CanTransitionTo(StudentPending))

	require.Equal(t, StudentVerified, StudentStatusFor(ApprovalApproved))
	require.Equal(t, StudentRejected, StudentStatusFor(ApprovalRejected))
	require.Equal(t, StudentPending, StudentStatusFor(ApprovalPending))
}

func TestRegistrationRoster(t *testing.T) {
	t.Run("total tracks adds and removes", func(t *testing.T) {
		r := NewRegistration("reg-1", "REG20251234", "coord-1", testTime)
		r.AddStudent("s1", 70, testTime)
		r.AddStudent("s2", 140, testTime)
		r.AddStudent("s3", 70, testTime)
		require.Equal(t, 280, r.TotalAmount)

		require.True(t, r.RemoveStudent("s2", 140, testTime))
		require.Equal(t, 140, r.TotalAmount)
		require.Equal(t, []string{"s1", "s3"}, r.StudentIDs)
	})

	t.Run("removing an unknown student is a no-op", func(t *testing.T) {
		r := NewRegistration("reg-1", "REG20251234", "coord-1", testTime)
		r.AddStudent("s1", 70, testTime)
		require.False(t, r.RemoveStudent("missing", 70, testTime))
		require.Equal(t, 70, r.TotalAmount)
	})

	t.Run("position resolves against the ordered roster", func(t *testing.T) {
		r := NewRegistration("reg-1", "REG20251234", "coord-1", testTime)
		r.AddStudent("s1", 70, testTime)
		r.AddStudent("s2", 140, testTime)

		id, err := r.StudentIDAt(1)
		require.NoError(t, err)
		require.Equal(t, "s2", id)

		_, err = r.StudentIDAt(2)
		require.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
		_, err = r.StudentIDAt(-1)
		require.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestPaymentLock(t *testing.T) {
	t.Run("roster open while pending", func(t *testing.T) {
		r := NewRegistration("reg-1", "REG20251234", "coord-1", testTime)
		require.NoError(t, r.CanModifyStudents())
	})

	t.Run("roster locked once submitted", func(t *testing.T) {
		r := NewRegistration("reg-1", "REG20251234", "coord-1", testTime)
		r.AddStudent("s1", 70, testTime)
		require.NoError(t, r.CanSubmitPayment())
		r.ApplyPaymentSubmission("123456789012", testTime)

		err := r.CanModifyStudents()
		require.True(t, dErrors.HasCode(err, dErrors.CodeLocked))
		require.Equal(t, PaymentSubmitted, r.PaymentStatus)
		require.Equal(t, "123456789012", r.UTR)
		require.NotNil(t, r.PaymentDate)
	})

	t.Run("roster stays locked after rejection", func(t *testing.T) {
		r := NewRegistration("reg-1", "REG20251234", "coord-1", testTime)
		r.AddStudent("s1", 70, testTime)
		r.ApplyPaymentSubmission("123456789012", testTime)
		r.PaymentStatus = PaymentRejected
		err := r.CanModifyStudents()
		require.True(t, dErrors.HasCode(err, dErrors.CodeLocked))
	})

	t.Run("empty roster cannot submit", func(t *testing.T) {
		r := NewRegistration("reg-1", "REG20251234", "coord-1", testTime)
		err := r.CanSubmitPayment()
		require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("second submission conflicts", func(t *testing.T) {
		r := NewRegistration("reg-1", "REG20251234", "coord-1", testTime)
		r.AddStudent("s1", 70, testTime)
		r.ApplyPaymentSubmission("123456789012", testTime)
		err := r.CanSubmitPayment()
		require.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func enrollment(name string, grade int, section, subjects string) Enrollment {
	return Enrollment{Name: name, Grade: grade, Section: section, Subjects: subjects}
}

func TestNewStudent(t *testing.T) {
	t.Run("derives category and fee", func(t *testing.T) {
		s, err := NewStudent("id-1", "BOMO000001", "reg-1", enrollment("Ravi Kumar", 7, "B", "both"), testTime)
		require.NoError(t, err)
		require.Equal(t, "C", string(s.Category))
		require.Equal(t, 140, s.Fee)
		require.Equal(t, StudentPending, s.Status)
	})

	t.Run("rejects out-of-range grade", func(t *testing.T) {
		_, err := NewStudent("id-1", "BOMO000001", "reg-1", enrollment("Ravi Kumar", 2, "", "math"), testTime)
		require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = NewStudent("id-1", "BOMO000001", "reg-1", enrollment("Ravi Kumar", 13, "", "math"), testTime)
		require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects unknown subjects", func(t *testing.T) {
		_, err := NewStudent("id-1", "BOMO000001", "reg-1", enrollment("Ravi Kumar", 5, "", "history"), testTime)
		require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewStudent("id-1", "BOMO000001", "reg-1", enrollment("", 5, "", "math"), testTime)
		require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects short parent contact", func(t *testing.T) {
		in := enrollment("Ravi Kumar", 5, "", "math")
		in.ParentContact = "98765"
		_, err := NewStudent("id-1", "BOMO000001", "reg-1", in, testTime)
		require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("accepts ten-digit parent contact", func(t *testing.T) {
		in := enrollment("Ravi Kumar", 5, "", "math")
		in.ParentName = "Sunita Kumar"
		in.ParentContact = "9876543210"
		s, err := NewStudent("id-1", "BOMO000001", "reg-1", in, testTime)
		require.NoError(t, err)
		require.Equal(t, "Sunita Kumar", s.ParentName)
		require.Equal(t, "9876543210", s.ParentContact)
	})
}

func TestStudentRevise(t *testing.T) {
	t.Run("returns the fee delta", func(t *testing.T) {
		s, err := NewStudent("id-1", "BOMO000001", "reg-1", enrollment("Ravi Kumar", 5, "", "math"), testTime)
		require.NoError(t, err)
		require.Equal(t, 70, s.Fee)

		delta, err := s.Revise(enrollment("Ravi Kumar", 9, "A", "both"), testTime)
		require.NoError(t, err)
		require.Equal(t, 70, delta)
		require.Equal(t, 140, s.Fee)
		require.Equal(t, "D", string(s.Category))
	})

	t.Run("invalid revision leaves the student untouched", func(t *testing.T) {
		s, err := NewStudent("id-1", "BOMO000001", "reg-1", enrollment("Ravi Kumar", 5, "", "math"), testTime)
		require.NoError(t, err)

		_, err = s.Revise(enrollment("Ravi Kumar", 1, "", "math"), testTime)
		require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		require.Equal(t, 5, s.Grade)
		require.Equal(t, 70, s.Fee)
	})
}
