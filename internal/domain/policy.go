// Package domain holds the fee and identity policy for the olympiad: pure
// functions deriving a student's category and fee from declared grade and
// subjects, plus the human-readable identifier formats used across the
// system. Nothing here touches storage or transport.
package domain

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	dErrors "github.com/Dibyendu78/Brain-O-Math/pkg/domainerrors"
)

// Subjects is the closed set of subject selections a student may enter.
type Subjects string

const (
	SubjectsMath    Subjects = "math"
	SubjectsScience Subjects = "science"
	SubjectsBoth    Subjects = "both"
)

// ParseSubjects validates and canonicalizes a subject selection.
func ParseSubjects(s string) (Subjects, error) {
	switch Subjects(strings.ToLower(strings.TrimSpace(s))) {
	case SubjectsMath:
		return SubjectsMath, nil
	case SubjectsScience:
		return SubjectsScience, nil
	case SubjectsBoth:
		return SubjectsBoth, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "subjects must be math, science, or both")
	}
}

// Category is the grade band a student competes in.
type Category string

const (
	CategoryA Category = "A" // grades 3-4
	CategoryB Category = "B" // grades 5-6
	CategoryC Category = "C" // grades 7-8
	CategoryD Category = "D" // grades 9-10
	CategoryE Category = "E" // grades 11-12
)

const (
	// FeeSingleSubject is charged per student enrolled in one subject.
	FeeSingleSubject = 70
	// FeeBothSubjects is charged per student enrolled in both subjects.
	FeeBothSubjects = 140

	// MinGrade and MaxGrade bound the grades eligible to compete.
	MinGrade = 3
	MaxGrade = 12
)

// CategoryFor bands a grade into its competition category. Out-of-range
// grades are rejected outright; there is no default band.
func CategoryFor(grade int) (Category, error) {
	switch {
	case grade >= 3 && grade <= 4:
		return CategoryA, nil
	case grade >= 5 && grade <= 6:
		return CategoryB, nil
	case grade >= 7 && grade <= 8:
		return CategoryC, nil
	case grade >= 9 && grade <= 10:
		return CategoryD, nil
	case grade >= 11 && grade <= 12:
		return CategoryE, nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "grade must be between %d and %d", MinGrade, MaxGrade)
	}
}

// FeeFor returns the fee owed for a subject selection. Subjects must already
// be parsed; an unknown value charges the single-subject fee and never
// occurs past validation.
func FeeFor(subjects Subjects) int {
	if subjects == SubjectsBoth {
		return FeeBothSubjects
	}
	return FeeSingleSubject
}

// registrationIDPrefix matches the identifiers printed on hall tickets and
// hence cannot change within an event cycle.
const registrationIDPrefix = "REG2025"

// studentIDPrefix + 6-digit zero-padded sequence number.
const studentIDPrefix = "BOMO"

// NewRegistrationID generates a human-readable registration identifier with
// a random 4-digit suffix. Collisions are possible; callers retry on a
// uniqueness conflict from the store.
func NewRegistrationID() string {
	return registrationIDPrefix + strconv.Itoa(1000+rand.Intn(9000))
}

// FormatStudentID renders a sequence number as a public student identifier.
func FormatStudentID(n int64) string {
	return fmt.Sprintf("%s%06d", studentIDPrefix, n)
}

// ParseStudentID extracts the sequence number from a public student
// identifier. Used to seed the sequence allocator from existing records.
func ParseStudentID(id string) (int64, bool) {
	rest, ok := strings.CutPrefix(id, studentIDPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

var (
	utrPattern   = regexp.MustCompile(`^[0-9]{12}$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
)

// CanonicalUTR validates and canonicalizes a payment reference: exactly 12
// numeric digits after trimming.
func CanonicalUTR(utr string) (string, error) {
	clean := strings.ToUpper(strings.TrimSpace(utr))
	if clean == "" {
		return "", dErrors.New(dErrors.CodeValidation, "UTR number is required")
	}
	if !utrPattern.MatchString(clean) {
		return "", dErrors.New(dErrors.CodeValidation, "UTR must be exactly 12 numeric digits")
	}
	return clean, nil
}

// ValidPhone reports whether s is exactly 10 digits.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// CanonicalEmail lowercases and trims an email address, rejecting malformed
// input. Emails are compared case-insensitively everywhere.
func CanonicalEmail(s string) (string, error) {
	clean := strings.ToLower(strings.TrimSpace(s))
	if !emailPattern.MatchString(clean) {
		return "", dErrors.New(dErrors.CodeValidation, "invalid email format")
	}
	return clean, nil
}

// CredentialFromPhone derives the plain-text credential issued to a
// coordinator: the last four digits of their phone number. The stored secret
// is always a one-way hash of this value, never the phone itself.
func CredentialFromPhone(phone string) string {
	if len(phone) < 4 {
		return phone
	}
	return phone[len(phone)-4:]
}
