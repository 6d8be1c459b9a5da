// Package notify delivers lifecycle notifications to coordinators.
// Delivery is best-effort and always decoupled from the request path: the
// HTTP response is produced before the dispatch attempt begins, and a failed
// or dropped notification is logged and counted, never surfaced to the
// caller.
package notify

import "fmt"

// Kind identifies a lifecycle event a coordinator is told about.
type Kind string

const (
	// KindWelcome is sent after signup with the assigned registration ID.
	KindWelcome Kind = "coordinator_welcome"
	// KindCredentials re-sends login credentials on a forgot-password request.
	KindCredentials Kind = "coordinator_credentials"
	// KindSubmissionReceived confirms a payment reference was recorded.
	KindSubmissionReceived Kind = "submission_received"
	// KindPaymentVerified tells the coordinator their payment was approved.
	KindPaymentVerified Kind = "payment_verified"
	// KindPaymentRejected tells the coordinator their payment was rejected.
	KindPaymentRejected Kind = "payment_rejected"
)

// Event carries everything the template needs; it holds copies, not
// references, so rendering never races with the aggregate.
type Event struct {
	Kind            Kind
	CoordinatorName string
	Email           string
	SchoolName      string
	RegistrationID  string
	Credential      string
	StudentCount    int
	TotalAmount     int
}

// Message is a rendered notification ready for a Sender.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Render produces the message for an event. One template component
// parameterized by kind; the per-kind mailers this replaces differed only in
// subject line and closing paragraph.
func Render(e Event) Message {
	m := Message{To: e.Email}
	switch e.Kind {
	case KindWelcome:
		m.Subject = "Welcome to Brain-O-Math 2025"
		m.Body = fmt.Sprintf(
			"Dear %s,\n\nYour school %s is registered. Registration ID: %s.\nYour login password is the last 4 digits of your phone number.\n",
			e.CoordinatorName, e.SchoolName, e.RegistrationID)
	case KindCredentials:
		m.Subject = "Your Brain-O-Math login credentials"
		m.Body = fmt.Sprintf(
			"Dear %s,\n\nRegistration ID: %s\nPassword: %s\n",
			e.CoordinatorName, e.RegistrationID, e.Credential)
	case KindSubmissionReceived:
		m.Subject = "Payment reference received"
		m.Body = fmt.Sprintf(
			"Dear %s,\n\nWe received your payment reference for registration %s covering %d student(s), total %d.\nOur team will verify it shortly.\n",
			e.CoordinatorName, e.RegistrationID, e.StudentCount, e.TotalAmount)
	case KindPaymentVerified:
		m.Subject = "Payment verified - registration confirmed"
		m.Body = fmt.Sprintf(
			"Dear %s,\n\nYour payment for registration %s (%d student(s), total %d) has been verified. Your students are confirmed for the olympiad.\n",
			e.CoordinatorName, e.RegistrationID, e.StudentCount, e.TotalAmount)
	case KindPaymentRejected:
		m.Subject = "Payment could not be verified"
		m.Body = fmt.Sprintf(
			"Dear %s,\n\nWe could not verify the payment for registration %s. Please contact the organizing team with your bank reference.\n",
			e.CoordinatorName, e.RegistrationID)
	default:
		m.Subject = "Brain-O-Math notification"
		m.Body = fmt.Sprintf("Dear %s,\n\nThere is an update on registration %s.\n", e.CoordinatorName, e.RegistrationID)
	}
	return m
}
