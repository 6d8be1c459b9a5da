package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dibyendu78/Brain-O-Math/internal/coordinator/store"
	"github.com/Dibyendu78/Brain-O-Math/internal/notify"
	dErrors "github.com/Dibyendu78/Brain-O-Math/pkg/domainerrors"
)

type stubIssuer struct{ token string }

func (s stubIssuer) IssueCoordinatorToken(coordinatorID, email, schoolName, registrationID string) (string, error) {
	return s.token, nil
}

type capturingDispatcher struct{ events []notify.Event }

func (c *capturingDispatcher) Enqueue(e notify.Event) bool {
	c.events = append(c.events, e)
	return true
}

func newService(t *testing.T) (*Service, *capturingDispatcher) {
	t.Helper()
	dispatcher := &capturingDispatcher{}
	svc := New(store.NewInMemory(), stubIssuer{token: "signed"}, dispatcher, slog.Default())
	return svc, dispatcher
}

func validInput() SignupInput {
	return SignupInput{
		SchoolName: "DAV Public School",
		Name:       "Anita Sharma",
		Email:      "anita@davschool.edu",
		Phone:      "9876543210",
	}
}

func TestSignup(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account with credential derived from phone", func(t *testing.T) {
		svc, dispatcher := newService(t)

		coordinator, err := svc.Signup(ctx, validInput())
		require.NoError(t, err)
		require.NotEmpty(t, coordinator.ID)
		require.Regexp(t, `^REG2025[0-9]{4}$`, coordinator.RegistrationID)
		require.Equal(t, "Not provided", coordinator.SchoolAddress)

		// password is the last four digits of the phone number
		require.NoError(t, bcrypt.CompareHashAndPassword(
			[]byte(coordinator.CredentialHash), []byte("3210")))

		require.Len(t, dispatcher.events, 1)
		require.Equal(t, notify.KindWelcome, dispatcher.events[0].Kind)
		require.Equal(t, coordinator.RegistrationID, dispatcher.events[0].RegistrationID)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Signup(ctx, validInput())
		require.NoError(t, err)

		in := validInput()
		in.SchoolName = "Another School"
		_, err = svc.Signup(ctx, in)
		require.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("normalizes mixed-case email", func(t *testing.T) {
		svc, _ := newService(t)
		in := validInput()
		in.Email = "  Anita@DAVSchool.edu "
		coordinator, err := svc.Signup(ctx, in)
		require.NoError(t, err)
		require.Equal(t, "anita@davschool.edu", coordinator.Email)
	})

	t.Run("rejects bad phone", func(t *testing.T) {
		svc, _ := newService(t)
		in := validInput()
		in.Phone = "98765"
		_, err := svc.Signup(ctx, in)
		require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("issues token for correct credential", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Signup(ctx, validInput())
		require.NoError(t, err)

		result, err := svc.Login(ctx, "anita@davschool.edu", "3210")
		require.NoError(t, err)
		require.Equal(t, "signed", result.Token)
		require.Equal(t, "anita@davschool.edu", result.Coordinator.Email)
	})

	t.Run("rejects wrong credential", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Signup(ctx, validInput())
		require.NoError(t, err)

		_, err = svc.Login(ctx, "anita@davschool.edu", "9999")
		require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects unknown email with the same error as a wrong credential", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Login(ctx, "nobody@example.com", "1234")
		require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects non-numeric credential before the lookup", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Login(ctx, "anita@davschool.edu", "abcd")
		require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestForgotPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("queues credentials for a known account", func(t *testing.T) {
		svc, dispatcher := newService(t)
		_, err := svc.Signup(ctx, validInput())
		require.NoError(t, err)
		dispatcher.events = nil

		require.NoError(t, svc.ForgotPassword(ctx, "anita@davschool.edu"))
		require.Len(t, dispatcher.events, 1)
		require.Equal(t, notify.KindCredentials, dispatcher.events[0].Kind)
		require.Equal(t, "3210", dispatcher.events[0].Credential)
	})

	t.Run("reports unknown email", func(t *testing.T) {
		svc, _ := newService(t)
		err := svc.ForgotPassword(ctx, "nobody@example.com")
		require.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestEnsureAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("returns existing account for a seen email", func(t *testing.T) {
		svc, dispatcher := newService(t)
		first, err := svc.Signup(ctx, validInput())
		require.NoError(t, err)
		dispatcher.events = nil

		in := validInput()
		in.SchoolName = "Renamed School"
		second, err := svc.EnsureAccount(ctx, in)
		require.NoError(t, err)
		require.Equal(t, first.ID, second.ID)
		require.Equal(t, first.SchoolName, second.SchoolName)
		require.Empty(t, dispatcher.events)
	})

	t.Run("creates account for an unseen email without a welcome", func(t *testing.T) {
		svc, dispatcher := newService(t)
		coordinator, err := svc.EnsureAccount(ctx, validInput())
		require.NoError(t, err)
		require.NotEmpty(t, coordinator.RegistrationID)
		require.Empty(t, dispatcher.events)
	})
}
