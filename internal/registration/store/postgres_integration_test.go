//go:build integration

package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	coordmodels "github.com/Dibyendu78/Brain-O-Math/internal/coordinator/models"
	coordstore "github.com/Dibyendu78/Brain-O-Math/internal/coordinator/store"
	"github.com/Dibyendu78/Brain-O-Math/internal/registration/models"
	"github.com/Dibyendu78/Brain-O-Math/internal/registration/store"
	"github.com/Dibyendu78/Brain-O-Math/pkg/sentinel"
	"github.com/Dibyendu78/Brain-O-Math/pkg/testutil"
)

type PostgresStoreSuite struct {
	suite.Suite
	registrations *store.PostgresRegistrations
	students      *store.PostgresStudents
	coordinators  *coordstore.Postgres
	now           time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration suite in short mode")
	}
	db := testutil.StartPostgres(t)
	suite.Run(t, &PostgresStoreSuite{
		registrations: store.NewPostgresRegistrations(db),
		students:      store.NewPostgresStudents(db),
		coordinators:  coordstore.NewPostgres(db),
		now:           time.Now().UTC().Truncate(time.Microsecond),
	})
}

func (s *PostgresStoreSuite) newCoordinator(email, registrationID string) *coordmodels.Coordinator {
	coordinator, err := coordmodels.New(
		uuid.NewString(), "DAV Public School", "12 Lake Road", "Anita Sharma",
		email, "9876543210", "hash", registrationID, s.now,
	)
	s.Require().NoError(err)
	s.Require().NoError(s.coordinators.Create(context.Background(), coordinator))
	return coordinator
}

func (s *PostgresStoreSuite) openRegistration(email, publicID string) *models.Registration {
	coordinator := s.newCoordinator(email, publicID)
	registration := models.NewRegistration(uuid.NewString(), publicID, coordinator.ID, s.now)
	s.Require().NoError(s.registrations.Create(context.Background(), registration))
	return registration
}

func (s *PostgresStoreSuite) TestRegistrationRoundTrip() {
	ctx := context.Background()
	registration := s.openRegistration("roundtrip@example.com", "REG20257001")

	found, err := s.registrations.FindByPublicID(ctx, "REG20257001")
	s.Require().NoError(err)
	s.Equal(registration.ID, found.ID)
	s.Empty(found.StudentIDs)
	s.Equal(models.PaymentPending, found.PaymentStatus)

	_, err = s.registrations.FindByID(ctx, uuid.NewString())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestCoordinatorUniqueness() {
	s.newCoordinator("unique@example.com", "REG20257002")
	duplicate, err := coordmodels.New(
		uuid.NewString(), "Other School", "", "Someone Else",
		"unique@example.com", "9876500000", "hash", "REG20257003", s.now,
	)
	s.Require().NoError(err)
	err = s.coordinators.Create(context.Background(), duplicate)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestExecuteSerializesRosterWrites() {
	ctx := context.Background()
	registration := s.openRegistration("serialize@example.com", "REG20257004")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.registrations.Execute(ctx, registration.ID,
				func(r *models.Registration) error { return r.CanModifyStudents() },
				func(r *models.Registration) error {
					r.AddStudent(fmt.Sprintf("student-%d", i), 70, s.now)
					return nil
				})
			s.Require().NoError(err)
		}(i)
	}
	wg.Wait()

	stored, err := s.registrations.FindByID(ctx, registration.ID)
	s.Require().NoError(err)
	s.Len(stored.StudentIDs, 20)
	s.Equal(20*70, stored.TotalAmount)
}

func (s *PostgresStoreSuite) TestUTRUniqueIndex() {
	ctx := context.Background()
	first := s.openRegistration("utr1@example.com", "REG20257005")
	second := s.openRegistration("utr2@example.com", "REG20257006")

	submit := func(registration *models.Registration) error {
		_, err := s.registrations.Execute(ctx, registration.ID,
			func(r *models.Registration) error { return nil },
			func(r *models.Registration) error {
				r.AddStudent(uuid.NewString(), 70, s.now)
				r.ApplyPaymentSubmission("555566667777", s.now)
				return nil
			})
		return err
	}

	s.Require().NoError(submit(first))
	s.Require().ErrorIs(submit(second), sentinel.ErrConflict)

	found, err := s.registrations.FindByUTR(ctx, "555566667777")
	s.Require().NoError(err)
	s.Equal(first.ID, found.ID)
}

func (s *PostgresStoreSuite) TestStudentLifecycle() {
	ctx := context.Background()
	registration := s.openRegistration("students@example.com", "REG20257007")

	first, err := models.NewStudent(uuid.NewString(), "BOMO007001", registration.ID,
		models.Enrollment{Name: "Ravi Kumar", Grade: 5, Section: "A", Subjects: "math", ParentContact: "9876543210"}, s.now)
	s.Require().NoError(err)
	second, err := models.NewStudent(uuid.NewString(), "BOMO007002", registration.ID,
		models.Enrollment{Name: "Meena Patel", Grade: 9, Subjects: "both"}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.students.CreateBatch(ctx, []*models.Student{first, second}))

	ordered, err := s.students.FindByIDs(ctx, []string{second.ID, first.ID})
	s.Require().NoError(err)
	s.Require().Len(ordered, 2)
	s.Equal(second.ID, ordered[0].ID)

	_, err = first.Revise(models.Enrollment{Name: "Ravi Kumar", Grade: 11, Section: "A", Subjects: "both", ParentContact: "9876543210"}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.students.Update(ctx, first))

	reloaded, err := s.students.FindByID(ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(11, reloaded.Grade)
	s.Equal(140, reloaded.Fee)
	s.Equal("E", string(reloaded.Category))

	s.Require().NoError(s.students.UpdateStatusByRegistration(ctx, registration.ID,
		models.StudentVerified, s.now))
	reloaded, err = s.students.FindByID(ctx, second.ID)
	s.Require().NoError(err)
	s.Equal(models.StudentVerified, reloaded.Status)

	max, err := s.students.MaxSequence(ctx)
	s.Require().NoError(err)
	s.GreaterOrEqual(max, int64(7002))

	s.Require().NoError(s.students.Delete(ctx, second.ID))
	_, err = s.students.FindByID(ctx, second.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
