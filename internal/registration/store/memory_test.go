package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Dibyendu78/Brain-O-Math/internal/registration/models"
	"github.com/Dibyendu78/Brain-O-Math/pkg/sentinel"
)

var storeTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func TestInMemoryRegistrations(t *testing.T) {
	ctx := context.Background()

	t.Run("one registration per coordinator", func(t *testing.T) {
		s := NewInMemoryRegistrations()
		require.NoError(t, s.Create(ctx, models.NewRegistration("r1", "REG20251111", "c1", storeTime)))
		err := s.Create(ctx, models.NewRegistration("r2", "REG20252222", "c1", storeTime))
		require.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("public id is unique", func(t *testing.T) {
		s := NewInMemoryRegistrations()
		require.NoError(t, s.Create(ctx, models.NewRegistration("r1", "REG20251111", "c1", storeTime)))
		err := s.Create(ctx, models.NewRegistration("r2", "REG20251111", "c2", storeTime))
		require.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("reads hand out clones", func(t *testing.T) {
		s := NewInMemoryRegistrations()
		require.NoError(t, s.Create(ctx, models.NewRegistration("r1", "REG20251111", "c1", storeTime)))

		first, err := s.FindByID(ctx, "r1")
		require.NoError(t, err)
		first.StudentIDs = append(first.StudentIDs, "mutated")
		first.TotalAmount = 999

		second, err := s.FindByID(ctx, "r1")
		require.NoError(t, err)
		require.Empty(t, second.StudentIDs)
		require.Zero(t, second.TotalAmount)
	})

	t.Run("execute rejects without persisting", func(t *testing.T) {
		s := NewInMemoryRegistrations()
		require.NoError(t, s.Create(ctx, models.NewRegistration("r1", "REG20251111", "c1", storeTime)))

		_, err := s.Execute(ctx, "r1",
			func(r *models.Registration) error { return errors.New("nope") },
			func(r *models.Registration) error {
				r.TotalAmount = 999
				return nil
			})
		require.Error(t, err)

		stored, err := s.FindByID(ctx, "r1")
		require.NoError(t, err)
		require.Zero(t, stored.TotalAmount)
	})

	t.Run("concurrent executes serialize", func(t *testing.T) {
		s := NewInMemoryRegistrations()
		require.NoError(t, s.Create(ctx, models.NewRegistration("r1", "REG20251111", "c1", storeTime)))

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.Execute(ctx, "r1",
					func(r *models.Registration) error { return nil },
					func(r *models.Registration) error {
						r.AddStudent(fmt.Sprintf("s%d", i), 70, storeTime)
						return nil
					})
				require.NoError(t, err)
			}(i)
		}
		wg.Wait()

		stored, err := s.FindByID(ctx, "r1")
		require.NoError(t, err)
		require.Len(t, stored.StudentIDs, 50)
		require.Equal(t, 50*70, stored.TotalAmount)
	})

	t.Run("find by utr", func(t *testing.T) {
		s := NewInMemoryRegistrations()
		require.NoError(t, s.Create(ctx, models.NewRegistration("r1", "REG20251111", "c1", storeTime)))
		_, err := s.Execute(ctx, "r1",
			func(r *models.Registration) error { return nil },
			func(r *models.Registration) error {
				r.AddStudent("s1", 70, storeTime)
				r.ApplyPaymentSubmission("123456789012", storeTime)
				return nil
			})
		require.NoError(t, err)

		found, err := s.FindByUTR(ctx, "123456789012")
		require.NoError(t, err)
		require.Equal(t, "r1", found.ID)

		_, err = s.FindByUTR(ctx, "000000000000")
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestInMemoryStudents(t *testing.T) {
	ctx := context.Background()

	newStudent := func(t *testing.T, id string, seq int64, regID string) *models.Student {
		t.Helper()
		s, err := models.NewStudent(id, fmt.Sprintf("BOMO%06d", seq), regID,
			models.Enrollment{Name: "Student " + id, Grade: 5, Subjects: "math"}, storeTime)
		require.NoError(t, err)
		return s
	}

	t.Run("find by ids preserves roster order", func(t *testing.T) {
		s := NewInMemoryStudents()
		require.NoError(t, s.Create(ctx, newStudent(t, "a", 1, "r1")))
		require.NoError(t, s.Create(ctx, newStudent(t, "b", 2, "r1")))
		require.NoError(t, s.Create(ctx, newStudent(t, "c", 3, "r1")))

		students, err := s.FindByIDs(ctx, []string{"c", "a", "missing"})
		require.NoError(t, err)
		require.Len(t, students, 2)
		require.Equal(t, "c", students[0].ID)
		require.Equal(t, "a", students[1].ID)
	})

	t.Run("cascade updates only the registration's students", func(t *testing.T) {
		s := NewInMemoryStudents()
		require.NoError(t, s.Create(ctx, newStudent(t, "a", 1, "r1")))
		require.NoError(t, s.Create(ctx, newStudent(t, "b", 2, "r2")))

		require.NoError(t, s.UpdateStatusByRegistration(ctx, "r1", models.StudentVerified, storeTime))

		a, err := s.FindByID(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, models.StudentVerified, a.Status)

		b, err := s.FindByID(ctx, "b")
		require.NoError(t, err)
		require.Equal(t, models.StudentPending, b.Status)
	})

	t.Run("max sequence over issued ids", func(t *testing.T) {
		s := NewInMemoryStudents()
		max, err := s.MaxSequence(ctx)
		require.NoError(t, err)
		require.Zero(t, max)

		require.NoError(t, s.Create(ctx, newStudent(t, "a", 7, "r1")))
		require.NoError(t, s.Create(ctx, newStudent(t, "b", 42, "r1")))

		max, err = s.MaxSequence(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(42), max)
	})

	t.Run("list pages and filters", func(t *testing.T) {
		s := NewInMemoryStudents()
		for i := 1; i <= 5; i++ {
			require.NoError(t, s.Create(ctx, newStudent(t, fmt.Sprintf("id%d", i), int64(i), "r1")))
		}

		page, total, err := s.List(ctx, StudentFilter{RegistrationID: "r1", Page: 2, Limit: 2})
		require.NoError(t, err)
		require.Equal(t, 5, total)
		require.Len(t, page, 2)
		require.Equal(t, "BOMO000003", page[0].PublicID)

		older, err := models.NewStudent("id9", "BOMO000009", "r1",
			models.Enrollment{Name: "Senior", Grade: 11, Subjects: "both"}, storeTime)
		require.NoError(t, err)
		require.NoError(t, s.Create(ctx, older))

		byGrade, total, err := s.List(ctx, StudentFilter{Grade: 11})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Equal(t, "Senior", byGrade[0].Name)
	})
}
