package revenue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Dibyendu78/Brain-O-Math/pkg/sentinel"
)

func record(id, registrationID string, amount, students int, verifiedAt time.Time) *Record {
	return &Record{
		ID:             id,
		RegistrationID: registrationID,
		PublicID:       "REG2025" + registrationID,
		CoordinatorID:  "coord-" + registrationID,
		SchoolName:     "Springfield High",
		Amount:         amount,
		StudentCount:   students,
		Outcome:        OutcomeVerified,
		VerifiedAt:     verifiedAt,
	}
}

func TestInMemoryLedger(t *testing.T) {
	ctx := context.Background()
	june := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	july := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)

	t.Run("create is idempotent per registration", func(t *testing.T) {
		s := NewInMemory()
		require.NoError(t, s.CreateIfAbsent(ctx, record("a", "r1", 210, 2, june)))
		require.NoError(t, s.CreateIfAbsent(ctx, record("b", "r1", 999, 9, june)))

		summary, err := s.Summarize(ctx)
		require.NoError(t, err)
		require.Equal(t, 210, summary.TotalAmount)
		require.Equal(t, 1, summary.Registrations)
		require.Equal(t, 2, summary.Students)
	})

	t.Run("delete removes the entry and is safe to repeat", func(t *testing.T) {
		s := NewInMemory()
		require.NoError(t, s.CreateIfAbsent(ctx, record("a", "r1", 210, 2, june)))
		require.NoError(t, s.DeleteByRegistration(ctx, "r1"))
		require.NoError(t, s.DeleteByRegistration(ctx, "r1"))

		_, err := s.FindByRegistration(ctx, "r1")
		require.ErrorIs(t, err, sentinel.ErrNotFound)

		summary, err := s.Summarize(ctx)
		require.NoError(t, err)
		require.Zero(t, summary.TotalAmount)
	})

	t.Run("monthly rolls up newest first", func(t *testing.T) {
		s := NewInMemory()
		require.NoError(t, s.CreateIfAbsent(ctx, record("a", "r1", 70, 1, june)))
		require.NoError(t, s.CreateIfAbsent(ctx, record("b", "r2", 140, 1, june)))
		require.NoError(t, s.CreateIfAbsent(ctx, record("c", "r3", 210, 2, july)))

		rollups, err := s.Monthly(ctx, 12)
		require.NoError(t, err)
		require.Len(t, rollups, 2)
		require.Equal(t, 7, rollups[0].Month)
		require.Equal(t, 210, rollups[0].Amount)
		require.Equal(t, 6, rollups[1].Month)
		require.Equal(t, 210, rollups[1].Amount)
		require.Equal(t, 2, rollups[1].Registrations)
	})

	t.Run("recent and list order newest first", func(t *testing.T) {
		s := NewInMemory()
		require.NoError(t, s.CreateIfAbsent(ctx, record("a", "r1", 70, 1, june)))
		require.NoError(t, s.CreateIfAbsent(ctx, record("b", "r2", 140, 1, july)))

		recent, err := s.Recent(ctx, 1)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		require.Equal(t, "r2", recent[0].RegistrationID)

		page, total, err := s.List(ctx, 2, 1)
		require.NoError(t, err)
		require.Equal(t, 2, total)
		require.Len(t, page, 1)
		require.Equal(t, "r1", page[0].RegistrationID)
	})
}
