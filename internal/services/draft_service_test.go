package services

import (
	"context"
	"testing"

	"github.com/smarttransit/booking-core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartDraft(t *testing.T) {
	ctx := context.Background()

	t.Run("Normalizes Labels", func(t *testing.T) {
		f := newBookingFixture(t, 30, 30)
		draft, err := f.drafts.StartDraft(ctx, alice.ID, testTripID, []string{" 5a", "5B "})
		require.NoError(t, err)
		assert.Equal(t, []string{"5A", "5B"}, draft.Seats)
		assert.Equal(t, testTripID, draft.TripID)
		assert.True(t, draft.ExpiresAt.After(draft.CreatedAt))
	})

	t.Run("Validation Errors", func(t *testing.T) {
		f := newBookingFixture(t, 30, 30)
		tests := []struct {
			name  string
			seats []string
			code  string
		}{
			{"no seats", nil, models.CodeNoSeatsSelected},
			{"blank label", []string{"1A", "  "}, models.CodeInvalidSeat},
			{"duplicate", []string{"1A", "1a"}, models.CodeInvalidSeat},
			{"outside layout", []string{"11A"}, models.CodeInvalidSeat},
			{"unknown column", []string{"3D"}, models.CodeInvalidSeat},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				_, err := f.drafts.StartDraft(ctx, alice.ID, testTripID, tc.seats)
				require.Error(t, err)
				assert.True(t, models.IsValidation(err))
				assert.Equal(t, tc.code, models.ErrorCode(err))
			})
		}
	})

	t.Run("Unknown Trip", func(t *testing.T) {
		f := newBookingFixture(t, 30, 30)
		_, err := f.drafts.StartDraft(ctx, alice.ID, "missing", []string{"1A"})
		assert.True(t, models.IsNotFound(err))
	})

	t.Run("Trip Not Bookable", func(t *testing.T) {
		f := newBookingFixture(t, 30, 30)
		_, err := f.lifecycle.CompleteTrip(ctx, testTripID)
		require.NoError(t, err)

		_, err = f.drafts.StartDraft(ctx, alice.ID, testTripID, []string{"1A"})
		assert.True(t, models.IsConflict(err))
		assert.Equal(t, models.CodeTripUnavailable, models.ErrorCode(err))
	})

	t.Run("Occupied Seat", func(t *testing.T) {
		f := newBookingFixture(t, 30, 30)
		f.book(t, alice, "5A")

		_, err := f.drafts.StartDraft(ctx, bob.ID, testTripID, []string{"4A", "5A"})
		require.Error(t, err)
		assert.Equal(t, models.CodeSeatConflict, models.ErrorCode(err))
		assert.Equal(t, []string{"5A"}, models.ConflictingSeats(err))
	})

	t.Run("Shared Selection By Default", func(t *testing.T) {
		f := newBookingFixture(t, 30, 30)
		_, err := f.drafts.StartDraft(ctx, alice.ID, testTripID, []string{"5A"})
		require.NoError(t, err)
		_, err = f.drafts.StartDraft(ctx, bob.ID, testTripID, []string{"5A"})
		assert.NoError(t, err)
	})

	t.Run("Seat Held By Another Member", func(t *testing.T) {
		f := newBookingFixture(t, 30, 30)
		f.enableHolds()
		_, err := f.drafts.StartDraft(ctx, alice.ID, testTripID, []string{"5A"})
		require.NoError(t, err)

		_, err = f.drafts.StartDraft(ctx, bob.ID, testTripID, []string{"4A", "5A"})
		assert.True(t, models.IsConflict(err))
		assert.Equal(t, models.CodeSeatHeld, models.ErrorCode(err))
		assert.Equal(t, []string{"5A"}, models.ConflictingSeats(err))
		assert.NotContains(t, err.Error(), "taken")
	})

	t.Run("Restart Releases Previous Holds", func(t *testing.T) {
		f := newBookingFixture(t, 30, 30)
		f.enableHolds()
		_, err := f.drafts.StartDraft(ctx, alice.ID, testTripID, []string{"5A"})
		require.NoError(t, err)
		_, err = f.drafts.StartDraft(ctx, alice.ID, testTripID, []string{"6A"})
		require.NoError(t, err)

		_, err = f.drafts.StartDraft(ctx, bob.ID, testTripID, []string{"5A"})
		assert.NoError(t, err)
	})

	t.Run("Restart Keeps Seats Still Selected", func(t *testing.T) {
		f := newBookingFixture(t, 30, 30)
		f.enableHolds()
		_, err := f.drafts.StartDraft(ctx, alice.ID, testTripID, []string{"5A", "5B"})
		require.NoError(t, err)
		_, err = f.drafts.StartDraft(ctx, alice.ID, testTripID, []string{"5B", "6A"})
		require.NoError(t, err)

		_, err = f.drafts.StartDraft(ctx, bob.ID, testTripID, []string{"5B"})
		assert.Equal(t, models.CodeSeatHeld, models.ErrorCode(err))
		_, err = f.drafts.StartDraft(ctx, bob.ID, testTripID, []string{"5A"})
		assert.NoError(t, err)
	})

	t.Run("Failed Restart Keeps Previous Draft And Holds", func(t *testing.T) {
		f := newBookingFixture(t, 30, 30)
		f.enableHolds()
		_, err := f.drafts.StartDraft(ctx, alice.ID, testTripID, []string{"1A"})
		require.NoError(t, err)
		_, err = f.drafts.StartDraft(ctx, bob.ID, testTripID, []string{"2A"})
		require.NoError(t, err)

		_, err = f.drafts.StartDraft(ctx, alice.ID, testTripID, []string{"2A"})
		require.Equal(t, models.CodeSeatHeld, models.ErrorCode(err))

		draft, err := f.drafts.GetDraft(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"1A"}, draft.Seats)

		_, err = f.drafts.StartDraft(ctx, bob.ID, testTripID, []string{"1A"})
		assert.Equal(t, models.CodeSeatHeld, models.ErrorCode(err), "alice still holds 1A")
	})
}

func TestSetPassengerDetails(t *testing.T) {
	ctx := context.Background()

	start := func(t *testing.T, seats ...string) *bookingFixture {
		f := newBookingFixture(t, 30, 30)
		_, err := f.drafts.StartDraft(ctx, alice.ID, testTripID, seats)
		require.NoError(t, err)
		return f
	}

	t.Run("Assigns Seats In Selection Order", func(t *testing.T) {
		f := start(t, "5A", "5B")
		draft, err := f.drafts.SetPassengerDetails(ctx, alice.ID, []models.PassengerInput{
			{Name: "Aisyah", Age: 30},
			{Name: "Hafiz", Age: 8, TicketType: models.TicketTypeChild},
		}, models.AddOns{Insurance: true})
		require.NoError(t, err)

		require.Len(t, draft.Passengers, 2)
		assert.Equal(t, "5A", draft.Passengers[0].SeatLabel)
		assert.Equal(t, "5B", draft.Passengers[1].SeatLabel)
		assert.Equal(t, models.TicketTypeAdult, draft.Passengers[0].TicketType)
		assert.True(t, draft.AddOns.Insurance)
		assert.True(t, draft.HasPassengers())
	})

	t.Run("Explicit Seats", func(t *testing.T) {
		f := start(t, "5A", "5B")
		draft, err := f.drafts.SetPassengerDetails(ctx, alice.ID, []models.PassengerInput{
			{Name: "Aisyah", Age: 30, SeatLabel: "5b"},
			{Name: "Hafiz", Age: 8, SeatLabel: "5A"},
		}, models.AddOns{})
		require.NoError(t, err)
		assert.Equal(t, "5B", draft.Passengers[0].SeatLabel)
		assert.Equal(t, "5A", draft.Passengers[1].SeatLabel)
	})

	t.Run("Count Mismatch", func(t *testing.T) {
		f := start(t, "5A", "5B")
		_, err := f.drafts.SetPassengerDetails(ctx, alice.ID, []models.PassengerInput{{Name: "Aisyah", Age: 30}}, models.AddOns{})
		assert.Equal(t, models.CodePassengerCountMismatch, models.ErrorCode(err))
	})

	t.Run("Invalid Assignments", func(t *testing.T) {
		f := start(t, "5A", "5B")
		cases := map[string][]models.PassengerInput{
			"mixed":        {{Name: "A", Age: 1, SeatLabel: "5A"}, {Name: "B", Age: 1}},
			"not selected": {{Name: "A", Age: 1, SeatLabel: "5A"}, {Name: "B", Age: 1, SeatLabel: "6A"}},
			"same seat":    {{Name: "A", Age: 1, SeatLabel: "5A"}, {Name: "B", Age: 1, SeatLabel: "5A"}},
			"bad age":      {{Name: "A", Age: 300}, {Name: "B", Age: 1}},
			"no name":      {{Name: " ", Age: 3}, {Name: "B", Age: 1}},
		}
		for name, passengers := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := f.drafts.SetPassengerDetails(ctx, alice.ID, passengers, models.AddOns{})
				require.Error(t, err)
				assert.True(t, models.IsValidation(err))
			})
		}

		draft, err := f.drafts.GetDraft(ctx, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, draft.Passengers)
	})

	t.Run("Without Draft", func(t *testing.T) {
		f := newBookingFixture(t, 30, 30)
		_, err := f.drafts.SetPassengerDetails(ctx, alice.ID, []models.PassengerInput{{Name: "A", Age: 1}}, models.AddOns{})
		assert.True(t, models.IsNotFound(err))
		assert.Equal(t, models.CodeDraftNotFound, models.ErrorCode(err))
	})
}

func TestClearDraft(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, 30, 30)
	f.enableHolds()

	require.NoError(t, f.drafts.ClearDraft(ctx, alice.ID))

	_, err := f.drafts.StartDraft(ctx, alice.ID, testTripID, []string{"5A"})
	require.NoError(t, err)
	require.NoError(t, f.drafts.ClearDraft(ctx, alice.ID))

	_, err = f.drafts.GetDraft(ctx, alice.ID)
	assert.Equal(t, models.CodeDraftNotFound, models.ErrorCode(err))

	// the hold went with the draft
	_, err = f.drafts.StartDraft(ctx, bob.ID, testTripID, []string{"5A"})
	assert.NoError(t, err)

	assert.Equal(t, 30, f.availableSeats(t))
}
