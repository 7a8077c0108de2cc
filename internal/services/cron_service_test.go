package services

import (
	"testing"
	"time"

	"github.com/smarttransit/booking-core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronService_RunExpirePendingNow(t *testing.T) {
	f := newBookingFixture(t, 30, 30)
	f.bookings.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale := f.book(t, alice, "1A")

	cron := NewCronService(f.lifecycle, "0 * * * * *", 30*time.Minute, testLogger())

	count, err := cron.RunExpirePendingNow()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, models.BookingStatusCancelled, f.booking(t, stale.ID).Status)
	assert.Equal(t, 30, f.availableSeats(t))

	status := cron.GetJobStatus()
	last := status["last_sweep"].(map[string]interface{})
	assert.Equal(t, 1, last["expired"])
	assert.Contains(t, last, "ran_at")
	assert.NotContains(t, last, "error")
	assert.Equal(t, "30m0s", status["payment_timeout"])
}

func TestCronService_StartStop(t *testing.T) {
	f := newBookingFixture(t, 30, 30)

	t.Run("Scheduled", func(t *testing.T) {
		cron := NewCronService(f.lifecycle, "0 */5 * * * *", 30*time.Minute, testLogger())
		require.NoError(t, cron.Start())
		defer cron.Stop()

		status := cron.GetJobStatus()
		assert.Equal(t, true, status["running"])
		assert.Equal(t, 1, status["job_count"])
	})

	t.Run("Disabled", func(t *testing.T) {
		cron := NewCronService(f.lifecycle, "0 */5 * * * *", 0, testLogger())
		require.NoError(t, cron.Start())
		defer cron.Stop()

		assert.Equal(t, 0, cron.GetJobStatus()["job_count"])
		count, err := cron.RunExpirePendingNow()
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("Bad Schedule", func(t *testing.T) {
		cron := NewCronService(f.lifecycle, "every tuesday", 30*time.Minute, testLogger())
		assert.Error(t, cron.Start())
	})
}

func TestCronService_SweepSkipsFreshBookings(t *testing.T) {
	f := newBookingFixture(t, 30, 30)
	f.book(t, alice, "1A")

	cron := NewCronService(f.lifecycle, "0 * * * * *", 30*time.Minute, testLogger())
	count, err := cron.RunExpirePendingNow()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 29, f.availableSeats(t))
}
