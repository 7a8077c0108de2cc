package services

import (
	"testing"

	"github.com/smarttransit/booking-core/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestPricing_Quote(t *testing.T) {
	pricing := NewPricingService(DefaultAddOnRates(), "MYR")

	t.Run("Seats With Insurance And Boarding Pass", func(t *testing.T) {
		quote := pricing.Quote(50, 2, models.AddOns{Insurance: true, BoardingPass: true})
		assert.Equal(t, 100.0, quote.BaseTotal)
		assert.Equal(t, 6.0, quote.AddOnTotal)
		assert.Equal(t, 106.0, quote.Total)
		assert.Equal(t, "MYR", quote.Currency)
		assert.Equal(t, 2, quote.Seats)
	})

	t.Run("No Add-ons", func(t *testing.T) {
		quote := pricing.Quote(35.5, 3, models.AddOns{})
		assert.Equal(t, 106.5, quote.Total)
		assert.Equal(t, 0.0, quote.AddOnTotal)
	})

	t.Run("Cents Do Not Drift", func(t *testing.T) {
		quote := pricing.Quote(19.99, 3, models.AddOns{Insurance: true, RefundGuarantee: true, BoardingPass: true})
		assert.Equal(t, 59.97, quote.BaseTotal)
		assert.Equal(t, 18.0, quote.AddOnTotal)
		assert.Equal(t, 77.97, quote.Total)
	})

	t.Run("Custom Rates", func(t *testing.T) {
		custom := NewPricingService(AddOnRates{Insurance: 0.10, RefundGuarantee: 0.20, BoardingPass: 0}, "SGD")
		quote := custom.Quote(0.1, 3, models.AddOns{Insurance: true, RefundGuarantee: true})
		assert.Equal(t, 0.3, quote.BaseTotal)
		assert.Equal(t, 0.9, quote.AddOnTotal)
		assert.Equal(t, 1.2, quote.Total)
		assert.Equal(t, "SGD", custom.Currency())
	})
}
