package services

import (
	"math"

	"github.com/smarttransit/booking-core/internal/models"
)

// AddOnRates are flat per-passenger prices for booking extras
type AddOnRates struct {
	Insurance       float64
	RefundGuarantee float64
	BoardingPass    float64
}

// DefaultAddOnRates returns the standard add-on prices
func DefaultAddOnRates() AddOnRates {
	return AddOnRates{Insurance: 2.00, RefundGuarantee: 3.00, BoardingPass: 1.00}
}

// PriceQuote breaks a booking total into its parts
type PriceQuote struct {
	Seats      int     `json:"seats"`
	SeatFare   float64 `json:"seat_fare"`
	BaseTotal  float64 `json:"base_total"`
	AddOnTotal float64 `json:"add_on_total"`
	Total      float64 `json:"total"`
	Currency   string  `json:"currency"`
}

// PricingService computes booking totals in minor currency units
type PricingService struct {
	rates    AddOnRates
	currency string
}

// NewPricingService creates a new PricingService
func NewPricingService(rates AddOnRates, currency string) *PricingService {
	return &PricingService{rates: rates, currency: currency}
}

// Currency returns the ISO currency code bookings are priced in
func (p *PricingService) Currency() string { return p.currency }

// Quote prices seats at the trip fare plus the selected add-ons for every passenger
func (p *PricingService) Quote(pricePerSeat float64, seats int, addOns models.AddOns) PriceQuote {
	base := toCents(pricePerSeat) * int64(seats)

	var perPassenger int64
	if addOns.Insurance {
		perPassenger += toCents(p.rates.Insurance)
	}
	if addOns.RefundGuarantee {
		perPassenger += toCents(p.rates.RefundGuarantee)
	}
	if addOns.BoardingPass {
		perPassenger += toCents(p.rates.BoardingPass)
	}
	extras := perPassenger * int64(seats)

	return PriceQuote{
		Seats:      seats,
		SeatFare:   fromCents(toCents(pricePerSeat)),
		BaseTotal:  fromCents(base),
		AddOnTotal: fromCents(extras),
		Total:      fromCents(base + extras),
		Currency:   p.currency,
	}
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromCents(cents int64) float64 {
	return float64(cents) / 100
}
