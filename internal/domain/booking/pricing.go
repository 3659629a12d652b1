package booking

import (
	"github.com/shopspring/decimal"

	"github.com/skillswap/service-booking/pkg/domain"
)

// PricingStrategy defines the interface for calculating session prices.
type PricingStrategy interface {
	// Calculate returns the session cost in credits for the given parameters.
	Calculate(params PricingParams) (decimal.Decimal, error)
}

// PricingParams holds the inputs for price calculation.
type PricingParams struct {
	CreditsPerHour decimal.Decimal
	DurationHours  decimal.Decimal
}

// HourlyPricingStrategy prices a session as creditsPerHour * durationHours.
type HourlyPricingStrategy struct{}

// NewHourlyPricingStrategy creates a new HourlyPricingStrategy.
func NewHourlyPricingStrategy() *HourlyPricingStrategy {
	return &HourlyPricingStrategy{}
}

// Calculate computes the session cost, rounded to cents of a credit.
func (s *HourlyPricingStrategy) Calculate(params PricingParams) (decimal.Decimal, error) {
	if params.CreditsPerHour.IsNegative() {
		return decimal.Zero, domain.NewValidationError("credits per hour cannot be negative")
	}
	if !params.DurationHours.IsPositive() {
		return decimal.Zero, domain.NewValidationError("session duration must be positive")
	}
	return params.CreditsPerHour.Mul(params.DurationHours).Round(2), nil
}
