// Package fees computes the service-fee split for errand payments. All
// functions are pure; callers persist the results on the transaction so that
// historical rows stay reproducible if the policy ever changes.
package fees

import "github.com/shopspring/decimal"

var (
	// FlatFeeLimit is the spend up to which the flat fee applies.
	FlatFeeLimit = decimal.NewFromInt(150)
	// FlatFee is charged for spends up to FlatFeeLimit.
	FlatFee = decimal.NewFromInt(20)
	// FeeRate applies above FlatFeeLimit.
	FeeRate = decimal.NewFromFloat(0.20)
	// EarningsShare is the runner's share of the service fee.
	EarningsShare = decimal.NewFromFloat(0.85)
	// MaxDeclaredSpend caps the declared out-of-pocket spend per errand.
	MaxDeclaredSpend = decimal.NewFromInt(50000)
)

// ServiceFee is the markup charged to the customer on top of the runner's
// declared spend: flat 20 up to 150, otherwise 20% rounded to 2 dp half-up.
func ServiceFee(amount decimal.Decimal) decimal.Decimal {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	if amount.LessThanOrEqual(FlatFeeLimit) {
		return FlatFee
	}
	return amount.Mul(FeeRate).Round(2)
}

// RunnerEarnings is the runner's 85% share of the service fee.
func RunnerEarnings(amount decimal.Decimal) decimal.Decimal {
	return ServiceFee(amount).Mul(EarningsShare).Round(2)
}

// PlatformCommission is the platform's share of the service fee, owed by the
// runner as debt. Computed as fee minus earnings rather than an independent
// 15% rounding so the split always reconciles exactly.
func PlatformCommission(amount decimal.Decimal) decimal.Decimal {
	return ServiceFee(amount).Sub(RunnerEarnings(amount))
}

// TotalAmount is what the customer owes: declared spend plus service fee.
func TotalAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Add(ServiceFee(amount))
}
