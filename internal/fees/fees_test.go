package fees

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestServiceFee(t *testing.T) {
	cases := []struct {
		name   string
		amount string
		fee    string
	}{
		{"zero", "0", "0"},
		{"negative", "-50", "0"},
		{"small spend flat fee", "100", "20"},
		{"boundary flat fee", "150", "20"},
		{"just above boundary", "150.01", "30.00"},
		{"percentage fee", "200", "40"},
		{"rounding half up", "150.13", "30.03"},
		{"large spend", "50000", "10000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, ServiceFee(dec(tc.amount)).Equal(dec(tc.fee)),
				"ServiceFee(%s) = %s, want %s", tc.amount, ServiceFee(dec(tc.amount)), tc.fee)
		})
	}
}

func TestSplit_Spend100(t *testing.T) {
	amount := dec("100")
	assert.True(t, ServiceFee(amount).Equal(dec("20")))
	assert.True(t, RunnerEarnings(amount).Equal(dec("17.00")))
	assert.True(t, PlatformCommission(amount).Equal(dec("3.00")))
	assert.True(t, TotalAmount(amount).Equal(dec("120.00")))
}

func TestSplit_Spend200(t *testing.T) {
	amount := dec("200")
	assert.True(t, ServiceFee(amount).Equal(dec("40")))
	assert.True(t, RunnerEarnings(amount).Equal(dec("34.00")))
	assert.True(t, PlatformCommission(amount).Equal(dec("6.00")))
	assert.True(t, TotalAmount(amount).Equal(dec("240.00")))
}

func TestSplit_AlwaysReconciles(t *testing.T) {
	// Earnings plus commission must add back to the fee for any spend,
	// including amounts whose 85% share rounds awkwardly.
	for _, amount := range []string{"151", "153.33", "199.99", "1000", "12345.67", "49999.99"} {
		a := dec(amount)
		sum := RunnerEarnings(a).Add(PlatformCommission(a))
		assert.True(t, sum.Equal(ServiceFee(a)), "split of %s does not reconcile", amount)
	}
}

func TestSplit_ZeroAmountYieldsZeroEverything(t *testing.T) {
	assert.True(t, RunnerEarnings(decimal.Zero).IsZero())
	assert.True(t, PlatformCommission(decimal.Zero).IsZero())
	assert.True(t, TotalAmount(decimal.Zero).IsZero())
}
