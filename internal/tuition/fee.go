package tuition

import "github.com/shopspring/decimal"

// PerSessionFee = round(monthlyFee / sessionsPerMonth), половина округляется от нуля.
// Если sessionsPerMonth не задан, делим на target.
func PerSessionFee(monthlyFee int64, sessionsPerMonth *int, target int) int64 {
	div := target
	if sessionsPerMonth != nil && *sessionsPerMonth > 0 {
		div = *sessionsPerMonth
	}
	if div <= 0 {
		return 0
	}
	return decimal.NewFromInt(monthlyFee).
		Div(decimal.NewFromInt(int64(div))).
		Round(0).
		IntPart()
}

func CalculatedAmount(billable int, perSessionFee int64) int64 {
	return decimal.NewFromInt(int64(billable)).
		Mul(decimal.NewFromInt(perSessionFee)).
		IntPart()
}
