package rest

import (
	"strings"

	"github.com/shopspring/decimal"
)

// formatWithStep floors value to a multiple of step and prints it with
// the step's number of decimals.
func formatWithStep(value, step decimal.Decimal) string {
	if !step.IsPositive() {
		return value.String()
	}

	quantized := value.Div(step).Floor().Mul(step)
	return quantized.StringFixed(stepDecimals(step))
}

func stepDecimals(step decimal.Decimal) int32 {
	text := step.String()
	if dot := strings.IndexByte(text, '.'); dot >= 0 {
		return int32(len(strings.TrimRight(text[dot+1:], "0")))
	}
	return 0
}

func parseDecimalOrZero(value string) (decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}
