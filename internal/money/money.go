package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

// ParseMinor converts a decimal string such as "150.5" into minor units (15050).
func ParseMinor(input string) (int64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, ErrInvalidAmount
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	shifted := value.Shift(2)
	if !shifted.IsInteger() {
		return 0, ErrTooManyDecimals
	}
	if shifted.GreaterThan(decimal.NewFromInt(maxMinor)) || shifted.LessThan(decimal.NewFromInt(-maxMinor)) {
		return 0, ErrInvalidAmount
	}
	return shifted.IntPart(), nil
}

// ParsePositiveMinor is ParseMinor restricted to amounts above zero.
func ParsePositiveMinor(input string) (int64, error) {
	amount, err := ParseMinor(input)
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

func FormatMinor(value int64) string {
	negative := value < 0
	if negative {
		value = -value
	}
	whole := value / 100
	frac := value % 100
	formatted := fmt.Sprintf("%d.%02d", whole, frac)
	if negative {
		return "-" + formatted
	}
	return formatted
}

// maxMinor keeps parsed amounts far from int64 overflow when prices and holds are summed.
const maxMinor = int64(1) << 52
