package amount

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	xerrors "safe-swap/pkg/errors"
)

// maxIntegerDigits is the digit count of the largest uint256 value.
const maxIntegerDigits = 78

// Parse reads a user supplied amount. Only positive values are accepted.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "invalid amount "+s)
	}
	if !d.IsPositive() {
		return decimal.Zero, xerrors.Newf(xerrors.CodeInvalidArgument, "amount must be positive, got %s", s)
	}
	if integerDigits(d) > maxIntegerDigits {
		return decimal.Zero, xerrors.Newf(xerrors.CodeInvalidArgument, "amount %s is too large", s)
	}
	if d.Exponent() < -math.MaxUint8 {
		return decimal.Zero, xerrors.Newf(xerrors.CodePrecision, "amount %s has too many decimal places", s)
	}
	return d, nil
}

// ToBaseUnits converts a decimal amount into the token's integer base units.
// It fails with a precision error instead of rounding and rejects results
// that do not fit in a uint256.
func ToBaseUnits(d decimal.Decimal, decimals uint8) (*big.Int, error) {
	if d.IsNegative() {
		return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "negative amount %s", d.String())
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return nil, xerrors.New(xerrors.CodePrecision,
			fmt.Sprintf("amount %s has more than %d decimal places", d.String(), decimals),
			xerrors.WithMetadata("decimals", strconv.Itoa(int(decimals))))
	}
	if integerDigits(shifted) > maxIntegerDigits {
		return nil, tooLarge(decimals)
	}
	base := shifted.BigInt()
	if base.BitLen() > 256 {
		return nil, tooLarge(decimals)
	}
	return base, nil
}

func tooLarge(decimals uint8) error {
	return xerrors.New(xerrors.CodeInvalidArgument,
		fmt.Sprintf("amount does not fit in uint256 at %d decimals", decimals),
		xerrors.WithMetadata("decimals", strconv.Itoa(int(decimals))))
}

// integerDigits counts the digits left of the decimal point.
func integerDigits(d decimal.Decimal) int {
	return d.NumDigits() + int(d.Exponent())
}

// ToDecimal converts base units back to a decimal amount.
func ToDecimal(v *big.Int, decimals uint8) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -int32(decimals))
}

// Format renders base units as a human amount without trailing zeros.
func Format(v *big.Int, decimals uint8) string {
	return ToDecimal(v, decimals).String()
}
