package lending

import (
	"errors"

	"github.com/holiman/uint256"

	"kaiadefi/core/types"
)

const (
	basisPoints   = 10_000
	secondsPerDay = 24 * 60 * 60
)

var (
	errMathOverflow = errors.New("lending engine: arithmetic overflow")

	// RateScale is the fixed-point scale of the exchange rate.
	RateScale = types.Pow10(18)

	bps            = uint256.NewInt(basisPoints)
	interestDenom  = uint256.NewInt(basisPoints * secondsPerDay)
	defaultRateTwo = new(uint256.Int).Mul(uint256.NewInt(2), types.Pow10(18))
)

// DefaultExchangeRate is two KAIA per USDT.
func DefaultExchangeRate() *uint256.Int {
	return new(uint256.Int).Set(defaultRateTwo)
}

// simpleInterest returns principal × dailyBps × (now − since) / (10000 × 1d),
// floored. Elapsed time is measured in seconds so partial days accrue.
func simpleInterest(principal *uint256.Int, dailyBps, since, now uint64) (*uint256.Int, error) {
	if principal == nil || principal.IsZero() || dailyBps == 0 || now <= since {
		return new(uint256.Int), nil
	}
	scaled, overflow := new(uint256.Int).MulOverflow(principal, uint256.NewInt(dailyBps))
	if overflow {
		return nil, errMathOverflow
	}
	interest, overflow := new(uint256.Int).MulDivOverflow(scaled, uint256.NewInt(now-since), interestDenom)
	if overflow {
		return nil, errMathOverflow
	}
	return interest, nil
}

// collateralCapacity converts staked collateral into the borrow asset:
// staked × ratio × rate × 10^borrowDec / (10000 × 1e18 × 10^collateralDec).
func collateralCapacity(staked *uint256.Int, ratioBps uint64, rate *uint256.Int, p Params) (*uint256.Int, error) {
	if staked == nil || staked.IsZero() || rate == nil || rate.IsZero() {
		return new(uint256.Int), nil
	}
	weighted, overflow := new(uint256.Int).MulOverflow(staked, uint256.NewInt(ratioBps))
	if overflow {
		return nil, errMathOverflow
	}
	weighted, overflow = weighted.MulOverflow(weighted, rate)
	if overflow {
		return nil, errMathOverflow
	}
	denom, overflow := new(uint256.Int).MulOverflow(RateScale, bps)
	if overflow {
		return nil, errMathOverflow
	}
	if denom, overflow = denom.MulOverflow(denom, types.Pow10(p.CollateralDecimals)); overflow {
		return nil, errMathOverflow
	}
	out, overflow := new(uint256.Int).MulDivOverflow(weighted, types.Pow10(p.BorrowDecimals), denom)
	if overflow {
		return nil, errMathOverflow
	}
	return out, nil
}

// requiredCollateral is the inverse of collateralCapacity rounded up: the
// smallest stake that backs amount of the borrow asset.
func requiredCollateral(amount *uint256.Int, ratioBps uint64, rate *uint256.Int, p Params) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() {
		return new(uint256.Int), nil
	}
	if rate == nil || rate.IsZero() || ratioBps == 0 {
		return nil, errMathOverflow
	}
	numerator, overflow := new(uint256.Int).MulOverflow(amount, bps)
	if overflow {
		return nil, errMathOverflow
	}
	scale, overflow := new(uint256.Int).MulOverflow(RateScale, types.Pow10(p.CollateralDecimals))
	if overflow {
		return nil, errMathOverflow
	}
	denom, overflow := new(uint256.Int).MulOverflow(rate, uint256.NewInt(ratioBps))
	if overflow {
		return nil, errMathOverflow
	}
	if denom, overflow = denom.MulOverflow(denom, types.Pow10(p.BorrowDecimals)); overflow {
		return nil, errMathOverflow
	}
	out, overflow := new(uint256.Int).MulDivOverflow(numerator, scale, denom)
	if overflow {
		return nil, errMathOverflow
	}
	if !new(uint256.Int).MulMod(numerator, scale, denom).IsZero() {
		out.AddUint64(out, 1)
	}
	return out, nil
}
