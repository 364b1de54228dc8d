package staking

import (
	"github.com/holiman/uint256"

	"kaiadefi/core/types"
)

const (
	secondsPerYear = 365 * 24 * 60 * 60
	basisPoints    = 10_000
)

// MinRating and MaxRating bound a node's security rating.
const (
	MinRating = 1
	MaxRating = 5
)

var rewardDenominator = uint256.NewInt(secondsPerYear * basisPoints)

// accruedReward returns amount × rateBps × (now − since) / (365d × 10000),
// floored. The full product is formed before dividing.
func accruedReward(amount *uint256.Int, rateBps, since, now uint64) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() || rateBps == 0 || now <= since {
		return new(uint256.Int), nil
	}
	scaled, overflow := new(uint256.Int).MulOverflow(amount, uint256.NewInt(rateBps))
	if overflow {
		return nil, errRewardOverflow
	}
	reward, overflow := new(uint256.Int).MulDivOverflow(scaled, uint256.NewInt(now-since), rewardDenominator)
	if overflow {
		return nil, errRewardOverflow
	}
	return reward, nil
}

// positionReward is the pending plus freshly accrued reward of a stake.
func positionReward(stake *Stake, node *Node, now uint64) (*uint256.Int, error) {
	total := types.CloneAmount(stake.PendingReward)
	if !stake.Active() || node == nil {
		return total, nil
	}
	accrued, err := accruedReward(stake.Amount, node.AnnualRateBps, stake.StakeTime, now)
	if err != nil {
		return nil, err
	}
	total, overflow := total.AddOverflow(total, accrued)
	if overflow {
		return nil, errRewardOverflow
	}
	return total, nil
}
