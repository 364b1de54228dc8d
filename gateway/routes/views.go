package routes

import (
	"github.com/holiman/uint256"

	"kaiadefi/core/types"
	"kaiadefi/gateway/api"
	"kaiadefi/native/bank"
	"kaiadefi/native/lending"
	"kaiadefi/native/staking"
)

func amountView(amount *uint256.Int) api.AmountView {
	return api.AmountView{Amount: types.FormatAmount(amount)}
}

func nodeView(n *staking.Node) api.NodeView {
	return api.NodeView{
		ID:             n.ID,
		Name:           n.Name,
		AnnualRateBps:  n.AnnualRateBps,
		SecurityRating: n.SecurityRating,
		IsActive:       n.IsActive,
		TotalStaked:    types.FormatAmount(n.TotalStaked),
		MaxCapacity:    types.FormatAmount(n.MaxCapacity),
		Available:      types.FormatAmount(n.Available()),
		CreatedAt:      n.CreatedAt,
	}
}

func nodeViews(nodes []*staking.Node) []api.NodeView {
	out := make([]api.NodeView, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeView(n))
	}
	return out
}

func stakeViews(history []staking.StakeView) []api.StakeView {
	out := make([]api.StakeView, 0, len(history))
	for _, h := range history {
		s := h.Stake
		out = append(out, api.StakeView{
			Index:         h.Index,
			NodeID:        s.NodeID,
			Amount:        types.FormatAmount(s.Amount),
			StakeTime:     s.StakeTime,
			PendingReward: types.FormatAmount(s.PendingReward),
			Reward:        types.FormatAmount(h.Reward),
			Active:        s.Active(),
			CreatedAt:     s.CreatedAt,
		})
	}
	return out
}

func stakingPoolView(p *staking.Pool) api.StakingPoolView {
	return api.StakingPoolView{
		TotalStaked:  types.FormatAmount(p.TotalStaked),
		RewardPool:   types.FormatAmount(p.RewardPool),
		TotalClaimed: types.FormatAmount(p.TotalClaimed),
		NodeCount:    p.NodeCount,
	}
}

func loanView(v lending.LoanView) api.LoanView {
	l := v.Loan
	return api.LoanView{
		Index:            v.Index,
		KaiaAmount:       types.FormatAmount(l.KaiaAmount),
		CollateralAmount: types.FormatAmount(l.CollateralAmount),
		DailyRateBps:     l.DailyRateBps,
		TermDays:         l.TermDays,
		BorrowTime:       l.BorrowTime,
		DueTime:          l.DueTime,
		IsActive:         l.IsActive,
		IsRepaid:         l.IsRepaid,
		RepaidAmount:     types.FormatAmount(l.RepaidAmount),
		ClosedAt:         l.ClosedAt,
		Interest:         types.FormatAmount(v.Interest),
		TotalDue:         types.FormatAmount(v.TotalDue),
		Status:           v.Status,
		Overdue:          v.Overdue,
	}
}

func loanViews(loans []lending.LoanView) []api.LoanView {
	out := make([]api.LoanView, 0, len(loans))
	for _, l := range loans {
		out = append(out, loanView(l))
	}
	return out
}

func overdueViews(loans []lending.OverdueLoan) []api.LoanView {
	out := make([]api.LoanView, 0, len(loans))
	for _, l := range loans {
		view := loanView(l.LoanView)
		view.Borrower = l.Borrower.Hex()
		out = append(out, view)
	}
	return out
}

func lendingPoolView(p *lending.Pool) api.LendingPoolView {
	return api.LendingPoolView{
		Reserve:          types.FormatAmount(p.Reserve),
		ExchangeRate:     types.FormatAmount(p.ExchangeRate),
		TotalOutstanding: types.FormatAmount(p.TotalOutstanding),
		TotalLiquidated:  types.FormatAmount(p.TotalLiquidated),
	}
}

func assetViews(assets []bank.Asset) []api.AssetView {
	out := make([]api.AssetView, 0, len(assets))
	for _, a := range assets {
		out = append(out, api.AssetView{Symbol: a.Symbol, Decimals: a.Decimals})
	}
	return out
}
