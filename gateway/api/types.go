// Package api defines the JSON documents exchanged with the gateway.
package api

// Amounts travel as base-unit decimal strings so 18-decimal values survive
// JavaScript clients.

type NodeView struct {
	ID             uint64 `json:"id"`
	Name           string `json:"name"`
	AnnualRateBps  uint64 `json:"annualRateBps"`
	SecurityRating uint64 `json:"securityRating"`
	IsActive       bool   `json:"isActive"`
	TotalStaked    string `json:"totalStaked"`
	MaxCapacity    string `json:"maxCapacity"`
	Available      string `json:"available"`
	CreatedAt      uint64 `json:"createdAt"`
}

type StakeView struct {
	Index         uint64 `json:"index"`
	NodeID        uint64 `json:"nodeId"`
	Amount        string `json:"amount"`
	StakeTime     uint64 `json:"stakeTime"`
	PendingReward string `json:"pendingReward"`
	Reward        string `json:"reward"`
	Active        bool   `json:"active"`
	CreatedAt     uint64 `json:"createdAt"`
}

type StakingPoolView struct {
	TotalStaked  string `json:"totalStaked"`
	RewardPool   string `json:"rewardPool"`
	TotalClaimed string `json:"totalClaimed"`
	NodeCount    uint64 `json:"nodeCount"`
}

type LoanView struct {
	Borrower         string `json:"borrower,omitempty"`
	Index            uint64 `json:"index"`
	KaiaAmount       string `json:"kaiaAmount"`
	CollateralAmount string `json:"collateralAmount"`
	DailyRateBps     uint64 `json:"dailyRateBps"`
	TermDays         uint64 `json:"termDays"`
	BorrowTime       uint64 `json:"borrowTime"`
	DueTime          uint64 `json:"dueTime"`
	IsActive         bool   `json:"isActive"`
	IsRepaid         bool   `json:"isRepaid"`
	RepaidAmount     string `json:"repaidAmount"`
	ClosedAt         uint64 `json:"closedAt,omitempty"`
	Interest         string `json:"interest"`
	TotalDue         string `json:"totalDue"`
	Status           string `json:"status"`
	Overdue          bool   `json:"overdue"`
}

type LendingPoolView struct {
	Reserve          string `json:"reserve"`
	ExchangeRate     string `json:"exchangeRate"`
	TotalOutstanding string `json:"totalOutstanding"`
	TotalLiquidated  string `json:"totalLiquidated"`
}

type AssetView struct {
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

type TermView struct {
	Days         uint64 `json:"days"`
	DailyRateBps uint64 `json:"dailyRateBps"`
}

type ParamsView struct {
	Assets             []AssetView `json:"assets"`
	StakingAsset       string      `json:"stakingAsset"`
	MinStake           string      `json:"minStake"`
	BorrowAsset        string      `json:"borrowAsset"`
	CollateralAsset    string      `json:"collateralAsset"`
	CollateralRatioBps uint64      `json:"collateralRatioBps"`
	MinLoanAmount      string      `json:"minLoanAmount"`
	Terms              []TermView  `json:"terms"`
	LenientRepayment   bool        `json:"lenientRepayment"`
}

type ModuleStatus struct {
	Address string `json:"address"`
	Paused  bool   `json:"paused"`
}

type StatusView struct {
	Operator    string                  `json:"operator"`
	Now         int64                   `json:"now"`
	GenesisTime uint64                  `json:"genesisTime,omitempty"`
	Modules     map[string]ModuleStatus `json:"modules"`
}

type AmountView struct {
	Amount string `json:"amount"`
}

type StakeRequest struct {
	Amount string `json:"amount"`
	NodeID uint64 `json:"nodeId"`
}

type StakeResponse struct {
	Index uint64 `json:"index"`
}

type WithdrawRequest struct {
	Index  uint64 `json:"index"`
	Amount string `json:"amount"`
}

type NodeRequest struct {
	Name           string `json:"name"`
	AnnualRateBps  uint64 `json:"annualRateBps"`
	SecurityRating uint64 `json:"securityRating"`
	IsActive       bool   `json:"isActive"`
	MaxCapacity    string `json:"maxCapacity"`
}

type NodeCreated struct {
	ID uint64 `json:"id"`
}

type AmountRequest struct {
	Amount string `json:"amount"`
}

type BorrowRequest struct {
	Amount   string `json:"amount"`
	TermDays uint64 `json:"termDays"`
}

type BorrowResponse struct {
	Index uint64 `json:"index"`
}

type RepayRequest struct {
	Index uint64 `json:"index"`
}

type LiquidateRequest struct {
	Borrower string `json:"borrower"`
	Index    uint64 `json:"index"`
}

type ExchangeRateRequest struct {
	Rate string `json:"rate"`
}

type ModuleRequest struct {
	Module string `json:"module"`
}

type EmergencyWithdrawRequest struct {
	Module string `json:"module"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type OperatorRequest struct {
	Next string `json:"next"`
}

type ApproveRequest struct {
	Spender string `json:"spender"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
}

type TransferRequest struct {
	To     string `json:"to"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type MintRequest struct {
	To     string `json:"to"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type BalanceView struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type HasActiveLoansView struct {
	HasActiveLoans bool `json:"hasActiveLoans"`
}

// EventView is a ledger event as delivered by the stream and the archive.
// Sequence is set only for archived events.
type EventView struct {
	Sequence   uint64            `json:"sequence,omitempty"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

type EventsPage struct {
	Events []EventView `json:"events"`
	Next   uint64      `json:"next"`
}

// ErrorBody is the envelope of every failed request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}
