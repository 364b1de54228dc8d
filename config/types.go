package config

// Asset registers a token with the ledger.
type Asset struct {
	Symbol   string `toml:"Symbol"`
	Decimals uint8  `toml:"Decimals"`
}

// Staking configures the staking module. Amounts are decimal strings in whole
// token units.
type Staking struct {
	Asset    string `toml:"Asset"`
	MinStake string `toml:"MinStake"`
}

// Term binds a loan duration to its daily rate.
type Term struct {
	Days         uint64 `toml:"Days"`
	DailyRateBps uint64 `toml:"DailyRateBps"`
}

type Lending struct {
	BorrowAsset        string `toml:"BorrowAsset"`
	CollateralAsset    string `toml:"CollateralAsset"`
	CollateralRatioBps uint64 `toml:"CollateralRatioBps"`
	MinLoanAmount      string `toml:"MinLoanAmount"`
	Terms              []Term `toml:"Terms"`
	LenientRepayment   bool   `toml:"LenientRepayment"`
}

type Node struct {
	Name           string `toml:"Name"`
	AnnualRateBps  uint64 `toml:"AnnualRateBps"`
	SecurityRating uint64 `toml:"SecurityRating"`
	MaxCapacity    string `toml:"MaxCapacity"`
	Inactive       bool   `toml:"Inactive,omitempty"`
}

type Alloc struct {
	Address string `toml:"Address"`
	Asset   string `toml:"Asset"`
	Amount  string `toml:"Amount"`
}

// Genesis seeds a fresh ledger. ExchangeRate is KAIA per USDT.
type Genesis struct {
	ExchangeRate string  `toml:"ExchangeRate"`
	RewardPool   string  `toml:"RewardPool"`
	Reserve      string  `toml:"Reserve"`
	Nodes        []Node  `toml:"Nodes"`
	Alloc        []Alloc `toml:"Alloc"`
}
