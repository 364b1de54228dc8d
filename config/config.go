package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// OperatorEnv overrides the configured operator address.
const OperatorEnv = "KAIA_OPERATOR"

// Config is the ledger configuration file.
type Config struct {
	Operator string  `toml:"Operator"`
	Assets   []Asset `toml:"Assets"`
	Staking  Staking `toml:"Staking"`
	Lending  Lending `toml:"Lending"`
	Genesis  Genesis `toml:"Genesis"`
}

// Default returns the launch configuration: USDT staking across the three
// Kaia nodes and KAIA loans at 7, 14 and 30 days.
func Default() *Config {
	return &Config{
		Assets: []Asset{
			{Symbol: "USDT", Decimals: 6},
			{Symbol: "KAIA", Decimals: 18},
		},
		Staking: Staking{Asset: "USDT", MinStake: "10"},
		Lending: Lending{
			BorrowAsset:        "KAIA",
			CollateralAsset:    "USDT",
			CollateralRatioBps: 7_000,
			MinLoanAmount:      "1",
			Terms: []Term{
				{Days: 7, DailyRateBps: 22},
				{Days: 14, DailyRateBps: 24},
				{Days: 30, DailyRateBps: 27},
			},
		},
		Genesis: Genesis{
			ExchangeRate: "2",
			RewardPool:   "0",
			Reserve:      "0",
			Nodes: []Node{
				{Name: "Kaia Wave Node", AnnualRateBps: 600, SecurityRating: 5, MaxCapacity: "1000000"},
				{Name: "Kaia Storm Node", AnnualRateBps: 550, SecurityRating: 4, MaxCapacity: "500000"},
				{Name: "Kaia Thunder Node", AnnualRateBps: 700, SecurityRating: 3, MaxCapacity: "250000"},
			},
			Alloc: []Alloc{},
		},
	}
}

// Load loads the configuration from the given path, writing the default
// configuration there first when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := persist(path, cfg); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		cfg = &Config{}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.fillDefaults()
	}

	if operator := strings.TrimSpace(os.Getenv(OperatorEnv)); operator != "" {
		cfg.Operator = operator
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) fillDefaults() {
	def := Default()
	if len(c.Assets) == 0 {
		c.Assets = def.Assets
	}
	if strings.TrimSpace(c.Staking.Asset) == "" {
		c.Staking.Asset = def.Staking.Asset
	}
	if strings.TrimSpace(c.Staking.MinStake) == "" {
		c.Staking.MinStake = def.Staking.MinStake
	}
	if strings.TrimSpace(c.Lending.BorrowAsset) == "" {
		c.Lending.BorrowAsset = def.Lending.BorrowAsset
	}
	if strings.TrimSpace(c.Lending.CollateralAsset) == "" {
		c.Lending.CollateralAsset = def.Lending.CollateralAsset
	}
	if c.Lending.CollateralRatioBps == 0 {
		c.Lending.CollateralRatioBps = def.Lending.CollateralRatioBps
	}
	if strings.TrimSpace(c.Lending.MinLoanAmount) == "" {
		c.Lending.MinLoanAmount = def.Lending.MinLoanAmount
	}
	if len(c.Lending.Terms) == 0 {
		c.Lending.Terms = def.Lending.Terms
	}
	if strings.TrimSpace(c.Genesis.ExchangeRate) == "" {
		c.Genesis.ExchangeRate = def.Genesis.ExchangeRate
	}
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	return persist(path, cfg)
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
