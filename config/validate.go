package config

import (
	"fmt"
	"strings"

	"kaiadefi/crypto"
)

// Validate checks that cfg converts into ledger parameters and a genesis
// document. An empty operator is allowed here and rejected by ToGenesis.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if operator := strings.TrimSpace(cfg.Operator); operator != "" {
		if _, err := crypto.ParseAddress(operator); err != nil {
			return fmt.Errorf("config: Operator: %w", err)
		}
	}
	params, err := cfg.Params()
	if err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := cfg.genesis(params); err != nil {
		return err
	}
	return nil
}
