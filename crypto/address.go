package crypto

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Address identifies a wallet or module account. Kaia accounts share the EVM
// 20-byte address format.
type Address = common.Address

// ZeroAddress is the unset address.
var ZeroAddress Address

// ParseAddress decodes a 0x-prefixed hex address. Mixed-case input must carry a
// valid EIP-55 checksum.
func ParseAddress(value string) (Address, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Address{}, fmt.Errorf("address required")
	}
	if !strings.HasPrefix(trimmed, "0x") && !strings.HasPrefix(trimmed, "0X") {
		return Address{}, fmt.Errorf("address %q must be 0x-prefixed", trimmed)
	}
	if !common.IsHexAddress(trimmed) {
		return Address{}, fmt.Errorf("address %q is not a 20-byte hex string", trimmed)
	}
	addr := common.HexToAddress(trimmed)
	body := trimmed[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && addr.Hex()[2:] != body {
		return Address{}, fmt.Errorf("address %q has an invalid checksum", trimmed)
	}
	return addr, nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(value string) Address {
	addr, err := ParseAddress(value)
	if err != nil {
		panic(err)
	}
	return addr
}

// ModuleAddress derives the deterministic account that holds a ledger module's
// funds. No private key exists for it.
func ModuleAddress(module string) Address {
	hash := ethcrypto.Keccak256([]byte("module:" + strings.ToLower(strings.TrimSpace(module))))
	return common.BytesToAddress(hash[12:])
}

// Keccak256 hashes the concatenation of the provided byte slices.
func Keccak256(data ...[]byte) []byte {
	return ethcrypto.Keccak256(data...)
}
