package events

import (
	"strconv"
	"strings"

	"github.com/holiman/uint256"

	"kaiadefi/crypto"
)

func normalizeAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed)
}

func formatAmount(amount *uint256.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.Dec()
}

func formatAddress(addr crypto.Address) string {
	return addr.Hex()
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
