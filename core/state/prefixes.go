package state

import (
	"strconv"
	"strings"

	"kaiadefi/crypto"
)

var (
	bankBalancePrefix   = []byte("bank/balance/")
	bankAllowancePrefix = []byte("bank/allowance/")

	stakingPoolKeyBytes   = []byte("staking/pool")
	stakingNodePrefix     = []byte("staking/node/")
	stakingPositionPrefix = []byte("staking/positions/")

	lendingPoolKeyBytes      = []byte("lending/pool")
	lendingLoansPrefix       = []byte("lending/loans/")
	lendingBorrowersKeyBytes = []byte("lending/borrowers")

	adminOperatorKeyBytes = []byte("admin/operator")
	adminPausePrefix      = []byte("admin/paused/")
	adminGenesisKeyBytes  = []byte("admin/genesis")
)

func join(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, part := range parts {
		size += len(part) + 1
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for i, part := range parts {
		if i > 0 {
			buf = append(buf, '/')
		}
		buf = append(buf, part...)
	}
	return buf
}

func assetBytes(asset string) []byte {
	return []byte(strings.ToUpper(strings.TrimSpace(asset)))
}

func balanceKey(asset string, addr crypto.Address) []byte {
	return join(bankBalancePrefix, assetBytes(asset), addr.Bytes())
}

func allowanceKey(asset string, owner, spender crypto.Address) []byte {
	return join(bankAllowancePrefix, assetBytes(asset), owner.Bytes(), spender.Bytes())
}

func stakingNodeKey(id uint64) []byte {
	return join(stakingNodePrefix, []byte(strconv.FormatUint(id, 10)))
}

func stakingPositionsKey(addr crypto.Address) []byte {
	return join(stakingPositionPrefix, addr.Bytes())
}

func lendingLoansKey(addr crypto.Address) []byte {
	return join(lendingLoansPrefix, addr.Bytes())
}

func pauseKey(module string) []byte {
	return join(adminPausePrefix, []byte(strings.ToLower(strings.TrimSpace(module))))
}
