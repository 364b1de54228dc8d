package main

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"kaiadefi/core/types"
	"kaiadefi/crypto"
	"kaiadefi/gateway/api"
	nativecommon "kaiadefi/native/common"
)

func runStake(args []string) error {
	s := newSession("stake")
	amount := s.fs.String("amount", "", "USDT amount in whole units, e.g. 100.5")
	node := s.fs.Uint64("node", 0, "node id")
	s.fs.Parse(args)
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	value, err := units(ctx, c, "USDT", *amount)
	if err != nil {
		return err
	}
	spender, err := moduleAddress(ctx, c, nativecommon.ModuleStaking)
	if err != nil {
		return err
	}
	if _, err := c.Approve(ctx, spender, "USDT", value); err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	index, err := c.Stake(ctx, value, *node)
	if err != nil {
		return err
	}
	fmt.Printf("stake position %d opened on node %d\n", index, *node)
	return nil
}

func runWithdraw(args []string) error {
	s := newSession("withdraw")
	index := s.fs.Uint64("index", 0, "stake position index")
	amount := s.fs.String("amount", "", "USDT amount; omit to withdraw the whole position")
	s.fs.Parse(args)
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	var value *uint256.Int
	if strings.TrimSpace(*amount) != "" {
		if value, err = units(ctx, c, "USDT", *amount); err != nil {
			return err
		}
	}
	withdrawn, err := c.Withdraw(ctx, *index, value)
	if err != nil {
		return err
	}
	fmt.Printf("withdrew %s base units\n", withdrawn.Dec())
	return nil
}

func runClaim(args []string) error {
	s := newSession("claim")
	s.fs.Parse(args)
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	paid, err := c.ClaimRewards(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("claimed %s base units\n", paid.Dec())
	return nil
}

func runStakes(args []string) error {
	s := newSession("stakes")
	account := s.fs.String("account", "", "account to inspect (defaults to --from)")
	s.fs.Parse(args)
	addr, err := accountOrSelf(s, *account)
	if err != nil {
		return err
	}
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	history, err := c.StakeHistory(ctx, addr)
	if err != nil {
		return err
	}
	reward, err := c.Reward(ctx, addr)
	if err != nil {
		return err
	}
	return printJSON(struct {
		Stakes []api.StakeView `json:"stakes"`
		Reward string          `json:"reward"`
	}{history, reward.Dec()})
}

func runAddNode(args []string) error {
	s := newSession("add-node")
	name := s.fs.String("name", "", "node name")
	rate := s.fs.Uint64("rate-bps", 0, "annual rate in basis points")
	rating := s.fs.Uint64("rating", 3, "security rating 1-5")
	capacity := s.fs.String("capacity", "", "maximum USDT capacity in whole units")
	inactive := s.fs.Bool("inactive", false, "register the node inactive")
	s.fs.Parse(args)
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	maxCapacity, err := units(ctx, c, "USDT", *capacity)
	if err != nil {
		return err
	}
	id, err := c.AddNode(ctx, api.NodeRequest{
		Name:           *name,
		AnnualRateBps:  *rate,
		SecurityRating: *rating,
		IsActive:       !*inactive,
		MaxCapacity:    maxCapacity.Dec(),
	})
	if err != nil {
		return err
	}
	fmt.Printf("node %d registered\n", id)
	return nil
}

func runAddRewards(args []string) error {
	s := newSession("add-rewards")
	amount := s.fs.String("amount", "", "USDT amount in whole units")
	s.fs.Parse(args)
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	value, err := units(ctx, c, "USDT", *amount)
	if err != nil {
		return err
	}
	spender, err := moduleAddress(ctx, c, nativecommon.ModuleStaking)
	if err != nil {
		return err
	}
	if _, err := c.Approve(ctx, spender, "USDT", value); err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	pool, err := c.AddRewards(ctx, value)
	if err != nil {
		return err
	}
	fmt.Printf("reward pool now %s base units\n", pool.Dec())
	return nil
}

func runBorrow(args []string) error {
	s := newSession("borrow")
	amount := s.fs.String("amount", "", "KAIA amount in whole units")
	days := s.fs.Uint64("days", 7, "loan term in days (7, 14 or 30)")
	s.fs.Parse(args)
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	value, err := units(ctx, c, "KAIA", *amount)
	if err != nil {
		return err
	}
	index, err := c.Borrow(ctx, value, *days)
	if err != nil {
		return err
	}
	fmt.Printf("loan %d opened\n", index)
	return nil
}

// runRepay approves the amount currently due before repaying.
func runRepay(args []string) error {
	s := newSession("repay")
	index := s.fs.Uint64("index", 0, "loan index")
	s.fs.Parse(args)
	self, err := s.self()
	if err != nil {
		return err
	}
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	loans, err := c.Loans(ctx, self, true)
	if err != nil {
		return err
	}
	var due *uint256.Int
	for _, loan := range loans {
		if loan.Index == *index {
			if due, err = uint256.FromDecimal(loan.TotalDue); err != nil {
				return fmt.Errorf("decode amount due: %w", err)
			}
		}
	}
	if due == nil {
		return fmt.Errorf("no active loan %d", *index)
	}
	spender, err := moduleAddress(ctx, c, nativecommon.ModuleLending)
	if err != nil {
		return err
	}
	// Interest keeps accruing until the repay lands.
	headroom := new(uint256.Int).Div(due, uint256.NewInt(100))
	if _, err := c.Approve(ctx, spender, "KAIA", new(uint256.Int).Add(due, headroom)); err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	paid, err := c.Repay(ctx, *index)
	if err != nil {
		return err
	}
	fmt.Printf("repaid %s base units\n", paid.Dec())
	return nil
}

func runLiquidate(args []string) error {
	s := newSession("liquidate")
	borrower := s.fs.String("borrower", "", "borrower address")
	index := s.fs.Uint64("index", 0, "loan index")
	s.fs.Parse(args)
	addr, err := crypto.ParseAddress(*borrower)
	if err != nil {
		return fmt.Errorf("--borrower: %w", err)
	}
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	if err := c.Liquidate(ctx, addr, *index); err != nil {
		return err
	}
	fmt.Printf("loan %d of %s liquidated\n", *index, addr.Hex())
	return nil
}

func runLoans(args []string) error {
	s := newSession("loans")
	account := s.fs.String("account", "", "account to inspect (defaults to --from)")
	activeOnly := s.fs.Bool("active", false, "only list open loans")
	s.fs.Parse(args)
	addr, err := accountOrSelf(s, *account)
	if err != nil {
		return err
	}
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	loans, err := c.Loans(ctx, addr, *activeOnly)
	if err != nil {
		return err
	}
	return printJSON(loans)
}

func runOverdue(args []string) error {
	s := newSession("overdue")
	s.fs.Parse(args)
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	loans, err := c.OverdueLoans(ctx)
	if err != nil {
		return err
	}
	return printJSON(loans)
}

func runRate(args []string) error {
	s := newSession("rate")
	rate := s.fs.String("kaia-per-usdt", "", "KAIA per USDT, e.g. 2.15")
	s.fs.Parse(args)
	c, err := s.client()
	if err != nil {
		return err
	}
	scaled, err := types.ParseUnits(*rate, 18)
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	pool, err := c.UpdateExchangeRate(ctx, scaled)
	if err != nil {
		return err
	}
	return printJSON(pool)
}

func runReserve(args []string) error {
	s := newSession("reserve")
	amount := s.fs.String("amount", "", "KAIA amount in whole units")
	s.fs.Parse(args)
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	value, err := units(ctx, c, "KAIA", *amount)
	if err != nil {
		return err
	}
	spender, err := moduleAddress(ctx, c, nativecommon.ModuleLending)
	if err != nil {
		return err
	}
	if _, err := c.Approve(ctx, spender, "KAIA", value); err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	reserve, err := c.AddReserve(ctx, value)
	if err != nil {
		return err
	}
	fmt.Printf("reserve now %s base units\n", reserve.Dec())
	return nil
}

func runBalance(args []string) error {
	s := newSession("balance")
	account := s.fs.String("account", "", "account to inspect (defaults to --from)")
	s.fs.Parse(args)
	addr, err := accountOrSelf(s, *account)
	if err != nil {
		return err
	}
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	balances, err := c.Balances(ctx, addr)
	if err != nil {
		return err
	}
	for _, b := range balances {
		fmt.Println(balanceLine(b))
	}
	return nil
}

func runTransfer(args []string) error {
	s := newSession("transfer")
	to := s.fs.String("to", "", "recipient")
	asset := s.fs.String("asset", "USDT", "asset symbol")
	amount := s.fs.String("amount", "", "amount in whole units")
	s.fs.Parse(args)
	recipient, err := crypto.ParseAddress(*to)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	value, err := units(ctx, c, *asset, *amount)
	if err != nil {
		return err
	}
	balance, err := c.Transfer(ctx, recipient, *asset, value)
	if err != nil {
		return err
	}
	fmt.Println(balanceLine(*balance))
	return nil
}

func runMint(args []string) error {
	s := newSession("mint")
	to := s.fs.String("to", "", "recipient")
	asset := s.fs.String("asset", "USDT", "asset symbol")
	amount := s.fs.String("amount", "", "amount in whole units")
	s.fs.Parse(args)
	recipient, err := crypto.ParseAddress(*to)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	value, err := units(ctx, c, *asset, *amount)
	if err != nil {
		return err
	}
	balance, err := c.Mint(ctx, recipient, *asset, value)
	if err != nil {
		return err
	}
	fmt.Println(balanceLine(*balance))
	return nil
}

func runPause(args []string) error {
	return togglePause("pause", args, true)
}

func runUnpause(args []string) error {
	return togglePause("unpause", args, false)
}

func togglePause(name string, args []string, paused bool) error {
	s := newSession(name)
	module := s.fs.String("module", "", "staking or lending")
	s.fs.Parse(args)
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	toggle := c.Unpause
	if paused {
		toggle = c.Pause
	}
	status, err := toggle(ctx, *module)
	if err != nil {
		return err
	}
	return printJSON(status.Modules)
}

func accountOrSelf(s *session, raw string) (crypto.Address, error) {
	if strings.TrimSpace(raw) != "" {
		return crypto.ParseAddress(raw)
	}
	return s.self()
}
