package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	coreerrors "kaiadefi/core/errors"
	"kaiadefi/core/events"
	"kaiadefi/core/state"
	"kaiadefi/core/types"
	"kaiadefi/crypto"
	nativecommon "kaiadefi/native/common"
	"kaiadefi/native/lending"
	"kaiadefi/native/staking"
	"kaiadefi/storage"
)

var (
	operator = crypto.MustParseAddress("0x00000000000000000000000000000000000000a1")
	alice    = crypto.MustParseAddress("0x00000000000000000000000000000000000000b2")
	bob      = crypto.MustParseAddress("0x00000000000000000000000000000000000000c3")
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Emit(ev events.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) ofType(eventType string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, ev := range r.events {
		if ev.EventType() == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func usdt(whole uint64) *uint256.Int { return types.Units(whole, 6) }
func kaia(whole uint64) *uint256.Int { return types.Units(whole, 18) }

type fixture struct {
	ledger  *Ledger
	clock   *testClock
	events  *recorder
	staking crypto.Address
	lending crypto.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	rec := &recorder{}
	ledger, err := NewLedger(state.NewManager(storage.NewMemDB()), DefaultParams(), Options{
		Emitter: rec,
		Clock:   clock.Now,
	})
	require.NoError(t, err)

	genesis := DefaultGenesis(operator)
	genesis.Alloc = []Allocation{
		{Address: alice, Asset: "USDT", Amount: usdt(10_000)},
		{Address: bob, Asset: "USDT", Amount: usdt(10_000)},
		{Address: operator, Asset: "KAIA", Amount: kaia(10_000)},
	}
	genesis.RewardPool = usdt(100_000)
	genesis.Reserve = kaia(500_000)
	applied, err := ledger.InitGenesis(context.Background(), genesis)
	require.NoError(t, err)
	require.True(t, applied)

	stakingAddr, err := ledger.ModuleAddress(nativecommon.ModuleStaking)
	require.NoError(t, err)
	lendingAddr, err := ledger.ModuleAddress(nativecommon.ModuleLending)
	require.NoError(t, err)
	return &fixture{ledger: ledger, clock: clock, events: rec, staking: stakingAddr, lending: lendingAddr}
}

func (f *fixture) stake(t *testing.T, user crypto.Address, amount *uint256.Int, node uint64) uint64 {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.ledger.Approve(ctx, user, f.staking, "USDT", amount))
	index, err := f.ledger.Stake(ctx, user, amount, node)
	require.NoError(t, err)
	return index
}

func TestGenesisAppliedOnce(t *testing.T) {
	f := newFixture(t)

	nodes, err := f.ledger.Nodes()
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	require.Equal(t, "Kaia Wave Node", nodes[0].Name)
	require.Equal(t, uint64(700), nodes[2].AnnualRateBps)

	op, err := f.ledger.Operator()
	require.NoError(t, err)
	require.Equal(t, operator, op)

	pool, err := f.ledger.StakingPool()
	require.NoError(t, err)
	require.Equal(t, usdt(100_000), pool.RewardPool)

	lpool, err := f.ledger.LendingPool()
	require.NoError(t, err)
	require.Equal(t, kaia(500_000), lpool.Reserve)
	require.Equal(t, lending.DefaultExchangeRate(), lpool.ExchangeRate)

	reserveBalance, err := f.ledger.Balance("KAIA", f.lending)
	require.NoError(t, err)
	require.Equal(t, kaia(500_000), reserveBalance)

	before := f.events.count()
	applied, err := f.ledger.InitGenesis(context.Background(), DefaultGenesis(operator))
	require.NoError(t, err)
	require.False(t, applied)
	require.Equal(t, before, f.events.count())

	nodes, err = f.ledger.Nodes()
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	ts, ok, err := f.ledger.GenesisTime()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1_700_000_000), ts)
}

func TestGenesisValidation(t *testing.T) {
	require.Error(t, (*Genesis)(nil).Validate())
	require.Error(t, DefaultGenesis(crypto.Address{}).Validate())

	g := DefaultGenesis(operator)
	g.Alloc = []Allocation{{Address: alice, Asset: "USDT"}}
	require.Error(t, g.Validate())
}

func TestStakeAndBorrowLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	index := f.stake(t, alice, usdt(1_000), 0)
	require.Equal(t, uint64(0), index)
	require.Len(t, f.events.ofType(events.TypeStaked), 1)

	limit, err := f.ledger.MaxBorrowAmount(alice)
	require.NoError(t, err)
	require.Equal(t, kaia(1_400), limit)

	loan, err := f.ledger.Borrow(ctx, alice, kaia(1_000), 7)
	require.NoError(t, err)
	require.Equal(t, uint64(0), loan)

	balance, err := f.ledger.Balance("KAIA", alice)
	require.NoError(t, err)
	require.Equal(t, kaia(1_000), balance)

	f.clock.Advance(24 * time.Hour)
	interest, err := f.ledger.CalculateInterest(alice, 0)
	require.NoError(t, err)
	require.Equal(t, new(uint256.Int).Div(kaia(22), uint256.NewInt(10)), interest)

	require.NoError(t, f.ledger.Mint(ctx, operator, alice, "KAIA", kaia(10)))
	require.NoError(t, f.ledger.Approve(ctx, alice, f.lending, "KAIA", kaia(1_010)))
	paid, err := f.ledger.Repay(ctx, alice, 0)
	require.NoError(t, err)
	require.Equal(t, new(uint256.Int).Add(kaia(1_000), interest), paid)

	active, err := f.ledger.HasActiveLoans(alice)
	require.NoError(t, err)
	require.False(t, active)
	require.Len(t, f.events.ofType(events.TypeLoanRepaid), 1)

	pool, err := f.ledger.LendingPool()
	require.NoError(t, err)
	require.Equal(t, new(uint256.Int).Add(kaia(500_000), interest), pool.Reserve)
}

func TestRewardAccrualThroughLedger(t *testing.T) {
	f := newFixture(t)
	f.stake(t, alice, usdt(10_000), 0)

	f.clock.Advance(30 * 24 * time.Hour)
	reward, err := f.ledger.Reward(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(49_315_068), reward.Uint64())

	paid, err := f.ledger.ClaimRewards(context.Background(), alice)
	require.NoError(t, err)
	require.Equal(t, reward, paid)

	reward, err = f.ledger.Reward(alice)
	require.NoError(t, err)
	require.True(t, reward.IsZero())
}

func TestFailedOperationLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before := f.events.count()
	_, err := f.ledger.Stake(ctx, alice, usdt(100), 0)
	require.True(t, errors.Is(err, coreerrors.ErrTransferFailed), "got %v", err)
	require.True(t, errors.Is(err, coreerrors.ErrTransfer))
	require.Equal(t, before, f.events.count())

	pool, err := f.ledger.StakingPool()
	require.NoError(t, err)
	require.True(t, pool.TotalStaked.IsZero())
	history, err := f.ledger.StakeHistory(alice)
	require.NoError(t, err)
	require.Empty(t, history)
	balance, err := f.ledger.Balance("USDT", alice)
	require.NoError(t, err)
	require.Equal(t, usdt(10_000), balance)

	_, err = f.ledger.Borrow(ctx, alice, kaia(10), 7)
	require.True(t, errors.Is(err, lending.ErrNoCollateral))
	require.Equal(t, before, f.events.count())
}

func TestLiquidationAfterDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stake(t, alice, usdt(1_000), 1)
	_, err := f.ledger.Borrow(ctx, alice, kaia(500), 7)
	require.NoError(t, err)

	f.clock.Advance(7 * 24 * time.Hour)
	err = f.ledger.Liquidate(ctx, bob, alice, 0)
	require.True(t, errors.Is(err, lending.ErrLoanNotDue), "due time itself is not overdue")

	f.clock.Advance(time.Second)
	overdue, err := f.ledger.OverdueLoans()
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	require.Equal(t, alice, overdue[0].Borrower)

	require.NoError(t, f.ledger.Liquidate(ctx, bob, alice, 0))
	require.Len(t, f.events.ofType(events.TypeLoanLiquidated), 1)

	loans, err := f.ledger.Loans(alice)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	require.Equal(t, lending.StatusLiquidated, loans[0].Status)

	err = f.ledger.Liquidate(ctx, bob, alice, 0)
	require.True(t, errors.Is(err, lending.ErrLoanNotActive))
}

func TestPauseControls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.ledger.Pause(ctx, alice, nativecommon.ModuleStaking)
	require.True(t, errors.Is(err, coreerrors.ErrAuthorization))
	err = f.ledger.Pause(ctx, operator, "vault")
	require.True(t, errors.Is(err, ErrInvalidModule))

	require.NoError(t, f.ledger.Pause(ctx, operator, nativecommon.ModuleStaking))
	require.True(t, f.ledger.IsPaused(nativecommon.ModuleStaking))
	require.False(t, f.ledger.IsPaused(nativecommon.ModuleLending))
	require.Len(t, f.events.ofType(events.TypePauseToggled), 1)

	err = f.ledger.Pause(ctx, operator, nativecommon.ModuleStaking)
	require.True(t, errors.Is(err, coreerrors.ErrPaused))

	require.NoError(t, f.ledger.Approve(ctx, alice, f.staking, "USDT", usdt(100)))
	_, err = f.ledger.Stake(ctx, alice, usdt(100), 0)
	require.True(t, errors.Is(err, coreerrors.ErrModulePaused))

	require.NoError(t, f.ledger.Unpause(ctx, operator, nativecommon.ModuleStaking))
	err = f.ledger.Unpause(ctx, operator, nativecommon.ModuleStaking)
	require.True(t, errors.Is(err, ErrNotPaused))

	_, err = f.ledger.Stake(ctx, alice, usdt(100), 0)
	require.NoError(t, err)
}

func TestTransferOperator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.ledger.TransferOperator(ctx, alice, bob)
	require.True(t, errors.Is(err, coreerrors.ErrUnauthorized))
	err = f.ledger.TransferOperator(ctx, operator, crypto.Address{})
	require.True(t, errors.Is(err, ErrInvalidOperator))

	require.NoError(t, f.ledger.TransferOperator(ctx, operator, bob))
	op, err := f.ledger.Operator()
	require.NoError(t, err)
	require.Equal(t, bob, op)

	_, err = f.ledger.AddNode(ctx, operator, staking.NodeSpec{Name: "Kaia Breeze Node", AnnualRateBps: 500, SecurityRating: 2, IsActive: true, MaxCapacity: usdt(1_000)})
	require.True(t, errors.Is(err, coreerrors.ErrUnauthorized))
	id, err := f.ledger.AddNode(ctx, bob, staking.NodeSpec{Name: "Kaia Breeze Node", AnnualRateBps: 500, SecurityRating: 2, IsActive: true, MaxCapacity: usdt(1_000)})
	require.NoError(t, err)
	require.Equal(t, uint64(3), id)
}

func TestEmergencyWithdrawRoutesByModule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.ledger.EmergencyWithdraw(ctx, operator, nativecommon.ModuleLending, "kaia", kaia(1_000)))
	balance, err := f.ledger.Balance("KAIA", operator)
	require.NoError(t, err)
	require.Equal(t, kaia(11_000), balance)

	pool, err := f.ledger.LendingPool()
	require.NoError(t, err)
	require.Equal(t, kaia(500_000), pool.Reserve, "sweeps leave ledger totals untouched")

	err = f.ledger.EmergencyWithdraw(ctx, operator, "vault", "USDT", usdt(1))
	require.True(t, errors.Is(err, ErrInvalidModule))
	err = f.ledger.EmergencyWithdraw(ctx, alice, nativecommon.ModuleStaking, "USDT", usdt(1))
	require.True(t, errors.Is(err, coreerrors.ErrUnauthorized))
}

func TestConcurrentStakesAreSerialised(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 16
	users := make([]crypto.Address, workers)
	for i := range users {
		users[i] = crypto.Address{0xee, byte(i + 1)}
		require.NoError(t, f.ledger.Mint(ctx, operator, users[i], "USDT", usdt(100)))
		require.NoError(t, f.ledger.Approve(ctx, users[i], f.staking, "USDT", usdt(100)))
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for _, user := range users {
		wg.Add(1)
		go func(user crypto.Address) {
			defer wg.Done()
			_, err := f.ledger.Stake(ctx, user, usdt(100), 2)
			errs <- err
		}(user)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	node, err := f.ledger.Node(2)
	require.NoError(t, err)
	require.Equal(t, usdt(100*workers), node.TotalStaked)
	pool, err := f.ledger.StakingPool()
	require.NoError(t, err)
	require.Equal(t, usdt(100*workers), pool.TotalStaked)
	require.Len(t, f.events.ofType(events.TypeStaked), workers)
}

func TestCanceledContextRejected(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.ledger.Stake(ctx, alice, usdt(100), 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParamsValidation(t *testing.T) {
	params := DefaultParams()
	require.NoError(t, params.Validate())

	params.Lending.CollateralAsset = "KAIA"
	params.Lending.CollateralDecimals = 18
	require.Error(t, params.Validate())

	params = DefaultParams()
	params.Lending.BorrowDecimals = 8
	require.Error(t, params.Validate())

	params = DefaultParams()
	params.Assets = append(params.Assets, params.Assets[0])
	require.Error(t, params.Validate())

	_, err := NewLedger(nil, DefaultParams(), Options{})
	require.Error(t, err)
}
