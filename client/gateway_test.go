package client_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"kaiadefi/client"
	"kaiadefi/core"
	"kaiadefi/core/state"
	"kaiadefi/core/types"
	"kaiadefi/crypto"
	"kaiadefi/gateway/routes"
	nativecommon "kaiadefi/native/common"
	"kaiadefi/storage"
)

var (
	operator = crypto.MustParseAddress("0x00000000000000000000000000000000000000a1")
	borrower = crypto.MustParseAddress("0x00000000000000000000000000000000000000b2")
	keeper   = crypto.MustParseAddress("0x00000000000000000000000000000000000000c3")
)

type gatewayClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *gatewayClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *gatewayClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newGateway(t *testing.T) (*httptest.Server, *gatewayClock) {
	t.Helper()
	clock := &gatewayClock{now: time.Unix(1_700_000_000, 0)}
	ledger, err := core.NewLedger(state.NewManager(storage.NewMemDB()), core.DefaultParams(), core.Options{Clock: clock.Now})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	genesis := core.DefaultGenesis(operator)
	genesis.Alloc = []core.Allocation{{Address: borrower, Asset: "USDT", Amount: types.Units(5_000, 6)}}
	genesis.RewardPool = types.Units(10_000, 6)
	genesis.Reserve = types.Units(100_000, 18)
	if _, err := ledger.InitGenesis(context.Background(), genesis); err != nil {
		t.Fatalf("genesis: %v", err)
	}
	handler, err := routes.New(routes.Config{Ledger: ledger})
	if err != nil {
		t.Fatalf("routes: %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, clock
}

func newClient(t *testing.T, server *httptest.Server, caller crypto.Address) *client.Client {
	t.Helper()
	c, err := client.New(server.URL, client.WithHTTPClient(server.Client()), client.WithCaller(caller))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestBorrowAndLiquidateThroughGateway(t *testing.T) {
	server, clock := newGateway(t)
	ctx := context.Background()
	user := newClient(t, server, borrower)
	liquidator := newClient(t, server, keeper)

	status, err := user.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	stakingAddr, err := crypto.ParseAddress(status.Modules[nativecommon.ModuleStaking].Address)
	if err != nil {
		t.Fatalf("module address: %v", err)
	}

	stake := types.Units(1_000, 6)
	if _, err := user.Approve(ctx, stakingAddr, "USDT", stake); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := user.Stake(ctx, stake, 0); err != nil {
		t.Fatalf("stake: %v", err)
	}
	loan := types.Units(100, 18)
	index, err := user.Borrow(ctx, loan, 7)
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}

	err = liquidator.Liquidate(ctx, borrower, index)
	if client.CodeOf(err) != "LoanNotDue" {
		t.Fatalf("expected LoanNotDue, got %v", err)
	}

	clock.Advance(8 * 24 * time.Hour)
	overdue, err := liquidator.OverdueLoans(ctx)
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if len(overdue) != 1 || overdue[0].Borrower != borrower.Hex() {
		t.Fatalf("unexpected overdue loans %+v", overdue)
	}
	if err := liquidator.Liquidate(ctx, borrower, index); err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	active, err := user.HasActiveLoans(ctx, borrower)
	if err != nil {
		t.Fatalf("has active loans: %v", err)
	}
	if active {
		t.Fatalf("expected no active loans after liquidation")
	}
	pool, err := user.LendingPool(ctx)
	if err != nil {
		t.Fatalf("lending pool: %v", err)
	}
	if pool.TotalLiquidated != loan.Dec() {
		t.Fatalf("unexpected total liquidated %s", pool.TotalLiquidated)
	}
}
