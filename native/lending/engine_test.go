package lending

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	coreerrors "kaiadefi/core/errors"
	"kaiadefi/core/events"
	"kaiadefi/core/types"
	"kaiadefi/crypto"
	"kaiadefi/native/bank"
)

type allowanceKey struct {
	asset          string
	owner, spender crypto.Address
}

type mockState struct {
	pool       *Pool
	loans      map[crypto.Address][]*Loan
	borrowers  []crypto.Address
	staked     map[crypto.Address]*uint256.Int
	balances   map[string]map[crypto.Address]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
	operator   crypto.Address
	paused     bool
}

func newMockState(operator crypto.Address) *mockState {
	return &mockState{
		pool:       (*Pool)(nil).Clone(),
		loans:      make(map[crypto.Address][]*Loan),
		staked:     make(map[crypto.Address]*uint256.Int),
		balances:   make(map[string]map[crypto.Address]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
		operator:   operator,
	}
}

func (m *mockState) LendingPool() (*Pool, error) { return m.pool.Clone(), nil }

func (m *mockState) PutLendingPool(p *Pool) error {
	m.pool = p.Clone()
	return nil
}

func (m *mockState) LendingLoans(addr crypto.Address) ([]*Loan, error) {
	out := make([]*Loan, 0, len(m.loans[addr]))
	for _, loan := range m.loans[addr] {
		out = append(out, loan.Clone())
	}
	return out, nil
}

func (m *mockState) PutLendingLoans(addr crypto.Address, loans []*Loan) error {
	out := make([]*Loan, 0, len(loans))
	for _, loan := range loans {
		out = append(out, loan.Clone())
	}
	m.loans[addr] = out
	return nil
}

func (m *mockState) LendingBorrowers() ([]crypto.Address, error) {
	return append([]crypto.Address(nil), m.borrowers...), nil
}

func (m *mockState) AddLendingBorrower(addr crypto.Address) error {
	m.borrowers = append(m.borrowers, addr)
	return nil
}

func (m *mockState) StakedAmount(addr crypto.Address) (*uint256.Int, error) {
	return types.CloneAmount(m.staked[addr]), nil
}

func (m *mockState) Balance(asset string, addr crypto.Address) (*uint256.Int, error) {
	return types.CloneAmount(m.balances[asset][addr]), nil
}

func (m *mockState) SetBalance(asset string, addr crypto.Address, amount *uint256.Int) error {
	if m.balances[asset] == nil {
		m.balances[asset] = make(map[crypto.Address]*uint256.Int)
	}
	m.balances[asset][addr] = types.CloneAmount(amount)
	return nil
}

func (m *mockState) Allowance(asset string, owner, spender crypto.Address) (*uint256.Int, error) {
	return types.CloneAmount(m.allowances[allowanceKey{asset, owner, spender}]), nil
}

func (m *mockState) SetAllowance(asset string, owner, spender crypto.Address, amount *uint256.Int) error {
	m.allowances[allowanceKey{asset, owner, spender}] = types.CloneAmount(amount)
	return nil
}

func (m *mockState) Operator() (crypto.Address, error) { return m.operator, nil }

func (m *mockState) IsPaused(string) bool { return m.paused }

const (
	day   = 24 * 60 * 60
	start = 1_700_000_000
)

var (
	operator   = crypto.MustParseAddress("0x00000000000000000000000000000000000000f0")
	alice      = crypto.MustParseAddress("0x00000000000000000000000000000000000000a1")
	bob        = crypto.MustParseAddress("0x00000000000000000000000000000000000000b0")
	liquidator = crypto.MustParseAddress("0x00000000000000000000000000000000000000c0")
)

func usdt(whole uint64) *uint256.Int { return types.Units(whole, 6) }
func kaia(whole uint64) *uint256.Int { return types.Units(whole, 18) }

type fixture struct {
	engine *Engine
	state  *mockState
	tokens *bank.Ledger
	events *events.Buffer
}

func newFixture(t *testing.T, mutate func(*Params)) *fixture {
	t.Helper()
	params := DefaultParams()
	if mutate != nil {
		mutate(&params)
	}
	if err := params.Validate(); err != nil {
		t.Fatalf("params: %v", err)
	}
	state := newMockState(operator)
	tokens := bank.NewLedger(bank.Asset{Symbol: "USDT", Decimals: 6}, bank.Asset{Symbol: "KAIA", Decimals: 18})
	tokens.SetState(state)
	engine := NewEngine(crypto.ModuleAddress(moduleName), params)
	engine.SetState(state)
	engine.SetStaking(state)
	engine.SetTokens(tokens)
	engine.SetPauses(state)
	engine.SetOperators(state)
	engine.SetNow(start)
	buf := &events.Buffer{}
	engine.SetEmitter(buf)

	if err := engine.Bootstrap(DefaultExchangeRate(), nil); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if err := tokens.Mint("KAIA", operator, kaia(1_000_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := tokens.Approve("KAIA", operator, engine.ModuleAddress(), kaia(1_000_000)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := engine.AddReserve(operator, kaia(500_000)); err != nil {
		t.Fatalf("add reserve: %v", err)
	}
	buf.Reset()
	return &fixture{engine: engine, state: state, tokens: tokens, events: buf}
}

func (f *fixture) fund(t *testing.T, addr crypto.Address, amount *uint256.Int) {
	t.Helper()
	if err := f.tokens.Mint("KAIA", addr, amount); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := f.tokens.Approve("KAIA", addr, f.engine.ModuleAddress(), kaia(10_000_000)); err != nil {
		t.Fatalf("approve: %v", err)
	}
}

func (f *fixture) kaiaBalance(t *testing.T, addr crypto.Address) *uint256.Int {
	t.Helper()
	bal, err := f.tokens.BalanceOf("KAIA", addr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal
}

func TestMaxBorrowAmount(t *testing.T) {
	f := newFixture(t, nil)
	limit, err := f.engine.MaxBorrowAmount(alice)
	if err != nil || !limit.IsZero() {
		t.Fatalf("no stake must yield zero: %v %v", limit, err)
	}
	f.state.staked[alice] = usdt(300_000)
	limit, err = f.engine.MaxBorrowAmount(alice)
	if err != nil {
		t.Fatalf("max borrow: %v", err)
	}
	// 300,000 USDT × 70% × 2 KAIA/USDT.
	if !limit.Eq(kaia(420_000)) {
		t.Fatalf("unexpected max borrow %s", limit)
	}
	if _, err := f.engine.Borrow(alice, kaia(100_000), 7); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	limit, _ = f.engine.MaxBorrowAmount(alice)
	if !limit.Eq(kaia(320_000)) {
		t.Fatalf("outstanding principal not deducted: %s", limit)
	}
}

func TestBorrowFailureOrder(t *testing.T) {
	f := newFixture(t, nil)
	f.state.paused = true
	if _, err := f.engine.Borrow(bob, new(uint256.Int), 3); !errors.Is(err, coreerrors.ErrPaused) {
		t.Fatalf("pause must be checked first, got %v", err)
	}
	f.state.paused = false
	belowMin := new(uint256.Int).Sub(kaia(1), uint256.NewInt(1))
	if _, err := f.engine.Borrow(bob, belowMin, 3); !errors.Is(err, ErrBelowMinimumLoan) {
		t.Fatalf("expected below minimum, got %v", err)
	}
	if _, err := f.engine.Borrow(bob, kaia(1), 10); !errors.Is(err, ErrInvalidTerm) {
		t.Fatalf("expected invalid term, got %v", err)
	}
	if _, err := f.engine.Borrow(bob, kaia(1), 7); !errors.Is(err, ErrNoCollateral) {
		t.Fatalf("expected no collateral, got %v", err)
	}
	f.state.staked[bob] = usdt(300_000)
	_, err := f.engine.Borrow(bob, kaia(450_002), 7)
	if !errors.Is(err, ErrInsufficientCollateral) || !errors.Is(err, coreerrors.ErrCapacity) {
		t.Fatalf("expected insufficient collateral, got %v", err)
	}
	f.state.staked[bob] = usdt(1_000_000)
	if _, err := f.engine.Borrow(bob, kaia(500_001), 7); !errors.Is(err, ErrInsufficientReserve) {
		t.Fatalf("expected insufficient reserve, got %v", err)
	}
	if len(f.events.Events()) != 0 || len(f.state.loans[bob]) != 0 {
		t.Fatalf("rejected borrows must not leave state or events")
	}
}

func TestBorrowAtBoundarySucceeds(t *testing.T) {
	f := newFixture(t, nil)
	f.state.staked[alice] = usdt(300_000)
	idx, err := f.engine.Borrow(alice, kaia(420_000), 30)
	if err != nil {
		t.Fatalf("borrow at max: %v", err)
	}
	if idx != 0 {
		t.Fatalf("unexpected index %d", idx)
	}
	if !f.kaiaBalance(t, alice).Eq(kaia(420_000)) {
		t.Fatalf("borrowed funds not paid out")
	}
	pool, _ := f.engine.Pool()
	if !pool.Reserve.Eq(kaia(80_000)) || !pool.TotalOutstanding.Eq(kaia(420_000)) {
		t.Fatalf("unexpected pool %+v", pool)
	}
	if _, err := f.engine.Borrow(alice, kaia(1), 7); !errors.Is(err, ErrInsufficientCollateral) {
		t.Fatalf("max exhausted, got %v", err)
	}
	views, _ := f.engine.Loans(alice)
	loan := views[0].Loan
	if loan.DailyRateBps != 27 || loan.TermDays != 30 || loan.DueTime != start+30*day || !loan.IsActive || loan.IsRepaid {
		t.Fatalf("unexpected loan %+v", loan)
	}
	// 420,000 KAIA at 2 KAIA/USDT and 70% is exactly 300,000 USDT.
	if !loan.CollateralAmount.Eq(usdt(300_000)) {
		t.Fatalf("unexpected collateral %s", loan.CollateralAmount)
	}
	taken, ok := f.events.Events()[0].(events.LoanTaken)
	if !ok || taken.Borrower != alice || taken.TermDays != 30 || !taken.KaiaAmount.Eq(kaia(420_000)) {
		t.Fatalf("unexpected loan taken event %#v", f.events.Events()[0])
	}
}

func TestCollateralRoundsUp(t *testing.T) {
	f := newFixture(t, nil)
	collateral, err := f.engine.CollateralFor(kaia(1))
	if err != nil {
		t.Fatalf("collateral: %v", err)
	}
	// 1 KAIA / 2 / 0.7 = 0.714285714 USDT.
	if collateral.Uint64() != 714_286 {
		t.Fatalf("unexpected collateral %s", collateral)
	}
}

func TestInterestScenario(t *testing.T) {
	f := newFixture(t, nil)
	f.state.staked[alice] = usdt(1_000)
	if _, err := f.engine.Borrow(alice, kaia(1), 7); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	prev := new(uint256.Int)
	for _, elapsed := range []uint64{0, 3600, day, 3 * day, 7 * day} {
		f.engine.SetNow(start + elapsed)
		interest, err := f.engine.CalculateInterest(alice, 0)
		if err != nil {
			t.Fatalf("interest: %v", err)
		}
		if interest.Lt(prev) {
			t.Fatalf("interest decreased at %d", elapsed)
		}
		prev = interest
	}
	// 1 KAIA × 22 × 7 / 10000.
	want := new(uint256.Int).Div(new(uint256.Int).Mul(kaia(1), uint256.NewInt(22*7)), uint256.NewInt(10_000))
	if !prev.Eq(want) {
		t.Fatalf("interest %s, want %s", prev, want)
	}
	// Accrual continues past the due time.
	f.engine.SetNow(start + 10*day)
	late, _ := f.engine.CalculateInterest(alice, 0)
	if want := new(uint256.Int).Div(new(uint256.Int).Mul(kaia(1), uint256.NewInt(22*10)), uint256.NewInt(10_000)); !late.Eq(want) {
		t.Fatalf("late interest %s, want %s", late, want)
	}
	if _, err := f.engine.CalculateInterest(alice, 1); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("expected invalid index, got %v", err)
	}
}

func TestLongerTermsCostMore(t *testing.T) {
	f := newFixture(t, nil)
	f.state.staked[alice] = usdt(1_000)
	for _, term := range []uint64{7, 14, 30} {
		if _, err := f.engine.Borrow(alice, kaia(10), term); err != nil {
			t.Fatalf("borrow %d: %v", term, err)
		}
	}
	f.engine.SetNow(start + 5*day)
	var prev *uint256.Int
	for idx := uint64(0); idx < 3; idx++ {
		interest, err := f.engine.CalculateInterest(alice, idx)
		if err != nil {
			t.Fatalf("interest: %v", err)
		}
		if prev != nil && !interest.Gt(prev) {
			t.Fatalf("loan %d interest %s not above %s", idx, interest, prev)
		}
		prev = interest
	}
}

func TestRepayClosesLoan(t *testing.T) {
	f := newFixture(t, nil)
	f.state.staked[alice] = usdt(1_000)
	if _, err := f.engine.Borrow(alice, kaia(100), 14); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	f.engine.SetNow(start + 10*day)
	interest, _ := f.engine.CalculateInterest(alice, 0)

	// Without allowance the repayment fails and the loan stays open.
	if _, err := f.engine.Repay(alice, 0); !errors.Is(err, coreerrors.ErrTransferFailed) {
		t.Fatalf("expected transfer failure, got %v", err)
	}
	if active, _ := f.engine.HasActiveLoans(alice); !active {
		t.Fatalf("failed repay closed the loan")
	}

	f.fund(t, alice, kaia(10))
	paid, err := f.engine.Repay(alice, 0)
	if err != nil {
		t.Fatalf("repay: %v", err)
	}
	if want := new(uint256.Int).Add(kaia(100), interest); !paid.Eq(want) {
		t.Fatalf("paid %s, want %s", paid, want)
	}
	pool, _ := f.engine.Pool()
	if want := new(uint256.Int).Add(kaia(500_000), interest); !pool.Reserve.Eq(want) {
		t.Fatalf("reserve %s, want %s", pool.Reserve, want)
	}
	if !pool.TotalOutstanding.IsZero() {
		t.Fatalf("outstanding not cleared: %s", pool.TotalOutstanding)
	}
	views, _ := f.engine.Loans(alice)
	if views[0].Status != StatusRepaid || views[0].Loan.IsActive || !views[0].Loan.IsRepaid {
		t.Fatalf("unexpected loan after repay %+v", views[0])
	}
	if !views[0].Interest.IsZero() {
		t.Fatalf("closed loans accrue nothing")
	}
	if _, err := f.engine.Repay(alice, 0); !errors.Is(err, ErrLoanNotActive) {
		t.Fatalf("expected loan not active, got %v", err)
	}
	if _, err := f.engine.Repay(alice, 5); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("expected invalid index, got %v", err)
	}
	if borrowed, _ := f.engine.TotalBorrowed(alice); !borrowed.IsZero() {
		t.Fatalf("total borrowed after repay %s", borrowed)
	}
	repaid, ok := f.events.Events()[1].(events.LoanRepaid)
	if !ok || !repaid.Paid.Eq(paid) || !repaid.Interest.Eq(interest) {
		t.Fatalf("unexpected repaid event %#v", f.events.Events()[1])
	}
}

func TestLenientRepayment(t *testing.T) {
	f := newFixture(t, func(p *Params) { p.LenientRepayment = true })
	f.state.staked[alice] = usdt(1_000)
	if _, err := f.engine.Borrow(alice, kaia(100), 7); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	// Alice spends part of the loan and can only return 60 KAIA.
	if err := f.tokens.Transfer("KAIA", alice, bob, kaia(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := f.tokens.Approve("KAIA", alice, f.engine.ModuleAddress(), kaia(1_000)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	f.engine.SetNow(start + 7*day)
	paid, err := f.engine.Repay(alice, 0)
	if err != nil {
		t.Fatalf("lenient repay: %v", err)
	}
	if !paid.Eq(kaia(60)) {
		t.Fatalf("collected %s", paid)
	}
	views, _ := f.engine.Loans(alice)
	if !views[0].Loan.IsRepaid || !views[0].Loan.RepaidAmount.Eq(kaia(60)) {
		t.Fatalf("lenient repay must close the loan: %+v", views[0].Loan)
	}
	pool, _ := f.engine.Pool()
	if !pool.Reserve.Eq(kaia(499_960)) {
		t.Fatalf("reserve %s", pool.Reserve)
	}
}

func TestLiquidationScenario(t *testing.T) {
	f := newFixture(t, nil)
	f.state.staked[alice] = usdt(1_000)
	if _, err := f.engine.Borrow(alice, kaia(50), 7); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	for _, at := range []uint64{3 * day, 7 * day} {
		f.engine.SetNow(start + at)
		if err := f.engine.Liquidate(liquidator, alice, 0); !errors.Is(err, ErrLoanNotDue) {
			t.Fatalf("liquidation at +%ds must fail, got %v", at, err)
		}
	}
	if err := f.engine.Liquidate(liquidator, alice, 1); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("expected invalid index, got %v", err)
	}
	f.engine.SetNow(start + 8*day)
	if views, _ := f.engine.ActiveLoans(alice); len(views) != 1 || !views[0].Overdue {
		t.Fatalf("loan must be reported overdue")
	}
	overdue, err := f.engine.OverdueLoans()
	if err != nil || len(overdue) != 1 || overdue[0].Borrower != alice || overdue[0].Index != 0 {
		t.Fatalf("unexpected overdue loans %+v err=%v", overdue, err)
	}
	if err := f.engine.Liquidate(liquidator, alice, 0); err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	if overdue, _ := f.engine.OverdueLoans(); len(overdue) != 0 {
		t.Fatalf("liquidated loan still listed as overdue")
	}
	views, _ := f.engine.Loans(alice)
	if views[0].Loan.IsActive || views[0].Loan.IsRepaid || views[0].Status != StatusLiquidated {
		t.Fatalf("unexpected loan after liquidation %+v", views[0].Loan)
	}
	if err := f.engine.Liquidate(bob, alice, 0); !errors.Is(err, ErrLoanNotActive) {
		t.Fatalf("second liquidation must fail, got %v", err)
	}
	if _, err := f.engine.Repay(alice, 0); !errors.Is(err, ErrLoanNotActive) {
		t.Fatalf("repay after liquidation must fail, got %v", err)
	}
	pool, _ := f.engine.Pool()
	if !pool.TotalLiquidated.Eq(kaia(50)) || !pool.TotalOutstanding.IsZero() {
		t.Fatalf("unexpected pool after liquidation %+v", pool)
	}
	liquidated, ok := f.events.Events()[1].(events.LoanLiquidated)
	if !ok || liquidated.Liquidator != liquidator || liquidated.Borrower != alice {
		t.Fatalf("unexpected liquidation event %#v", f.events.Events()[1])
	}
}

func TestActiveLoansKeepIndices(t *testing.T) {
	f := newFixture(t, nil)
	f.state.staked[alice] = usdt(1_000)
	for i := 0; i < 3; i++ {
		if _, err := f.engine.Borrow(alice, kaia(5), 7); err != nil {
			t.Fatalf("borrow: %v", err)
		}
	}
	f.fund(t, alice, kaia(1))
	if _, err := f.engine.Repay(alice, 1); err != nil {
		t.Fatalf("repay: %v", err)
	}
	active, _ := f.engine.ActiveLoans(alice)
	if len(active) != 2 || active[0].Index != 0 || active[1].Index != 2 {
		t.Fatalf("unexpected active loans %+v", active)
	}
	borrowed, _ := f.engine.TotalBorrowed(alice)
	if !borrowed.Eq(kaia(10)) {
		t.Fatalf("total borrowed %s", borrowed)
	}
	all, _ := f.engine.Loans(alice)
	if len(all) != 3 {
		t.Fatalf("loan list must not be compacted")
	}
}

func TestExchangeRateAdministration(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.engine.UpdateExchangeRate(alice, kaia(3)); !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := f.engine.UpdateExchangeRate(operator, new(uint256.Int)); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected invalid rate, got %v", err)
	}
	if err := f.engine.UpdateExchangeRate(operator, kaia(3)); err != nil {
		t.Fatalf("update rate: %v", err)
	}
	f.state.staked[alice] = usdt(100)
	limit, _ := f.engine.MaxBorrowAmount(alice)
	if !limit.Eq(kaia(210)) {
		t.Fatalf("max borrow at 3 KAIA/USDT %s", limit)
	}
	updated, ok := f.events.Events()[0].(events.ExchangeRateUpdated)
	if !ok || !updated.Rate.Eq(kaia(3)) || updated.Timestamp != start {
		t.Fatalf("unexpected rate event %#v", f.events.Events()[0])
	}
}

func TestAddReserveAndEmergencyWithdraw(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.engine.AddReserve(alice, kaia(1)); !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	reserve, err := f.engine.AddReserve(operator, kaia(1_000))
	if err != nil {
		t.Fatalf("add reserve: %v", err)
	}
	if !reserve.Eq(kaia(501_000)) {
		t.Fatalf("reserve %s", reserve)
	}
	updated, ok := f.events.Events()[0].(events.ReserveUpdated)
	if !ok || !updated.Amount.Eq(kaia(1_000)) || !updated.Reserve.Eq(reserve) {
		t.Fatalf("unexpected reserve event %#v", f.events.Events()[0])
	}
	before := f.kaiaBalance(t, operator)
	if err := f.engine.EmergencyWithdraw(operator, "KAIA", kaia(1_000)); err != nil {
		t.Fatalf("emergency withdraw: %v", err)
	}
	if got := new(uint256.Int).Sub(f.kaiaBalance(t, operator), before); !got.Eq(kaia(1_000)) {
		t.Fatalf("operator received %s", got)
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("default params: %v", err)
	}
	single := DefaultParams()
	single.Terms = []TermRate{{Days: 7, DailyRateBps: 30}}
	if err := single.Validate(); err != nil {
		t.Fatalf("single term: %v", err)
	}

	cases := map[string]func(*Params){
		"duplicate term":      func(p *Params) { p.Terms = append(p.Terms, TermRate{Days: 7, DailyRateBps: 30}) },
		"ratio above 100%":    func(p *Params) { p.CollateralRatioBps = 10_001 },
		"no terms":            func(p *Params) { p.Terms = nil },
		"zero rate":           func(p *Params) { p.Terms[1].DailyRateBps = 0 },
		"longer term cheaper": func(p *Params) { p.Terms = []TermRate{{Days: 5, DailyRateBps: 30}, {Days: 60, DailyRateBps: 10}} },
		"rates reversed": func(p *Params) {
			p.Terms = []TermRate{{Days: 7, DailyRateBps: 27}, {Days: 14, DailyRateBps: 24}, {Days: 30, DailyRateBps: 22}}
		},
		"equal rates":    func(p *Params) { p.Terms[2].DailyRateBps = p.Terms[1].DailyRateBps },
		"terms unsorted": func(p *Params) { p.Terms = []TermRate{{Days: 30, DailyRateBps: 27}, {Days: 7, DailyRateBps: 22}} },
	}
	for name, mutate := range cases {
		p := DefaultParams()
		mutate(&p)
		if err := p.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
