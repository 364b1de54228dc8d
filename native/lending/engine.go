package lending

import (
	"errors"
	"strings"

	"github.com/holiman/uint256"

	coreerrors "kaiadefi/core/errors"
	"kaiadefi/core/events"
	"kaiadefi/core/types"
	"kaiadefi/crypto"
	nativecommon "kaiadefi/native/common"
)

var (
	errNilState   = errors.New("lending engine: state not configured")
	errNilTokens  = errors.New("lending engine: token ledger not configured")
	errNilStaking = errors.New("lending engine: staking view not configured")
)

// Coded failures surfaced to callers.
var (
	ErrBelowMinimumLoan       = coreerrors.New(coreerrors.KindValidation, "BelowMinimumLoan", "Amount below minimum loan")
	ErrInvalidTerm            = coreerrors.New(coreerrors.KindValidation, "InvalidTerm", "Invalid loan term")
	ErrNoCollateral           = coreerrors.New(coreerrors.KindState, "NoCollateral", "No staked collateral found")
	ErrInsufficientCollateral = coreerrors.New(coreerrors.KindCapacity, "InsufficientCollateral", "Insufficient collateral")
	ErrInsufficientReserve    = coreerrors.New(coreerrors.KindCapacity, "InsufficientReserve", "Insufficient KAIA reserve")
	ErrInvalidIndex           = coreerrors.New(coreerrors.KindValidation, "InvalidIndex", "Invalid loan index")
	ErrLoanNotActive          = coreerrors.New(coreerrors.KindState, "LoanNotActive", "Loan is not active")
	ErrLoanNotDue             = coreerrors.New(coreerrors.KindState, "LoanNotDue", "Loan not yet due")
	ErrInvalidRate            = coreerrors.New(coreerrors.KindValidation, "InvalidRate", "Invalid exchange rate")
)

const moduleName = nativecommon.ModuleLending

type engineState interface {
	LendingPool() (*Pool, error)
	PutLendingPool(pool *Pool) error
	LendingLoans(addr crypto.Address) ([]*Loan, error)
	PutLendingLoans(addr crypto.Address, loans []*Loan) error
	LendingBorrowers() ([]crypto.Address, error)
	AddLendingBorrower(addr crypto.Address) error
}

// stakingView exposes the collateral source.
type stakingView interface {
	StakedAmount(addr crypto.Address) (*uint256.Int, error)
}

type tokenLedger interface {
	Transfer(asset string, from, to crypto.Address, amount *uint256.Int) error
	TransferFrom(asset string, spender, from, to crypto.Address, amount *uint256.Int) error
	Spendable(asset string, owner, spender crypto.Address) (*uint256.Int, error)
}

// Engine applies lending state transitions against staked collateral. It is
// not safe for concurrent use; callers serialise operations and discard state
// on error.
type Engine struct {
	state         engineState
	staking       stakingView
	tokens        tokenLedger
	params        Params
	moduleAddress crypto.Address
	pauses        nativecommon.PauseView
	operators     nativecommon.OperatorView
	emitter       events.Emitter
	now           uint64
}

// NewEngine constructs a lending engine whose reserve is held at moduleAddr.
func NewEngine(moduleAddr crypto.Address, params Params) *Engine {
	params = params.Clone()
	params.BorrowAsset = strings.ToUpper(strings.TrimSpace(params.BorrowAsset))
	params.CollateralAsset = strings.ToUpper(strings.TrimSpace(params.CollateralAsset))
	return &Engine{moduleAddress: moduleAddr, params: params, emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetStaking wires the staking ledger consulted for collateral.
func (e *Engine) SetStaking(view stakingView) { e.staking = view }

// SetTokens wires the asset ledger used to move the borrow asset.
func (e *Engine) SetTokens(tokens tokenLedger) { e.tokens = tokens }

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

func (e *Engine) SetOperators(v nativecommon.OperatorView) {
	if e == nil {
		return
	}
	e.operators = v
}

// SetEmitter configures the event sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// SetNow records the unix timestamp used for accrual and due checks.
func (e *Engine) SetNow(ts uint64) { e.now = ts }

// Params returns the engine configuration.
func (e *Engine) Params() Params { return e.params.Clone() }

// ModuleAddress returns the account holding the reserve.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

func (e *Engine) ready() error {
	if e.state == nil {
		return errNilState
	}
	if e.tokens == nil {
		return errNilTokens
	}
	if e.staking == nil {
		return errNilStaking
	}
	return nil
}

// Borrow opens a loan of amount for termDays and pays it out of the reserve.
// It returns the loan index.
func (e *Engine) Borrow(user crypto.Address, amount *uint256.Int, termDays uint64) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if amount == nil || amount.Lt(e.params.MinLoanAmount) {
		return 0, ErrBelowMinimumLoan
	}
	term, ok := e.params.term(termDays)
	if !ok {
		return 0, coreerrors.Wrap(ErrInvalidTerm, "%d days", termDays)
	}
	staked, err := e.staking.StakedAmount(user)
	if err != nil {
		return 0, err
	}
	if staked.IsZero() {
		return 0, ErrNoCollateral
	}
	pool, err := e.pool()
	if err != nil {
		return 0, err
	}
	loans, err := e.state.LendingLoans(user)
	if err != nil {
		return 0, err
	}
	available, err := e.maxBorrow(staked, pool, loans)
	if err != nil {
		return 0, err
	}
	if amount.Gt(available) {
		return 0, coreerrors.Wrap(ErrInsufficientCollateral, "requested %s, max %s", amount.Dec(), available.Dec())
	}
	if pool.Reserve.Lt(amount) {
		return 0, coreerrors.Wrap(ErrInsufficientReserve, "reserve holds %s", pool.Reserve.Dec())
	}
	collateral, err := requiredCollateral(amount, e.params.CollateralRatioBps, pool.ExchangeRate, e.params)
	if err != nil {
		return 0, err
	}

	if err := e.tokens.Transfer(e.params.BorrowAsset, e.moduleAddress, user, amount); err != nil {
		return 0, coreerrors.Wrap(coreerrors.ErrTransferFailed, "%v", err)
	}

	loan := &Loan{
		KaiaAmount:       new(uint256.Int).Set(amount),
		CollateralAmount: collateral,
		DailyRateBps:     term.DailyRateBps,
		TermDays:         term.Days,
		BorrowTime:       e.now,
		DueTime:          e.now + term.Days*secondsPerDay,
		IsActive:         true,
		RepaidAmount:     new(uint256.Int),
	}
	index := uint64(len(loans))
	loans = append(loans, loan)
	pool.Reserve = new(uint256.Int).Sub(pool.Reserve, amount)
	pool.TotalOutstanding = new(uint256.Int).Add(pool.TotalOutstanding, amount)
	if err := e.state.PutLendingLoans(user, loans); err != nil {
		return 0, err
	}
	if index == 0 {
		if err := e.state.AddLendingBorrower(user); err != nil {
			return 0, err
		}
	}
	if err := e.state.PutLendingPool(pool); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.LoanTaken{
		Borrower:         user,
		LoanIndex:        index,
		KaiaAmount:       new(uint256.Int).Set(amount),
		CollateralAmount: new(uint256.Int).Set(collateral),
		DailyRateBps:     term.DailyRateBps,
		TermDays:         term.Days,
		DueTime:          loan.DueTime,
		Timestamp:        e.now,
	})
	return index, nil
}

// Repay closes the loan at index. The borrower pays principal plus accrued
// interest through the approved allowance; in lenient mode the loan closes
// for whatever the borrower can cover. It returns the amount collected.
func (e *Engine) Repay(user crypto.Address, index uint64) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	loans, err := e.state.LendingLoans(user)
	if err != nil {
		return nil, err
	}
	if index >= uint64(len(loans)) {
		return nil, ErrInvalidIndex
	}
	loan := loans[index]
	if !loan.IsActive {
		return nil, ErrLoanNotActive
	}
	interest, err := simpleInterest(loan.KaiaAmount, loan.DailyRateBps, loan.BorrowTime, e.now)
	if err != nil {
		return nil, err
	}
	due, overflow := new(uint256.Int).AddOverflow(loan.KaiaAmount, interest)
	if overflow {
		return nil, errMathOverflow
	}
	pool, err := e.pool()
	if err != nil {
		return nil, err
	}

	paid := due
	if e.params.LenientRepayment {
		spendable, err := e.tokens.Spendable(e.params.BorrowAsset, user, e.moduleAddress)
		if err != nil {
			return nil, err
		}
		if spendable.Lt(due) {
			paid = spendable
		}
	}
	if err := e.tokens.TransferFrom(e.params.BorrowAsset, e.moduleAddress, user, e.moduleAddress, paid); err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrTransferFailed, "%v", err)
	}

	loan.IsActive = false
	loan.IsRepaid = true
	loan.RepaidAmount = new(uint256.Int).Set(paid)
	loan.ClosedAt = e.now
	pool.Reserve = new(uint256.Int).Add(pool.Reserve, paid)
	pool.TotalOutstanding = subFloor(pool.TotalOutstanding, loan.KaiaAmount)
	if err := e.state.PutLendingLoans(user, loans); err != nil {
		return nil, err
	}
	if err := e.state.PutLendingPool(pool); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.LoanRepaid{
		Borrower:  user,
		LoanIndex: index,
		Principal: new(uint256.Int).Set(loan.KaiaAmount),
		Interest:  interest,
		Paid:      new(uint256.Int).Set(paid),
		Timestamp: e.now,
	})
	return paid, nil
}

// Liquidate force-closes an overdue loan of borrower. Any caller may trigger
// it once the due time has strictly passed. The principal is recorded as
// liquidated; nothing returns to the reserve.
func (e *Engine) Liquidate(caller, borrower crypto.Address, index uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	loans, err := e.state.LendingLoans(borrower)
	if err != nil {
		return err
	}
	if index >= uint64(len(loans)) {
		return ErrInvalidIndex
	}
	loan := loans[index]
	if !loan.IsActive {
		return ErrLoanNotActive
	}
	if e.now <= loan.DueTime {
		return coreerrors.Wrap(ErrLoanNotDue, "due at %d", loan.DueTime)
	}
	interest, err := simpleInterest(loan.KaiaAmount, loan.DailyRateBps, loan.BorrowTime, e.now)
	if err != nil {
		return err
	}
	pool, err := e.pool()
	if err != nil {
		return err
	}

	loan.IsActive = false
	loan.ClosedAt = e.now
	pool.TotalOutstanding = subFloor(pool.TotalOutstanding, loan.KaiaAmount)
	pool.TotalLiquidated = new(uint256.Int).Add(pool.TotalLiquidated, loan.KaiaAmount)
	if err := e.state.PutLendingLoans(borrower, loans); err != nil {
		return err
	}
	if err := e.state.PutLendingPool(pool); err != nil {
		return err
	}
	e.emitter.Emit(events.LoanLiquidated{
		Borrower:   borrower,
		Liquidator: caller,
		LoanIndex:  index,
		KaiaAmount: new(uint256.Int).Set(loan.KaiaAmount),
		Interest:   interest,
		Timestamp:  e.now,
	})
	return nil
}

// CalculateInterest returns the interest accrued so far on the loan at index;
// zero once the loan is closed.
func (e *Engine) CalculateInterest(user crypto.Address, index uint64) (*uint256.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	loans, err := e.state.LendingLoans(user)
	if err != nil {
		return nil, err
	}
	if index >= uint64(len(loans)) {
		return nil, ErrInvalidIndex
	}
	return e.interest(loans[index])
}

// MaxBorrowAmount is the borrow asset user can still draw: staked collateral
// times the collateral ratio converted at the exchange rate, minus active
// principal, floored at zero.
func (e *Engine) MaxBorrowAmount(user crypto.Address) (*uint256.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	if e.staking == nil {
		return nil, errNilStaking
	}
	staked, err := e.staking.StakedAmount(user)
	if err != nil {
		return nil, err
	}
	if staked.IsZero() {
		return new(uint256.Int), nil
	}
	pool, err := e.pool()
	if err != nil {
		return nil, err
	}
	loans, err := e.state.LendingLoans(user)
	if err != nil {
		return nil, err
	}
	return e.maxBorrow(staked, pool, loans)
}

func (e *Engine) maxBorrow(staked *uint256.Int, pool *Pool, loans []*Loan) (*uint256.Int, error) {
	capacity, err := collateralCapacity(staked, e.params.CollateralRatioBps, pool.ExchangeRate, e.params)
	if err != nil {
		return nil, err
	}
	return subFloor(capacity, outstanding(loans)), nil
}

// CollateralFor reports the collateral a loan of amount would lock at the
// current exchange rate.
func (e *Engine) CollateralFor(amount *uint256.Int) (*uint256.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	pool, err := e.pool()
	if err != nil {
		return nil, err
	}
	return requiredCollateral(amount, e.params.CollateralRatioBps, pool.ExchangeRate, e.params)
}

// Loans lists every loan of user in index order.
func (e *Engine) Loans(user crypto.Address) ([]LoanView, error) {
	if e.state == nil {
		return nil, errNilState
	}
	loans, err := e.state.LendingLoans(user)
	if err != nil {
		return nil, err
	}
	views := make([]LoanView, 0, len(loans))
	for i, loan := range loans {
		interest, err := e.interest(loan)
		if err != nil {
			return nil, err
		}
		due := new(uint256.Int)
		if loan.IsActive {
			due.Add(loan.KaiaAmount, interest)
		}
		views = append(views, LoanView{
			Index:    uint64(i),
			Loan:     loan,
			Interest: interest,
			TotalDue: due,
			Status:   loan.Status(),
			Overdue:  loan.IsActive && e.now > loan.DueTime,
		})
	}
	return views, nil
}

// ActiveLoans lists the open loans of user with their original indices.
func (e *Engine) ActiveLoans(user crypto.Address) ([]LoanView, error) {
	views, err := e.Loans(user)
	if err != nil {
		return nil, err
	}
	active := views[:0]
	for _, view := range views {
		if view.Loan.IsActive {
			active = append(active, view)
		}
	}
	return active, nil
}

// OverdueLoan identifies an active loan past its due time.
type OverdueLoan struct {
	Borrower crypto.Address
	LoanView
}

// OverdueLoans lists every liquidatable loan across all borrowers, ordered by
// first borrow then loan index.
func (e *Engine) OverdueLoans() ([]OverdueLoan, error) {
	if e.state == nil {
		return nil, errNilState
	}
	borrowers, err := e.state.LendingBorrowers()
	if err != nil {
		return nil, err
	}
	var out []OverdueLoan
	for _, borrower := range borrowers {
		views, err := e.ActiveLoans(borrower)
		if err != nil {
			return nil, err
		}
		for _, view := range views {
			if view.Overdue {
				out = append(out, OverdueLoan{Borrower: borrower, LoanView: view})
			}
		}
	}
	return out, nil
}

// HasActiveLoans reports whether user has any open loan.
func (e *Engine) HasActiveLoans(user crypto.Address) (bool, error) {
	if e.state == nil {
		return false, errNilState
	}
	loans, err := e.state.LendingLoans(user)
	if err != nil {
		return false, err
	}
	for _, loan := range loans {
		if loan.IsActive {
			return true, nil
		}
	}
	return false, nil
}

// TotalBorrowed is the outstanding principal of user's active loans.
func (e *Engine) TotalBorrowed(user crypto.Address) (*uint256.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	loans, err := e.state.LendingLoans(user)
	if err != nil {
		return nil, err
	}
	return outstanding(loans), nil
}

// Pool returns the lending totals.
func (e *Engine) Pool() (*Pool, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.pool()
}

// UpdateExchangeRate sets the borrow asset per collateral asset, scaled by
// 1e18.
func (e *Engine) UpdateExchangeRate(caller crypto.Address, rate *uint256.Int) error {
	if e.state == nil {
		return errNilState
	}
	if err := nativecommon.RequireOperator(e.operators, caller); err != nil {
		return err
	}
	if rate == nil || rate.IsZero() {
		return ErrInvalidRate
	}
	pool, err := e.pool()
	if err != nil {
		return err
	}
	pool.ExchangeRate = new(uint256.Int).Set(rate)
	if err := e.state.PutLendingPool(pool); err != nil {
		return err
	}
	e.emitter.Emit(events.ExchangeRateUpdated{Rate: new(uint256.Int).Set(rate), Timestamp: e.now})
	return nil
}

// AddReserve moves amount of the borrow asset from the operator into the
// reserve.
func (e *Engine) AddReserve(caller crypto.Address, amount *uint256.Int) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.RequireOperator(e.operators, caller); err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return nil, coreerrors.ErrInvalidAmount
	}
	pool, err := e.pool()
	if err != nil {
		return nil, err
	}
	next, overflow := new(uint256.Int).AddOverflow(pool.Reserve, amount)
	if overflow {
		return nil, errMathOverflow
	}
	if err := e.tokens.TransferFrom(e.params.BorrowAsset, e.moduleAddress, caller, e.moduleAddress, amount); err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrTransferFailed, "%v", err)
	}
	pool.Reserve = next
	if err := e.state.PutLendingPool(pool); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.ReserveUpdated{Amount: new(uint256.Int).Set(amount), Reserve: new(uint256.Int).Set(next), Timestamp: e.now})
	return next, nil
}

// Bootstrap seeds the exchange rate and credits a reserve already held by the
// module account. Genesis uses it after minting.
func (e *Engine) Bootstrap(rate, reserve *uint256.Int) error {
	if e.state == nil {
		return errNilState
	}
	if rate == nil || rate.IsZero() {
		return ErrInvalidRate
	}
	pool, err := e.pool()
	if err != nil {
		return err
	}
	pool.ExchangeRate = new(uint256.Int).Set(rate)
	if reserve != nil {
		next, overflow := new(uint256.Int).AddOverflow(pool.Reserve, reserve)
		if overflow {
			return errMathOverflow
		}
		pool.Reserve = next
	}
	return e.state.PutLendingPool(pool)
}

// EmergencyWithdraw sweeps amount of any asset held by the module account to
// the operator. Ledger totals are left untouched.
func (e *Engine) EmergencyWithdraw(caller crypto.Address, asset string, amount *uint256.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.RequireOperator(e.operators, caller); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return coreerrors.ErrInvalidAmount
	}
	if err := e.tokens.Transfer(asset, e.moduleAddress, caller, amount); err != nil {
		return coreerrors.Wrap(coreerrors.ErrTransferFailed, "%v", err)
	}
	e.emitter.Emit(events.EmergencyWithdrawal{Module: moduleName, Asset: asset, Operator: caller, Amount: new(uint256.Int).Set(amount), Timestamp: e.now})
	return nil
}

func (e *Engine) interest(loan *Loan) (*uint256.Int, error) {
	if loan == nil || !loan.IsActive {
		return new(uint256.Int), nil
	}
	return simpleInterest(loan.KaiaAmount, loan.DailyRateBps, loan.BorrowTime, e.now)
}

func (e *Engine) pool() (*Pool, error) {
	pool, err := e.state.LendingPool()
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

func outstanding(loans []*Loan) *uint256.Int {
	total := new(uint256.Int)
	for _, loan := range loans {
		if loan != nil && loan.IsActive {
			total.Add(total, types.CloneAmount(loan.KaiaAmount))
		}
	}
	return total
}

func subFloor(a, b *uint256.Int) *uint256.Int {
	a = types.CloneAmount(a)
	if b == nil || a.Lt(b) {
		return new(uint256.Int)
	}
	return a.Sub(a, b)
}
