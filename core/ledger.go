package core

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coreerrors "kaiadefi/core/errors"
	"kaiadefi/core/events"
	"kaiadefi/core/state"
	"kaiadefi/core/types"
	"kaiadefi/crypto"
	"kaiadefi/native/bank"
	nativecommon "kaiadefi/native/common"
	"kaiadefi/native/lending"
	"kaiadefi/native/staking"
	"kaiadefi/observability/metrics"
)

// Clock returns the ledger's notion of the current time.
type Clock func() time.Time

// Options carries the optional collaborators of a Ledger.
type Options struct {
	Logger  *slog.Logger
	Emitter events.Emitter
	Metrics *metrics.LedgerMetrics
	Clock   Clock
	Tracer  trace.Tracer
}

// Ledger executes staking and lending operations one at a time against the
// state manager. Each operation runs in its own transaction; its writes and
// events are published together once the transaction commits.
type Ledger struct {
	mu          sync.RWMutex
	state       *state.Manager
	params      Params
	clock       Clock
	emitter     events.Emitter
	logger      *slog.Logger
	metrics     *metrics.LedgerMetrics
	tracer      trace.Tracer
	stakingAddr crypto.Address
	lendingAddr crypto.Address
}

// NewLedger validates params and binds the ledger to manager.
func NewLedger(manager *state.Manager, params Params, opts Options) (*Ledger, error) {
	if manager == nil {
		return nil, fmt.Errorf("core: state manager required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	l := &Ledger{
		state:       manager,
		params:      params,
		clock:       opts.Clock,
		emitter:     opts.Emitter,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		tracer:      opts.Tracer,
		stakingAddr: crypto.ModuleAddress(nativecommon.ModuleStaking),
		lendingAddr: crypto.ModuleAddress(nativecommon.ModuleLending),
	}
	if l.clock == nil {
		l.clock = time.Now
	}
	if l.emitter == nil {
		l.emitter = events.NoopEmitter{}
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.tracer == nil {
		l.tracer = otel.Tracer("kaiadefi/ledger")
	}
	return l, nil
}

// session is the set of engines bound to one transaction.
type session struct {
	txn     *state.Txn
	now     uint64
	buffer  *events.Buffer
	bank    *bank.Ledger
	staking *staking.Engine
	lending *lending.Engine
}

func (l *Ledger) newSession(txn *state.Txn) *session {
	s := &session{txn: txn, now: l.now(), buffer: new(events.Buffer)}

	s.bank = bank.NewLedger(l.params.Assets...)
	s.bank.SetState(txn)
	s.bank.SetEmitter(s.buffer)

	s.staking = staking.NewEngine(l.stakingAddr, l.params.Staking)
	s.staking.SetState(txn)
	s.staking.SetTokens(s.bank)
	s.staking.SetPauses(txn)
	s.staking.SetOperators(txn)
	s.staking.SetEmitter(s.buffer)
	s.staking.SetNow(s.now)

	s.lending = lending.NewEngine(l.lendingAddr, l.params.Lending)
	s.lending.SetState(txn)
	s.lending.SetStaking(s.staking)
	s.lending.SetTokens(s.bank)
	s.lending.SetPauses(txn)
	s.lending.SetOperators(txn)
	s.lending.SetEmitter(s.buffer)
	s.lending.SetNow(s.now)
	return s
}

func (l *Ledger) now() uint64 {
	ts := l.clock().Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// execute runs fn inside a fresh transaction under the writer lock. A failing
// fn leaves no writes and no events behind.
func (l *Ledger) execute(ctx context.Context, op string, caller crypto.Address, fn func(*session) error) error {
	ctx, span := l.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(
		attribute.String("op", op),
		attribute.String("caller", caller.Hex()),
	))
	defer span.End()
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	txn := l.state.Begin()
	sess := l.newSession(txn)
	if err := fn(sess); err != nil {
		txn.Discard()
		l.reject(ctx, span, op, caller, err, time.Since(start))
		return err
	}
	pools := l.poolGauges(sess)
	if err := txn.Commit(); err != nil {
		err = fmt.Errorf("core: commit %s: %w", op, err)
		l.reject(ctx, span, op, caller, err, time.Since(start))
		return err
	}
	published := sess.buffer.Events()
	sess.buffer.Flush(l.emitter)

	l.metrics.ObserveOperation(op, "ok", time.Since(start))
	for name, value := range pools {
		l.metrics.SetPool(name, value)
	}
	span.SetAttributes(attribute.Int("events", len(published)))
	l.logger.InfoContext(ctx, "ledger operation applied",
		slog.String("op", op),
		slog.String("caller", caller.Hex()),
		slog.Int("events", len(published)),
	)
	return nil
}

func (l *Ledger) reject(ctx context.Context, span trace.Span, op string, caller crypto.Address, err error, elapsed time.Duration) {
	code := coreerrors.CodeOf(err)
	kind, _ := coreerrors.KindOf(err)
	l.metrics.ObserveOperation(op, code, elapsed)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	level := slog.LevelWarn
	if code == "" {
		level = slog.LevelError
	}
	l.logger.Log(ctx, level, "ledger operation rejected",
		slog.String("op", op),
		slog.String("caller", caller.Hex()),
		slog.String("code", code),
		slog.String("kind", string(kind)),
		slog.Any("error", err),
	)
}

// poolGauges snapshots the pool totals in whole token units.
func (l *Ledger) poolGauges(s *session) map[string]float64 {
	if l.metrics == nil {
		return nil
	}
	out := make(map[string]float64, 4)
	stakedDecimals := l.params.decimals(l.params.Staking.Asset)
	if pool, err := s.staking.Pool(); err == nil {
		out["staking_total_staked"] = wholeUnits(pool.TotalStaked, stakedDecimals)
		out["staking_reward_pool"] = wholeUnits(pool.RewardPool, stakedDecimals)
	}
	if pool, err := s.lending.Pool(); err == nil {
		out["lending_reserve"] = wholeUnits(pool.Reserve, l.params.Lending.BorrowDecimals)
		out["lending_outstanding"] = wholeUnits(pool.TotalOutstanding, l.params.Lending.BorrowDecimals)
	}
	return out
}

func wholeUnits(amount *uint256.Int, decimals uint8) float64 {
	value, err := strconv.ParseFloat(types.FormatUnits(amount, decimals), 64)
	if err != nil {
		return 0
	}
	return value
}

// view runs fn against a read-only transaction. Readers never observe a
// partially applied operation.
func (l *Ledger) view(fn func(*session) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	txn := l.state.View()
	defer txn.Discard()
	return fn(l.newSession(txn))
}

func viewValue[T any](l *Ledger, fn func(*session) (T, error)) (T, error) {
	var out T
	err := l.view(func(s *session) error {
		var err error
		out, err = fn(s)
		return err
	})
	return out, err
}

// Params returns the ledger configuration.
func (l *Ledger) Params() Params {
	out := l.params
	out.Assets = append([]bank.Asset(nil), l.params.Assets...)
	out.Lending = l.params.Lending.Clone()
	out.Staking.MinStake = types.CloneAmount(l.params.Staking.MinStake)
	return out
}

// Now returns the ledger clock reading used for accrual.
func (l *Ledger) Now() time.Time { return l.clock() }

// ModuleAddress returns the account holding the funds of module.
func (l *Ledger) ModuleAddress(module string) (crypto.Address, error) {
	switch module {
	case nativecommon.ModuleStaking:
		return l.stakingAddr, nil
	case nativecommon.ModuleLending:
		return l.lendingAddr, nil
	default:
		return crypto.Address{}, coreerrors.Wrap(ErrInvalidModule, "%q", module)
	}
}

// Close releases the underlying state.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Close()
}
