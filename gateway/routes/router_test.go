package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kaiadefi/core"
	"kaiadefi/core/events"
	"kaiadefi/core/state"
	"kaiadefi/core/types"
	"kaiadefi/crypto"
	"kaiadefi/gateway/api"
	"kaiadefi/gateway/middleware"
	"kaiadefi/integrations/indexer"
	nativecommon "kaiadefi/native/common"
	"kaiadefi/storage"
)

var (
	operator = crypto.MustParseAddress("0x00000000000000000000000000000000000000a1")
	alice    = crypto.MustParseAddress("0x00000000000000000000000000000000000000b2")
	bob      = crypto.MustParseAddress("0x00000000000000000000000000000000000000c3")
)

type testGateway struct {
	handler http.Handler
	ledger  *core.Ledger
	bus     *events.Bus
	index   *indexer.Indexer
	now     time.Time
}

func newTestGateway(t *testing.T, auth *middleware.Authenticator) *testGateway {
	t.Helper()
	gw := &testGateway{bus: events.NewBus(), now: time.Unix(1_700_000_000, 0)}

	idx, err := indexer.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	gw.index = idx
	gw.bus.Attach(idx)

	ledger, err := core.NewLedger(state.NewManager(storage.NewMemDB()), core.DefaultParams(), core.Options{
		Emitter: gw.bus,
		Clock:   func() time.Time { return gw.now },
	})
	require.NoError(t, err)
	genesis := core.DefaultGenesis(operator)
	genesis.Alloc = []core.Allocation{
		{Address: alice, Asset: "USDT", Amount: types.Units(10_000, 6)},
		{Address: bob, Asset: "USDT", Amount: types.Units(10_000, 6)},
	}
	genesis.RewardPool = types.Units(100_000, 6)
	genesis.Reserve = types.Units(500_000, 18)
	_, err = ledger.InitGenesis(context.Background(), genesis)
	require.NoError(t, err)
	gw.ledger = ledger

	handler, err := New(Config{
		Ledger:        ledger,
		Bus:           gw.bus,
		Indexer:       idx,
		Authenticator: auth,
		Stream:        StreamConfig{Buffer: 16, PingInterval: time.Second},
	})
	require.NoError(t, err)
	gw.handler = handler
	return gw
}

// do sends body as JSON on behalf of caller. A zero caller sends no header.
func (gw *testGateway) do(t *testing.T, method, path string, caller crypto.Address, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if caller != (crypto.Address{}) {
		req.Header.Set(middleware.HeaderCaller, caller.Hex())
	}
	rec := httptest.NewRecorder()
	gw.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (gw *testGateway) moduleAddress(t *testing.T, module string) crypto.Address {
	t.Helper()
	addr, err := gw.ledger.ModuleAddress(module)
	require.NoError(t, err)
	return addr
}

func (gw *testGateway) approveAndStake(t *testing.T, user crypto.Address, amount string, node uint64) uint64 {
	t.Helper()
	rec := gw.do(t, http.MethodPost, "/v1/bank/approve", user, api.ApproveRequest{
		Spender: gw.moduleAddress(t, nativecommon.ModuleStaking).Hex(),
		Asset:   "USDT",
		Amount:  amount,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = gw.do(t, http.MethodPost, "/v1/staking/stake", user, api.StakeRequest{Amount: amount, NodeID: node})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[api.StakeResponse](t, rec).Index
}

func TestHealthAndStatus(t *testing.T) {
	gw := newTestGateway(t, nil)

	rec := gw.do(t, http.MethodGet, "/healthz", crypto.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = gw.do(t, http.MethodGet, "/v1/status", crypto.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[api.StatusView](t, rec)
	require.Equal(t, operator.Hex(), status.Operator)
	require.Equal(t, gw.now.Unix(), status.Now)
	require.Len(t, status.Modules, 2)
	require.False(t, status.Modules[nativecommon.ModuleStaking].Paused)

	rec = gw.do(t, http.MethodGet, "/v1/params", crypto.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	params := decode[api.ParamsView](t, rec)
	require.Equal(t, "USDT", params.StakingAsset)
	require.Equal(t, "KAIA", params.BorrowAsset)
	require.Equal(t, uint64(7_000), params.CollateralRatioBps)
	require.Len(t, params.Terms, 3)
}

func TestStakeWithdrawFlow(t *testing.T) {
	gw := newTestGateway(t, nil)

	rec := gw.do(t, http.MethodGet, "/v1/staking/nodes", crypto.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]api.NodeView](t, rec), 3)

	index := gw.approveAndStake(t, alice, "1000000000", 1)
	require.Equal(t, uint64(0), index)

	rec = gw.do(t, http.MethodGet, "/v1/staking/accounts/"+alice.Hex()+"/staked", crypto.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1000000000", decode[api.AmountView](t, rec).Amount)

	rec = gw.do(t, http.MethodGet, "/v1/staking/nodes/1", crypto.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1000000000", decode[api.NodeView](t, rec).TotalStaked)

	rec = gw.do(t, http.MethodPost, "/v1/staking/withdraw", alice, api.WithdrawRequest{Index: 0})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "1000000000", decode[api.AmountView](t, rec).Amount)

	rec = gw.do(t, http.MethodGet, "/v1/bank/accounts/"+alice.Hex()+"/balances", crypto.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	balances := decode[[]api.BalanceView](t, rec)
	require.Equal(t, api.BalanceView{Asset: "USDT", Amount: "10000000000"}, balances[0])
}

func TestStakeErrorsMapToStatuses(t *testing.T) {
	gw := newTestGateway(t, nil)

	rec := gw.do(t, http.MethodPost, "/v1/staking/stake", crypto.Address{}, api.StakeRequest{Amount: "100000000", NodeID: 1})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = gw.do(t, http.MethodPost, "/v1/staking/stake", alice, api.StakeRequest{Amount: "1", NodeID: 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[api.ErrorBody](t, rec)
	require.Equal(t, "BelowMinimum", body.Error.Code)
	require.Equal(t, "ValidationError", body.Error.Kind)

	rec = gw.do(t, http.MethodPost, "/v1/staking/stake", alice, api.StakeRequest{Amount: "100000000", NodeID: 1})
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.Equal(t, "TransferFailed", decode[api.ErrorBody](t, rec).Error.Code)

	rec = gw.do(t, http.MethodPost, "/v1/staking/stake", alice, map[string]interface{}{"amount": "1", "bogus": true})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "BadRequest", decode[api.ErrorBody](t, rec).Error.Code)

	rec = gw.do(t, http.MethodGet, "/v1/staking/nodes/99", crypto.Address{}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "InvalidNode", decode[api.ErrorBody](t, rec).Error.Code)
}

func TestOperatorRoutesRequireOperator(t *testing.T) {
	gw := newTestGateway(t, nil)

	node := api.NodeRequest{Name: "Kaia Breeze Node", AnnualRateBps: 500, SecurityRating: 4, IsActive: true, MaxCapacity: "1000000000000"}
	rec := gw.do(t, http.MethodPost, "/v1/staking/nodes", alice, node)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "Unauthorized", decode[api.ErrorBody](t, rec).Error.Code)

	rec = gw.do(t, http.MethodPost, "/v1/staking/nodes", operator, node)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, uint64(3), decode[api.NodeCreated](t, rec).ID)

	rec = gw.do(t, http.MethodPost, "/v1/admin/pause", operator, api.ModuleRequest{Module: nativecommon.ModuleStaking})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, decode[api.StatusView](t, rec).Modules[nativecommon.ModuleStaking].Paused)

	rec = gw.do(t, http.MethodPost, "/v1/admin/pause", operator, api.ModuleRequest{Module: nativecommon.ModuleStaking})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "EnforcedPause", decode[api.ErrorBody](t, rec).Error.Code)

	rec = gw.do(t, http.MethodPost, "/v1/staking/stake", alice, api.StakeRequest{Amount: "100000000", NodeID: 1})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = gw.do(t, http.MethodPost, "/v1/admin/unpause", operator, api.ModuleRequest{Module: nativecommon.ModuleStaking})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = gw.do(t, http.MethodPost, "/v1/admin/unpause", operator, api.ModuleRequest{Module: nativecommon.ModuleStaking})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "ExpectedPause", decode[api.ErrorBody](t, rec).Error.Code)
}

func TestBorrowAndRepayFlow(t *testing.T) {
	gw := newTestGateway(t, nil)
	gw.approveAndStake(t, alice, "1000000000", 1)

	rec := gw.do(t, http.MethodGet, "/v1/lending/accounts/"+alice.Hex()+"/max-borrow", crypto.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	maxBorrow := decode[api.AmountView](t, rec).Amount
	require.NotEqual(t, "0", maxBorrow)

	rec = gw.do(t, http.MethodPost, "/v1/lending/borrow", alice, api.BorrowRequest{Amount: "10000000000000000000", TermDays: 7})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, uint64(0), decode[api.BorrowResponse](t, rec).Index)

	rec = gw.do(t, http.MethodGet, "/v1/lending/accounts/"+alice.Hex()+"/loans?active=true", crypto.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	loans := decode[[]api.LoanView](t, rec)
	require.Len(t, loans, 1)
	require.Equal(t, "10000000000000000000", loans[0].KaiaAmount)
	require.True(t, loans[0].IsActive)

	rec = gw.do(t, http.MethodPost, "/v1/lending/borrow", alice, api.BorrowRequest{Amount: "10000000000000000000", TermDays: 5})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "InvalidTerm", decode[api.ErrorBody](t, rec).Error.Code)

	rec = gw.do(t, http.MethodPost, "/v1/lending/liquidate", bob, api.LiquidateRequest{Borrower: alice.Hex(), Index: 0})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "LoanNotDue", decode[api.ErrorBody](t, rec).Error.Code)

	rec = gw.do(t, http.MethodPost, "/v1/bank/approve", alice, api.ApproveRequest{
		Spender: gw.moduleAddress(t, nativecommon.ModuleLending).Hex(),
		Asset:   "KAIA",
		Amount:  "10000000000000000000",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = gw.do(t, http.MethodPost, "/v1/lending/repay", alice, api.RepayRequest{Index: 0})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "10000000000000000000", decode[api.AmountView](t, rec).Amount)

	rec = gw.do(t, http.MethodGet, "/v1/lending/accounts/"+alice.Hex()+"/active", crypto.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, decode[api.HasActiveLoansView](t, rec).HasActiveLoans)
}

func TestEventsArchiveAndExport(t *testing.T) {
	gw := newTestGateway(t, nil)
	gw.approveAndStake(t, alice, "1000000000", 2)

	rec := gw.do(t, http.MethodGet, "/v1/events?type="+events.TypeStaked, crypto.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[api.EventsPage](t, rec)
	require.Len(t, page.Events, 1)
	require.Equal(t, "2", page.Events[0].Attributes["nodeId"])
	require.Equal(t, page.Events[0].Sequence, page.Next)

	rec = gw.do(t, http.MethodGet, fmt.Sprintf("/v1/events?after=%d", page.Next), crypto.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[api.EventsPage](t, rec).Events)

	rec = gw.do(t, http.MethodGet, "/v1/events/export?format=csv&account="+alice.Hex(), crypto.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	require.NotEmpty(t, rec.Header().Get("X-Checksum-Sha256"))
	require.True(t, strings.HasPrefix(rec.Body.String(), "sequence,id,type"))

	rec = gw.do(t, http.MethodGet, "/v1/events/export?format=parquet", crypto.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(rec.Body.String(), "PAR1"))

	rec = gw.do(t, http.MethodGet, "/v1/events/export?format=xml", crypto.Address{}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthEnabledUsesTokenSubject(t *testing.T) {
	const secret = "routes-test-secret"
	auth := middleware.NewAuthenticator(middleware.AuthConfig{Enabled: true, HMACSecret: secret}, nil)
	gw := newTestGateway(t, auth)

	rec := gw.do(t, http.MethodPost, "/v1/staking/claim", alice, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := middleware.IssueToken(secret, operator, nil, "", "", time.Hour, time.Now())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/pause", strings.NewReader(`{"module":"staking"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	gw.handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusForbidden, resp.Code)

	token, err = middleware.IssueToken(secret, operator, []string{middleware.ScopeOperator}, "", "", time.Hour, time.Now())
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/v1/admin/pause", strings.NewReader(`{"module":"staking"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	gw.handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.True(t, gw.ledger.IsPaused(nativecommon.ModuleStaking))
}
