package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kaiadefi/core"
	"kaiadefi/core/types"
	"kaiadefi/gateway/api"
	"kaiadefi/native/lending"
)

func (h *handlers) mountAdmin(r chi.Router) {
	r.Post("/pause", h.pause)
	r.Post("/unpause", h.unpause)
	r.Post("/emergency-withdraw", h.emergencyWithdraw)
	r.Post("/operator", h.transferOperator)
	r.Post("/mint", h.mint)
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	operator, err := h.ledger.Operator()
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	view := api.StatusView{
		Operator: operator.Hex(),
		Now:      h.ledger.Now().Unix(),
		Modules:  make(map[string]api.ModuleStatus),
	}
	if ts, ok, err := h.ledger.GenesisTime(); err == nil && ok {
		view.GenesisTime = ts
	}
	for _, module := range core.Modules() {
		addr, err := h.ledger.ModuleAddress(module)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		view.Modules[module] = api.ModuleStatus{Address: addr.Hex(), Paused: h.ledger.IsPaused(module)}
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handlers) params(w http.ResponseWriter, r *http.Request) {
	params := h.ledger.Params()
	view := api.ParamsView{
		Assets:             assetViews(params.Assets),
		StakingAsset:       params.Staking.Asset,
		MinStake:           types.FormatAmount(params.Staking.MinStake),
		BorrowAsset:        params.Lending.BorrowAsset,
		CollateralAsset:    params.Lending.CollateralAsset,
		CollateralRatioBps: params.Lending.CollateralRatioBps,
		MinLoanAmount:      types.FormatAmount(params.Lending.MinLoanAmount),
		Terms:              termViews(params.Lending.Terms),
		LenientRepayment:   params.Lending.LenientRepayment,
	}
	writeJSON(w, http.StatusOK, view)
}

func termViews(terms []lending.TermRate) []api.TermView {
	out := make([]api.TermView, 0, len(terms))
	for _, t := range terms {
		out = append(out, api.TermView{Days: t.Days, DailyRateBps: t.DailyRateBps})
	}
	return out
}

func (h *handlers) pause(w http.ResponseWriter, r *http.Request) {
	h.togglePause(w, r, true)
}

func (h *handlers) unpause(w http.ResponseWriter, r *http.Request) {
	h.togglePause(w, r, false)
}

func (h *handlers) togglePause(w http.ResponseWriter, r *http.Request, paused bool) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req api.ModuleRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	ctx, cancel := h.context(r)
	defer cancel()
	toggle := h.ledger.Unpause
	if paused {
		toggle = h.ledger.Pause
	}
	if err := toggle(ctx, caller, req.Module); err != nil {
		writeLedgerError(w, err)
		return
	}
	h.status(w, r)
}

func (h *handlers) emergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req api.EmergencyWithdrawRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	ctx, cancel := h.context(r)
	defer cancel()
	if err := h.ledger.EmergencyWithdraw(ctx, caller, req.Module, req.Asset, amount); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) transferOperator(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req api.OperatorRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	next, err := parseAddress("next", req.Next)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	ctx, cancel := h.context(r)
	defer cancel()
	if err := h.ledger.TransferOperator(ctx, caller, next); err != nil {
		writeLedgerError(w, err)
		return
	}
	h.status(w, r)
}

func (h *handlers) mint(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req api.MintRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	ctx, cancel := h.context(r)
	defer cancel()
	if err := h.ledger.Mint(ctx, caller, to, req.Asset, amount); err != nil {
		writeLedgerError(w, err)
		return
	}
	h.writeBalance(w, req.Asset, to)
}
