package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kaiadefi/core/types"
	"kaiadefi/crypto"
	"kaiadefi/gateway/api"
)

func (h *handlers) mountBank(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Get("/assets", h.assets)
	r.Get("/accounts/{address}/balances", h.balances)
	r.Get("/allowance", h.allowance)

	r.With(auth).Post("/approve", h.approve)
	r.With(auth).Post("/transfer", h.transfer)
}

func (h *handlers) assets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, assetViews(h.ledger.Assets()))
}

func (h *handlers) balances(w http.ResponseWriter, r *http.Request) {
	owner, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	assets := h.ledger.Assets()
	out := make([]api.BalanceView, 0, len(assets))
	for _, asset := range assets {
		balance, err := h.ledger.Balance(asset.Symbol, owner)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		out = append(out, api.BalanceView{Asset: asset.Symbol, Amount: types.FormatAmount(balance)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) allowance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner, err := parseAddress("owner", q.Get("owner"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	spender, err := parseAddress("spender", q.Get("spender"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := h.ledger.Allowance(q.Get("asset"), owner, spender)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountView(amount))
}

func (h *handlers) approve(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req api.ApproveRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	spender, err := parseAddress("spender", req.Spender)
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
	if err := h.ledger.Approve(ctx, caller, spender, req.Asset, amount); err != nil {
		writeLedgerError(w, err)
		return
	}
	allowance, err := h.ledger.Allowance(req.Asset, caller, spender)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountView(allowance))
}

func (h *handlers) transfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req api.TransferRequest
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
	if err := h.ledger.Transfer(ctx, caller, to, req.Asset, amount); err != nil {
		writeLedgerError(w, err)
		return
	}
	h.writeBalance(w, req.Asset, caller)
}

func (h *handlers) writeBalance(w http.ResponseWriter, asset string, owner crypto.Address) {
	balance, err := h.ledger.Balance(asset, owner)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.BalanceView{Asset: asset, Amount: types.FormatAmount(balance)})
}
