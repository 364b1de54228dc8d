package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kaiadefi/gateway/api"
)

func (h *handlers) mountLending(r chi.Router, auth, operator func(http.Handler) http.Handler) {
	r.Get("/pool", h.lendingPool)
	r.Get("/overdue", h.overdueLoans)
	r.Get("/collateral", h.collateralFor)
	r.Get("/accounts/{address}/loans", h.loans)
	r.Get("/accounts/{address}/loans/{index}/interest", h.interest)
	r.Get("/accounts/{address}/max-borrow", h.maxBorrow)
	r.Get("/accounts/{address}/borrowed", h.totalBorrowed)
	r.Get("/accounts/{address}/active", h.hasActiveLoans)

	r.With(auth).Post("/borrow", h.borrow)
	r.With(auth).Post("/repay", h.repay)
	r.With(auth).Post("/liquidate", h.liquidate)

	r.With(operator).Post("/exchange-rate", h.updateExchangeRate)
	r.With(operator).Post("/reserve", h.addReserve)
}

func (h *handlers) lendingPool(w http.ResponseWriter, r *http.Request) {
	pool, err := h.ledger.LendingPool()
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lendingPoolView(pool))
}

func (h *handlers) overdueLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.ledger.OverdueLoans()
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overdueViews(loans))
}

func (h *handlers) collateralFor(w http.ResponseWriter, r *http.Request) {
	amount, err := parseAmount("amount", r.URL.Query().Get("amount"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	collateral, err := h.ledger.CollateralFor(amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountView(collateral))
}

// loans lists every loan of the borrower; ?active=true keeps open ones only.
func (h *handlers) loans(w http.ResponseWriter, r *http.Request) {
	user, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	list := h.ledger.Loans
	if queryBool(r, "active") {
		list = h.ledger.ActiveLoans
	}
	loans, err := list(user)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loanViews(loans))
}

func (h *handlers) interest(w http.ResponseWriter, r *http.Request) {
	user, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	index, err := pathUint(r, "index")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := h.ledger.CalculateInterest(user, index)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountView(amount))
}

func (h *handlers) maxBorrow(w http.ResponseWriter, r *http.Request) {
	user, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := h.ledger.MaxBorrowAmount(user)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountView(amount))
}

func (h *handlers) totalBorrowed(w http.ResponseWriter, r *http.Request) {
	user, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := h.ledger.TotalBorrowed(user)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountView(amount))
}

func (h *handlers) hasActiveLoans(w http.ResponseWriter, r *http.Request) {
	user, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	active, err := h.ledger.HasActiveLoans(user)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.HasActiveLoansView{HasActiveLoans: active})
}

func (h *handlers) borrow(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req api.BorrowRequest
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
	index, err := h.ledger.Borrow(ctx, caller, amount, req.TermDays)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.BorrowResponse{Index: index})
}

func (h *handlers) repay(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req api.RepayRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	ctx, cancel := h.context(r)
	defer cancel()
	paid, err := h.ledger.Repay(ctx, caller, req.Index)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountView(paid))
}

func (h *handlers) liquidate(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req api.LiquidateRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	borrower, err := parseAddress("borrower", req.Borrower)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	ctx, cancel := h.context(r)
	defer cancel()
	if err := h.ledger.Liquidate(ctx, caller, borrower, req.Index); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) updateExchangeRate(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req api.ExchangeRateRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	rate, err := parseAmount("rate", req.Rate)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	ctx, cancel := h.context(r)
	defer cancel()
	if err := h.ledger.UpdateExchangeRate(ctx, caller, rate); err != nil {
		writeLedgerError(w, err)
		return
	}
	pool, err := h.ledger.LendingPool()
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lendingPoolView(pool))
}

func (h *handlers) addReserve(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req api.AmountRequest
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
	reserve, err := h.ledger.AddReserve(ctx, caller, amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountView(reserve))
}
