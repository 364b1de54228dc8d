package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"kaiadefi/gateway/api"
	"kaiadefi/native/staking"
)

func (h *handlers) mountStaking(r chi.Router, auth, operator func(http.Handler) http.Handler) {
	r.Get("/nodes", h.listNodes)
	r.Get("/nodes/active", h.listActiveNodes)
	r.Get("/nodes/{id}", h.getNode)
	r.Get("/pool", h.stakingPool)
	r.Get("/accounts/{address}/stakes", h.stakeHistory)
	r.Get("/accounts/{address}/staked", h.stakedAmount)
	r.Get("/accounts/{address}/reward", h.reward)

	r.With(auth).Post("/stake", h.stake)
	r.With(auth).Post("/withdraw", h.withdraw)
	r.With(auth).Post("/claim", h.claimRewards)

	r.With(operator).Post("/nodes", h.addNode)
	r.With(operator).Put("/nodes/{id}", h.updateNode)
	r.With(operator).Post("/rewards", h.addRewards)
}

func (h *handlers) listNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.ledger.Nodes()
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodeViews(nodes))
}

func (h *handlers) listActiveNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.ledger.ActiveNodes()
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodeViews(nodes))
}

func (h *handlers) getNode(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	node, err := h.ledger.Node(id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodeView(node))
}

func (h *handlers) stakingPool(w http.ResponseWriter, r *http.Request) {
	pool, err := h.ledger.StakingPool()
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stakingPoolView(pool))
}

func (h *handlers) stakeHistory(w http.ResponseWriter, r *http.Request) {
	user, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	history, err := h.ledger.StakeHistory(user)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stakeViews(history))
}

func (h *handlers) stakedAmount(w http.ResponseWriter, r *http.Request) {
	user, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := h.ledger.StakedAmount(user)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountView(amount))
}

func (h *handlers) reward(w http.ResponseWriter, r *http.Request) {
	user, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := h.ledger.Reward(user)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountView(amount))
}

func (h *handlers) stake(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req api.StakeRequest
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
	index, err := h.ledger.Stake(ctx, caller, amount, req.NodeID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.StakeResponse{Index: index})
}

func (h *handlers) withdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req api.WithdrawRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	// An omitted amount withdraws the whole position.
	amount := new(uint256.Int)
	if strings.TrimSpace(req.Amount) != "" {
		parsed, err := parseAmount("amount", req.Amount)
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		amount = parsed
	}
	ctx, cancel := h.context(r)
	defer cancel()
	withdrawn, err := h.ledger.Withdraw(ctx, caller, req.Index, amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountView(withdrawn))
}

func (h *handlers) claimRewards(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.context(r)
	defer cancel()
	paid, err := h.ledger.ClaimRewards(ctx, caller)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountView(paid))
}

func (h *handlers) addNode(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	spec, err := decodeNodeSpec(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	ctx, cancel := h.context(r)
	defer cancel()
	id, err := h.ledger.AddNode(ctx, caller, spec)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.NodeCreated{ID: id})
}

func (h *handlers) updateNode(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	spec, err := decodeNodeSpec(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	ctx, cancel := h.context(r)
	defer cancel()
	if err := h.ledger.UpdateNode(ctx, caller, id, spec); err != nil {
		writeLedgerError(w, err)
		return
	}
	node, err := h.ledger.Node(id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodeView(node))
}

func (h *handlers) addRewards(w http.ResponseWriter, r *http.Request) {
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
	pool, err := h.ledger.AddRewards(ctx, caller, amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountView(pool))
}

func decodeNodeSpec(r *http.Request) (staking.NodeSpec, error) {
	var req api.NodeRequest
	if err := decodeRequest(r, &req); err != nil {
		return staking.NodeSpec{}, err
	}
	capacity, err := parseAmount("maxCapacity", req.MaxCapacity)
	if err != nil {
		return staking.NodeSpec{}, err
	}
	return staking.NodeSpec{
		Name:           req.Name,
		AnnualRateBps:  req.AnnualRateBps,
		SecurityRating: req.SecurityRating,
		IsActive:       req.IsActive,
		MaxCapacity:    capacity,
	}, nil
}
