package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	coreerrors "kaiadefi/core/errors"
	"kaiadefi/core/types"
	"kaiadefi/crypto"
	"kaiadefi/gateway/api"
	"kaiadefi/gateway/middleware"
)

const requestLimit = 1 << 20 // 1 MiB

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, kind, message string) {
	writeJSON(w, status, api.ErrorBody{Error: api.ErrorDetail{Code: code, Kind: kind, Message: message}})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "BadRequest", string(coreerrors.KindValidation), err.Error())
}

// writeLedgerError maps coded ledger failures onto HTTP statuses. Uncoded
// errors are internal and their detail is not echoed.
func writeLedgerError(w http.ResponseWriter, err error) {
	kind, ok := coreerrors.KindOf(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Internal", "", "internal error")
		return
	}
	writeError(w, statusForKind(kind), coreerrors.CodeOf(err), string(kind), err.Error())
}

func statusForKind(kind coreerrors.Kind) int {
	switch kind {
	case coreerrors.KindValidation:
		return http.StatusBadRequest
	case coreerrors.KindAuthorization:
		return http.StatusForbidden
	case coreerrors.KindState:
		return http.StatusConflict
	case coreerrors.KindCapacity:
		return http.StatusUnprocessableEntity
	case coreerrors.KindPaused:
		return http.StatusServiceUnavailable
	case coreerrors.KindTransfer:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func decodeRequest(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return errors.New("missing request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(io.LimitReader(r.Body, requestLimit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// requireCaller resolves the authenticated wallet or answers 401.
func requireCaller(w http.ResponseWriter, r *http.Request) (crypto.Address, bool) {
	caller, ok := middleware.Caller(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "MissingCaller", "", "request is not bound to a wallet")
		return crypto.Address{}, false
	}
	return caller, true
}

func pathAddress(r *http.Request, name string) (crypto.Address, error) {
	return crypto.ParseAddress(chi.URLParam(r, name))
}

func pathUint(r *http.Request, name string) (uint64, error) {
	raw := chi.URLParam(r, name)
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return value, nil
}

func parseAmount(field, value string) (*uint256.Int, error) {
	amount, err := types.ParseAmount(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return amount, nil
}

func parseAddress(field, value string) (crypto.Address, error) {
	addr, err := crypto.ParseAddress(value)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%s: %w", field, err)
	}
	return addr, nil
}

func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(name)))
	return err == nil && v
}
