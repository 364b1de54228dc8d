package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/holiman/uint256"

	"kaiadefi/crypto"
	"kaiadefi/gateway/api"
)

func (c *Client) LendingPool(ctx context.Context) (*api.LendingPoolView, error) {
	var out api.LendingPoolView
	if err := c.do(ctx, http.MethodGet, "/v1/lending/pool", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) OverdueLoans(ctx context.Context) ([]api.LoanView, error) {
	var out []api.LoanView
	err := c.do(ctx, http.MethodGet, "/v1/lending/overdue", nil, nil, &out)
	return out, err
}

// CollateralFor quotes the stake that backs amount of KAIA.
func (c *Client) CollateralFor(ctx context.Context, amount *uint256.Int) (*uint256.Int, error) {
	return c.amount(ctx, http.MethodGet, "/v1/lending/collateral", url.Values{"amount": {formatAmount(amount)}}, nil)
}

// Loans lists user's loans, only the open ones when activeOnly is set.
func (c *Client) Loans(ctx context.Context, user crypto.Address, activeOnly bool) ([]api.LoanView, error) {
	var query url.Values
	if activeOnly {
		query = url.Values{"active": {"true"}}
	}
	var out []api.LoanView
	err := c.do(ctx, http.MethodGet, "/v1/lending/accounts/"+user.Hex()+"/loans", query, nil, &out)
	return out, err
}

func (c *Client) Interest(ctx context.Context, user crypto.Address, index uint64) (*uint256.Int, error) {
	return c.amount(ctx, http.MethodGet, fmt.Sprintf("/v1/lending/accounts/%s/loans/%d/interest", user.Hex(), index), nil, nil)
}

func (c *Client) MaxBorrowAmount(ctx context.Context, user crypto.Address) (*uint256.Int, error) {
	return c.amount(ctx, http.MethodGet, "/v1/lending/accounts/"+user.Hex()+"/max-borrow", nil, nil)
}

func (c *Client) TotalBorrowed(ctx context.Context, user crypto.Address) (*uint256.Int, error) {
	return c.amount(ctx, http.MethodGet, "/v1/lending/accounts/"+user.Hex()+"/borrowed", nil, nil)
}

func (c *Client) HasActiveLoans(ctx context.Context, user crypto.Address) (bool, error) {
	var out api.HasActiveLoansView
	err := c.do(ctx, http.MethodGet, "/v1/lending/accounts/"+user.Hex()+"/active", nil, nil, &out)
	return out.HasActiveLoans, err
}

func (c *Client) Borrow(ctx context.Context, amount *uint256.Int, termDays uint64) (uint64, error) {
	var out api.BorrowResponse
	err := c.do(ctx, http.MethodPost, "/v1/lending/borrow", nil, api.BorrowRequest{Amount: formatAmount(amount), TermDays: termDays}, &out)
	return out.Index, err
}

// Repay settles a loan and returns the amount paid. The caller must have
// approved the lending module for the amount due.
func (c *Client) Repay(ctx context.Context, index uint64) (*uint256.Int, error) {
	return c.amount(ctx, http.MethodPost, "/v1/lending/repay", nil, api.RepayRequest{Index: index})
}

func (c *Client) Liquidate(ctx context.Context, borrower crypto.Address, index uint64) error {
	return c.do(ctx, http.MethodPost, "/v1/lending/liquidate", nil, api.LiquidateRequest{Borrower: borrower.Hex(), Index: index}, nil)
}

// UpdateExchangeRate sets KAIA per USDT scaled by 1e18.
func (c *Client) UpdateExchangeRate(ctx context.Context, rate *uint256.Int) (*api.LendingPoolView, error) {
	var out api.LendingPoolView
	if err := c.do(ctx, http.MethodPost, "/v1/lending/exchange-rate", nil, api.ExchangeRateRequest{Rate: formatAmount(rate)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddReserve(ctx context.Context, amount *uint256.Int) (*uint256.Int, error) {
	return c.amount(ctx, http.MethodPost, "/v1/lending/reserve", nil, api.AmountRequest{Amount: formatAmount(amount)})
}
