package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/holiman/uint256"

	"kaiadefi/crypto"
	"kaiadefi/gateway/api"
)

func (c *Client) Assets(ctx context.Context) ([]api.AssetView, error) {
	var out []api.AssetView
	err := c.do(ctx, http.MethodGet, "/v1/bank/assets", nil, nil, &out)
	return out, err
}

func (c *Client) Balances(ctx context.Context, owner crypto.Address) ([]api.BalanceView, error) {
	var out []api.BalanceView
	err := c.do(ctx, http.MethodGet, "/v1/bank/accounts/"+owner.Hex()+"/balances", nil, nil, &out)
	return out, err
}

func (c *Client) Allowance(ctx context.Context, asset string, owner, spender crypto.Address) (*uint256.Int, error) {
	query := url.Values{"asset": {asset}, "owner": {owner.Hex()}, "spender": {spender.Hex()}}
	return c.amount(ctx, http.MethodGet, "/v1/bank/allowance", query, nil)
}

// Approve sets the caller's allowance for spender and returns it.
func (c *Client) Approve(ctx context.Context, spender crypto.Address, asset string, amount *uint256.Int) (*uint256.Int, error) {
	req := api.ApproveRequest{Spender: spender.Hex(), Asset: asset, Amount: formatAmount(amount)}
	return c.amount(ctx, http.MethodPost, "/v1/bank/approve", nil, req)
}

// Transfer moves funds from the caller and returns the caller's new balance.
func (c *Client) Transfer(ctx context.Context, to crypto.Address, asset string, amount *uint256.Int) (*api.BalanceView, error) {
	var out api.BalanceView
	req := api.TransferRequest{To: to.Hex(), Asset: asset, Amount: formatAmount(amount)}
	if err := c.do(ctx, http.MethodPost, "/v1/bank/transfer", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
