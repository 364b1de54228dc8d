package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/holiman/uint256"

	"kaiadefi/crypto"
	"kaiadefi/gateway/api"
)

func (c *Client) Status(ctx context.Context) (*api.StatusView, error) {
	var out api.StatusView
	if err := c.do(ctx, http.MethodGet, "/v1/status", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Params(ctx context.Context) (*api.ParamsView, error) {
	var out api.ParamsView
	if err := c.do(ctx, http.MethodGet, "/v1/params", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Pause(ctx context.Context, module string) (*api.StatusView, error) {
	return c.status(ctx, "/v1/admin/pause", api.ModuleRequest{Module: module})
}

func (c *Client) Unpause(ctx context.Context, module string) (*api.StatusView, error) {
	return c.status(ctx, "/v1/admin/unpause", api.ModuleRequest{Module: module})
}

func (c *Client) TransferOperator(ctx context.Context, next crypto.Address) (*api.StatusView, error) {
	return c.status(ctx, "/v1/admin/operator", api.OperatorRequest{Next: next.Hex()})
}

func (c *Client) status(ctx context.Context, path string, payload any) (*api.StatusView, error) {
	var out api.StatusView
	if err := c.do(ctx, http.MethodPost, path, nil, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EmergencyWithdraw sweeps amount of asset from module to the operator.
func (c *Client) EmergencyWithdraw(ctx context.Context, module, asset string, amount *uint256.Int) error {
	req := api.EmergencyWithdrawRequest{Module: module, Asset: asset, Amount: formatAmount(amount)}
	return c.do(ctx, http.MethodPost, "/v1/admin/emergency-withdraw", nil, req, nil)
}

func (c *Client) Mint(ctx context.Context, to crypto.Address, asset string, amount *uint256.Int) (*api.BalanceView, error) {
	var out api.BalanceView
	req := api.MintRequest{To: to.Hex(), Asset: asset, Amount: formatAmount(amount)}
	if err := c.do(ctx, http.MethodPost, "/v1/admin/mint", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EventQuery narrows Events and Export. Zero fields match everything.
type EventQuery struct {
	Type    string
	Account *crypto.Address
	After   uint64
	Limit   int
}

func (q EventQuery) values() url.Values {
	v := url.Values{}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	if q.Account != nil {
		v.Set("account", q.Account.Hex())
	}
	if q.After > 0 {
		v.Set("after", strconv.FormatUint(q.After, 10))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func (c *Client) Events(ctx context.Context, q EventQuery) (*api.EventsPage, error) {
	var out api.EventsPage
	if err := c.do(ctx, http.MethodGet, "/v1/events", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export downloads archived events as "csv", "jsonl" or "parquet" together
// with the SHA-256 checksum reported by the gateway.
func (c *Client) Export(ctx context.Context, format string, q EventQuery) ([]byte, string, error) {
	values := q.values()
	values.Set("format", format)
	resp, data, err := c.raw(ctx, http.MethodGet, "/v1/events/export", values, nil)
	if err != nil {
		return nil, "", err
	}
	checksum := resp.Header.Get("X-Checksum-Sha256")
	if checksum == "" {
		return nil, "", fmt.Errorf("export response missing checksum")
	}
	return data, checksum, nil
}
