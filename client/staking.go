package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/holiman/uint256"

	"kaiadefi/crypto"
	"kaiadefi/gateway/api"
)

func (c *Client) Nodes(ctx context.Context) ([]api.NodeView, error) {
	var out []api.NodeView
	err := c.do(ctx, http.MethodGet, "/v1/staking/nodes", nil, nil, &out)
	return out, err
}

func (c *Client) ActiveNodes(ctx context.Context) ([]api.NodeView, error) {
	var out []api.NodeView
	err := c.do(ctx, http.MethodGet, "/v1/staking/nodes/active", nil, nil, &out)
	return out, err
}

func (c *Client) Node(ctx context.Context, id uint64) (*api.NodeView, error) {
	var out api.NodeView
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/staking/nodes/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StakingPool(ctx context.Context) (*api.StakingPoolView, error) {
	var out api.StakingPoolView
	if err := c.do(ctx, http.MethodGet, "/v1/staking/pool", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StakeHistory(ctx context.Context, user crypto.Address) ([]api.StakeView, error) {
	var out []api.StakeView
	err := c.do(ctx, http.MethodGet, "/v1/staking/accounts/"+user.Hex()+"/stakes", nil, nil, &out)
	return out, err
}

func (c *Client) StakedAmount(ctx context.Context, user crypto.Address) (*uint256.Int, error) {
	return c.amount(ctx, http.MethodGet, "/v1/staking/accounts/"+user.Hex()+"/staked", nil, nil)
}

// Reward reports the claimable reward across all of user's positions.
func (c *Client) Reward(ctx context.Context, user crypto.Address) (*uint256.Int, error) {
	return c.amount(ctx, http.MethodGet, "/v1/staking/accounts/"+user.Hex()+"/reward", nil, nil)
}

// Stake opens a position. The caller must have approved the staking module.
func (c *Client) Stake(ctx context.Context, amount *uint256.Int, nodeID uint64) (uint64, error) {
	var out api.StakeResponse
	err := c.do(ctx, http.MethodPost, "/v1/staking/stake", nil, api.StakeRequest{Amount: formatAmount(amount), NodeID: nodeID}, &out)
	return out.Index, err
}

// Withdraw returns principal from a position. A nil amount withdraws all of it.
func (c *Client) Withdraw(ctx context.Context, index uint64, amount *uint256.Int) (*uint256.Int, error) {
	req := api.WithdrawRequest{Index: index}
	if amount != nil {
		req.Amount = formatAmount(amount)
	}
	return c.amount(ctx, http.MethodPost, "/v1/staking/withdraw", nil, req)
}

func (c *Client) ClaimRewards(ctx context.Context) (*uint256.Int, error) {
	return c.amount(ctx, http.MethodPost, "/v1/staking/claim", nil, struct{}{})
}

func (c *Client) AddNode(ctx context.Context, node api.NodeRequest) (uint64, error) {
	var out api.NodeCreated
	err := c.do(ctx, http.MethodPost, "/v1/staking/nodes", nil, node, &out)
	return out.ID, err
}

func (c *Client) UpdateNode(ctx context.Context, id uint64, node api.NodeRequest) (*api.NodeView, error) {
	var out api.NodeView
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/v1/staking/nodes/%d", id), nil, node, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddRewards funds the reward pool and returns its new balance.
func (c *Client) AddRewards(ctx context.Context, amount *uint256.Int) (*uint256.Int, error) {
	return c.amount(ctx, http.MethodPost, "/v1/staking/rewards", nil, api.AmountRequest{Amount: formatAmount(amount)})
}
