package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"kaiadefi/client"
	"kaiadefi/cmd/internal/secret"
	ledgerconfig "kaiadefi/config"
	"kaiadefi/core/types"
	"kaiadefi/crypto"
	gatewayconfig "kaiadefi/gateway/config"
	"kaiadefi/gateway/api"
	"kaiadefi/gateway/middleware"
)

const (
	envGateway     = "KAIA_GATEWAY_URL"
	envToken       = "KAIA_TOKEN"
	envAddress     = "KAIA_ADDRESS"
	defaultGateway = "http://127.0.0.1:8080"
	requestTimeout = 30 * time.Second
)

type command struct {
	summary string
	run     func(args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"status":      {"show operator, clock and module pause state", runStatus},
		"params":      {"show ledger parameters", runParams},
		"nodes":       {"list staking nodes", runNodes},
		"stake":       {"approve and stake USDT on a node", runStake},
		"withdraw":    {"withdraw principal from a stake position", runWithdraw},
		"claim":       {"claim accrued staking rewards", runClaim},
		"stakes":      {"show stake positions and rewards of an account", runStakes},
		"add-node":    {"register a staking node (operator)", runAddNode},
		"add-rewards": {"fund the staking reward pool (operator)", runAddRewards},
		"borrow":      {"borrow KAIA against staked USDT", runBorrow},
		"repay":       {"approve and repay a loan", runRepay},
		"liquidate":   {"liquidate an overdue loan", runLiquidate},
		"loans":       {"list loans of an account", runLoans},
		"overdue":     {"list liquidatable loans", runOverdue},
		"rate":        {"set the KAIA per USDT exchange rate (operator)", runRate},
		"reserve":     {"add KAIA to the lending reserve (operator)", runReserve},
		"balance":     {"show token balances of an account", runBalance},
		"transfer":    {"transfer tokens", runTransfer},
		"mint":        {"credit tokens to an account (operator)", runMint},
		"pause":       {"pause a module (operator)", runPause},
		"unpause":     {"resume a module (operator)", runUnpause},
		"events":      {"page through archived events", runEvents},
		"export":      {"download archived events as csv, jsonl or parquet", runExport},
		"token":       {"issue a gateway JWT for a wallet", runToken},
		"init":        {"write the default ledger configuration", runInit},
	}
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		usage()
		os.Exit(1)
	}
	if err := cmd.run(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if code := client.CodeOf(err); code != "" {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: defictl <command> [flags]")
	fmt.Fprintln(os.Stderr)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-12s %s\n", name, commands[name].summary)
	}
}

// session holds the connection flags shared by every gateway command.
type session struct {
	fs      *flag.FlagSet
	gateway *string
	token   *string
	from    *string
}

func newSession(name string) *session {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &session{
		fs:      fs,
		gateway: fs.String("gateway", envOr(envGateway, defaultGateway), "gateway base URL"),
		token:   fs.String("token", os.Getenv(envToken), "bearer token"),
		from:    fs.String("from", os.Getenv(envAddress), "acting wallet when the gateway runs without auth"),
	}
}

func (s *session) client() (*client.Client, error) {
	opts := []client.Option{client.WithToken(*s.token)}
	if raw := strings.TrimSpace(*s.from); raw != "" {
		addr, err := crypto.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("--from: %w", err)
		}
		opts = append(opts, client.WithCaller(addr))
	}
	return client.New(*s.gateway, opts...)
}

// self is the acting wallet named by --from.
func (s *session) self() (crypto.Address, error) {
	if strings.TrimSpace(*s.from) == "" {
		return crypto.Address{}, errors.New("--from (or " + envAddress + ") required")
	}
	return crypto.ParseAddress(*s.from)
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func timeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// units converts a whole-token amount such as "12.5" into base units of asset.
func units(ctx context.Context, c *client.Client, asset, value string) (*uint256.Int, error) {
	assets, err := c.Assets(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range assets {
		if strings.EqualFold(a.Symbol, asset) {
			return types.ParseUnits(value, a.Decimals)
		}
	}
	return nil, fmt.Errorf("unknown asset %q", asset)
}

func moduleAddress(ctx context.Context, c *client.Client, module string) (crypto.Address, error) {
	status, err := c.Status(ctx)
	if err != nil {
		return crypto.Address{}, err
	}
	entry, ok := status.Modules[module]
	if !ok {
		return crypto.Address{}, fmt.Errorf("gateway does not expose module %q", module)
	}
	return crypto.ParseAddress(entry.Address)
}

func runStatus(args []string) error {
	s := newSession("status")
	s.fs.Parse(args)
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	status, err := c.Status(ctx)
	if err != nil {
		return err
	}
	return printJSON(status)
}

func runParams(args []string) error {
	s := newSession("params")
	s.fs.Parse(args)
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	params, err := c.Params(ctx)
	if err != nil {
		return err
	}
	return printJSON(params)
}

func runNodes(args []string) error {
	s := newSession("nodes")
	activeOnly := s.fs.Bool("active", false, "only list active nodes")
	s.fs.Parse(args)
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	list := c.Nodes
	if *activeOnly {
		list = c.ActiveNodes
	}
	nodes, err := list(ctx)
	if err != nil {
		return err
	}
	return printJSON(nodes)
}

func runEvents(args []string) error {
	s := newSession("events")
	q, err := eventQueryFlags(s.fs, args)
	if err != nil {
		return err
	}
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	page, err := c.Events(ctx, q)
	if err != nil {
		return err
	}
	return printJSON(page)
}

func runExport(args []string) error {
	s := newSession("export")
	format := s.fs.String("format", "csv", "csv, jsonl or parquet")
	out := s.fs.String("out", "", "write to this file instead of stdout")
	q, err := eventQueryFlags(s.fs, args)
	if err != nil {
		return err
	}
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	data, checksum, err := c.Export(ctx, *format, q)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "sha256 %s\n", checksum)
	if *out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(*out, data, 0o644)
}

func eventQueryFlags(fs *flag.FlagSet, args []string) (client.EventQuery, error) {
	eventType := fs.String("type", "", "event type filter")
	account := fs.String("account", "", "account filter")
	after := fs.Uint64("after", 0, "return events after this sequence")
	limit := fs.Int("limit", 0, "maximum events to return")
	fs.Parse(args)
	q := client.EventQuery{Type: *eventType, After: *after, Limit: *limit}
	if raw := strings.TrimSpace(*account); raw != "" {
		addr, err := crypto.ParseAddress(raw)
		if err != nil {
			return q, fmt.Errorf("--account: %w", err)
		}
		q.Account = &addr
	}
	return q, nil
}

// runToken signs a JWT locally with the gateway secret, read from
// KAIA_GATEWAY_JWT_SECRET or prompted for.
func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	subject := fs.String("subject", os.Getenv(envAddress), "wallet address the token acts for")
	operator := fs.Bool("operator", false, "grant the operator scope")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	issuer := fs.String("issuer", "", "issuer claim")
	audience := fs.String("audience", "", "audience claim")
	fs.Parse(args)

	addr, err := crypto.ParseAddress(*subject)
	if err != nil {
		return fmt.Errorf("--subject: %w", err)
	}
	signing, err := secret.NewSource(gatewayconfig.SecretEnv, "gateway JWT signing secret").Get()
	if err != nil {
		return err
	}
	var scopes []string
	if *operator {
		scopes = append(scopes, middleware.ScopeOperator)
	}
	token, err := middleware.IssueToken(signing, addr, scopes, *issuer, *audience, *ttl, time.Now())
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("out", "./kaia-data/ledger.toml", "ledger configuration path")
	operator := fs.String("operator", "", "operator address")
	force := fs.Bool("force", false, "overwrite an existing file")
	fs.Parse(args)

	if _, err := os.Stat(*path); err == nil && !*force {
		return fmt.Errorf("%s already exists; pass --force to overwrite", *path)
	}
	cfg := ledgerconfig.Default()
	if raw := strings.TrimSpace(*operator); raw != "" {
		addr, err := crypto.ParseAddress(raw)
		if err != nil {
			return fmt.Errorf("--operator: %w", err)
		}
		cfg.Operator = addr.Hex()
	}
	if err := ledgerconfig.Save(*path, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *path)
	return nil
}

func balanceLine(b api.BalanceView) string {
	return fmt.Sprintf("%s %s", b.Amount, b.Asset)
}
