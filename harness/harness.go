// Package harness runs the token transfer verification sequence: it funds an
// owner/spender account pair once, then executes each case inside a
// snapshot/revert scope so no case observes another's mutations.
package harness

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/meverselabs/erc20check/chainclient"
	"github.com/meverselabs/erc20check/common/amount"
)

// DefaultMint is the quantity minted to the owner at setup: 100 coins,
// 100000000000000000000 base units.
var DefaultMint = amount.COIN.MulC(100)

// Options configures setup. A nil Token deploys a fresh contract minting
// Mint to the owner; a non-nil Token references an already deployed,
// pre-funded instance.
type Options struct {
	Mint  *amount.Amount
	Token *common.Address
}

// Harness holds the fixed post-setup fixture every case starts from: the
// owner funded with Minted, the spender empty, no allowances set.
type Harness struct {
	cli chainclient.Client

	Owner   common.Address
	Spender common.Address
	Token   common.Address
	Minted  *amount.Amount
}

// Setup acquires the account pair and the funded token instance. Any failure
// here is fatal to the whole suite.
func Setup(ctx context.Context, cli chainclient.Client, opts Options) (*Harness, error) {
	accounts, err := cli.Accounts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list accounts")
	}
	if len(accounts) < 2 {
		return nil, errors.Errorf("need at least two accounts, node exposes %d", len(accounts))
	}
	owner, spender := accounts[0], accounts[1]
	if owner == spender {
		return nil, errors.Errorf("owner and spender are the same address %s", owner.Hex())
	}

	h := &Harness{cli: cli, Owner: owner, Spender: spender}

	if opts.Token != nil {
		h.Token = *opts.Token
		minted, err := cli.BalanceOf(ctx, h.Token, owner)
		if err != nil {
			return nil, errors.Wrapf(err, "read owner balance of referenced token %s", h.Token.Hex())
		}
		if !minted.IsPlus() {
			return nil, errors.Errorf("referenced token %s holds no owner balance", h.Token.Hex())
		}
		// cases assert absolute post-balances, so the fixture must start
		// clean: spender empty, no allowance set
		spenderBal, err := cli.BalanceOf(ctx, h.Token, spender)
		if err != nil {
			return nil, errors.Wrapf(err, "read spender balance of referenced token %s", h.Token.Hex())
		}
		if !spenderBal.IsZero() {
			return nil, errors.Errorf("referenced token %s: spender %s already holds %s", h.Token.Hex(), spender.Hex(), spenderBal.String())
		}
		allowed, err := cli.Allowance(ctx, h.Token, owner, spender)
		if err != nil {
			return nil, errors.Wrapf(err, "read allowance of referenced token %s", h.Token.Hex())
		}
		if !allowed.IsZero() {
			return nil, errors.Errorf("referenced token %s: allowance of %s already granted to spender %s", h.Token.Hex(), allowed.String(), spender.Hex())
		}
		h.Minted = minted
		return h, nil
	}

	mint := opts.Mint
	if mint == nil {
		mint = DefaultMint
	}
	token, err := cli.DeployToken(ctx, owner, mint)
	if err != nil {
		return nil, errors.Wrap(err, "deploy token")
	}
	h.Token = token
	h.Minted = mint

	// the suite is meaningless if the mint did not land
	bal, err := cli.BalanceOf(ctx, token, owner)
	if err != nil {
		return nil, errors.Wrap(err, "read owner balance after deploy")
	}
	if !bal.Equal(mint) {
		return nil, errors.Errorf("owner balance after deploy is %s, want %s", bal.String(), mint.String())
	}
	return h, nil
}

// Client returns the underlying chain client.
func (h *Harness) Client() chainclient.Client {
	return h.cli
}

// IsolationError reports a snapshot or revert failure. Once it occurs the
// clean-fixture guarantee is gone, so a run must stop.
type IsolationError struct {
	Op  string
	Err error
}

func (e *IsolationError) Error() string {
	return "isolation " + e.Op + " failed: " + e.Err.Error()
}

func (e *IsolationError) Unwrap() error {
	return e.Err
}

// Isolate runs fn inside a snapshot/revert scope. The snapshot is restored on
// every exit path, so fn's chain mutations never leak out. fn's own error is
// returned as-is; snapshot or revert failures surface as *IsolationError.
func (h *Harness) Isolate(ctx context.Context, fn func(context.Context) error) (err error) {
	id, serr := h.cli.Snapshot(ctx)
	if serr != nil {
		return &IsolationError{Op: "snapshot", Err: serr}
	}
	defer func() {
		if rerr := h.cli.Revert(ctx, id); rerr != nil {
			if err != nil {
				rerr = errors.Wrapf(rerr, "after case error: %v", err)
			}
			err = &IsolationError{Op: "revert", Err: rerr}
		}
	}()
	return fn(ctx)
}
