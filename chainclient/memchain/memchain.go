// Package memchain is an in-memory stand-in for the chain the harness
// verifies against. It keeps ledger state in a copy-on-write B-tree so
// Snapshot and Revert are O(1) tree copies, and mirrors the reference token
// contract's precondition checks so expected reverts surface the same way
// they do over RPC.
package memchain

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/tidwall/btree"

	"github.com/meverselabs/erc20check/chainclient"
	"github.com/meverselabs/erc20check/common/amount"
)

type entry struct {
	key   string
	value *amount.Amount
}

func lessEntry(a, b entry) bool {
	return a.key < b.key
}

// Chain is a single in-memory ledger. All methods are safe for concurrent
// use, though the harness drives it strictly sequentially.
type Chain struct {
	mu       sync.Mutex
	accounts []common.Address
	state    *btree.BTreeG[entry]
	tokens   map[common.Address]struct{}
	nonces   map[common.Address]uint64
	snaps    map[chainclient.SnapshotID]*snapshot
	snapSeq  uint64
}

type snapshot struct {
	state  *btree.BTreeG[entry]
	tokens map[common.Address]struct{}
	nonces map[common.Address]uint64
}

var _ chainclient.Client = (*Chain)(nil)

// New makes a chain with n deterministic accounts.
func New(n int) *Chain {
	accounts := make([]common.Address, 0, n)
	for i := 0; i < n; i++ {
		seed := crypto.Keccak256([]byte(fmt.Sprintf("memchain/account/%d", i)))
		accounts = append(accounts, common.BytesToAddress(seed))
	}
	return &Chain{
		accounts: accounts,
		state:    btree.NewBTreeG(lessEntry),
		tokens:   map[common.Address]struct{}{},
		nonces:   map[common.Address]uint64{},
		snaps:    map[chainclient.SnapshotID]*snapshot{},
	}
}

func (c *Chain) Accounts(ctx context.Context) ([]common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]common.Address, len(c.accounts))
	copy(out, c.accounts)
	return out, nil
}

func (c *Chain) DeployToken(ctx context.Context, deployer common.Address, initialSupply *amount.Amount) (common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if initialSupply == nil || initialSupply.IsMinus() {
		return common.Address{}, errors.New("invalid initial supply")
	}
	nonce := c.nonces[deployer]
	c.nonces[deployer] = nonce + 1
	token := crypto.CreateAddress(deployer, nonce)
	c.tokens[token] = struct{}{}

	if initialSupply.IsPlus() {
		setEntry(c.state, balanceKey(token, deployer), initialSupply)
		setEntry(c.state, supplyKey(token), initialSupply)
	}
	return token, nil
}

func (c *Chain) BalanceOf(ctx context.Context, token, account common.Address) (*amount.Amount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.knownToken(token); err != nil {
		return nil, err
	}
	return getEntry(c.state, balanceKey(token, account)), nil
}

func (c *Chain) Allowance(ctx context.Context, token, owner, spender common.Address) (*amount.Amount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.knownToken(token); err != nil {
		return nil, err
	}
	return getEntry(c.state, allowanceKey(token, owner, spender)), nil
}

// TotalSupply returns the sum minted for the token.
func (c *Chain) TotalSupply(ctx context.Context, token common.Address) (*amount.Amount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.knownToken(token); err != nil {
		return nil, err
	}
	return getEntry(c.state, supplyKey(token)), nil
}

func (c *Chain) Approve(ctx context.Context, token, owner, spender common.Address, amt *amount.Amount) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.knownToken(token); err != nil {
		return err
	}
	return approve(c.state, token, owner, spender, amt)
}

func (c *Chain) Transfer(ctx context.Context, token, from, to common.Address, amt *amount.Amount) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.knownToken(token); err != nil {
		return err
	}
	return transfer(c.state, token, from, to, amt)
}

func (c *Chain) TransferFrom(ctx context.Context, token, caller, owner, to common.Address, amt *amount.Amount) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.knownToken(token); err != nil {
		return err
	}
	return transferFrom(c.state, token, caller, owner, to, amt)
}

// CallTransfer runs transfer against a scratch copy of the state, so the
// boolean result is observable without committing anything.
func (c *Chain) CallTransfer(ctx context.Context, token, from, to common.Address, amt *amount.Amount) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.knownToken(token); err != nil {
		return false, err
	}
	if err := transfer(c.state.Copy(), token, from, to, amt); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Chain) CallTransferFrom(ctx context.Context, token, caller, owner, to common.Address, amt *amount.Amount) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.knownToken(token); err != nil {
		return false, err
	}
	if err := transferFrom(c.state.Copy(), token, caller, owner, to, amt); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Chain) Snapshot(ctx context.Context) (chainclient.SnapshotID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapSeq++
	id := chainclient.SnapshotID(strconv.FormatUint(c.snapSeq, 10))
	c.snaps[id] = &snapshot{
		state:  c.state.Copy(),
		tokens: copyAddrSet(c.tokens),
		nonces: copyNonces(c.nonces),
	}
	return id, nil
}

func (c *Chain) Revert(ctx context.Context, id chainclient.SnapshotID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, ok := c.snaps[id]
	if !ok {
		return errors.Errorf("unknown snapshot %q", id)
	}
	c.state = snap.state
	c.tokens = snap.tokens
	c.nonces = snap.nonces
	// a snapshot is consumed by its revert, matching node behavior
	delete(c.snaps, id)
	return nil
}

func (c *Chain) Close() {}

func (c *Chain) knownToken(token common.Address) error {
	if _, ok := c.tokens[token]; !ok {
		return errors.Errorf("no token contract at %s", token.Hex())
	}
	return nil
}

func copyAddrSet(in map[common.Address]struct{}) map[common.Address]struct{} {
	out := make(map[common.Address]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func copyNonces(in map[common.Address]uint64) map[common.Address]uint64 {
	out := make(map[common.Address]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
