// Package chainclient defines the client surface the verification harness
// drives a token contract through. Implementations talk to a live node
// (ethrpc) or to an in-memory ledger double (memchain).
package chainclient

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/meverselabs/erc20check/common/amount"
)

// SnapshotID identifies a restorable chain state snapshot.
type SnapshotID string

// Client is a blocking round-trip connection to a chain holding the token
// contract. State-changing calls return once the transaction is committed or
// rejected. Call-only variants execute without committing state and report
// the method's boolean return value.
type Client interface {
	// Accounts returns the ordered list of addresses available for signing.
	Accounts(ctx context.Context) ([]common.Address, error)

	// DeployToken deploys the token contract, minting initialSupply to the deployer,
	// and returns the contract address.
	DeployToken(ctx context.Context, deployer common.Address, initialSupply *amount.Amount) (common.Address, error)

	BalanceOf(ctx context.Context, token, account common.Address) (*amount.Amount, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*amount.Amount, error)

	// Approve sets the allowance of spender over owner's tokens.
	Approve(ctx context.Context, token, owner, spender common.Address, amt *amount.Amount) error

	// Transfer moves amt from the sender's own balance to to.
	Transfer(ctx context.Context, token, from, to common.Address, amt *amount.Amount) error

	// TransferFrom moves amt from owner to to, spending caller's allowance.
	TransferFrom(ctx context.Context, token, caller, owner, to common.Address, amt *amount.Amount) error

	// CallTransfer executes transfer in call-only mode and returns its boolean result.
	CallTransfer(ctx context.Context, token, from, to common.Address, amt *amount.Amount) (bool, error)

	// CallTransferFrom executes transferFrom in call-only mode and returns its boolean result.
	CallTransferFrom(ctx context.Context, token, caller, owner, to common.Address, amt *amount.Amount) (bool, error)

	// Snapshot captures the full chain state. Revert restores it; a snapshot
	// is consumed by the revert that uses it.
	Snapshot(ctx context.Context) (SnapshotID, error)
	Revert(ctx context.Context, id SnapshotID) error

	Close()
}

// Unlimited returns the unlimited allowance sentinel (2^256 - 1). An
// allowance equal to it is never decremented by transferFrom.
func Unlimited() *amount.Amount {
	return amount.MaxUint256()
}
