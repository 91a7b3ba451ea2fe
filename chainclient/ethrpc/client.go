// Package ethrpc drives the token contract over JSON-RPC against a local
// development node (hardhat/anvil style): node-managed accounts sign via
// eth_sendTransaction, reads and call-only probes go through eth_call, and
// per-case isolation uses evm_snapshot / evm_revert.
package ethrpc

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"github.com/meverselabs/erc20check/chainclient"
	"github.com/meverselabs/erc20check/common/amount"
)

const defaultPollInterval = 100 * time.Millisecond

// Client talks to one node. It is not safe for concurrent snapshots; the
// harness runs cases strictly sequentially.
type Client struct {
	rpc          *rpc.Client
	erc20        abi.ABI
	artifactPath string
	pollInterval time.Duration
}

var _ chainclient.Client = (*Client)(nil)

// Dial connects to the node. artifactPath points at the compiled token
// contract used by DeployToken; it may be empty when the harness references
// an already deployed token.
func Dial(ctx context.Context, endpoint, artifactPath string) (*Client, error) {
	rc, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", endpoint)
	}
	parsed, err := parseERC20ABI()
	if err != nil {
		rc.Close()
		return nil, errors.Wrap(err, "parse erc20 abi")
	}
	return &Client{
		rpc:          rc,
		erc20:        parsed,
		artifactPath: artifactPath,
		pollInterval: defaultPollInterval,
	}, nil
}

func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := c.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, errors.Wrap(err, "eth_accounts")
	}
	return accounts, nil
}

func (c *Client) DeployToken(ctx context.Context, deployer common.Address, initialSupply *amount.Amount) (common.Address, error) {
	code, err := loadCreationCode(c.artifactPath)
	if err != nil {
		return common.Address{}, err
	}
	// constructor(uint256 initialSupply)
	data := append(code, common.LeftPadBytes(initialSupply.Bytes(), 32)...)

	receipt, err := c.send(ctx, deployer, nil, data)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "deploy token")
	}
	if receipt.ContractAddress == (common.Address{}) {
		return common.Address{}, errors.New("deploy receipt carries no contract address")
	}
	return receipt.ContractAddress, nil
}

func (c *Client) BalanceOf(ctx context.Context, token, account common.Address) (*amount.Amount, error) {
	return c.viewAmount(ctx, token, "balanceOf", account)
}

func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*amount.Amount, error) {
	return c.viewAmount(ctx, token, "allowance", owner, spender)
}

// TotalSupply returns the token's reported total supply.
func (c *Client) TotalSupply(ctx context.Context, token common.Address) (*amount.Amount, error) {
	return c.viewAmount(ctx, token, "totalSupply")
}

func (c *Client) Approve(ctx context.Context, token, owner, spender common.Address, amt *amount.Amount) error {
	return c.invoke(ctx, token, owner, "approve", spender, amt.Int)
}

func (c *Client) Transfer(ctx context.Context, token, from, to common.Address, amt *amount.Amount) error {
	return c.invoke(ctx, token, from, "transfer", to, amt.Int)
}

func (c *Client) TransferFrom(ctx context.Context, token, caller, owner, to common.Address, amt *amount.Amount) error {
	return c.invoke(ctx, token, caller, "transferFrom", owner, to, amt.Int)
}

func (c *Client) CallTransfer(ctx context.Context, token, from, to common.Address, amt *amount.Amount) (bool, error) {
	return c.callBool(ctx, token, from, "transfer", to, amt.Int)
}

func (c *Client) CallTransferFrom(ctx context.Context, token, caller, owner, to common.Address, amt *amount.Amount) (bool, error) {
	return c.callBool(ctx, token, caller, "transferFrom", owner, to, amt.Int)
}

func (c *Client) Snapshot(ctx context.Context) (chainclient.SnapshotID, error) {
	var id hexutil.Big
	if err := c.rpc.CallContext(ctx, &id, "evm_snapshot"); err != nil {
		return "", errors.Wrap(err, "evm_snapshot")
	}
	return chainclient.SnapshotID(id.String()), nil
}

func (c *Client) Revert(ctx context.Context, id chainclient.SnapshotID) error {
	var ok bool
	if err := c.rpc.CallContext(ctx, &ok, "evm_revert", string(id)); err != nil {
		return errors.Wrap(err, "evm_revert")
	}
	if !ok {
		return errors.Errorf("node rejected revert to snapshot %s", id)
	}
	return nil
}

// invoke sends a state-changing contract call and waits for its receipt.
func (c *Client) invoke(ctx context.Context, token, from common.Address, method string, args ...interface{}) error {
	data, err := c.erc20.Pack(method, args...)
	if err != nil {
		return errors.Wrapf(err, "pack %s", method)
	}
	_, err = c.send(ctx, from, &token, data)
	if err != nil {
		return errors.Wrap(err, method)
	}
	return nil
}

// callBool executes the method via eth_call and decodes its boolean return.
func (c *Client) callBool(ctx context.Context, token, from common.Address, method string, args ...interface{}) (bool, error) {
	data, err := c.erc20.Pack(method, args...)
	if err != nil {
		return false, errors.Wrapf(err, "pack %s", method)
	}
	ret, err := c.call(ctx, from, token, data)
	if err != nil {
		return false, errors.Wrap(err, method)
	}
	out, err := c.erc20.Unpack(method, ret)
	if err != nil {
		return false, errors.Wrapf(err, "unpack %s", method)
	}
	if len(out) != 1 {
		return false, errors.Errorf("%s returned %d values, want 1", method, len(out))
	}
	ok, isBool := out[0].(bool)
	if !isBool {
		return false, errors.Errorf("%s did not return a bool", method)
	}
	return ok, nil
}

func (c *Client) viewAmount(ctx context.Context, token common.Address, method string, args ...interface{}) (*amount.Amount, error) {
	data, err := c.erc20.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", method)
	}
	ret, err := c.call(ctx, common.Address{}, token, data)
	if err != nil {
		return nil, errors.Wrap(err, method)
	}
	out, err := c.erc20.Unpack(method, ret)
	if err != nil {
		return nil, errors.Wrapf(err, "unpack %s", method)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, errors.Errorf("%s did not return a uint256", method)
	}
	return amount.NewAmountFromBytes(v.Bytes()), nil
}

// call executes data against token in call-only mode.
func (c *Client) call(ctx context.Context, from, to common.Address, data []byte) ([]byte, error) {
	msg := map[string]interface{}{
		"to":   to,
		"data": hexutil.Bytes(data),
	}
	if from != (common.Address{}) {
		msg["from"] = from
	}
	var ret hexutil.Bytes
	if err := c.rpc.CallContext(ctx, &ret, "eth_call", msg, "latest"); err != nil {
		return nil, classify(err)
	}
	return ret, nil
}

// send submits a transaction signed by one of the node's unlocked accounts
// and blocks until it is mined.
func (c *Client) send(ctx context.Context, from common.Address, to *common.Address, data []byte) (*types.Receipt, error) {
	msg := map[string]interface{}{
		"from": from,
		"data": hexutil.Bytes(data),
	}
	if to != nil {
		msg["to"] = *to
	}
	var txHash common.Hash
	if err := c.rpc.CallContext(ctx, &txHash, "eth_sendTransaction", msg); err != nil {
		return nil, classify(err)
	}

	receipt, err := c.waitReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		// replay as eth_call to recover the revert reason
		_, callErr := c.call(ctx, from, receiptTo(receipt, to), data)
		return nil, failedTxError(txHash, callErr)
	}
	return receipt, nil
}

// failedTxError maps a failed receipt onto the error model. Only a replay
// that confirms a revert classifies as one; a failed transaction without
// revert data (out of gas, for one) stays an ordinary failure.
func failedTxError(txHash common.Hash, callErr error) error {
	if callErr == nil {
		return errors.Errorf("transaction %s failed without revert data", txHash.Hex())
	}
	if chainclient.IsRevert(callErr) {
		return callErr
	}
	return errors.Wrapf(callErr, "transaction %s failed", txHash.Hex())
}

func receiptTo(receipt *types.Receipt, to *common.Address) common.Address {
	if to != nil {
		return *to
	}
	return receipt.ContractAddress
}

func (c *Client) waitReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	for {
		// a null result means the transaction is not mined yet
		var receipt *types.Receipt
		if err := c.rpc.CallContext(ctx, &receipt, "eth_getTransactionReceipt", txHash); err != nil {
			return nil, errors.Wrap(err, "eth_getTransactionReceipt")
		}
		if receipt != nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "waiting for receipt of %s", txHash.Hex())
		case <-time.After(c.pollInterval):
		}
	}
}

// classify maps node errors onto the harness error model: contract-level
// rejections become RevertError, everything else stays a transport failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if de, ok := err.(rpc.DataError); ok {
		if reason, ok := revertReason(de.ErrorData()); ok {
			return chainclient.Revertf(reason)
		}
	}
	msg := err.Error()
	if strings.Contains(strings.ToLower(msg), "revert") {
		reason := strings.TrimPrefix(msg, "execution reverted")
		reason = strings.TrimPrefix(reason, ": ")
		return &chainclient.RevertError{Reason: reason}
	}
	return err
}

// revertReason decodes the ABI-encoded Error(string) payload nodes attach to
// revert responses.
func revertReason(data interface{}) (string, bool) {
	hexData, ok := data.(string)
	if !ok {
		return "", false
	}
	bs, err := hexutil.Decode(hexData)
	if err != nil {
		return "", false
	}
	reason, err := abi.UnpackRevert(bs)
	if err != nil {
		return "", false
	}
	return reason, true
}
