package ethrpc

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
)

// erc20ABI is the fragment of the standard ERC20 interface the harness calls.
const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"constant":false,"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

func parseERC20ABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(erc20ABI))
}

// artifact is the compiled-contract JSON the token is deployed from
// (hardhat/truffle artifact layout; only the creation bytecode is used).
type artifact struct {
	Bytecode string `json:"bytecode"`
}

// loadCreationCode reads the artifact file and returns the creation bytecode.
func loadCreationCode(path string) ([]byte, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read token artifact %s", path)
	}
	var a artifact
	if err := json.Unmarshal(bs, &a); err != nil {
		return nil, errors.Wrapf(err, "parse token artifact %s", path)
	}
	code := strings.TrimPrefix(a.Bytecode, "0x")
	if len(code) == 0 {
		return nil, errors.Errorf("token artifact %s has no bytecode", path)
	}
	data, err := hex.DecodeString(code)
	if err != nil {
		return nil, errors.Wrapf(err, "decode token bytecode from %s", path)
	}
	return data, nil
}
