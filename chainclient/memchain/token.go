package memchain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/tidwall/btree"

	"github.com/meverselabs/erc20check/chainclient"
	"github.com/meverselabs/erc20check/common/amount"
)

// Token arithmetic below mirrors the reference contract: every precondition
// failure is a revert, zero-value moves succeed unconditionally, and an
// allowance equal to the unlimited sentinel is never decremented.

func balanceKey(token, addr common.Address) string {
	return "b/" + string(token.Bytes()) + "/" + string(addr.Bytes())
}

func allowanceKey(token, owner, spender common.Address) string {
	return "a/" + string(token.Bytes()) + "/" + string(owner.Bytes()) + "/" + string(spender.Bytes())
}

func supplyKey(token common.Address) string {
	return "s/" + string(token.Bytes())
}

func getEntry(state *btree.BTreeG[entry], key string) *amount.Amount {
	if e, ok := state.Get(entry{key: key}); ok {
		return e.value.Clone()
	}
	return amount.NewAmount(0, 0)
}

func setEntry(state *btree.BTreeG[entry], key string, v *amount.Amount) {
	if v.IsZero() {
		state.Delete(entry{key: key})
		return
	}
	state.Set(entry{key: key, value: v.Clone()})
}

func transfer(state *btree.BTreeG[entry], token, from, to common.Address, amt *amount.Amount) error {
	if from == (common.Address{}) {
		return chainclient.Revertf("transfer from the zero address")
	}
	if to == (common.Address{}) {
		return chainclient.Revertf("transfer to the zero address")
	}
	if amt.IsMinus() {
		return chainclient.Revertf("negative transfer amount")
	}

	balance := getEntry(state, balanceKey(token, from))
	if balance.Less(amt) {
		return chainclient.Revertf("transfer amount exceeds balance")
	}
	if amt.IsZero() {
		return nil
	}
	move(state, token, from, to, amt)
	return nil
}

func approve(state *btree.BTreeG[entry], token, owner, spender common.Address, amt *amount.Amount) error {
	if owner == (common.Address{}) {
		return chainclient.Revertf("approve from the zero address")
	}
	if spender == (common.Address{}) {
		return chainclient.Revertf("approve to the zero address")
	}
	if amt.IsMinus() {
		return chainclient.Revertf("negative approval amount")
	}
	setEntry(state, allowanceKey(token, owner, spender), amt)
	return nil
}

func transferFrom(state *btree.BTreeG[entry], token, caller, owner, to common.Address, amt *amount.Amount) error {
	if amt.IsMinus() {
		return chainclient.Revertf("negative transfer amount")
	}
	if amt.IsZero() {
		return nil
	}

	// balance insufficiency dominates allowance sufficiency
	balance := getEntry(state, balanceKey(token, owner))
	if balance.Less(amt) {
		return chainclient.Revertf("transfer amount exceeds balance")
	}

	allowed := getEntry(state, allowanceKey(token, owner, caller))
	if allowed.Less(amt) {
		return chainclient.Revertf("insufficient allowance")
	}
	if !allowed.Equal(amount.MaxUint256()) {
		setEntry(state, allowanceKey(token, owner, caller), allowed.Sub(amt))
	}

	move(state, token, owner, to, amt)
	return nil
}

func move(state *btree.BTreeG[entry], token, from, to common.Address, amt *amount.Amount) {
	fromBal := getEntry(state, balanceKey(token, from))
	toBal := getEntry(state, balanceKey(token, to))
	if from == to {
		return
	}
	setEntry(state, balanceKey(token, from), fromBal.Sub(amt))
	setEntry(state, balanceKey(token, to), toBal.Add(amt))
}
