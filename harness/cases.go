package harness

import (
	"context"

	"github.com/pkg/errors"

	"github.com/meverselabs/erc20check/chainclient"
	"github.com/meverselabs/erc20check/common/amount"
)

// Case is one verification step. Every case starts from the identical
// post-setup fixture and reports a nil error when the contract behaved.
type Case struct {
	Name string
	Run  func(ctx context.Context, h *Harness) error
}

var one = amount.NewAmount(0, 1)

// Cases returns the fixed verification sequence, transfer group first.
func Cases() []Case {
	return []Case{
		{"transfer exceeding balance reverts", caseTransferExceedsBalance},
		{"transfer moves a single unit", caseTransferOneUnit},
		{"zero-value transfer returns true", caseTransferZero},
		{"transferFrom exceeding balance reverts despite allowance", caseTransferFromExceedsBalance},
		{"transferFrom exceeding allowance reverts", caseTransferFromExceedsAllowance},
		{"zero-value transferFrom returns true", caseTransferFromZero},
		{"unlimited allowance is not decremented", caseTransferFromUnlimited},
		{"finite allowance is spent exactly", caseTransferFromFiniteAllowance},
	}
}

func caseTransferExceedsBalance(ctx context.Context, h *Harness) error {
	err := h.cli.Transfer(ctx, h.Token, h.Owner, h.Spender, h.Minted.Add(one))
	return expectRevert(err, "transfer above owner balance")
}

func caseTransferOneUnit(ctx context.Context, h *Harness) error {
	preOwner, preSpender, err := h.balances(ctx)
	if err != nil {
		return err
	}
	if err := h.cli.Transfer(ctx, h.Token, h.Owner, h.Spender, one); err != nil {
		return errors.Wrap(err, "transfer one unit")
	}
	postOwner, postSpender, err := h.balances(ctx)
	if err != nil {
		return err
	}
	if err := expectEqual(postOwner, preOwner.Sub(one), "owner balance"); err != nil {
		return err
	}
	return expectEqual(postSpender, preSpender.Add(one), "spender balance")
}

func caseTransferZero(ctx context.Context, h *Harness) error {
	zero := amount.NewAmount(0, 0)

	// from the funded owner
	ok, err := h.cli.CallTransfer(ctx, h.Token, h.Owner, h.Spender, zero)
	if err := expectTrue(ok, err, "zero transfer from owner"); err != nil {
		return err
	}
	// and from the empty spender: the balance must not matter
	ok, err = h.cli.CallTransfer(ctx, h.Token, h.Spender, h.Owner, zero)
	return expectTrue(ok, err, "zero transfer from empty spender")
}

func caseTransferFromExceedsBalance(ctx context.Context, h *Harness) error {
	// allowance covers the amount, the owner's balance does not
	if err := h.cli.Approve(ctx, h.Token, h.Owner, h.Spender, h.Minted.MulC(2)); err != nil {
		return errors.Wrap(err, "approve")
	}
	err := h.cli.TransferFrom(ctx, h.Token, h.Spender, h.Owner, h.Spender, h.Minted.Add(one))
	return expectRevert(err, "transferFrom above owner balance")
}

func caseTransferFromExceedsAllowance(ctx context.Context, h *Harness) error {
	// the owner's balance covers the amount, the allowance does not
	if err := h.cli.Approve(ctx, h.Token, h.Owner, h.Spender, one); err != nil {
		return errors.Wrap(err, "approve")
	}
	err := h.cli.TransferFrom(ctx, h.Token, h.Spender, h.Owner, h.Spender, one.Add(one))
	return expectRevert(err, "transferFrom above allowance")
}

func caseTransferFromZero(ctx context.Context, h *Harness) error {
	// no allowance is set at all
	ok, err := h.cli.CallTransferFrom(ctx, h.Token, h.Spender, h.Owner, h.Spender, amount.NewAmount(0, 0))
	return expectTrue(ok, err, "zero transferFrom without approval")
}

func caseTransferFromUnlimited(ctx context.Context, h *Harness) error {
	unlimited := chainclient.Unlimited()
	if err := h.cli.Approve(ctx, h.Token, h.Owner, h.Spender, unlimited); err != nil {
		return errors.Wrap(err, "approve unlimited")
	}
	if err := h.cli.TransferFrom(ctx, h.Token, h.Spender, h.Owner, h.Spender, h.Minted); err != nil {
		return errors.Wrap(err, "transferFrom full balance")
	}

	allowed, err := h.cli.Allowance(ctx, h.Token, h.Owner, h.Spender)
	if err != nil {
		return errors.Wrap(err, "read allowance")
	}
	if err := expectEqual(allowed, unlimited, "allowance after unlimited spend"); err != nil {
		return err
	}
	postOwner, postSpender, err := h.balances(ctx)
	if err != nil {
		return err
	}
	if err := expectEqual(postOwner, amount.NewAmount(0, 0), "owner balance"); err != nil {
		return err
	}
	return expectEqual(postSpender, h.Minted, "spender balance")
}

func caseTransferFromFiniteAllowance(ctx context.Context, h *Harness) error {
	if err := h.cli.Approve(ctx, h.Token, h.Owner, h.Spender, h.Minted); err != nil {
		return errors.Wrap(err, "approve full balance")
	}
	if err := h.cli.TransferFrom(ctx, h.Token, h.Spender, h.Owner, h.Spender, h.Minted); err != nil {
		return errors.Wrap(err, "transferFrom full balance")
	}

	postOwner, postSpender, err := h.balances(ctx)
	if err != nil {
		return err
	}
	if err := expectEqual(postOwner, amount.NewAmount(0, 0), "owner balance"); err != nil {
		return err
	}
	if err := expectEqual(postSpender, h.Minted, "spender balance"); err != nil {
		return err
	}
	allowed, err := h.cli.Allowance(ctx, h.Token, h.Owner, h.Spender)
	if err != nil {
		return errors.Wrap(err, "read allowance")
	}
	return expectEqual(allowed, amount.NewAmount(0, 0), "allowance after finite spend")
}

func (h *Harness) balances(ctx context.Context) (owner, spender *amount.Amount, err error) {
	owner, err = h.cli.BalanceOf(ctx, h.Token, h.Owner)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read owner balance")
	}
	spender, err = h.cli.BalanceOf(ctx, h.Token, h.Spender)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read spender balance")
	}
	return owner, spender, nil
}

func expectRevert(err error, what string) error {
	if err == nil {
		return errors.Errorf("%s: expected revert, call succeeded", what)
	}
	if !chainclient.IsRevert(err) {
		return errors.Wrapf(err, "%s: expected revert, got infrastructure failure", what)
	}
	return nil
}

func expectEqual(got, want *amount.Amount, what string) error {
	if !got.Equal(want) {
		return errors.Errorf("%s: got %s, want %s", what, got.String(), want.String())
	}
	return nil
}

func expectTrue(ok bool, err error, what string) error {
	if err != nil {
		return errors.Wrap(err, what)
	}
	if !ok {
		return errors.Errorf("%s: returned false", what)
	}
	return nil
}
