package harness_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/meverselabs/erc20check/chainclient"
	"github.com/meverselabs/erc20check/chainclient/memchain"
	"github.com/meverselabs/erc20check/common/amount"
	"github.com/meverselabs/erc20check/harness"
)

var _ = Describe("transfer", func() {
	ctx := context.Background()

	var chain *memchain.Chain
	var h *harness.Harness
	var cli chainclient.Client

	BeforeEach(func() {
		chain, h = newHarness(ctx)
		cli = h.Client()
	})

	It("sender balance decrease", func() {
		amt := h.Minted.DivC(4)

		err := cli.Transfer(ctx, h.Token, h.Owner, h.Spender, amt)
		Expect(err).To(Succeed())

		bal, err := cli.BalanceOf(ctx, h.Token, h.Owner)
		Expect(err).To(Succeed())
		Expect(bal).To(Equal(h.Minted.Sub(amt)))
	})

	It("receiver balance increase", func() {
		amt := h.Minted.DivC(4)

		err := cli.Transfer(ctx, h.Token, h.Owner, h.Spender, amt)
		Expect(err).To(Succeed())

		bal, err := cli.BalanceOf(ctx, h.Token, h.Spender)
		Expect(err).To(Succeed())
		Expect(bal).To(Equal(amt))
	})

	It("total supply not affected", func() {
		err := cli.Transfer(ctx, h.Token, h.Owner, h.Spender, h.Minted)
		Expect(err).To(Succeed())

		supply, err := chain.TotalSupply(ctx, h.Token)
		Expect(err).To(Succeed())
		Expect(supply).To(Equal(h.Minted))
	})

	It("transfer full balance", func() {
		err := cli.Transfer(ctx, h.Token, h.Owner, h.Spender, h.Minted)
		Expect(err).To(Succeed())

		ownerBal, _ := cli.BalanceOf(ctx, h.Token, h.Owner)
		spenderBal, _ := cli.BalanceOf(ctx, h.Token, h.Spender)
		Expect(ownerBal.Cmp(AmountZero.Int)).To(Equal(0))
		Expect(spenderBal).To(Equal(h.Minted))
	})

	It("transfer zero token", func() {
		err := cli.Transfer(ctx, h.Token, h.Owner, h.Spender, AmountZero)
		Expect(err).To(Succeed())

		ownerBal, _ := cli.BalanceOf(ctx, h.Token, h.Owner)
		spenderBal, _ := cli.BalanceOf(ctx, h.Token, h.Spender)
		Expect(ownerBal).To(Equal(h.Minted))
		Expect(spenderBal.Cmp(AmountZero.Int)).To(Equal(0))
	})

	It("transfer zero token returns true regardless of balance", func() {
		// the spender holds nothing
		ok, err := cli.CallTransfer(ctx, h.Token, h.Spender, h.Owner, AmountZero)
		Expect(err).To(Succeed())
		Expect(ok).To(BeTrue())
	})

	It("transfer to self", func() {
		amt := h.Minted.DivC(4)

		err := cli.Transfer(ctx, h.Token, h.Owner, h.Owner, amt)
		Expect(err).To(Succeed())

		bal, _ := cli.BalanceOf(ctx, h.Token, h.Owner)
		Expect(bal).To(Equal(h.Minted))
	})

	It("fail if insufficient balance", func() {
		err := cli.Transfer(ctx, h.Token, h.Owner, h.Spender, h.Minted.Add(amount.NewAmount(0, 1)))
		Expect(err).To(MatchError(ContainSubstring("execution reverted")))
		Expect(chainclient.IsRevert(err)).To(BeTrue())
	})
})
