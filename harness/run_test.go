package harness_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/meverselabs/erc20check/chainclient/memchain"
	"github.com/meverselabs/erc20check/common/amount"
	"github.com/meverselabs/erc20check/harness"
)

var _ = Describe("harness", func() {
	ctx := context.Background()

	Describe("Setup", func() {
		It("funds the owner and leaves the spender empty", func() {
			_, h := newHarness(ctx)
			cli := h.Client()

			Expect(h.Owner).NotTo(Equal(h.Spender))
			Expect(h.Minted).To(Equal(amount.NewAmount(100, 0)))

			ownerBal, _ := cli.BalanceOf(ctx, h.Token, h.Owner)
			spenderBal, _ := cli.BalanceOf(ctx, h.Token, h.Spender)
			Expect(ownerBal).To(Equal(h.Minted))
			Expect(spenderBal.Cmp(AmountZero.Int)).To(Equal(0))
		})

		It("fails without two accounts", func() {
			chain := memchain.New(1)
			_, err := harness.Setup(ctx, chain, harness.Options{})
			Expect(err).To(HaveOccurred())
		})

		It("references an existing funded token", func() {
			chain := memchain.New(2)
			accounts, err := chain.Accounts(ctx)
			Expect(err).To(Succeed())

			token, err := chain.DeployToken(ctx, accounts[0], amount.NewAmount(7, 0))
			Expect(err).To(Succeed())

			h, err := harness.Setup(ctx, chain, harness.Options{Token: &token})
			Expect(err).To(Succeed())
			Expect(h.Token).To(Equal(token))
			Expect(h.Minted).To(Equal(amount.NewAmount(7, 0)))
		})

		It("rejects a referenced token with a funded spender", func() {
			chain := memchain.New(2)
			accounts, err := chain.Accounts(ctx)
			Expect(err).To(Succeed())

			token, err := chain.DeployToken(ctx, accounts[0], amount.NewAmount(110, 0))
			Expect(err).To(Succeed())
			// the spender starting with a balance would skew the absolute
			// post-balance assertions
			Expect(chain.Transfer(ctx, token, accounts[0], accounts[1], amount.NewAmount(10, 0))).To(Succeed())

			_, err = harness.Setup(ctx, chain, harness.Options{Token: &token})
			Expect(err).To(MatchError(ContainSubstring("already holds")))
		})

		It("rejects a referenced token with a pre-set allowance", func() {
			chain := memchain.New(2)
			accounts, err := chain.Accounts(ctx)
			Expect(err).To(Succeed())

			token, err := chain.DeployToken(ctx, accounts[0], amount.NewAmount(100, 0))
			Expect(err).To(Succeed())
			Expect(chain.Approve(ctx, token, accounts[0], accounts[1], amount.NewAmount(5, 0))).To(Succeed())

			_, err = harness.Setup(ctx, chain, harness.Options{Token: &token})
			Expect(err).To(MatchError(ContainSubstring("allowance")))
		})

		It("rejects an unfunded referenced token", func() {
			chain := memchain.New(2)
			accounts, err := chain.Accounts(ctx)
			Expect(err).To(Succeed())

			// minted to the second account, the owner holds nothing
			token, err := chain.DeployToken(ctx, accounts[1], amount.NewAmount(7, 0))
			Expect(err).To(Succeed())

			_, err = harness.Setup(ctx, chain, harness.Options{Token: &token})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Isolate", func() {
		It("hides case mutations from the next case", func() {
			_, h := newHarness(ctx)
			cli := h.Client()

			err := h.Isolate(ctx, func(ctx context.Context) error {
				return cli.Transfer(ctx, h.Token, h.Owner, h.Spender, h.Minted)
			})
			Expect(err).To(Succeed())

			bal, _ := cli.BalanceOf(ctx, h.Token, h.Owner)
			Expect(bal).To(Equal(h.Minted))
		})

		It("restores state when the case fails", func() {
			_, h := newHarness(ctx)
			cli := h.Client()

			caseErr := errors.New("case went sideways")
			err := h.Isolate(ctx, func(ctx context.Context) error {
				if err := cli.Transfer(ctx, h.Token, h.Owner, h.Spender, h.Minted); err != nil {
					return err
				}
				return caseErr
			})
			Expect(err).To(MatchError(caseErr))

			bal, _ := cli.BalanceOf(ctx, h.Token, h.Owner)
			Expect(bal).To(Equal(h.Minted))
		})
	})

	Describe("Run", func() {
		It("passes the full verification sequence", func() {
			_, h := newHarness(ctx)

			report, err := h.Run(ctx)
			Expect(err).To(Succeed())
			Expect(report.Results).To(HaveLen(len(harness.Cases())))
			Expect(report.OK()).To(BeTrue(), "failed cases: %+v", report.Failed())
		})

		It("leaves the fixture untouched after a full run", func() {
			_, h := newHarness(ctx)
			cli := h.Client()

			_, err := h.Run(ctx)
			Expect(err).To(Succeed())

			ownerBal, _ := cli.BalanceOf(ctx, h.Token, h.Owner)
			spenderBal, _ := cli.BalanceOf(ctx, h.Token, h.Spender)
			allowed, _ := cli.Allowance(ctx, h.Token, h.Owner, h.Spender)
			Expect(ownerBal).To(Equal(h.Minted))
			Expect(spenderBal.Cmp(AmountZero.Int)).To(Equal(0))
			Expect(allowed.Cmp(AmountZero.Int)).To(Equal(0))
		})

		It("runs the sequence twice from the same fixture", func() {
			_, h := newHarness(ctx)

			report, err := h.Run(ctx)
			Expect(err).To(Succeed())
			Expect(report.OK()).To(BeTrue())

			report, err = h.Run(ctx)
			Expect(err).To(Succeed())
			Expect(report.OK()).To(BeTrue())
		})
	})
})
