package harness

import (
	"context"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"github.com/meverselabs/erc20check/common/amount"
)

// CaseResult is the outcome of one case. Dump carries a best-effort fixture
// state dump captured right after a failure, before the revert.
type CaseResult struct {
	Name    string
	Err     error
	Elapsed time.Duration
	Dump    string
}

func (r CaseResult) Passed() bool {
	return r.Err == nil
}

// Report collects the sequential case outcomes of one run.
type Report struct {
	Results []CaseResult
}

// OK reports whether every case passed.
func (r *Report) OK() bool {
	for _, res := range r.Results {
		if !res.Passed() {
			return false
		}
	}
	return true
}

// Failed returns the failing results in case order.
func (r *Report) Failed() []CaseResult {
	var out []CaseResult
	for _, res := range r.Results {
		if !res.Passed() {
			out = append(out, res)
		}
	}
	return out
}

// Run executes the fixed case sequence, each case inside its own
// snapshot/revert scope. Case failures are collected; a broken isolation
// scope aborts the run since later cases would no longer start clean.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	for _, cs := range Cases() {
		start := time.Now()
		var dump string
		err := h.Isolate(ctx, func(ctx context.Context) error {
			caseErr := cs.Run(ctx, h)
			if caseErr != nil {
				// capture the mutated state while the snapshot is still open
				dump = h.dumpState(ctx)
			}
			return caseErr
		})

		var isoErr *IsolationError
		if errors.As(err, &isoErr) {
			return report, errors.Wrapf(isoErr, "case %q", cs.Name)
		}
		report.Results = append(report.Results, CaseResult{
			Name:    cs.Name,
			Err:     err,
			Elapsed: time.Since(start),
			Dump:    dump,
		})
	}
	return report, nil
}

type fixtureState struct {
	OwnerBalance   *amount.Amount
	SpenderBalance *amount.Amount
	Allowance      *amount.Amount
}

// dumpState renders the fixture accounts for failure diagnostics. Read errors
// are swallowed; the dump is advisory.
func (h *Harness) dumpState(ctx context.Context) string {
	st := fixtureState{}
	st.OwnerBalance, _ = h.cli.BalanceOf(ctx, h.Token, h.Owner)
	st.SpenderBalance, _ = h.cli.BalanceOf(ctx, h.Token, h.Spender)
	st.Allowance, _ = h.cli.Allowance(ctx, h.Token, h.Owner, h.Spender)
	return spew.Sdump(st)
}
