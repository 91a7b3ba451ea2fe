package chainclient

import (
	"errors"
)

// RevertError reports that the contract refused the requested state
// transition because one of its preconditions failed. It is distinct from
// transport failures so a dead node cannot pass for an expected revert.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return "execution reverted: " + e.Reason
}

// Revertf makes a RevertError with the given reason.
func Revertf(reason string) *RevertError {
	return &RevertError{Reason: reason}
}

// IsRevert reports whether err is (or wraps) a contract-level revert.
func IsRevert(err error) bool {
	var re *RevertError
	return errors.As(err, &re)
}
