package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestCodedErrorMatchesKindAndCode(t *testing.T) {
	errLoanNotDue := New(KindState, "LoanNotDue", "lending: loan not yet due")
	wrapped := fmt.Errorf("liquidate: %w", errLoanNotDue)

	if !stderrors.Is(wrapped, errLoanNotDue) {
		t.Fatalf("expected exact code match")
	}
	if !stderrors.Is(wrapped, ErrState) {
		t.Fatalf("expected kind match")
	}
	if stderrors.Is(wrapped, ErrCapacity) {
		t.Fatalf("unexpected match on a different kind")
	}
	other := New(KindState, "LoanNotActive", "lending: loan is not active")
	if stderrors.Is(wrapped, other) {
		t.Fatalf("codes of the same kind must not match each other")
	}
	if kind, ok := KindOf(wrapped); !ok || kind != KindState {
		t.Fatalf("unexpected kind %q", kind)
	}
	if code := CodeOf(wrapped); code != "LoanNotDue" {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestWrapKeepsCode(t *testing.T) {
	err := Wrap(ErrTransferFailed, "allowance %d below %d", 1, 2)
	if !stderrors.Is(err, ErrTransferFailed) || !stderrors.Is(err, ErrTransfer) {
		t.Fatalf("wrapped error lost its identity: %v", err)
	}
	if err.Error() != "asset transfer failed: allowance 1 below 2" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
