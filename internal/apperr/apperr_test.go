package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("amount must be positive"), KindValidation},
		{"not found", NotFound("project %d not found", 7), KindNotFound},
		{"state", State("project is frozen"), KindState},
		{"authorization", Authorization("operator token required"), KindAuthorization},
		{"transfer", Transfer(errors.New("connection refused")), KindTransfer},
		{"internal", Internal(errors.New("disk full")), KindInternal},
		{"wrapped", fmt.Errorf("contribute: %w", State("window closed")), KindState},
		{"plain error", errors.New("oops"), KindInternal},
		{"nil", nil, KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	err := ValidationCode(CodeNoRefundAmount, "nothing to cancel")
	if got := CodeOf(err); got != CodeNoRefundAmount {
		t.Fatalf("CodeOf = %q, want %q", got, CodeNoRefundAmount)
	}
	wrapped := fmt.Errorf("claim: %w", StateCode(CodeAlreadySettled, "already settled"))
	if got := CodeOf(wrapped); got != CodeAlreadySettled {
		t.Fatalf("CodeOf wrapped = %q, want %q", got, CodeAlreadySettled)
	}
	if got := CodeOf(errors.New("oops")); got != "" {
		t.Fatalf("CodeOf plain error = %q, want empty", got)
	}
}

func TestIsKindUnwraps(t *testing.T) {
	inner := Transfer(errors.New("timeout"))
	outer := fmt.Errorf("settle project 3: %w", inner)
	if !IsKind(outer, KindTransfer) {
		t.Fatal("IsKind failed to unwrap")
	}
	if IsKind(outer, KindValidation) {
		t.Fatal("IsKind matched the wrong kind")
	}
	if IsKind(nil, KindTransfer) {
		t.Fatal("IsKind matched nil")
	}
}
