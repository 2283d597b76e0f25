package services

import (
	"context"
	"testing"

	"github.com/openraise/escrow-backend/internal/apperr"
)

func TestSetBatchRefundsSkipsBadPairs(t *testing.T) {
	env := newTestEnv(t, 250)
	ctx := context.Background()

	result, err := env.refunds.SetBatchRefunds(ctx, 1, []RefundDetail{
		{Contributor: "bob", Amount: 510},
		{Contributor: "", Amount: 100},
		{Contributor: "carol", Amount: 0},
		{Contributor: "dave", Amount: 250},
	})
	if err != nil {
		t.Fatalf("set batch refunds: %v", err)
	}
	if result.Applied != 2 {
		t.Fatalf("applied = %d, want 2", result.Applied)
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("skipped = %d, want 2", len(result.Skipped))
	}

	pending, err := env.refunds.PendingRefund(ctx, 1, "bob")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending != 510 {
		t.Fatalf("pending for bob = %d, want 510", pending)
	}
}

func TestSetBatchRefundsOverwrites(t *testing.T) {
	env := newTestEnv(t, 250)
	ctx := context.Background()

	for _, amount := range []int64{300, 120} {
		if _, err := env.refunds.SetBatchRefunds(ctx, 1, []RefundDetail{{Contributor: "bob", Amount: amount}}); err != nil {
			t.Fatalf("set batch refunds: %v", err)
		}
	}

	pending, err := env.refunds.PendingRefund(ctx, 1, "bob")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending != 120 {
		t.Fatalf("pending = %d, want the overwritten value 120", pending)
	}
}

func TestClaimRefundOnce(t *testing.T) {
	env := newTestEnv(t, 250)
	ctx := context.Background()

	if _, err := env.refunds.SetBatchRefunds(ctx, 1, []RefundDetail{{Contributor: "bob", Amount: 510}}); err != nil {
		t.Fatalf("set batch refunds: %v", err)
	}

	amount, err := env.refunds.ClaimRefund(ctx, 1, "bob")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if amount != 510 {
		t.Fatalf("claimed = %d, want 510", amount)
	}
	calls := env.transfer.Calls()
	if len(calls) != 1 || calls[0].To != "bob" || calls[0].Amount != 510 {
		t.Fatalf("transfer calls = %+v, want one payout of 510 to bob", calls)
	}

	// Exactly one payout: the second claim hits a zeroed entry.
	_, err = env.refunds.ClaimRefund(ctx, 1, "bob")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("second claim err = %v, want validation error", err)
	}
	if code := apperr.CodeOf(err); code != apperr.CodeNoRefundAvailable {
		t.Fatalf("second claim code = %q, want %q", code, apperr.CodeNoRefundAvailable)
	}
}

func TestClaimRefundUnknownPair(t *testing.T) {
	env := newTestEnv(t, 250)
	ctx := context.Background()

	_, err := env.refunds.ClaimRefund(ctx, 7, "nobody")
	if code := apperr.CodeOf(err); code != apperr.CodeNoRefundAvailable {
		t.Fatalf("claim code = %q, want %q", code, apperr.CodeNoRefundAvailable)
	}

	pending, err := env.refunds.PendingRefund(ctx, 7, "nobody")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending != 0 {
		t.Fatalf("pending for unknown pair = %d, want 0", pending)
	}
}

// On transfer failure the pending amount is restored: a zero entry
// always means "already paid or never owed".
func TestClaimRefundRestoresOnTransferFailure(t *testing.T) {
	env := newTestEnv(t, 250)
	ctx := context.Background()

	if _, err := env.refunds.SetBatchRefunds(ctx, 1, []RefundDetail{{Contributor: "bob", Amount: 510}}); err != nil {
		t.Fatalf("set batch refunds: %v", err)
	}

	env.transfer.failFor["bob"] = true
	_, err := env.refunds.ClaimRefund(ctx, 1, "bob")
	if !apperr.IsKind(err, apperr.KindTransfer) {
		t.Fatalf("claim err = %v, want transfer error", err)
	}

	pending, err := env.refunds.PendingRefund(ctx, 1, "bob")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending != 510 {
		t.Fatalf("pending after failed transfer = %d, want restored 510", pending)
	}

	env.transfer.failFor["bob"] = false
	amount, err := env.refunds.ClaimRefund(ctx, 1, "bob")
	if err != nil {
		t.Fatalf("retry claim: %v", err)
	}
	if amount != 510 {
		t.Fatalf("retried claim = %d, want 510", amount)
	}
}

func TestClearProjectRefunds(t *testing.T) {
	env := newTestEnv(t, 250)
	ctx := context.Background()

	if _, err := env.refunds.SetBatchRefunds(ctx, 1, []RefundDetail{
		{Contributor: "bob", Amount: 510},
		{Contributor: "carol", Amount: 500},
	}); err != nil {
		t.Fatalf("set batch refunds: %v", err)
	}

	if err := env.refunds.ClearProjectRefunds(ctx, 1); err != nil {
		t.Fatalf("clear: %v", err)
	}

	entries, err := env.refunds.ListProjectRefunds(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 (cleared, not deleted)", len(entries))
	}
	for _, entry := range entries {
		if entry.PendingAmount != 0 {
			t.Fatalf("entry for %s = %d, want 0", entry.Contributor, entry.PendingAmount)
		}
	}
}
