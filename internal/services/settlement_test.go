package services

import (
	"context"
	"testing"

	"github.com/openraise/escrow-backend/internal/apperr"
	"github.com/openraise/escrow-backend/internal/types"
)

func TestSplitAmount(t *testing.T) {
	cases := []struct {
		name        string
		total       int64
		rate        int64
		wantCreator int64
		wantFee     int64
	}{
		{name: "exact_split", total: 10000, rate: 250, wantCreator: 9750, wantFee: 250},
		{name: "remainder_goes_to_creator", total: 101, rate: 250, wantCreator: 99, wantFee: 2},
		{name: "zero_rate", total: 5000, rate: 0, wantCreator: 5000, wantFee: 0},
		{name: "max_rate", total: 999, rate: 1000, wantCreator: 900, wantFee: 99},
		{name: "tiny_total", total: 1, rate: 1000, wantCreator: 1, wantFee: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			creator, fee := SplitAmount(tc.total, tc.rate)
			if creator != tc.wantCreator || fee != tc.wantFee {
				t.Fatalf("SplitAmount(%d, %d) = (%d, %d), want (%d, %d)",
					tc.total, tc.rate, creator, fee, tc.wantCreator, tc.wantFee)
			}
			if creator+fee != tc.total {
				t.Fatalf("split legs %d+%d do not sum to total %d", creator, fee, tc.total)
			}
		})
	}
}

func TestSetFeeRateCap(t *testing.T) {
	env := newTestEnv(t, 250)

	if err := env.settlement.SetFeeRate(1000); err != nil {
		t.Fatalf("set fee rate at cap: %v", err)
	}
	if err := env.settlement.SetFeeRate(1001); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("set fee rate above cap err = %v, want validation error", err)
	}
	if err := env.settlement.SetFeeRate(-1); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("negative fee rate err = %v, want validation error", err)
	}
	if got := env.settlement.FeeRate(); got != 1000 {
		t.Fatalf("fee rate = %d, want the last accepted value 1000", got)
	}
}

func TestSettleSplitsAndPays(t *testing.T) {
	env := newTestEnv(t, 250)
	ctx := context.Background()
	project := env.createActiveProject(t, 5000, 100, 1000)

	records, err := env.settlement.Settle(ctx, project.ID, 10000, "alice")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("settlement records = %d, want 2", len(records))
	}

	var creatorAmount, fee int64
	for _, record := range records {
		switch record.RecipientRole {
		case types.RoleCreator:
			creatorAmount = record.Amount
		case types.RolePlatform:
			fee = record.Amount
		}
		if record.PaidAt == nil {
			t.Fatalf("%s leg not marked paid", record.RecipientRole)
		}
	}
	if creatorAmount != 9750 || fee != 250 {
		t.Fatalf("split = (%d, %d), want (9750, 250)", creatorAmount, fee)
	}

	calls := env.transfer.Calls()
	if len(calls) != 2 {
		t.Fatalf("transfers = %d, want 2", len(calls))
	}

	got, err := env.registry.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if !got.Settled {
		t.Fatal("project not marked settled")
	}
}

func TestSettleTwiceRejected(t *testing.T) {
	env := newTestEnv(t, 250)
	ctx := context.Background()
	project := env.createActiveProject(t, 5000, 100, 1000)

	if _, err := env.settlement.Settle(ctx, project.ID, 10000, "alice"); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	_, err := env.settlement.Settle(ctx, project.ID, 10000, "alice")
	if !apperr.IsKind(err, apperr.KindState) {
		t.Fatalf("second settle err = %v, want state error", err)
	}
	if code := apperr.CodeOf(err); code != apperr.CodeAlreadySettled {
		t.Fatalf("second settle code = %q, want %q", code, apperr.CodeAlreadySettled)
	}
}

// A failed transfer leaves the settlement committed: settled stays true
// (blocking a second full settlement) and the unpaid leg remains on
// record for RetryPayouts.
func TestSettleTransferFailureIsRetryable(t *testing.T) {
	env := newTestEnv(t, 250)
	ctx := context.Background()
	project := env.createActiveProject(t, 5000, 100, 1000)

	env.transfer.failFor["alice"] = true
	_, err := env.settlement.Settle(ctx, project.ID, 10000, "alice")
	if !apperr.IsKind(err, apperr.KindTransfer) {
		t.Fatalf("settle err = %v, want transfer error", err)
	}

	got, err := env.registry.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if !got.Settled {
		t.Fatal("project must stay settled after a failed payout")
	}

	records, err := env.settlement.Records(ctx, project.ID)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	unpaid := 0
	for _, record := range records {
		if record.PaidAt == nil {
			unpaid++
		}
	}
	if unpaid != 2 {
		t.Fatalf("unpaid records = %d, want 2 (creator leg fails first)", unpaid)
	}

	// Retry succeeds once the recipient accepts again.
	env.transfer.failFor["alice"] = false
	paid, err := env.settlement.RetryPayouts(ctx, project.ID)
	if err != nil {
		t.Fatalf("retry payouts: %v", err)
	}
	if paid != 2 {
		t.Fatalf("retry paid %d records, want 2", paid)
	}

	// Nothing left to pay: retry is a no-op.
	paid, err = env.settlement.RetryPayouts(ctx, project.ID)
	if err != nil {
		t.Fatalf("second retry: %v", err)
	}
	if paid != 0 {
		t.Fatalf("second retry paid %d, want 0", paid)
	}
}
