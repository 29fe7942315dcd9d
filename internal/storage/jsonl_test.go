package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"coverSwap/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "plans.jsonl")
	sink := NewJsonlStorage(path)
	ctx := context.Background()

	records := []model.PlanRecord{
		{ID: "a", Action: model.ActionMint, Source: "curve", Mint: &model.MintPlan{MintAmount: big.NewInt(60)}},
		{ID: "b", Action: model.ActionRedeem, Source: "aave", Redeem: &model.RedeemPlan{SymmetricRedeemAmount: big.NewInt(50)}},
	}
	for _, r := range records {
		if err := sink.PutPlan(ctx, r); err != nil {
			t.Fatalf("put %s: %v", r.ID, err)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var got []model.PlanRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var r model.PlanRecord
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		got = append(got, r)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ID != "a" || got[0].Mint.MintAmount.Int64() != 60 {
		t.Fatalf("first record mismatch: %+v", got[0])
	}
	if got[1].Action != model.ActionRedeem || got[1].Redeem.SymmetricRedeemAmount.Int64() != 50 {
		t.Fatalf("second record mismatch: %+v", got[1])
	}
}

type failingSink struct{ err error }

func (f failingSink) PutPlan(context.Context, model.PlanRecord) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	path := filepath.Join(t.TempDir(), "plans.jsonl")
	multi := Multi{NewJsonlStorage(path), nil, failingSink{err: boom}}

	err := multi.PutPlan(context.Background(), model.PlanRecord{ID: "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("jsonl sink should still have written: %v", statErr)
	}
}
