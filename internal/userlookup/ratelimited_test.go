package userlookup

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

type fakeLookup struct {
	calls int
}

func (f *fakeLookup) LookupBatch(ctx context.Context, ids []int64) ([]Result, error) {
	f.calls++
	results := make([]Result, len(ids))
	for i, id := range ids {
		results[i] = Result{UserID: id, Ok: true}
	}
	return results, nil
}

func TestRateLimitedDelegatesToUnderlying(t *testing.T) {
	fake := &fakeLookup{}
	rl := NewRateLimited(fake, rate.Inf, 1, rate.Inf, 1)

	results, err := rl.LookupBatch(context.Background(), []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("LookupBatch: %v", err)
	}
	if fake.calls != 1 {
		t.Errorf("expected 1 delegated call, got %d", fake.calls)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
}

func TestRateLimitedBlocksUntilBucketAdmits(t *testing.T) {
	fake := &fakeLookup{}
	// Burst of 1, effectively zero refill: the second call must wait.
	rl := NewRateLimited(fake, rate.Limit(0.0001), 1, rate.Inf, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := rl.LookupBatch(context.Background(), []int64{1}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := rl.LookupBatch(ctx, []int64{2}); err == nil {
		t.Error("expected second call to block past the deadline and return an error")
	}
}

func TestRateLimitedTracksSeparateContextsIndependently(t *testing.T) {
	fake := &fakeLookup{}
	rl := NewRateLimited(fake, rate.Inf, 1, rate.Limit(0.0001), 1)

	if _, err := rl.LookupBatchAs(context.Background(), "token-a", []int64{1}); err != nil {
		t.Fatalf("token-a first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// token-b has never been used; it should get its own fresh burst
	// rather than sharing token-a's exhausted bucket.
	if _, err := rl.LookupBatchAs(ctx, "token-b", []int64{2}); err != nil {
		t.Errorf("token-b call should not be throttled by token-a's bucket: %v", err)
	}
}
