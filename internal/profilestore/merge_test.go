package profilestore

import (
	"testing"

	"github.com/travisbrown/twprofiles/internal/model"
)

func profileAt(id int64, snapshot int64) model.Profile {
	return model.Profile{
		ID:                   id,
		IDStr:                "1",
		ScreenName:           "alice",
		Name:                 "Alice",
		CreatedAt:            "Wed Oct 10 20:19:24 +0000 2018",
		ProfileImageURLHTTPS: "https://example.com/a.jpg",
		Snapshot:             snapshot,
	}
}

func mustEncodeValue(t *testing.T, r record) []byte {
	t.Helper()
	raw, err := encodeValue(r)
	if err != nil {
		t.Fatalf("encodeValue: %v", err)
	}
	return raw
}

func TestMergeRawTakesMinFirstObservedAndMaxSnapshot(t *testing.T) {
	existing := mustEncodeValue(t, record{firstObserved: 2000, profile: profileAt(1, 2000)})
	operand := mustEncodeValue(t, record{firstObserved: 1000, profile: profileAt(1, 3000)})

	merged, err := mergeRaw(existing, [][]byte{operand})
	if err != nil {
		t.Fatalf("mergeRaw: %v", err)
	}

	rec, err := decodeValue(merged)
	if err != nil {
		t.Fatalf("decodeValue: %v", err)
	}
	if rec.firstObserved != 1000 {
		t.Errorf("firstObserved = %d, want 1000 (the minimum)", rec.firstObserved)
	}
	if rec.profile.Snapshot != 3000 {
		t.Errorf("snapshot = %d, want 3000 (the maximum)", rec.profile.Snapshot)
	}
}

func TestMergeRawTieBreaksToEarlierOperand(t *testing.T) {
	first := mustEncodeValue(t, record{firstObserved: 1000, profile: profileAt(1, 5000)})
	second := mustEncodeValue(t, record{firstObserved: 1500, profile: profileAt(1, 5000)})

	merged, err := mergeRaw(nil, [][]byte{first, second})
	if err != nil {
		t.Fatalf("mergeRaw: %v", err)
	}
	rec, err := decodeValue(merged)
	if err != nil {
		t.Fatalf("decodeValue: %v", err)
	}
	if rec.firstObserved != 1000 {
		t.Errorf("firstObserved = %d, want 1000 (left-most on a snapshot tie)", rec.firstObserved)
	}
}

func TestMergeRawSkipsUndecodableOperand(t *testing.T) {
	good := mustEncodeValue(t, record{firstObserved: 1000, profile: profileAt(1, 2000)})
	bad := []byte{0x01, 0x02} // too short to even carry the 8-byte prefix

	merged, err := mergeRaw(nil, [][]byte{bad, good})
	if err != nil {
		t.Fatalf("mergeRaw: %v", err)
	}
	rec, err := decodeValue(merged)
	if err != nil {
		t.Fatalf("decodeValue: %v", err)
	}
	if rec.profile.Snapshot != 2000 {
		t.Errorf("expected the good operand's snapshot to survive, got %d", rec.profile.Snapshot)
	}
}

func TestMergeRawErrorsWhenNoValidOperand(t *testing.T) {
	_, err := mergeRaw(nil, [][]byte{{0x01}})
	if err == nil {
		t.Error("expected an error when every candidate fails to decode")
	}
}

func TestMergeRawWithNoExistingValue(t *testing.T) {
	operand := mustEncodeValue(t, record{firstObserved: 500, profile: profileAt(1, 500)})
	merged, err := mergeRaw(nil, [][]byte{operand})
	if err != nil {
		t.Fatalf("mergeRaw: %v", err)
	}
	rec, err := decodeValue(merged)
	if err != nil {
		t.Fatalf("decodeValue: %v", err)
	}
	if rec.firstObserved != 500 {
		t.Errorf("firstObserved = %d, want 500", rec.firstObserved)
	}
}

func TestDecodeValueRejectsShortRaw(t *testing.T) {
	if _, err := decodeValue([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for a value shorter than the 8-byte timestamp prefix")
	}
}
