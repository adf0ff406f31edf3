package model

import "testing"

func samplerProfile() Profile {
	desc := "software, coffee"
	return Profile{
		ID:                   42,
		IDStr:                "42",
		ScreenName:           "Alice",
		Name:                 "Alice A.",
		Description:          &desc,
		CreatedAt:            "Wed Oct 10 20:19:24 +0000 2018",
		Protected:            false,
		Verified:             true,
		FollowersCount:       10,
		FriendsCount:         5,
		StatusesCount:        100,
		FavouritesCount:      7,
		ListedCount:          1,
		ProfileImageURLHTTPS: "https://example.test/a.png",
		WithheldInCountries:  []string{},
		Snapshot:             1700000000,
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := samplerProfile()

	b, err := Encode(want)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if got.ID != want.ID || got.ScreenName != want.ScreenName || got.Snapshot != want.Snapshot {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
	if got.Description == nil || *got.Description != *want.Description {
		t.Fatalf("description mismatch: got %v, want %v", got.Description, *want.Description)
	}
}

func TestDecodeToleratesUnknownFields(t *testing.T) {
	p := samplerProfile()
	b, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Append a map entry the Profile struct doesn't know about by
	// decoding into a generic map, adding a field, and re-encoding.
	var raw map[string]interface{}
	if err := decMode.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal to map failed: %v", err)
	}
	raw["translator_type"] = "none"
	b2, err := encMode.Marshal(raw)
	if err != nil {
		t.Fatalf("re-marshal failed: %v", err)
	}

	got, err := Decode(b2)
	if err != nil {
		t.Fatalf("Decode with unknown field failed: %v", err)
	}
	if got.ID != p.ID {
		t.Fatalf("ID mismatch after tolerating unknown field: got %d, want %d", got.ID, p.ID)
	}
}

func TestValidateSnapshotBeforeCreatedAt(t *testing.T) {
	p := samplerProfile()
	p.Snapshot = 0 // 1970, long before created_at

	if err := p.Validate(); err == nil {
		t.Fatal("expected Validate to reject snapshot predating created_at")
	}
}

func TestValidateNegativeCounters(t *testing.T) {
	p := samplerProfile()
	p.FollowersCount = -1

	if err := p.Validate(); err == nil {
		t.Fatal("expected Validate to reject negative followers_count")
	}
}

func TestLowercasedScreenName(t *testing.T) {
	p := samplerProfile()
	if got := p.LowercasedScreenName(); got != "alice" {
		t.Fatalf("LowercasedScreenName() = %q, want %q", got, "alice")
	}
}
