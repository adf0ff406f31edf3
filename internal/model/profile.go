// Package model defines the profile record schema shared by the
// archive, the scraper, and the CLI.
package model

import (
	"fmt"
	"strings"
	"time"
)

// CreatedAtLayout is Twitter's canonical created_at date format, e.g.
// "Wed Oct 10 20:19:24 +0000 2018".
const CreatedAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

// URLEntity carries the optional expanded form of a t.co-wrapped URL.
type URLEntity struct {
	URL         string `cbor:"url" json:"url"`
	ExpandedURL string `cbor:"expanded_url,omitempty" json:"expanded_url,omitempty"`
}

// URLEntities is an array of URL entities under a url or description
// entity block.
type URLEntities struct {
	URLs []URLEntity `cbor:"urls" json:"urls"`
}

// Entities is the optional nested entities record on a profile.
type Entities struct {
	URL         *URLEntities `cbor:"url,omitempty" json:"url,omitempty"`
	Description *URLEntities `cbor:"description,omitempty" json:"description,omitempty"`
}

// Profile is the unit of observation: a single snapshot of a Twitter
// user's profile as returned by the users/lookup endpoint, plus the
// scraper-assigned snapshot timestamp.
//
// Unknown fields present on the wire but absent from this struct are
// tolerated on decode and simply dropped; this is required for
// additive, backward-compatible schema evolution (spec Non-goals).
type Profile struct {
	ID                   int64     `cbor:"id" json:"id"`
	IDStr                string    `cbor:"id_str" json:"id_str"`
	ScreenName           string    `cbor:"screen_name" json:"screen_name"`
	Name                 string    `cbor:"name" json:"name"`
	Description          *string   `cbor:"description,omitempty" json:"description,omitempty"`
	URL                  *string   `cbor:"url,omitempty" json:"url,omitempty"`
	Location             *string   `cbor:"location,omitempty" json:"location,omitempty"`
	CreatedAt            string    `cbor:"created_at" json:"created_at"`
	Protected            bool      `cbor:"protected" json:"protected"`
	Verified             bool      `cbor:"verified" json:"verified"`
	FollowersCount       int64     `cbor:"followers_count" json:"followers_count"`
	FriendsCount         int64     `cbor:"friends_count" json:"friends_count"`
	StatusesCount        int64     `cbor:"statuses_count" json:"statuses_count"`
	FavouritesCount      int64     `cbor:"favourites_count" json:"favourites_count"`
	ListedCount          int64     `cbor:"listed_count" json:"listed_count"`
	DefaultProfile       bool      `cbor:"default_profile" json:"default_profile"`
	DefaultProfileImage  bool      `cbor:"default_profile_image" json:"default_profile_image"`
	ProfileImageURLHTTPS string    `cbor:"profile_image_url_https" json:"profile_image_url_https"`
	WithheldInCountries  []string  `cbor:"withheld_in_countries" json:"withheld_in_countries"`
	Entities             *Entities `cbor:"entities,omitempty" json:"entities,omitempty"`
	// Snapshot is the seconds-since-epoch time the profile was
	// observed. Stamped by the scraper, never present on the raw
	// upstream payload.
	Snapshot int64 `cbor:"snapshot" json:"snapshot,omitempty"`
}

// LowercasedScreenName returns the screen name normalized for use in
// the archive's key layout.
func (p Profile) LowercasedScreenName() string {
	return strings.ToLower(p.ScreenName)
}

// CreatedAtTime parses CreatedAt using Twitter's canonical layout.
func (p Profile) CreatedAtTime() (time.Time, error) {
	t, err := time.Parse(CreatedAtLayout, p.CreatedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", p.CreatedAt, err)
	}
	return t, nil
}

// Validate checks the invariants the archive relies on: snapshot must
// not predate account creation, and both non-negative counters must
// hold.
func (p Profile) Validate() error {
	if p.FollowersCount < 0 {
		return fmt.Errorf("followers_count must be non-negative, got %d", p.FollowersCount)
	}
	if p.FriendsCount < 0 {
		return fmt.Errorf("friends_count must be non-negative, got %d", p.FriendsCount)
	}
	createdAt, err := p.CreatedAtTime()
	if err != nil {
		return err
	}
	if p.Snapshot < createdAt.Unix() {
		return fmt.Errorf("snapshot %d precedes created_at %d", p.Snapshot, createdAt.Unix())
	}
	return nil
}
