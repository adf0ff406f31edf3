// Package bulkimport extracts profile snapshots from bulk Twitter
// Stream Grab (TSG) capture archives: zip files containing
// bz2-compressed, newline-delimited tweet JSON, one capture file per
// time window.
package bulkimport

import (
	"archive/zip"
	"bufio"
	"compress/bzip2"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/travisbrown/twprofiles/internal/model"
)

const maxLineSize = 16 * 1024 * 1024

// ExtractArchive walks a zip archive's bz2-suffixed entries in
// name-sorted order and, for each, extracts every embedded user
// profile from its tweet lines: the tweet's own author plus the
// author of any retweeted or quoted status, recursively. Each entry's
// extracted profiles are sorted by (snapshot, id) before being
// written as one JSON line per profile to w, matching the original
// capture's per-file batching.
//
// A capture line records no separate crawl timestamp for an embedded
// user, so the enclosing tweet's own created_at stands in as that
// user's observed snapshot time.
func ExtractArchive(path string, w io.Writer) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("bulkimport: open %q: %w", path, err)
	}
	defer zr.Close()

	var entries []*zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "bz2") {
			entries = append(entries, f)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	enc := json.NewEncoder(w)
	for _, entry := range entries {
		batch, err := extractEntry(entry)
		if err != nil {
			return fmt.Errorf("bulkimport: extract %s: %w", entry.Name, err)
		}
		sortBySnapshotThenID(batch)
		for _, profile := range batch {
			if err := enc.Encode(profile); err != nil {
				return fmt.Errorf("bulkimport: write profile id=%d: %w", profile.ID, err)
			}
		}
	}
	return nil
}

func extractEntry(f *zip.File) ([]model.Profile, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return scanLines(bzip2.NewReader(rc))
}

// scanLines reads already-decompressed, newline-delimited tweet JSON
// and extracts every embedded user profile from each line.
func scanLines(r io.Reader) ([]model.Profile, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var batch []model.Profile
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var tweet map[string]any
		if err := json.Unmarshal(line, &tweet); err != nil {
			return nil, fmt.Errorf("parse capture line: %w", err)
		}
		batch = append(batch, extractUserObjects(tweet)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return batch, nil
}

// extractUserObjects pulls every embedded user snapshot out of a
// tweet object, recursing into retweeted_status, quoted_status, and
// extended_tweet so retweets and quote-tweets yield their original
// author's profile too.
func extractUserObjects(tweet map[string]any) []model.Profile {
	var out []model.Profile

	snapshot := snapshotFromCreatedAt(stringField(tweet, "created_at"))

	if userObj, ok := tweet["user"].(map[string]any); ok {
		if profile, ok := decodeUser(userObj, snapshot); ok {
			out = append(out, profile)
		}
	}

	for _, nestedKey := range []string{"retweeted_status", "quoted_status"} {
		if nested, ok := tweet[nestedKey].(map[string]any); ok {
			out = append(out, extractUserObjects(nested)...)
		}
	}
	if extended, ok := tweet["extended_tweet"].(map[string]any); ok {
		out = append(out, extractUserObjects(extended)...)
	}

	return out
}

func decodeUser(userObj map[string]any, snapshot int64) (model.Profile, bool) {
	raw, err := json.Marshal(userObj)
	if err != nil {
		return model.Profile{}, false
	}
	var profile model.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return model.Profile{}, false
	}
	if profile.ID == 0 {
		return model.Profile{}, false
	}
	profile.Snapshot = snapshot
	return profile, true
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func snapshotFromCreatedAt(createdAt string) int64 {
	t, err := time.Parse(model.CreatedAtLayout, createdAt)
	if err != nil {
		return 0
	}
	return t.Unix()
}

func sortBySnapshotThenID(batch []model.Profile) {
	sort.Slice(batch, func(i, j int) bool {
		if batch[i].Snapshot != batch[j].Snapshot {
			return batch[i].Snapshot < batch[j].Snapshot
		}
		return batch[i].ID < batch[j].ID
	})
}
