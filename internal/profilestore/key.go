package profilestore

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const userIDSize = 8

// MakeKey builds the archive key for a (user id, screen name) pair:
// an 8-byte big-endian user id followed by the lowercased screen name.
// Big-endian is required so a prefix scan on the id returns every
// handle ever used by that user in ascending id order; lowercasing is
// required so renames differing only in case collapse to one entry.
func MakeKey(userID int64, screenName string) []byte {
	key := make([]byte, userIDSize+len(screenName))
	binary.BigEndian.PutUint64(key[:userIDSize], uint64(userID))
	copy(key[userIDSize:], strings.ToLower(screenName))
	return key
}

// idPrefix returns the 8-byte big-endian prefix used for prefix scans
// by user id.
func idPrefix(userID int64) []byte {
	prefix := make([]byte, userIDSize)
	binary.BigEndian.PutUint64(prefix, uint64(userID))
	return prefix
}

// splitKey extracts the user id from a stored key, erroring if the
// key is shorter than the fixed id prefix.
func splitKey(key []byte) (int64, string, error) {
	if len(key) < userIDSize {
		return 0, "", fmt.Errorf("%w: key too short (%d bytes)", ErrMalformedKey, len(key))
	}
	userID := int64(binary.BigEndian.Uint64(key[:userIDSize]))
	return userID, string(key[userIDSize:]), nil
}
