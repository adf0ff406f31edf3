package deactivation

import "strconv"

// Status is a Twitter account-reachability error code observed in
// place of a successful profile fetch.
type Status struct {
	code int32
}

// Known status codes, as returned by the upstream API in place of a
// successful lookup.
var (
	Suspended   = Status{63}
	NotFound    = Status{50}
	Deactivated = Status{64}
)

var knownStatuses = map[int32]Status{
	Suspended.code:   Suspended,
	NotFound.code:    NotFound,
	Deactivated.code: Deactivated,
}

// StatusOther wraps any status code outside the known set, so a
// single new upstream error code never renders an existing log
// unreadable.
func StatusOther(code int32) Status {
	return Status{code}
}

// ParseStatus maps a raw integer error code to a Status, falling back
// to StatusOther for codes outside the known set.
func ParseStatus(code int32) Status {
	if s, ok := knownStatuses[code]; ok {
		return s
	}
	return StatusOther(code)
}

// Code returns the raw integer error code.
func (s Status) Code() int32 {
	return s.code
}

// String renders the status's known name, or "other(<code>)" for a
// code outside the known set.
func (s Status) String() string {
	switch s.code {
	case Suspended.code:
		return "suspended"
	case NotFound.code:
		return "not_found"
	case Deactivated.code:
		return "deactivated"
	default:
		return "other(" + strconv.FormatInt(int64(s.code), 10) + ")"
	}
}
