package domain

import "errors"

// Kind classifies an error for callers that map failures onto user-visible
// responses or retry decisions.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotFound
	KindNotAllowed
	KindInvalidData
	KindRemoteUnavailable
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindNotAllowed:
		return "not_allowed"
	case KindInvalidData:
		return "invalid_data"
	case KindRemoteUnavailable:
		return "remote_unavailable"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a tagged domain error. It wraps an optional cause so call sites
// keep errors.Is/As chains intact.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) error    { return &Error{Kind: KindNotFound, Msg: msg} }
func NotAllowed(msg string) error  { return &Error{Kind: KindNotAllowed, Msg: msg} }
func InvalidData(msg string) error { return &Error{Kind: KindInvalidData, Msg: msg} }
func Conflict(msg string) error    { return &Error{Kind: KindConflict, Msg: msg} }
func RemoteUnavailable(msg string, err error) error {
	return &Error{Kind: KindRemoteUnavailable, Msg: msg, Err: err}
}

// KindOf extracts the kind from anywhere in the chain; plain errors
// report KindUnknown.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

func IsKind(err error, k Kind) bool { return KindOf(err) == k }
