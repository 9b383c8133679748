package core

import "errors"

// ErrNotFound is returned by storage lookups for absent keys.
var ErrNotFound = errors.New("not found")

// Rejection reasons. Handlers wrap these with fmt.Errorf("%w: ...") so callers
// can branch with errors.Is while still getting a readable message.
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrStageMismatch  = errors.New("stage mismatch")
	ErrNotRegistered  = errors.New("not registered")
	ErrAlreadyDone    = errors.New("already done")
	ErrOutOfRange     = errors.New("out of range")
	ErrInvalidTarget  = errors.New("invalid target")
	ErrOracleContract = errors.New("oracle contract violation")
	ErrNotReady       = errors.New("not ready")
)

// Error kinds reported to clients.
const (
	KindUnauthorized   = "unauthorized"
	KindStageMismatch  = "stage_mismatch"
	KindNotRegistered  = "not_registered"
	KindAlreadyDone    = "already_done"
	KindOutOfRange     = "out_of_range"
	KindInvalidTarget  = "invalid_target"
	KindOracleContract = "oracle_contract_violation"
	KindNotReady       = "not_ready"
	KindNotFound       = "not_found"
	KindInternal       = "internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrUnauthorized, KindUnauthorized},
	{ErrStageMismatch, KindStageMismatch},
	{ErrNotRegistered, KindNotRegistered},
	{ErrAlreadyDone, KindAlreadyDone},
	{ErrOutOfRange, KindOutOfRange},
	{ErrInvalidTarget, KindInvalidTarget},
	{ErrOracleContract, KindOracleContract},
	{ErrNotReady, KindNotReady},
	{ErrNotFound, KindNotFound},
}

// KindOf classifies err. Anything outside the taxonomy is KindInternal;
// a nil error has no kind.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
