package session

import "errors"

var (
	// ErrNotSignedIn indicates an operation needs a signed-in account.
	ErrNotSignedIn = errors.New("session: not signed in")

	// ErrNotReady indicates no subscription is selected yet.
	ErrNotReady = errors.New("session: no subscription selected")

	// ErrStale indicates a load finished after a selection change and its
	// result was discarded.
	ErrStale = errors.New("session: result discarded after selection change")
)
