package colibri

import "errors"

var (
	// ErrInvalidState means the operation is illegal in the conference's
	// current lifecycle, e.g. rebinding the bridge once channels exist.
	// Never retried.
	ErrInvalidState = errors.New("colibri: invalid conference state")

	// ErrNetworkFailure means no reply arrived within the transport
	// timeout. The request may still be in flight; a late reply is
	// discarded.
	ErrNetworkFailure = errors.New("colibri: no response from bridge")

	// ErrProtocolError means the reply carried an error condition or was
	// not a well-formed conference response.
	ErrProtocolError = errors.New("colibri: malformed or error response")
)
