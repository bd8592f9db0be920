package xmpp

import "context"

// Connection is the messaging session the focus speaks through.
// Establishing and authenticating it is owned by the transport adapter;
// the adapter must close it.
type Connection interface {
	// Send dispatches a stanza without waiting for any reply.
	Send(st *Stanza) error
	// SendAndAwait blocks until the reply correlated with the stanza's
	// id arrives, the context is cancelled, or the transport-level
	// timeout fires. A late reply after an error return is discarded.
	SendAndAwait(ctx context.Context, st *Stanza) (*Stanza, error)
}
