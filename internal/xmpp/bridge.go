package xmpp

import (
	"context"

	"github.com/dkeye/Focus/internal/colibri"
	"github.com/dkeye/Focus/internal/domain"
)

// BridgeLink adapts a stanza connection into the request/reply surface
// the colibri engine speaks. Every conference request travels as a set
// IQ from the focus to the bridge.
type BridgeLink struct {
	conn  Connection
	focus domain.JID
}

func NewBridgeLink(conn Connection, focus domain.JID) *BridgeLink {
	return &BridgeLink{conn: conn, focus: focus}
}

func (b *BridgeLink) Send(to string, iq *colibri.ConferenceIQ) error {
	return b.conn.Send(b.wrap(to, iq))
}

func (b *BridgeLink) SendAndAwait(ctx context.Context, to string, iq *colibri.ConferenceIQ) (*colibri.Reply, error) {
	reply, err := b.conn.SendAndAwait(ctx, b.wrap(to, iq))
	if err != nil {
		return nil, err
	}
	if reply.Error != nil {
		return &colibri.Reply{Condition: string(reply.Error.Condition)}, nil
	}
	return &colibri.Reply{Conference: reply.Conference}, nil
}

func (b *BridgeLink) wrap(to string, iq *colibri.ConferenceIQ) *Stanza {
	return &Stanza{
		Kind:       KindConference,
		ID:         NextID(),
		Type:       TypeSet,
		From:       b.focus,
		To:         domain.JID(to),
		Conference: iq,
	}
}
