package xmpp

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/dkeye/Focus/internal/colibri"
	"github.com/dkeye/Focus/internal/domain"
)

const stanzasNS = "urn:ietf:params:xml:ns:xmpp-stanzas"

type iqEnvelope struct {
	XMLName xml.Name `xml:"iq"`
	ID      string   `xml:"id,attr,omitempty"`
	From    string   `xml:"from,attr,omitempty"`
	To      string   `xml:"to,attr,omitempty"`
	Type    string   `xml:"type,attr"`

	Error      *errorEnvelope        `xml:"error"`
	Mute       *muteEnvelope         `xml:"http://jitsi.org/jitmeet/audio mute"`
	Dial       *dialEnvelope         `xml:"urn:xmpp:rayo:1 dial"`
	Conference *colibri.ConferenceIQ `xml:"http://jitsi.org/protocol/colibri conference"`
}

type muteEnvelope struct {
	JID   string `xml:"jid,attr,omitempty"`
	Value string `xml:",chardata"`
}

type dialEnvelope struct {
	Source      string           `xml:"from,attr,omitempty"`
	Destination string           `xml:"to,attr,omitempty"`
	Headers     []headerEnvelope `xml:"header"`
}

type headerEnvelope struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type errorEnvelope struct {
	Type  string `xml:"type,attr,omitempty"`
	Inner string `xml:",innerxml"`
}

type messageEnvelope struct {
	XMLName xml.Name `xml:"message"`
	ID      string   `xml:"id,attr,omitempty"`
	From    string   `xml:"from,attr,omitempty"`
	To      string   `xml:"to,attr,omitempty"`
	Type    string   `xml:"type,attr,omitempty"`

	Log *logEnvelope `xml:"urn:xmpp:eventlog log"`
}

type logEnvelope struct {
	ID       string   `xml:"id,attr,omitempty"`
	Messages []string `xml:"message"`
}

type presenceEnvelope struct {
	XMLName xml.Name `xml:"presence"`
	ID      string   `xml:"id,attr,omitempty"`
	From    string   `xml:"from,attr,omitempty"`
	To      string   `xml:"to,attr,omitempty"`
	Type    string   `xml:"type,attr,omitempty"`

	Nick *nickEnvelope `xml:"http://jabber.org/protocol/nick nick"`
}

type nickEnvelope struct {
	Value string `xml:",chardata"`
}

// Marshal renders a stanza into its wire form.
func Marshal(st *Stanza) ([]byte, error) {
	switch st.Kind {
	case KindLog:
		env := messageEnvelope{
			ID:   st.ID,
			From: string(st.From),
			To:   string(st.To),
		}
		if st.Log != nil {
			env.Log = &logEnvelope{ID: st.Log.LogID, Messages: []string{st.Log.Message}}
		}
		return xml.Marshal(env)

	case KindPresence:
		env := presenceEnvelope{
			ID:   st.ID,
			From: string(st.From),
			To:   string(st.To),
		}
		if st.Presence != nil {
			if st.Presence.Unavailable {
				env.Type = "unavailable"
			}
			if st.Presence.Nick != "" {
				env.Nick = &nickEnvelope{Value: st.Presence.Nick}
			}
		}
		return xml.Marshal(env)

	default:
		env := iqEnvelope{
			ID:         st.ID,
			From:       string(st.From),
			To:         string(st.To),
			Type:       st.Type,
			Conference: st.Conference,
		}
		if env.Type == "" {
			env.Type = TypeSet
		}
		if st.Mute != nil {
			value := ""
			if st.Mute.Mute != nil {
				value = fmt.Sprintf("%t", *st.Mute.Mute)
			}
			env.Mute = &muteEnvelope{JID: string(st.Mute.TargetJID), Value: value}
		}
		if st.Dial != nil {
			d := &dialEnvelope{Source: st.Dial.Source, Destination: st.Dial.Destination}
			for _, h := range st.Dial.Headers {
				d.Headers = append(d.Headers, headerEnvelope(h))
			}
			env.Dial = d
		}
		if st.Error != nil {
			env.Error = &errorEnvelope{
				Type:  "cancel",
				Inner: fmt.Sprintf("<%s xmlns=%q/>", st.Error.Condition, stanzasNS),
			}
		}
		return xml.Marshal(env)
	}
}

// Decode parses a wire frame into a kind-tagged stanza. The kind is
// decided here, once; dispatchers never look at the raw bytes again.
func Decode(data []byte) (*Stanza, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode stanza: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "iq":
			var env iqEnvelope
			if err := dec.DecodeElement(&env, &start); err != nil {
				return nil, fmt.Errorf("decode iq: %w", err)
			}
			return fromIQ(&env), nil
		case "message":
			var env messageEnvelope
			if err := dec.DecodeElement(&env, &start); err != nil {
				return nil, fmt.Errorf("decode message: %w", err)
			}
			return fromMessage(&env), nil
		case "presence":
			var env presenceEnvelope
			if err := dec.DecodeElement(&env, &start); err != nil {
				return nil, fmt.Errorf("decode presence: %w", err)
			}
			return fromPresence(&env), nil
		default:
			return nil, fmt.Errorf("decode stanza: unexpected element %q", start.Name.Local)
		}
	}
}

func fromIQ(env *iqEnvelope) *Stanza {
	st := &Stanza{
		ID:         env.ID,
		Type:       env.Type,
		From:       domain.JID(env.From),
		To:         domain.JID(env.To),
		Conference: env.Conference,
	}
	if env.Mute != nil {
		mute := &Mute{TargetJID: domain.JID(env.Mute.JID)}
		switch strings.TrimSpace(env.Mute.Value) {
		case "true", "1":
			mute.Mute = boolPtr(true)
		case "false", "0":
			mute.Mute = boolPtr(false)
		}
		st.Mute = mute
	}
	if env.Dial != nil {
		dial := &Dial{Source: env.Dial.Source, Destination: env.Dial.Destination}
		for _, h := range env.Dial.Headers {
			dial.Headers = append(dial.Headers, Header(h))
		}
		st.Dial = dial
	}
	if env.Error != nil {
		st.Error = &StanzaError{Condition: parseCondition(env.Error.Inner)}
	}

	switch {
	case env.Type == TypeError:
		st.Kind = KindError
	case env.Type == TypeResult:
		st.Kind = KindResult
	case st.Mute != nil:
		st.Kind = KindMute
	case st.Dial != nil:
		st.Kind = KindDial
	case st.Conference != nil:
		st.Kind = KindConference
	default:
		st.Kind = KindUnknown
	}
	return st
}

func fromMessage(env *messageEnvelope) *Stanza {
	st := &Stanza{
		Kind: KindUnknown,
		ID:   env.ID,
		From: domain.JID(env.From),
		To:   domain.JID(env.To),
	}
	if env.Log != nil {
		st.Kind = KindLog
		st.Log = &LogPayload{
			LogID:   env.Log.ID,
			Message: strings.Join(env.Log.Messages, "\n"),
		}
	}
	return st
}

func fromPresence(env *presenceEnvelope) *Stanza {
	st := &Stanza{
		Kind: KindPresence,
		ID:   env.ID,
		From: domain.JID(env.From),
		To:   domain.JID(env.To),
		Presence: &Presence{
			Unavailable: env.Type == "unavailable",
		},
	}
	if env.Nick != nil {
		st.Presence.Nick = strings.TrimSpace(env.Nick.Value)
	}
	return st
}

// parseCondition extracts the first element name from the inner XML of
// an error element.
func parseCondition(inner string) Condition {
	i := strings.IndexByte(inner, '<')
	if i < 0 {
		return ""
	}
	rest := inner[i+1:]
	end := strings.IndexAny(rest, " />")
	if end < 0 {
		return Condition(rest)
	}
	return Condition(rest[:end])
}

func boolPtr(v bool) *bool { return &v }
