package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Focus/internal/adapters/events"
	"github.com/dkeye/Focus/internal/app"
	"github.com/dkeye/Focus/internal/domain"
	"github.com/dkeye/Focus/internal/xmpp"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controller accepts websocket signaling sessions and routes their
// stanzas into the conference of the room they joined.
type Controller struct {
	Focus   *app.Manager
	Events  events.Sink
	Timeout time.Duration
}

func NewController(focus *app.Manager, sink events.Sink, timeout time.Duration) *Controller {
	return &Controller{Focus: focus, Events: sink, Timeout: timeout}
}

// HandleSignal upgrades a request to a stanza session bound to the room
// given in the query. The user parameter names the occupant the session
// acts for; remaining query parameters become the per-room conference
// properties on first use.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	room := domain.RoomName(c.Query("room"))
	if room == "" {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	owner := domain.JID(c.Query("user"))

	props := map[string]string{}
	for key, values := range c.Request.URL.Query() {
		if key == "room" || key == "user" || len(values) == 0 {
			continue
		}
		props[key] = values[0]
	}

	conf, err := ctl.Focus.GetOrCreate(room, owner, props)
	if err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("room", string(room)).Str("user", string(owner)).Msg("conference refused")
		status := http.StatusForbidden
		var resErr *app.ReservationError
		if errors.As(err, &resErr) && resErr.Result == app.ReservationConflict {
			status = http.StatusConflict
		}
		c.AbortWithStatus(status)
		return
	}

	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade failed")
		return
	}
	conn := newConn(wsConn, ctl.Timeout)
	dispatcher := app.NewDispatcher(conf, conn, ctl.Events)

	// The session acts for one occupant; register it so mute targets,
	// diagnostic logs and presence updates resolve, and expire its
	// channels when the session ends.
	if owner != "" {
		conf.AddParticipant(owner, domain.EndpointID(resourceOf(string(owner))))
	}

	log.Info().Str("module", "ws").Str("room", string(room)).Str("user", string(owner)).Msg("signaling session opened")

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		conn.readPump(ctx, dispatcher.HandleStanza)
		if owner != "" {
			conf.RemoveParticipant(owner)
		}
	}()
	go conn.writePump(ctx)
}

// Router feeds stanzas arriving on the upstream connection into the
// conference owning the sender's room.
type Router struct {
	Focus  *app.Manager
	Conn   *Conn
	Events events.Sink
}

func (r *Router) Route(ctx context.Context, st *xmpp.Stanza) {
	room := roomOf(string(st.From))
	conf, ok := r.Focus.Get(domain.RoomName(room))
	if !ok {
		log.Debug().Str("module", "ws").Str("from", string(st.From)).Msg("stanza for unknown conference")
		return
	}
	app.NewDispatcher(conf, r.Conn, r.Events).HandleStanza(ctx, st)
}

// roomOf strips the occupant resource from a room address.
func roomOf(jid string) string {
	if i := strings.IndexByte(jid, '/'); i >= 0 {
		return jid[:i]
	}
	return jid
}

// resourceOf returns the occupant resource of a room address, or the
// whole address when it carries none.
func resourceOf(jid string) string {
	if i := strings.IndexByte(jid, '/'); i >= 0 {
		return jid[i+1:]
	}
	return jid
}
