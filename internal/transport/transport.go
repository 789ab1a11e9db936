// Package transport owns the logical connection to the relay: a single
// websocket, a connection-state machine, and automatic reconnection with
// exponential backoff.
package transport

import (
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"github.com/padsync/padsync/internal/op"
)

type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateDisconnected State = "disconnected"
)

// Conn is the slice of a websocket connection the transport uses.
// *websocket.Conn satisfies it; tests inject in-memory conns.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

type Dialer func(url string) (Conn, error)

func wsDialer(url string) (Conn, error) {
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type Settings struct {
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
	MaxReconnects int

	// Dialer opens the underlying connection. Defaults to a websocket
	// dial of the transport url.
	Dialer Dialer

	// OnStateChange, when set, observes every state transition. It is
	// called with the transport lock held and must not call back in.
	OnStateChange func(State)
}

func DefaultSettings() *Settings {
	return &Settings{
		ReconnectBase: 1000 * time.Millisecond,
		ReconnectMax:  30000 * time.Millisecond,
		MaxReconnects: 10,
	}
}

// backoffDelay is the reconnect delay after retries consecutive failures:
// min(base * 2^retries, max).
func backoffDelay(retries int, settings *Settings) time.Duration {
	d := settings.ReconnectBase << retries
	if d <= 0 || d > settings.ReconnectMax {
		return settings.ReconnectMax
	}
	return d
}

// Transport maintains one logical connection. On open it sends the join
// message for its room and kicks a flush of anything buffered while
// connecting; inbound operation/batch/sync messages are handed to
// onMessage. Close or error schedules a reconnect until the attempt
// ceiling, after which the state is terminally disconnected.
type Transport struct {
	url      string
	room     string
	settings *Settings

	// onMessage receives inbound messages carrying operations.
	onMessage func(op.Message)
	// onConnected fires after the join message, once per successful open.
	onConnected func()

	mu             sync.Mutex
	state          State
	conn           Conn
	gen            int // current connection generation
	retries        int
	reconnectTimer *time.Timer
	disposed       bool
}

func NewTransport(url, room string, onMessage func(op.Message), onConnected func(), settings *Settings) *Transport {
	if settings == nil {
		settings = DefaultSettings()
	}
	if settings.Dialer == nil {
		settings.Dialer = wsDialer
	}

	t := &Transport{
		url:         url,
		room:        room,
		settings:    settings,
		onMessage:   onMessage,
		onConnected: onConnected,
		state:       StateConnecting,
	}
	if settings.OnStateChange != nil {
		settings.OnStateChange(StateConnecting)
	}
	go t.connect()
	return t
}

func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transport) setState(s State) {
	t.state = s
	if t.settings.OnStateChange != nil {
		t.settings.OnStateChange(s)
	}
}

func (t *Transport) connect() {
	conn, err := t.settings.Dialer(t.url)

	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		glog.Infof("[transport]dial %s error = %s", t.url, err)
		t.scheduleReconnectLocked()
		t.mu.Unlock()
		return
	}

	t.conn = conn
	t.gen++
	gen := t.gen
	t.retries = 0
	t.setState(StateConnected)

	if err := conn.WriteJSON(op.Join(t.room)); err != nil {
		glog.Infof("[transport]join error = %s", err)
		t.closeConnLocked(gen)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	glog.Infof("[transport]connected %s room=%s", t.url, t.room)
	if t.onConnected != nil {
		t.onConnected()
	}
	go t.readLoop(conn, gen)
}

func (t *Transport) readLoop(conn Conn, gen int) {
	for {
		var m op.Message
		if err := conn.ReadJSON(&m); err != nil {
			t.mu.Lock()
			t.closeConnLocked(gen)
			t.mu.Unlock()
			return
		}

		switch m.Type {
		case op.TypeOperation, op.TypeBatch, op.TypeSync:
			glog.V(2).Infof("[transport]<- %s n=%d", m.Type, len(m.Payload()))
			if t.onMessage != nil {
				t.onMessage(m)
			}
		default:
			glog.V(2).Infof("[transport]<- other=%q", m.Type)
		}
	}
}

// closeConnLocked tears down the connection of generation gen and moves
// the state machine. A stale generation is ignored; the reconnect that
// replaced it already handled the transition.
func (t *Transport) closeConnLocked(gen int) {
	if gen != t.gen || t.conn == nil {
		return
	}
	t.conn.Close()
	t.conn = nil

	if t.disposed {
		t.setState(StateDisconnected)
		return
	}
	t.scheduleReconnectLocked()
}

func (t *Transport) scheduleReconnectLocked() {
	if t.retries >= t.settings.MaxReconnects {
		glog.Infof("[transport]giving up after %d attempts", t.retries)
		t.setState(StateDisconnected)
		return
	}

	delay := backoffDelay(t.retries, t.settings)
	t.retries++
	t.setState(StateReconnecting)
	glog.Infof("[transport]reconnect in %s (attempt %d)", delay, t.retries)

	t.reconnectTimer = time.AfterFunc(delay, func() {
		t.mu.Lock()
		if t.disposed {
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()
		t.connect()
	})
}

// Send ships one message if connected. It reports false while in any
// other state; callers keep their payload buffered and retry later.
func (t *Transport) Send(m op.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateConnected || t.conn == nil {
		return false
	}
	if err := t.conn.WriteJSON(m); err != nil {
		glog.Infof("[transport]-> error = %s", err)
		t.closeConnLocked(t.gen)
		return false
	}
	glog.V(2).Infof("[transport]-> %s", m.Type)
	return true
}

// Dispose cancels any pending reconnect, closes the connection, and pins
// the state to disconnected. Timers already in flight observe the
// disposed flag and no-op.
func (t *Transport) Dispose() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disposed {
		return
	}
	t.disposed = true

	if t.reconnectTimer != nil {
		t.reconnectTimer.Stop()
		t.reconnectTimer = nil
	}
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.setState(StateDisconnected)
}
