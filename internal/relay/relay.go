// Package relay fans operation batches out to the members of a room and
// replays the room's retained log to late joiners. It never interprets
// operations; conflict resolution belongs to the document layer on each
// client.
package relay

import (
	"net/http"
	"sync"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/padsync/padsync/internal/op"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type Server struct {
	rooms map[string]*room

	mu sync.RWMutex // W protects the room map, R needs to be held when locking one room
}

func NewServer() *Server {
	return &Server{
		rooms: map[string]*room{},
	}
}

// Router serves the websocket endpoint and a health check.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws/{room}", s.ws)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

type room struct {
	name    string
	log     []op.Operation // retained for sync catch-up
	members map[*member]bool

	mu sync.Mutex
}

func (s *Server) getRoom(name string) *room {
	s.mu.Lock()
	defer s.mu.Unlock()

	rm, ok := s.rooms[name]
	if !ok {
		rm = &room{
			name:    name,
			members: map[*member]bool{},
		}
		s.rooms[name] = rm
	}
	return rm
}

// set up websocket
func (s *Server) ws(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["room"]

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Infof("[relay]upgrade error = %s", err)
		return
	}

	// wait for the join message
	var m op.Message
	if err := conn.ReadJSON(&m); err != nil || m.Type != op.TypeJoin {
		glog.Infof("[relay]expected join, closing")
		conn.Close()
		return
	}
	if m.Room != "" {
		name = m.Room
	}

	rm := s.getRoom(name)
	c := &member{room: rm, conn: conn, alive: true}

	rm.mu.Lock()
	rm.members[c] = true
	// catch the joiner up with everything the room has seen
	catchup := append([]op.Operation{}, rm.log...)
	rm.mu.Unlock()

	c.write(op.Sync(catchup))
	glog.Infof("[relay]join room=%s members=%d", name, len(rm.members))

	c.interact()

	rm.mu.Lock()
	delete(rm.members, c)
	rm.mu.Unlock()
	conn.Close()
}

// append validated ops to the room log and fan them out to everyone but
// the sender
func (rm *room) broadcast(from *member, ops []op.Operation) {
	kept := ops[:0]
	for _, o := range ops {
		if err := o.Validate(); err != nil {
			glog.Infof("[relay]drop op: %s", err)
			continue
		}
		kept = append(kept, o)
	}
	if len(kept) == 0 {
		return
	}

	rm.mu.Lock()
	rm.log = append(rm.log, kept...)
	targets := make([]*member, 0, len(rm.members))
	for c := range rm.members {
		if c != from && c.isAlive() {
			targets = append(targets, c)
		}
	}
	rm.mu.Unlock()

	msg := op.Batch(rm.name, kept)
	for _, c := range targets {
		c.write(msg)
	}
}
