package relay

import (
	"sync"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"github.com/padsync/padsync/internal/op"
)

type member struct {
	room *room
	conn *websocket.Conn

	sync.Mutex // protects concurrent conn writes and alive
	alive      bool
}

// thread-safe websocket writing; a failed write marks the member dead
func (c *member) write(m op.Message) {
	c.Lock()
	defer c.Unlock()
	if err := c.conn.WriteJSON(m); err != nil {
		c.alive = false
	}
}

func (c *member) isAlive() bool {
	c.Lock()
	defer c.Unlock()
	return c.alive
}

func (c *member) interact() {
	for c.isAlive() {
		var m op.Message
		if err := c.conn.ReadJSON(&m); err != nil {
			glog.V(2).Infof("[relay]read error = %s", err)
			break
		}

		switch m.Type {
		case op.TypeOperation, op.TypeBatch:
			if ops := m.Payload(); len(ops) > 0 {
				c.room.broadcast(c, ops)
			}
		default:
			// a malformed or unexpected message fails alone, the
			// connection lives on
			glog.V(2).Infof("[relay]ignoring type=%q", m.Type)
		}
	}
}
