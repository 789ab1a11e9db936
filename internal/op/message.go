package op

// Message types. One type field dispatches the envelope structure.
const (
	TypeJoin      = "join"
	TypeOperation = "operation"
	TypeBatch     = "batch"
	TypeSync      = "sync"
)

// Message is the JSON wire envelope shared by the client and the relay.
type Message struct {
	Type string      `json:"type"`
	Room string      `json:"room,omitempty"`
	Op   *Operation  `json:"op,omitempty"`
	Ops  []Operation `json:"ops,omitempty"`
}

// Payload returns the operations carried by the message, regardless of
// which variant carried them. Join messages carry none.
func (m Message) Payload() []Operation {
	switch m.Type {
	case TypeOperation:
		if m.Op == nil {
			return nil
		}
		return []Operation{*m.Op}
	case TypeBatch, TypeSync:
		return m.Ops
	}
	return nil
}

func Join(room string) Message {
	return Message{Type: TypeJoin, Room: room}
}

func Batch(room string, ops []Operation) Message {
	return Message{Type: TypeBatch, Room: room, Ops: ops}
}

func Sync(ops []Operation) Message {
	return Message{Type: TypeSync, Ops: ops}
}
