package op

import "fmt"

// Operation kinds. The set is closed; anything else is rejected at the
// network boundary.
const (
	Insert = "Insert"
	Delete = "Delete"
)

// ID identifies an operation across the network: the originating agent
// plus its agent-scoped sequence number.
type ID struct {
	Agent string
	Seq   int
}

func (id ID) String() string {
	return fmt.Sprintf("%s:%d", id.Agent, id.Seq)
}

// Operation is one atomic edit record produced by the document layer.
// Records are immutable once created. For inserts OriginLeft/OriginRight
// anchor the new content between two positions; for deletes they span the
// removed range [OriginLeft, OriginRight). Deps carries the frontier the
// operation was generated against.
type Operation struct {
	LV          int    `json:"lv"`
	AgentID     string `json:"agent_id"`
	OpType      string `json:"op_type"`
	Content     string `json:"content,omitempty"`
	OriginLeft  int    `json:"origin_left"`
	OriginRight int    `json:"origin_right"`
	Deps        []int  `json:"deps"`
}

func (o Operation) ID() ID {
	return ID{Agent: o.AgentID, Seq: o.LV}
}

// Validate checks an operation received off the wire against the closed
// variant set.
func (o Operation) Validate() error {
	if o.AgentID == "" {
		return fmt.Errorf("operation missing agent_id")
	}
	if o.LV < 0 {
		return fmt.Errorf("operation %v: negative lv", o.ID())
	}
	switch o.OpType {
	case Insert:
		if o.Content == "" {
			return fmt.Errorf("insert %v: missing content", o.ID())
		}
	case Delete:
		if o.Content != "" {
			return fmt.Errorf("delete %v: unexpected content", o.ID())
		}
		if o.OriginRight < o.OriginLeft {
			return fmt.Errorf("delete %v: inverted range", o.ID())
		}
	default:
		return fmt.Errorf("operation %v: unknown op_type %q", o.ID(), o.OpType)
	}
	return nil
}
