package doc

import (
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/padsync/padsync/internal/op"
)

// Document is the capability surface the sync session consumes. A
// document turns local edits into operations, applies remote operations,
// and notifies subscribers after every mutation. Individual calls are
// safe for concurrent use; a compound edit-plus-notify flow is made
// atomic against remote applies by the owning session's edit methods.
type Document interface {
	Text() string
	SetText(s string)
	Insert(pos int, s string)
	Delete(pos, n int)

	// TakePending returns the operations generated by local edits since
	// the last call and clears them.
	TakePending() []op.Operation

	// ApplyRemote applies one remote operation. Already-seen identities
	// are skipped. Delete ranges are clamped to the live text.
	ApplyRemote(o op.Operation) error

	// Frontier returns the current causal frontier. Its contents are
	// opaque to the sync layer and forwarded verbatim.
	Frontier() []int

	// Subscribe registers a change callback, fired synchronously after
	// each mutation. The returned func cancels the registration.
	Subscribe(fn func()) (cancel func())
}

// TextDoc is an oplog-backed text document for one agent. It is the
// minimal collaborator honoring the Document contract: positional apply
// with delete clamping, no conflict resolution.
type TextDoc struct {
	agent string

	mu   sync.Mutex // protects everything below; released before notify
	text []rune

	seq      int // next agent-scoped sequence number
	logLen   int // total operations observed, local and remote
	frontier []int
	pending  []op.Operation
	seen     mapset.Set[op.ID]

	subs    map[int]func()
	nextSub int
}

func NewTextDoc(agent string) *TextDoc {
	return &TextDoc{
		agent:    agent,
		frontier: []int{},
		seen:     mapset.NewThreadUnsafeSet[op.ID](),
		subs:     map[int]func(){},
	}
}

func (d *TextDoc) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return string(d.text)
}

func (d *TextDoc) Insert(pos int, s string) {
	if s == "" {
		return
	}
	d.mu.Lock()
	pos = clamp(pos, 0, len(d.text))
	d.insertLocal(pos, []rune(s))
	d.mu.Unlock()
	d.notify()
}

func (d *TextDoc) Delete(pos, n int) {
	d.mu.Lock()
	pos = clamp(pos, 0, len(d.text))
	end := clamp(pos+n, pos, len(d.text))
	if end == pos {
		d.mu.Unlock()
		return
	}
	d.deleteLocal(pos, end)
	d.mu.Unlock()
	d.notify()
}

// SetText diffs the live text against s and records the edit runs as
// operations, then replaces the text. One notification per call.
func (d *TextDoc) SetText(s string) {
	d.mu.Lock()
	next := []rune(s)
	script := diffRunes(d.text, next)
	if len(script) == 0 {
		d.mu.Unlock()
		return
	}

	for _, p := range coalesce(script) {
		if p.add {
			d.insertLocal(p.pos, p.text)
		} else {
			d.deleteLocal(p.pos, p.pos+len(p.text))
		}
	}
	d.mu.Unlock()
	d.notify()
}

func (d *TextDoc) insertLocal(pos int, text []rune) {
	d.text = append(d.text[:pos], append(append([]rune{}, text...), d.text[pos:]...)...)
	d.record(op.Operation{
		OpType:      op.Insert,
		Content:     string(text),
		OriginLeft:  pos - 1,
		OriginRight: pos,
	})
}

// deleteLocal removes [start, end)
func (d *TextDoc) deleteLocal(start, end int) {
	d.text = append(d.text[:start], d.text[end:]...)
	d.record(op.Operation{
		OpType:      op.Delete,
		OriginLeft:  start,
		OriginRight: end,
	})
}

// record stamps a locally generated operation with identity and deps and
// advances the frontier
func (d *TextDoc) record(o op.Operation) {
	o.AgentID = d.agent
	o.LV = d.seq
	o.Deps = append([]int{}, d.frontier...)
	d.seq++

	d.pending = append(d.pending, o)
	d.seen.Add(o.ID())
	d.frontier = []int{d.logLen}
	d.logLen++
}

func (d *TextDoc) TakePending() []op.Operation {
	d.mu.Lock()
	defer d.mu.Unlock()
	ops := d.pending
	d.pending = nil
	return ops
}

func (d *TextDoc) ApplyRemote(o op.Operation) error {
	d.mu.Lock()
	if d.seen.Contains(o.ID()) {
		// already included
		d.mu.Unlock()
		return nil
	}

	switch o.OpType {
	case op.Insert:
		pos := clamp(o.OriginLeft+1, 0, len(d.text))
		content := []rune(o.Content)
		d.text = append(d.text[:pos], append(content, d.text[pos:]...)...)
	case op.Delete:
		start := clamp(o.OriginLeft, 0, len(d.text))
		end := clamp(o.OriginRight, start, len(d.text))
		d.text = append(d.text[:start], d.text[end:]...)
	default:
		d.mu.Unlock()
		return fmt.Errorf("apply %v: unknown op_type %q", o.ID(), o.OpType)
	}

	d.seen.Add(o.ID())
	d.frontier = []int{d.logLen}
	d.logLen++
	d.mu.Unlock()
	d.notify()
	return nil
}

func (d *TextDoc) Frontier() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int{}, d.frontier...)
}

func (d *TextDoc) Subscribe(fn func()) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}

func (d *TextDoc) notify() {
	d.mu.Lock()
	fns := make([]func(), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
