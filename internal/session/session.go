// Package session wires a document's change notifications to the
// batching and transport layers and exposes the public sync surface.
package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/padsync/padsync/internal/batch"
	"github.com/padsync/padsync/internal/doc"
	"github.com/padsync/padsync/internal/history"
	"github.com/padsync/padsync/internal/op"
	"github.com/padsync/padsync/internal/transport"
)

type Config struct {
	// AgentID identifies this agent's operations and undo history.
	AgentID string

	// UndoManager enables per-agent snapshot undo/redo.
	UndoManager bool

	// WebsocketURL and RoomID enable the automatic transport. Without a
	// url the session runs in manual-sync mode: PendingOps and
	// ApplyRemoteOp are the only way operations move.
	WebsocketURL string
	RoomID       string
}

type Settings struct {
	Batch     *batch.Settings
	Transport *transport.Settings
}

func DefaultSettings() *Settings {
	return &Settings{
		Batch:     batch.DefaultSettings(),
		Transport: transport.DefaultSettings(),
	}
}

// Session owns one document's sync lifecycle. Local edits made through
// the session's edit methods are serialized against inbound network
// applies and timer flushes.
type Session struct {
	handle Handle
	cfg    Config
	doc    doc.Document
	reg    *Registry

	batcher *batch.Batcher       // nil in manual-sync mode
	trans   *transport.Transport // nil in manual-sync mode
	hist    *history.Manager     // nil unless enabled

	unsubscribe func()

	mu             sync.Mutex
	suppressRemote bool
	disposed       bool
}

func newSession(h Handle, d doc.Document, cfg Config, settings *Settings, reg *Registry) *Session {
	if settings == nil {
		settings = DefaultSettings()
	}

	s := &Session{
		handle: h,
		cfg:    cfg,
		doc:    d,
		reg:    reg,
	}
	if cfg.UndoManager {
		s.hist = history.NewManager(d.Text())
	}
	s.unsubscribe = d.Subscribe(s.onDocChange)

	if cfg.WebsocketURL != "" {
		s.batcher = batch.NewBatcher(s.sendBatch, settings.Batch)
		s.trans = transport.NewTransport(
			cfg.WebsocketURL,
			cfg.RoomID,
			s.onInbound,
			s.onConnected,
			settings.Transport,
		)
	}
	return s
}

func (s *Session) Handle() Handle {
	return s.handle
}

// Doc returns the externally owned mutable document. Mutating it
// directly bypasses the session lock; concurrent editors go through
// SetText, Insert, and Delete instead.
func (s *Session) Doc() doc.Document {
	return s.doc
}

// Text reads the live text, serialized against inbound remote applies.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Text()
}

// SetText replaces the document text with a local edit, serialized
// against inbound applies so the change notification cannot land inside
// a remote-apply suppression window.
func (s *Session) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.SetText(text)
}

// Insert makes a local insert edit, serialized like SetText.
func (s *Session) Insert(pos int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Insert(pos, text)
}

// Delete makes a local delete edit, serialized like SetText.
func (s *Session) Delete(pos, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Delete(pos, n)
}

// onDocChange observes every document mutation. Under the remote-apply
// guard it returns immediately: a change merged from the network is
// neither a new undo entry nor something to echo back.
func (s *Session) onDocChange() {
	if s.suppressRemote {
		return
	}
	if s.hist != nil {
		s.hist.OnChange(s.doc.Text())
	}
	if s.batcher != nil {
		for _, o := range s.doc.TakePending() {
			s.batcher.Queue(o)
		}
	}
}

func (s *Session) sendBatch(ops []op.Operation) bool {
	return s.trans.Send(op.Batch(s.cfg.RoomID, ops))
}

func (s *Session) onConnected() {
	// drain anything buffered while connecting
	s.batcher.Flush()
}

func (s *Session) onInbound(m op.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.applyGuarded(m.Payload())
}

// applyGuarded merges remote operations into the document with both
// suppression flags raised for the whole batch. The flags are released on
// every exit path; a failing operation is logged and skipped, never fatal
// to the rest of the batch. Called with s.mu held.
func (s *Session) applyGuarded(ops []op.Operation) {
	s.suppressRemote = true
	if s.hist != nil {
		s.hist.SetSuppressed(true, "")
	}
	defer func() {
		s.suppressRemote = false
		if s.hist != nil {
			s.hist.SetSuppressed(false, s.doc.Text())
		}
	}()

	for _, o := range ops {
		if err := o.Validate(); err != nil {
			glog.Infof("[session]drop remote op: %s", err)
			continue
		}
		if err := s.doc.ApplyRemote(o); err != nil {
			glog.Infof("[session]apply %v error = %s", o.ID(), err)
		}
	}
}

// ApplyRemoteOp is the manual-sync escape hatch for one inbound
// operation, bypassing the automatic transport.
func (s *Session) ApplyRemoteOp(o op.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return fmt.Errorf("session disposed")
	}
	if err := o.Validate(); err != nil {
		return err
	}
	s.applyGuarded([]op.Operation{o})
	return nil
}

// PendingOps drains the document's locally generated operations,
// bypassing the automatic transport. Only meaningful in manual-sync
// mode; with a transport attached the observer drains them first.
func (s *Session) PendingOps() []op.Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.TakePending()
}

// Undo restores the previous snapshot. The restore itself is hidden from
// the history manager but still propagates to the network: peers see the
// revert as ordinary edits.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hist == nil || s.disposed {
		return false
	}
	text, ok := s.hist.Undo(s.doc.Text())
	if !ok {
		return false
	}
	s.restore(text)
	return true
}

func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hist == nil || s.disposed {
		return false
	}
	text, ok := s.hist.Redo(s.doc.Text())
	if !ok {
		return false
	}
	s.restore(text)
	return true
}

func (s *Session) restore(text string) {
	s.hist.SetSuppressed(true, "")
	defer s.hist.SetSuppressed(false, text)
	s.doc.SetText(text)
}

// Frontier is a pass-through to the document's causal frontier; its
// contents are opaque here.
func (s *Session) Frontier() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Frontier()
}

func (s *Session) FrontierRaw() []byte {
	raw, _ := json.Marshal(s.Frontier())
	return raw
}

// State reports the transport connection state, or disconnected in
// manual-sync mode.
func (s *Session) State() transport.State {
	if s.trans == nil {
		return transport.StateDisconnected
	}
	return s.trans.State()
}

// Dispose flushes once more, tears down the transport, unsubscribes the
// change observer, and releases the registry entry. Idempotent.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.mu.Unlock()

	s.unsubscribe()
	if s.batcher != nil {
		s.batcher.Flush()
		s.batcher.Close()
	}
	if s.trans != nil {
		s.trans.Dispose()
	}
	if s.reg != nil {
		s.reg.remove(s.handle)
	}
}
