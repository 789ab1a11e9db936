package doc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padsync/padsync/internal/op"
)

// replaying one doc's ops on another must reproduce the text
func replay(t *testing.T, from, to *TextDoc) {
	t.Helper()
	for _, o := range from.TakePending() {
		require.NoError(t, to.ApplyRemote(o))
	}
}

func TestSetTextRoundTrip(t *testing.T) {
	cases := [][2]string{
		{"", "hi"},
		{"hi", "hi there"},
		{"caeqwhdoqi", "scqoid"},
		{"abc", "axc"},
		{"same", "same"},
		{"delete me", ""},
		{"héllo", "héllo, wörld"},
	}

	for _, c := range cases {
		a := NewTextDoc("a")
		b := NewTextDoc("b")
		a.SetText(c[0])
		replay(t, a, b)

		a.SetText(c[1])
		replay(t, a, b)

		assert.Equal(t, c[1], a.Text())
		assert.Equal(t, c[1], b.Text(), "%q -> %q", c[0], c[1])
	}
}

func TestInsertDelete(t *testing.T) {
	d := NewTextDoc("a")
	d.Insert(0, "hello")
	d.Insert(5, " world")
	d.Delete(0, 6)
	assert.Equal(t, "world", d.Text())

	ops := d.TakePending()
	require.Len(t, ops, 3)
	for i, o := range ops {
		assert.Equal(t, "a", o.AgentID)
		assert.Equal(t, i, o.LV)
		assert.NoError(t, o.Validate())
	}
}

func TestApplyRemoteIdempotent(t *testing.T) {
	a := NewTextDoc("a")
	a.Insert(0, "x")
	ops := a.TakePending()
	require.Len(t, ops, 1)

	b := NewTextDoc("b")
	require.NoError(t, b.ApplyRemote(ops[0]))
	require.NoError(t, b.ApplyRemote(ops[0])) // duplicate identity, skipped
	assert.Equal(t, "x", b.Text())
}

func TestApplyRemoteSkipsOwnOps(t *testing.T) {
	a := NewTextDoc("a")
	a.Insert(0, "x")
	ops := a.TakePending()

	// an echo of our own operation must not double-apply
	require.NoError(t, a.ApplyRemote(ops[0]))
	assert.Equal(t, "x", a.Text())
}

func TestDeleteClamp(t *testing.T) {
	d := NewTextDoc("b")
	require.NoError(t, d.ApplyRemote(op.Operation{
		LV: 0, AgentID: "a", OpType: op.Insert, Content: "hi", OriginLeft: -1, OriginRight: 0,
	}))

	// delete range reaching past the end clamps to the live text
	require.NoError(t, d.ApplyRemote(op.Operation{
		LV: 1, AgentID: "a", OpType: op.Delete, OriginLeft: 1, OriginRight: 10,
	}))
	assert.Equal(t, "h", d.Text())

	// entirely out of range deletes nothing
	require.NoError(t, d.ApplyRemote(op.Operation{
		LV: 2, AgentID: "a", OpType: op.Delete, OriginLeft: 7, OriginRight: 9,
	}))
	assert.Equal(t, "h", d.Text())
}

func TestFrontierAdvances(t *testing.T) {
	d := NewTextDoc("a")
	assert.Empty(t, d.Frontier())

	d.Insert(0, "x")
	f1 := d.Frontier()
	d.Insert(1, "y")
	f2 := d.Frontier()
	assert.NotEqual(t, f1, f2)

	// deps of a new op carry the frontier it was generated against
	ops := d.TakePending()
	require.Len(t, ops, 2)
	assert.Equal(t, f1, ops[1].Deps)
}

func TestSubscribe(t *testing.T) {
	d := NewTextDoc("a")
	fired := 0
	cancel := d.Subscribe(func() { fired++ })

	d.SetText("abc") // one notification per SetText, not per op
	assert.Equal(t, 1, fired)

	d.SetText("abc") // no change, no notification
	assert.Equal(t, 1, fired)

	cancel()
	d.SetText("xyz")
	assert.Equal(t, 1, fired)
}

func TestDiffScriptMinimalOnAppend(t *testing.T) {
	a := NewTextDoc("a")
	a.SetText("hi")
	a.TakePending()

	a.SetText("hi there")
	ops := a.TakePending()
	require.Len(t, ops, 1)
	assert.Equal(t, op.Insert, ops[0].OpType)
	assert.Equal(t, " there", ops[0].Content)
}

// mutators and readers from different goroutines; run with -race
func TestConcurrentReaders(t *testing.T) {
	d := NewTextDoc("a")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			d.Insert(0, "x")
			d.TakePending()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = d.Text()
			_ = d.Frontier()
		}
	}()
	wg.Wait()

	assert.Len(t, d.Text(), 200)
}
