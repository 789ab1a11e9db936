package op

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	ok := Operation{LV: 0, AgentID: "a", OpType: Insert, Content: "hi", OriginLeft: -1, OriginRight: 0}
	assert.NoError(t, ok.Validate())

	del := Operation{LV: 1, AgentID: "a", OpType: Delete, OriginLeft: 0, OriginRight: 2}
	assert.NoError(t, del.Validate())

	cases := []Operation{
		{LV: 0, OpType: Insert, Content: "x"},                            // no agent
		{LV: -1, AgentID: "a", OpType: Insert, Content: "x"},             // negative lv
		{LV: 0, AgentID: "a", OpType: Insert},                            // insert without content
		{LV: 0, AgentID: "a", OpType: Delete, Content: "x"},              // delete with content
		{LV: 0, AgentID: "a", OpType: Delete, OriginLeft: 3, OriginRight: 1}, // inverted range
		{LV: 0, AgentID: "a", OpType: "Retain", Content: "x"},            // open variant
	}
	for _, c := range cases {
		assert.Error(t, c.Validate(), "%+v", c)
	}
}

func TestPayload(t *testing.T) {
	o := Operation{LV: 0, AgentID: "a", OpType: Insert, Content: "x"}

	assert.Empty(t, Join("r").Payload())
	assert.Equal(t, []Operation{o}, Message{Type: TypeOperation, Op: &o}.Payload())
	assert.Empty(t, Message{Type: TypeOperation}.Payload())
	assert.Equal(t, []Operation{o, o}, Batch("r", []Operation{o, o}).Payload())
	assert.Equal(t, []Operation{o}, Sync([]Operation{o}).Payload())
}

func TestIdentity(t *testing.T) {
	a1 := Operation{LV: 1, AgentID: "a", OpType: Insert, Content: "x"}
	a1again := Operation{LV: 1, AgentID: "a", OpType: Insert, Content: "y"}
	b1 := Operation{LV: 1, AgentID: "b", OpType: Insert, Content: "x"}

	assert.Equal(t, a1.ID(), a1again.ID())
	assert.NotEqual(t, a1.ID(), b1.ID())
	assert.Equal(t, "a:1", a1.ID().String())
}
