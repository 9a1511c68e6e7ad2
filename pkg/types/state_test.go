package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeState_Merge(t *testing.T) {
	s := NodeState{}
	changed := s.Merge(NodeState{Identifiers: map[string]string{"BTC": "a", "LTC": "b"}})
	assert.Equal(t, []string{"BTC", "LTC"}, changed)

	changed = s.Merge(NodeState{Identifiers: map[string]string{"BTC": "a", "LTC": "c"}})
	assert.Equal(t, []string{"LTC"}, changed)

	id, ok := s.Get("LTC")
	assert.True(t, ok)
	assert.Equal(t, "c", id)
	assert.Equal(t, []string{"BTC", "LTC"}, s.Currencies())
}

func TestNodeState_Clone(t *testing.T) {
	s := NewNodeState()
	s.Identifiers["BTC"] = "x"

	c := s.Clone()
	c.Identifiers["BTC"] = "y"
	assert.Equal(t, "x", s.Identifiers["BTC"])
}
