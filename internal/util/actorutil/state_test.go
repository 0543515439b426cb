package actorutil

import (
	"testing"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
)

type namedState string

func (s namedState) Name() string            { return string(s) }
func (s namedState) Receive(_ actor.Context) {}

func TestActorWithStatesTracksCurrent(t *testing.T) {
	s := NewActorWithStates(namedState("idle"))
	assert.Equal(t, "idle", s.Current())

	s.BecomeStacked(namedState("busy"))
	assert.Equal(t, "busy", s.Current())

	s.UnbecomeStacked()
	assert.Equal(t, "idle", s.Current())
	// never pops the base state
	s.UnbecomeStacked()
	assert.Equal(t, "idle", s.Current())

	s.Become(namedState("done"))
	assert.Equal(t, "done", s.Current())
}
