package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/looplab/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapEventPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	m := fsm.NewFSM("idle",
		fsm.Events{
			{Name: "go", Src: []string{"idle"}, Dst: "busy"},
			{Name: "stay", Src: []string{"idle"}, Dst: "idle"},
		},
		fsm.Callbacks{
			"after_go": WrapEvent(func(ctx context.Context, e *fsm.Event) error { return boom }),
		},
	)

	err := m.Event(context.Background(), "go")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestIsNoTransition(t *testing.T) {
	m := fsm.NewFSM("idle",
		fsm.Events{{Name: "stay", Src: []string{"idle"}, Dst: "idle"}},
		fsm.Callbacks{},
	)

	err := m.Event(context.Background(), "stay")
	assert.True(t, IsNoTransition(err))
	assert.False(t, IsNoTransition(errors.New("other")))
	assert.False(t, IsNoTransition(nil))
}

func TestIsRejected(t *testing.T) {
	m := fsm.NewFSM("idle",
		fsm.Events{{Name: "go", Src: []string{"busy"}, Dst: "idle"}},
		fsm.Callbacks{},
	)

	assert.True(t, IsRejected(m.Event(context.Background(), "go")))
	assert.True(t, IsRejected(m.Event(context.Background(), "fly")))
	assert.False(t, IsRejected(errors.New("other")))
}
