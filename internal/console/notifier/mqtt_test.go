package notifier

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/fleetlink/internal/console/core"
	"github.com/autopeer-io/fleetlink/internal/console/core/dispatch"
	"github.com/autopeer-io/fleetlink/internal/console/core/mode"
	"github.com/autopeer-io/fleetlink/internal/console/core/model"
	pkgmqtt "github.com/autopeer-io/fleetlink/pkg/mqtt"
	"github.com/autopeer-io/fleetlink/pkg/mqtt/topic"
)

type published struct {
	topic   string
	qos     int
	retain  bool
	payload string
}

type fakeClient struct {
	mu        sync.Mutex
	msgs      []published
	connected atomic.Bool
}

var _ pkgmqtt.Client = (*fakeClient)(nil)

func (c *fakeClient) Start(context.Context) error               { return nil }
func (c *fakeClient) Disconnect(context.Context)                {}
func (c *fakeClient) IsConnected() bool                         { return c.connected.Load() }
func (c *fakeClient) AwaitConnection(context.Context) error     { return nil }
func (c *fakeClient) Unsubscribe(context.Context, string) error { return nil }
func (c *fakeClient) Subscribe(context.Context, string, int, pkgmqtt.MessageHandler) error {
	return nil
}

func (c *fakeClient) Publish(_ context.Context, t string, qos int, retain bool, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, published{t, qos, retain, string(payload)})
	return nil
}

func (c *fakeClient) published() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.msgs...)
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		cmd  *model.CommandIntent
		want string
	}{
		{
			name: "manual",
			cmd:  model.ManualIntent("boat-1", 0, 35),
			want: `{"id":"boat-1","md":"mnl","r":0,"th":35}`,
		},
		{
			name: "route",
			cmd:  model.RouteIntent("boat-2", model.Position{Lat: 10.5, Lng: -20.25}),
			want: `{"id":"boat-2","md":"auto","tlat":10.5,"tlng":-20.25}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.cmd)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestNotifyPublishesInOrder(t *testing.T) {
	client := &fakeClient{}
	client.connected.Store(true)
	n := NewMQTTNotifier(client, topic.NewBuilder("fleet/v1"), 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- n.Start(ctx) }()

	require.NoError(t, n.Notify(ctx, model.ManualIntent("boat-1", 10, 20)))
	require.NoError(t, n.Notify(ctx, model.RouteIntent("boat-1", model.Position{Lat: 1, Lng: 2})))

	require.Eventually(t, func() bool { return len(client.published()) == 2 }, time.Second, 5*time.Millisecond)
	msgs := client.published()
	assert.Equal(t, "fleet/v1/command/boat-1", msgs[0].topic)
	assert.Equal(t, 0, msgs[0].qos)
	assert.False(t, msgs[0].retain)
	assert.JSONEq(t, `{"id":"boat-1","md":"mnl","r":10,"th":20}`, msgs[0].payload)
	assert.JSONEq(t, `{"id":"boat-1","md":"auto","tlat":1,"tlng":2}`, msgs[1].payload)

	cancel()
	assert.NoError(t, <-done)
}

func TestNotifyRejectsWhenDisconnected(t *testing.T) {
	client := &fakeClient{}
	n := NewMQTTNotifier(client, topic.NewBuilder("fleet/v1"), 8)

	assert.False(t, n.Connected())
	err := n.Notify(context.Background(), model.ManualIntent("boat-1", 0, 0))
	assert.ErrorIs(t, err, core.ErrChannelUnavailable)
}

func TestNotifyRejectsWhenOutboxFull(t *testing.T) {
	client := &fakeClient{}
	client.connected.Store(true)
	n := NewMQTTNotifier(client, topic.NewBuilder("fleet/v1"), 1)

	ctx := context.Background()
	require.NoError(t, n.Notify(ctx, model.ManualIntent("boat-1", 0, 0)))
	err := n.Notify(ctx, model.ManualIntent("boat-1", 0, 0))
	assert.ErrorIs(t, err, core.ErrChannelUnavailable)
}

func TestEndManualQueuesFinalCommandOnCanceledContext(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 50; i++ {
		client := &fakeClient{}
		client.connected.Store(true)
		n := NewMQTTNotifier(client, topic.NewBuilder("fleet/v1"), 8)
		d := dispatch.New(n, mode.New(nil), clocktesting.NewFakeClock(time.Unix(0, 0)), 500*time.Millisecond, nil)

		d.SetRudder(context.Background(), "boat-1", 20)
		d.SetThrottle(context.Background(), "boat-1", 60)
		require.True(t, d.EndManual(canceled, "boat-1"))

		require.Len(t, n.outbox, 1, "iteration %d", i)
		final := <-n.outbox
		assert.Equal(t, 0.0, *final.Rudder)
		assert.Equal(t, 60.0, *final.Throttle)
	}
}

func TestNotifyIgnoresCanceledContext(t *testing.T) {
	client := &fakeClient{}
	client.connected.Store(true)
	n := NewMQTTNotifier(client, topic.NewBuilder("fleet/v1"), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, n.Notify(ctx, model.ManualIntent("boat-1", 0, 10)))
	assert.Len(t, n.outbox, 1)
}
