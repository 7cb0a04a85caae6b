package mqtt

import (
	"context"
	"net/url"
	"testing"

	"github.com/eclipse/paho.golang/paho"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)

	_, err = NewClient(&ClientConfig{})
	assert.Error(t, err)

	_, err = NewClient(&ClientConfig{BrokerURL: "localhost:1883"})
	assert.Error(t, err)

	cfg := &ClientConfig{BrokerURL: "tcp://localhost:1883"}
	c, err := NewClient(cfg)
	require.NoError(t, err)
	assert.False(t, c.IsConnected())
	assert.EqualValues(t, 60, cfg.KeepAlive, "defaults applied in place")
}

func TestCallsBeforeStart(t *testing.T) {
	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://localhost:1883"})
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, c.Publish(ctx, "a/b", 0, false, nil), ErrNotStarted)
	assert.ErrorIs(t, c.Subscribe(ctx, "a/+", 0, func(context.Context, string, []byte) {}), ErrNotStarted)
	assert.ErrorIs(t, c.AwaitConnection(ctx), ErrNotStarted)
	c.Disconnect(ctx)
}

func TestTLSOnlyForSecureSchemes(t *testing.T) {
	c := &pahoClient{cfg: &ClientConfig{InsecureSkipVerify: true}}

	for scheme, want := range map[string]bool{"tcp": false, "ws": false, "ssl": true, "mqtts": true, "wss": true} {
		cfg := c.tlsConfig(&url.URL{Scheme: scheme, Host: "broker:8883"})
		if !want {
			assert.Nil(t, cfg, scheme)
			continue
		}
		require.NotNil(t, cfg, scheme)
		assert.True(t, cfg.InsecureSkipVerify)
	}
}

func TestRouterDispatch(t *testing.T) {
	var r router
	var got []string
	record := func(tag string) MessageHandler {
		return func(_ context.Context, name string, _ []byte) { got = append(got, tag+":"+name) }
	}

	r.add("fleet/v1/telemetry/+", 0, record("telemetry"))
	r.add("fleet/v1/#", 0, record("all"))
	r.add("fleet/v1/telemetry/+", 1, record("replaced"))

	require.Len(t, r.snapshot(), 2)
	assert.Equal(t, 1, r.snapshot()[0].qos)

	assert.True(t, r.dispatch(context.Background(), "fleet/v1/telemetry/boat-1", nil))
	assert.Equal(t, []string{"replaced:fleet/v1/telemetry/boat-1", "all:fleet/v1/telemetry/boat-1"}, got)

	r.remove("fleet/v1/#")
	assert.False(t, r.dispatch(context.Background(), "fleet/v1/command/boat-1", nil))
}

func TestConnectionChangeReportsTransitions(t *testing.T) {
	var seen []bool
	c, err := NewClient(&ClientConfig{
		BrokerURL:          "tcp://localhost:1883",
		OnConnectionChange: func(up bool) { seen = append(seen, up) },
	})
	require.NoError(t, err)
	pc := c.(*pahoClient)

	pc.onConnectError(assert.AnError)
	pc.onConnectionUp(nil, nil)
	pc.onConnectionUp(nil, nil)
	assert.True(t, c.IsConnected())
	pc.onServerDisconnect(&paho.Disconnect{ReasonCode: 0x8B})
	pc.onClientError(assert.AnError)

	assert.Equal(t, []bool{true, false}, seen)
	assert.False(t, c.IsConnected())
}
