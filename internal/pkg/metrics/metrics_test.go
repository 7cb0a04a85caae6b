package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSetChannelConnected(t *testing.T) {
	SetChannelConnected(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(ChannelConnected))

	SetChannelConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(ChannelConnected))
}
