package mqtt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/fleetlink/internal/console/core/model"
)

func TestDecodeTelemetryObject(t *testing.T) {
	payload := `{
		"boat_id": "boat-7",
		"ts": 1700000000123,
		"data": {
			"latitude": 52.1, "longitude": 4.3, "status": "cruising",
			"temperature": 18.5, "wind_dir_u": -1.25, "wind_dir_v": 0.5, "chaos": 3,
			"notification": {"id": "n-1", "type": "reached"}
		}
	}`

	snaps, err := DecodeTelemetry("ignored", []byte(payload))
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	s := snaps[0]
	assert.Equal(t, "boat-7", s.VehicleID)
	assert.Equal(t, time.UnixMilli(1700000000123), s.Stamp)
	require.NotNil(t, s.Position)
	assert.Equal(t, model.Position{Lat: 52.1, Lng: 4.3}, *s.Position)
	assert.Equal(t, "cruising", *s.Status)
	assert.Equal(t, 18.5, *s.Temperature)
	assert.Equal(t, -1.25, *s.WindU)
	assert.Equal(t, 0.5, *s.WindV)
	assert.Equal(t, 3.0, *s.Chaos)
	assert.Equal(t, &model.Notice{ID: "n-1", Type: model.NoticeReached}, s.Notice)
}

func TestDecodeTelemetryArrayAndTopicFallback(t *testing.T) {
	payload := `[
		{"data": {"latitude": 1, "longitude": 2}},
		{"boat_id": "other", "data": {"latitude": 3, "longitude": 4}}
	]`

	snaps, err := DecodeTelemetry("boat-1", []byte(payload))
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "boat-1", snaps[0].VehicleID)
	assert.True(t, snaps[0].Stamp.IsZero())
	assert.Equal(t, "other", snaps[1].VehicleID)
}

func TestDecodeTelemetryNonNumericIsUnknown(t *testing.T) {
	payload := `{"data": {
		"latitude": "52.1", "longitude": 4.3,
		"temperature": null, "wind_dir_u": true, "chaos": {"x": 1},
		"status": 7,
		"notification": {"id": 42, "type": "reached"}
	}}`

	snaps, err := DecodeTelemetry("boat-1", []byte(payload))
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	s := snaps[0]
	assert.Nil(t, s.Position, "a non-numeric coordinate leaves the position unknown")
	assert.Nil(t, s.Temperature)
	assert.Nil(t, s.WindU)
	assert.Nil(t, s.Chaos)
	require.NotNil(t, s.Status)
	assert.Equal(t, "7", *s.Status)
	assert.Equal(t, "42", s.Notice.ID)
}

func TestDecodeTelemetryErrors(t *testing.T) {
	_, err := DecodeTelemetry("boat-1", []byte(`{not json`))
	assert.Error(t, err)

	_, err = DecodeTelemetry("", []byte(`{"data": {}}`))
	assert.ErrorIs(t, err, errNoVehicleID)

	snaps, err := DecodeTelemetry("boat-1", []byte(`{}`))
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Nil(t, snaps[0].Position)
}

func TestDecodeTelemetryArrayKeepsValidReports(t *testing.T) {
	payload := `[
		{"boat_id": "a", "data": {"latitude": 1, "longitude": 2}},
		"garbage",
		{"data": {"latitude": 3, "longitude": 4}},
		{"boat_id": "b", "data": {"status": "docked"}}
	]`

	snaps, err := DecodeTelemetry("", []byte(payload))
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoVehicleID)
	assert.Contains(t, err.Error(), "report 1")
	assert.Contains(t, err.Error(), "report 2")

	require.Len(t, snaps, 2)
	assert.Equal(t, "a", snaps[0].VehicleID)
	assert.Equal(t, "b", snaps[1].VehicleID)
}
