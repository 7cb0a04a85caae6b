package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/autopeer-io/fleetlink/internal/console/core/model"
)

// HandlerFunc processes one message received on a subscribed topic.
type HandlerFunc func(ctx context.Context, topic string, payload []byte) error

// number is a JSON field that is known only when it holds a finite number.
// Strings, booleans, null and objects decode as unknown instead of failing
// the whole report.
type number struct {
	value float64
	known bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	f, err := strconv.ParseFloat(string(bytes.TrimSpace(b)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*n = number{}
		return nil
	}
	*n = number{value: f, known: true}
	return nil
}

func (n number) ptr() *float64 {
	if !n.known {
		return nil
	}
	v := n.value
	return &v
}

// text is a JSON field that is known only when it holds a string. Numbers
// are accepted for ids and kept in their literal form.
type text struct {
	value string
	known bool
}

func (t *text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = text{value: s, known: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*t = text{value: n.String(), known: true}
		return nil
	}
	*t = text{}
	return nil
}

type wireNotice struct {
	ID   text `json:"id"`
	Type text `json:"type"`
}

type wireData struct {
	Latitude     number      `json:"latitude"`
	Longitude    number      `json:"longitude"`
	Status       text        `json:"status"`
	Temperature  number      `json:"temperature"`
	WindU        number      `json:"wind_dir_u"`
	WindV        number      `json:"wind_dir_v"`
	Chaos        number      `json:"chaos"`
	Notification *wireNotice `json:"notification"`
}

type wireTelemetry struct {
	BoatID text      `json:"boat_id"`
	TS     number    `json:"ts"`
	Data   *wireData `json:"data"`
}

var errNoVehicleID = errors.New("telemetry without vehicle id")

// DecodeTelemetry parses a telemetry payload holding one report object or an
// array of them. topicID is used when a report carries no boat_id. Array
// elements that fail to decode are skipped and their errors joined.
func DecodeTelemetry(topicID string, payload []byte) ([]*model.Snapshot, error) {
	payload = bytes.TrimSpace(payload)

	if len(payload) == 0 || payload[0] != '[' {
		var r wireTelemetry
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("decode telemetry: %w", err)
		}
		s, err := r.snapshot(topicID)
		if err != nil {
			return nil, err
		}
		return []*model.Snapshot{s}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode telemetry array: %w", err)
	}

	snaps := make([]*model.Snapshot, 0, len(raw))
	var errs []error
	for i, elem := range raw {
		var r wireTelemetry
		if err := json.Unmarshal(elem, &r); err != nil {
			errs = append(errs, fmt.Errorf("report %d: %w", i, err))
			continue
		}
		s, err := r.snapshot(topicID)
		if err != nil {
			errs = append(errs, fmt.Errorf("report %d: %w", i, err))
			continue
		}
		snaps = append(snaps, s)
	}
	return snaps, errors.Join(errs...)
}

func (w *wireTelemetry) snapshot(topicID string) (*model.Snapshot, error) {
	id := topicID
	if w.BoatID.known && w.BoatID.value != "" {
		id = w.BoatID.value
	}
	if id == "" {
		return nil, errNoVehicleID
	}

	s := &model.Snapshot{VehicleID: id}
	if w.TS.known {
		s.Stamp = time.UnixMilli(int64(w.TS.value))
	}

	d := w.Data
	if d == nil {
		return s, nil
	}
	if d.Latitude.known && d.Longitude.known {
		s.Position = &model.Position{Lat: d.Latitude.value, Lng: d.Longitude.value}
	}
	if d.Status.known {
		status := d.Status.value
		s.Status = &status
	}
	s.Temperature = d.Temperature.ptr()
	s.WindU = d.WindU.ptr()
	s.WindV = d.WindV.ptr()
	s.Chaos = d.Chaos.ptr()
	if n := d.Notification; n != nil && n.Type.known {
		s.Notice = &model.Notice{ID: n.ID.value, Type: n.Type.value}
	}
	return s, nil
}
