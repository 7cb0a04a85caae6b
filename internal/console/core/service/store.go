package service

import (
	"fmt"
	"time"

	"github.com/autopeer-io/fleetlink/internal/console/core"
	"github.com/autopeer-io/fleetlink/internal/console/core/model"
)

const (
	// MaxClockSkew bounds how far ahead of arrival a vehicle timestamp may
	// be. Timestamps further ahead are ignored and the report is ordered by
	// arrival.
	MaxClockSkew = 30 * time.Second

	// ReorderWindow is how far behind the last vehicle timestamp a report may
	// fall and still count as reordered. A larger step back is a vehicle
	// clock reset and re-baselines the vehicle.
	ReorderWindow = time.Minute
)

// vehicleStore keeps vehicles in first-seen order. Vehicles are never removed
// while the session lives.
type vehicleStore struct {
	byID  map[string]*model.Vehicle
	order []string
	// reported holds the last trusted vehicle timestamp per vehicle. It is
	// only compared against other vehicle timestamps, never against arrival.
	reported map[string]time.Time
}

func newVehicleStore() *vehicleStore {
	return &vehicleStore{
		byID:     make(map[string]*model.Vehicle),
		reported: make(map[string]time.Time),
	}
}

// apply merges snap into the store. Reports are ordered by arrival. A vehicle
// timestamp only rejects a report that is behind the previous vehicle
// timestamp by at most ReorderWindow. Reports without a trusted timestamp are
// always accepted and stamped with arrival.
func (s *vehicleStore) apply(snap *model.Snapshot, arrival time.Time) (*model.Vehicle, error) {
	stamp := arrival
	trusted := !snap.Stamp.IsZero() && !snap.Stamp.After(arrival.Add(MaxClockSkew))
	if trusted {
		if last, ok := s.reported[snap.VehicleID]; ok && snap.Stamp.Before(last) && last.Sub(snap.Stamp) <= ReorderWindow {
			return s.byID[snap.VehicleID], fmt.Errorf("vehicle %s: snapshot at %s is older than %s: %w",
				snap.VehicleID, snap.Stamp.Format(time.RFC3339Nano), last.Format(time.RFC3339Nano), core.ErrStaleTelemetry)
		}
		s.reported[snap.VehicleID] = snap.Stamp
		stamp = snap.Stamp
	}

	v, ok := s.byID[snap.VehicleID]
	if !ok {
		v = &model.Vehicle{ID: snap.VehicleID, Seq: uint64(len(s.order))}
		s.byID[snap.VehicleID] = v
		s.order = append(s.order, snap.VehicleID)
	}
	v.Apply(snap, stamp)
	return v, nil
}

func (s *vehicleStore) get(id string) (*model.Vehicle, bool) {
	v, ok := s.byID[id]
	return v, ok
}

func (s *vehicleStore) ids() []string {
	return s.order
}

// list returns deep copies in first-seen order.
func (s *vehicleStore) list() []model.Vehicle {
	out := make([]model.Vehicle, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id].DeepCopy())
	}
	return out
}
