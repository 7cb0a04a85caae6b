package notify

import (
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetlink/internal/console/core/model"
	"github.com/autopeer-io/fleetlink/internal/pkg/metrics"
	"github.com/autopeer-io/fleetlink/internal/pkg/schedule"
	"github.com/autopeer-io/fleetlink/pkg/log"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 2 * time.Second

// Manager holds the single live operator notification and the per-vehicle
// dedup record. A newer notification overwrites the current one.
type Manager struct {
	mu sync.Mutex

	clock clock.WithDelayedExecution
	ttl   time.Duration
	log   log.Logger

	current *model.Notification
	lastIDs map[string]string
	expiry  *schedule.Deferred
}

// New returns a Manager that expires notifications after ttl.
func New(clk clock.WithDelayedExecution, ttl time.Duration, logger log.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	m := &Manager{
		clock:   clk,
		ttl:     ttl,
		log:     logger,
		lastIDs: make(map[string]string),
	}
	m.expiry = schedule.NewDeferred(clk, &m.mu)
	return m
}

// Scan raises a notification if v carries a "reached" event that has not
// been seen for this vehicle yet. Events without an id are ignored.
func (m *Manager) Scan(v *model.Vehicle) bool {
	if v == nil || v.Notice == nil {
		return false
	}
	n := v.Notice
	if n.Type != model.NoticeReached || n.ID == "" {
		return false
	}
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastIDs[v.ID] == n.ID {
		return false
	}
	m.lastIDs[v.ID] = n.ID

	if m.current != nil {
		m.log.Debug("Notification superseded", "previous", m.current.ID, "vehicleID", v.ID)
	}
	m.current = &model.Notification{
		ID:        n.ID,
		VehicleID: v.ID,
		Message:   model.ReachedMessage(v.ID),
		CreatedAt: now,
	}
	m.expiry.Schedule(m.ttl, func() {
		m.current = nil
	})

	metrics.NotificationsTotal.Inc()
	m.log.Info("Vehicle reached destination", "vehicleID", v.ID, "notificationID", n.ID)
	return true
}

// Current returns the live notification, if any.
func (m *Manager) Current() (model.Notification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return model.Notification{}, false
	}
	return *m.current, true
}

// LastID returns the last notification id recorded for a vehicle.
func (m *Manager) LastID(vehicleID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastIDs[vehicleID]
}

// Dismiss clears the live notification before its TTL.
func (m *Manager) Dismiss() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expiry.Cancel()
	if m.current == nil {
		return false
	}
	m.current = nil
	return true
}

// Close cancels the pending expiry. The live notification, if any, stays.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expiry.Cancel()
}
