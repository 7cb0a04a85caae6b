package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/fleetlink/internal/console/core"
	"github.com/autopeer-io/fleetlink/internal/console/core/model"
	"github.com/autopeer-io/fleetlink/internal/console/core/service"
	"github.com/autopeer-io/fleetlink/pkg/log"
)

type handler struct {
	sessions *service.Registry
}

// VehicleView is a vehicle row as served to operators.
type VehicleView struct {
	model.Vehicle
	Color    string `json:"color"`
	Selected bool   `json:"selected"`
}

type positionRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type valueRequest struct {
	Value *float64 `json:"value"`
}

type selectRequest struct {
	VehicleID string `json:"vehicleId"`
}

type resultResponse struct {
	Sent bool `json:"sent"`
}

// Color derives a stable display color from a vehicle id.
func Color(vehicleID string) string {
	h := fnv.New32a()
	h.Write([]byte(vehicleID))
	return fmt.Sprintf("#%06x", h.Sum32()&0xffffff)
}

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": h.sessions.IDs()})
}

func (h *handler) openSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Open()
	writeJSON(w, http.StatusCreated, map[string]string{"id": s.ID()})
}

func (h *handler) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(mux.Vars(r)["sid"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) overview(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Overview())
}

func (h *handler) vehicles(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	selected := s.Selected()
	vs := s.Vehicles()
	out := make([]VehicleView, 0, len(vs))
	for _, v := range vs {
		out = append(out, VehicleView{Vehicle: v, Color: Color(v.ID), Selected: v.ID == selected})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) trail(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Trail(mux.Vars(r)["vid"]))
}

func (h *handler) trails(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Trails())
}

func (h *handler) position(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	// "-" stands for the selected vehicle.
	vid := mux.Vars(r)["vid"]
	if vid == "-" {
		vid = ""
	}
	pos, found := s.Position(vid)
	if !found {
		http.Error(w, "position unknown", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

func (h *handler) selectVehicle(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VehicleID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.Select(r.Context(), req.VehicleID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Overview())
}

func (h *handler) setRudder(w http.ResponseWriter, r *http.Request) {
	h.setControl(w, r, (*service.Session).SetRudder)
}

func (h *handler) setThrottle(w http.ResponseWriter, r *http.Request) {
	h.setControl(w, r, (*service.Session).SetThrottle)
}

func (h *handler) setControl(w http.ResponseWriter, r *http.Request, set func(*service.Session, context.Context, float64) (float64, error)) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req valueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	v, err := set(s, r.Context(), *req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"value": v})
}

func (h *handler) release(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	ended, err := s.ReleaseManual(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"released": ended})
}

func (h *handler) route(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	pos, ok := decodePosition(w, r)
	if !ok {
		return
	}
	sent, err := s.SendRoute(r.Context(), pos)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{Sent: sent})
}

func (h *handler) pick(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	pos, ok := decodePosition(w, r)
	if !ok {
		return
	}
	picked, err := s.Pick(pos)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, picked)
}

func (h *handler) sendPicked(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	sent, err := s.SendPicked(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{Sent: sent})
}

func (h *handler) queuePicked(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.QueuePicked(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Overview())
}

func (h *handler) enqueue(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	pos, ok := decodePosition(w, r)
	if !ok {
		return
	}
	if err := s.Enqueue(pos); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.Overview())
}

func (h *handler) removeWaypoint(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	i, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		http.Error(w, "Invalid waypoint index", http.StatusBadRequest)
		return
	}
	s.RemoveWaypoint(i)
	writeJSON(w, http.StatusOK, s.Overview())
}

func (h *handler) clearMission(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.ClearMission()
	writeJSON(w, http.StatusOK, s.Overview())
}

func (h *handler) skip(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Skip(r.Context())
	writeJSON(w, http.StatusOK, s.Overview())
}

func (h *handler) toggle(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if _, err := s.ToggleMission(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Overview())
}

func (h *handler) dismiss(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.DismissNotification()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	s, err := h.sessions.Get(mux.Vars(r)["sid"])
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return s, true
}

func decodePosition(w http.ResponseWriter, r *http.Request) (model.Position, bool) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Lat == nil || req.Lng == nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return model.Position{}, false
	}
	return model.Position{Lat: *req.Lat, Lng: *req.Lng}, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(err, "Failed to write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrNoVehicleSelected),
		errors.Is(err, core.ErrNoPickedPosition),
		errors.Is(err, core.ErrInvalidTransition),
		errors.Is(err, core.ErrSessionClosed):
		status = http.StatusConflict
	case errors.Is(err, core.ErrInvalidPosition):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
