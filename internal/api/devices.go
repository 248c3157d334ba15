package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/constructorfleet/govee-ultimate-sub000/internal/device"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/iot"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/state"
)

// deviceResponse is the wire shape for device listings.
type deviceResponse struct {
	DeviceID      string         `json:"device_id"`
	Model         string         `json:"model"`
	SKU           string         `json:"sku"`
	Name          string         `json:"name"`
	Category      string         `json:"category,omitempty"`
	CategoryGroup string         `json:"category_group,omitempty"`
	States        []string       `json:"states"`
	Commandable   []string       `json:"commandable"`
	Pending       int            `json:"pending"`
	State         map[string]any `json:"state,omitempty"`
}

// commandResponse is the wire shape for tracked commands.
type commandResponse struct {
	CommandID string    `json:"command_id"`
	DeviceID  string    `json:"device_id"`
	State     string    `json:"state"`
	Opcode    string    `json:"opcode,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func commandResponses(commands []iot.PendingCommand) []commandResponse {
	out := make([]commandResponse, 0, len(commands))
	for _, cmd := range commands {
		out = append(out, commandResponse{
			CommandID: cmd.CommandID,
			DeviceID:  cmd.DeviceID,
			State:     cmd.Payload.Name,
			Opcode:    cmd.Payload.Opcode,
			ExpiresAt: cmd.ExpiresAt,
		})
	}
	return out
}

func deviceResponseFrom(d *device.Device, withState bool) deviceResponse {
	meta := d.Metadata()
	resp := deviceResponse{
		DeviceID:      meta.DeviceID,
		Model:         meta.Model,
		SKU:           meta.SKU,
		Name:          meta.Name,
		Category:      meta.Category,
		CategoryGroup: meta.CategoryGroup,
		States:        d.StateNames(),
		Commandable:   d.Commandable(),
		Pending:       d.PendingCount(),
	}
	if withState {
		resp.State = d.Snapshot()
	}
	return resp
}

// handleListDevices returns all registered devices with their current
// state snapshots.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	responses := make([]deviceResponse, 0, s.registry.Count())
	for _, d := range s.registry.List() {
		// Snapshot reads go through the registry lock; the coordinator
		// callbacks mutate these devices concurrently.
		//nolint:errcheck // Device cannot vanish between List and WithDevice without a Remove, which is fine to skip
		s.registry.WithDevice(d.ID(), func(dev *device.Device) error {
			responses = append(responses, deviceResponseFrom(dev, true))
			return nil
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": responses})
}

// handleGetDevice returns one device's metadata and state.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var resp deviceResponse
	err := s.registry.WithDevice(id, func(d *device.Device) error {
		resp = deviceResponseFrom(d, true)
		return nil
	})
	if err != nil {
		writeNotFound(w, "device not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDeleteDevice removes a device from the registry and its cached
// metadata.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.registry.Remove(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found: "+id)
			return
		}
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// handleGetDeviceState returns the device's current state snapshot.
func (s *Server) handleGetDeviceState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var snapshot map[string]any
	var pending int
	err := s.registry.WithDevice(id, func(d *device.Device) error {
		snapshot = d.Snapshot()
		pending = d.PendingCount()
		return nil
	})
	if err != nil {
		writeNotFound(w, "device not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"state":     snapshot,
		"pending":   pending,
	})
}

// setStateRequest is the body for state writes.
type setStateRequest struct {
	Value any `json:"value"`
}

// handleSetDeviceState translates a desired value into transport
// commands and publishes them on the cloud channel.
func (s *Server) handleSetDeviceState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")

	if s.commands == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "command channel not configured")
		return
	}

	var req setStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var (
		commands []state.CommandPayload
		topic    string
	)
	err := s.registry.WithDevice(id, func(d *device.Device) error {
		topic = d.Metadata().IoTTopic()
		var err error
		commands, err = d.SetState(name, req.Value)
		return err
	})
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found: "+id)
		return
	case errors.Is(err, device.ErrStateNotFound):
		writeNotFound(w, "state not found: "+name)
		return
	case errors.Is(err, device.ErrValueRejected):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeRejected, err.Error())
		return
	case err != nil:
		writeInternalError(w, err.Error())
		return
	}

	if topic == "" {
		writeBadRequest(w, "device has no cloud channel")
		return
	}

	published := make([]iot.PendingCommand, 0, len(commands))
	for _, cmd := range commands {
		pending, err := s.commands.Publish(id, topic, cmd)
		if err != nil {
			s.logger.Error("command publish failed", "device_id", id, "state", name, "error", err)
			writeInternalError(w, "command publish failed")
			return
		}
		published = append(published, pending)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"device_id": id,
		"state":     name,
		"commands":  commandResponses(published),
	})
}

// rollbackRequest is the body for rollback, with an optional step count.
type rollbackRequest struct {
	Steps int `json:"steps"`
}

// handleRollbackState rewinds a state through its bounded history and
// publishes the commands that drive the device back.
func (s *Server) handleRollbackState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")

	req := rollbackRequest{Steps: 1}
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}
	if req.Steps < 1 {
		writeBadRequest(w, "steps must be at least 1")
		return
	}

	var snapshot map[string]any
	err := s.registry.WithDevice(id, func(d *device.Device) error {
		if err := d.Rollback(name, req.Steps); err != nil {
			return err
		}
		snapshot = d.Snapshot()
		return nil
	})
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found: "+id)
		return
	case errors.Is(err, device.ErrStateNotFound):
		writeNotFound(w, "state not found: "+name)
		return
	case err != nil:
		writeBadRequest(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"state":     snapshot,
	})
}

// handleRefreshDevice asks the device to publish a fresh status report
// on the cloud channel.
func (s *Server) handleRefreshDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if s.commands == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "command channel not configured")
		return
	}

	var topic string
	err := s.registry.WithDevice(id, func(d *device.Device) error {
		topic = d.Metadata().IoTTopic()
		return nil
	})
	if err != nil {
		writeNotFound(w, "device not found: "+id)
		return
	}
	if topic == "" {
		writeBadRequest(w, "device has no cloud channel")
		return
	}

	if err := s.commands.RequestRefresh(topic); err != nil {
		writeInternalError(w, "refresh request failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"device_id": id})
}

// handleListCommands returns all commands awaiting acknowledgement.
func (s *Server) handleListCommands(w http.ResponseWriter, _ *http.Request) {
	if s.commands == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "command channel not configured")
		return
	}
	pending, err := s.commands.Pending()
	if err != nil {
		writeInternalError(w, "coordinator unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"commands": commandResponses(pending)})
}

// handleExpireCommands forces an expiry sweep and returns what it removed.
func (s *Server) handleExpireCommands(w http.ResponseWriter, _ *http.Request) {
	if s.commands == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "command channel not configured")
		return
	}
	expired, err := s.commands.ExpireCommands()
	if err != nil {
		writeInternalError(w, "coordinator unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expired": commandResponses(expired)})
}
