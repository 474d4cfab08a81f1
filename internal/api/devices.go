package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edmondoalex/buspro-core/internal/bridges/buspro"
	"github.com/edmondoalex/buspro-core/internal/device"
)

// pathAddress parses the {addr} URL segment ("subnet.device.channel").
func pathAddress(r *http.Request) (buspro.ChannelAddress, error) {
	return buspro.ParseChannelAddress(chi.URLParam(r, "addr"))
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// handleListDevices returns all typed device records plus cover groups.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"devices":      s.core.Registry().Snapshot(),
		"cover_groups": s.core.Registry().CoverGroups(),
	})
}

// handleDedupe keeps the latest definition per address and resyncs surfaces.
func (s *Server) handleDedupe(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"counts": s.core.Dedupe()})
}

// --- Lights ---

func (s *Server) handleAddLight(w http.ResponseWriter, r *http.Request) {
	var l device.Light
	if err := decodeBody(r, &l); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}
	if err := s.core.AddLight(l); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handlePatchLight(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}

	current, err := s.core.Registry().GetLight(addr)
	if err != nil {
		writeError(w, err)
		return
	}

	// Patch semantics: decode over the current record.
	updated := current
	if err := decodeBody(r, &updated); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}

	if err := s.core.UpdateLight(addr, updated); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteLight(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.core.DeleteLight(addr); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": addr.String()})
}

// lightCommandBody is the POST /lights/{addr}/command payload.
type lightCommandBody struct {
	State      string `json:"state"`
	Brightness *int   `json:"brightness,omitempty"`
}

func (s *Server) handleLightCommand(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body lightCommandBody
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}

	on := body.State == "ON" || body.State == "on"
	if err := s.core.CommandLight(addr, on, body.Brightness); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// --- Covers ---

func (s *Server) handleAddCover(w http.ResponseWriter, r *http.Request) {
	var c device.Cover
	if err := decodeBody(r, &c); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}
	if err := s.core.AddCover(c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handlePatchCover(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}

	current, err := s.core.Registry().GetCover(addr)
	if err != nil {
		writeError(w, err)
		return
	}

	updated := current
	if err := decodeBody(r, &updated); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}

	if err := s.core.UpdateCover(addr, updated); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCover(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.core.DeleteCover(addr); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": addr.String()})
}

// coverCommandBody is the POST /covers/{addr}/command payload.
// Either action (OPEN/CLOSE/STOP, optionally raw) or position is given.
type coverCommandBody struct {
	Action   string `json:"action,omitempty"`
	Raw      bool   `json:"raw,omitempty"`
	Position *int   `json:"position,omitempty"`
}

func (s *Server) handleCoverCommand(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body coverCommandBody
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}

	switch {
	case body.Position != nil:
		err = s.core.CommandCoverPosition(addr, *body.Position)
	case body.Raw:
		err = s.core.CommandCoverRaw(addr, body.Action)
	case body.Action != "":
		err = s.core.CommandCover(addr, body.Action)
	default:
		writeBadRequest(w, "action or position is required")
		return
	}

	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// calibrateBody is the POST /covers/{addr}/calibrate payload.
type calibrateBody struct {
	Direction string `json:"direction"` // "up" or "down"
	Start     bool   `json:"start"`
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body calibrateBody
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}

	elapsed, err := s.core.Calibrate(addr, body.Direction, body.Start)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{"status": "running"}
	if !body.Start {
		resp = map[string]any{"status": "saved", "elapsed_s": elapsed}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Sensors ---

// pathSensorKind parses the {kind} URL segment.
func pathSensorKind(r *http.Request) (device.Kind, bool) {
	switch chi.URLParam(r, "kind") {
	case "temp":
		return device.KindTemperature, true
	case "humidity":
		return device.KindHumidity, true
	case "illuminance":
		return device.KindIlluminance, true
	}
	return "", false
}

func (s *Server) handleAddSensor(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathSensorKind(r)
	if !ok {
		writeBadRequest(w, "unknown sensor kind")
		return
	}

	var sn device.Sensor
	if err := decodeBody(r, &sn); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}
	sn.Kind = kind

	if err := s.core.AddSensor(sn); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sn)
}

func (s *Server) handlePatchSensor(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathSensorKind(r)
	if !ok {
		writeBadRequest(w, "unknown sensor kind")
		return
	}
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}

	current, err := s.core.Registry().GetSensor(kind, addr)
	if err != nil {
		writeError(w, err)
		return
	}

	updated := current
	if err := decodeBody(r, &updated); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}
	updated.Kind = kind

	if err := s.core.UpdateSensor(addr, updated); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSensor(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathSensorKind(r)
	if !ok {
		writeBadRequest(w, "unknown sensor kind")
		return
	}
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.core.DeleteSensor(kind, addr); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": addr.String()})
}

// --- Dry contacts ---

func (s *Server) handleAddDryContact(w http.ResponseWriter, r *http.Request) {
	var d device.DryContact
	if err := decodeBody(r, &d); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}
	if err := s.core.AddDryContact(d); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handlePatchDryContact(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}

	current, err := s.core.Registry().GetDryContact(addr)
	if err != nil {
		writeError(w, err)
		return
	}

	updated := current
	if err := decodeBody(r, &updated); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}

	if err := s.core.UpdateDryContact(addr, updated); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteDryContact(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.core.DeleteDryContact(addr); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": addr.String()})
}
