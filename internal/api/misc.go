package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/edmondoalex/buspro-core/internal/bridges/buspro"
	"github.com/edmondoalex/buspro-core/internal/store"
)

// --- Sniffer ---

// handleSnifferStart enables telegram capture with an optional filter.
func (s *Server) handleSnifferStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Filter buspro.SnifferFilter `json:"filter"`
		Clear  bool                 `json:"clear"`
	}
	if r.ContentLength > 0 {
		if err := decodeBody(r, &body); err != nil {
			writeBadRequest(w, "invalid body: "+err.Error())
			return
		}
	}

	s.core.Gateway().Sniffer().Start(body.Filter, body.Clear)
	writeJSON(w, http.StatusOK, s.core.Gateway().Sniffer().Status())
}

// handleSnifferStop disables capture (unknown opcodes keep recording).
func (s *Server) handleSnifferStop(w http.ResponseWriter, _ *http.Request) {
	s.core.Gateway().Sniffer().Stop()
	writeJSON(w, http.StatusOK, s.core.Gateway().Sniffer().Status())
}

// handleSnifferStatus reports the capture state.
func (s *Server) handleSnifferStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.core.Gateway().Sniffer().Status())
}

// handleSnifferRecent returns the most recent captured telegrams.
func (s *Server) handleSnifferRecent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": s.core.Gateway().Sniffer().Recent(limit),
	})
}

// --- History ---

// handleHistory returns recent state changes for one device.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	repo := s.core.History()
	if repo == nil {
		writeJSON(w, http.StatusOK, map[string]any{"entries": []any{}})
		return
	}

	kind := chi.URLParam(r, "kind")
	addr := chi.URLParam(r, "addr")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	entries, err := repo.Get(r.Context(), kind, addr, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// --- Backup / restore ---

// handleBackup exports the full store document.
func (s *Server) handleBackup(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.core.Store().Export())
}

// handleRestore replaces the store document and reloads devices.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var doc store.Document
	if err := decodeBody(r, &doc); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}

	s.core.Store().Import(doc)
	s.core.Registry().Load(doc.Devices, doc.UI.CoverGroups)
	s.core.ReloadEngines()

	if err := s.core.FlushStore(); err != nil {
		writeError(w, err)
		return
	}
	s.core.PublishAllDiscovery()

	s.hub.Broadcast("devices", s.core.Registry().Snapshot())
	s.hub.Broadcast("cover_groups", s.core.Registry().CoverGroups())

	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

// --- UI config ---

// handleGetUI returns the persisted UI configuration.
func (s *Server) handleGetUI(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.core.Store().UI())
}

// handleSetUI replaces the persisted UI configuration.
// Cover groups are owned by the registry, so the incoming value keeps the
// registry's copy.
func (s *Server) handleSetUI(w http.ResponseWriter, r *http.Request) {
	var ui store.UIConfig
	if err := decodeBody(r, &ui); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}

	ui.CoverGroups = s.core.Registry().CoverGroups()
	s.core.Store().SetUI(ui)
	if err := s.core.FlushStore(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ui)
}
