package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edmondoalex/buspro-core/internal/device"
)

// handleListCoverGroups returns all cover groups.
func (s *Server) handleListCoverGroups(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.core.Registry().CoverGroups())
}

// handleUpsertCoverGroup creates or updates a cover group.
// POST creates (new UUID); PUT /{id} updates while keeping the stable ID.
func (s *Server) handleUpsertCoverGroup(w http.ResponseWriter, r *http.Request) {
	var g device.CoverGroup
	if err := decodeBody(r, &g); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}

	if id := chi.URLParam(r, "id"); id != "" {
		g.ID = id
	}

	saved, err := s.core.UpsertCoverGroup(g)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// handleDeleteCoverGroup removes a cover group.
func (s *Server) handleDeleteCoverGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.core.DeleteCoverGroup(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// groupCommandBody is the POST /cover_groups/{id}/command payload.
type groupCommandBody struct {
	Action   string `json:"action,omitempty"`
	Position *int   `json:"position,omitempty"`
}

// handleCoverGroupCommand fans a command out to all group members.
func (s *Server) handleCoverGroupCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body groupCommandBody
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}

	var err error
	switch {
	case body.Position != nil:
		err = s.core.CommandCoverGroupPosition(id, *body.Position)
	case body.Action != "":
		err = s.core.CommandCoverGroup(id, body.Action)
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
