package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"caixamisteriosa/internal/domain"
	"caixamisteriosa/internal/transport/ws"
)

// handleGetProfile handles GET /api/profiles/:role/:clientId
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	role, clientID, ok := s.profileParams(w, ps)
	if !ok {
		return
	}

	profile, found := s.profiles.Load(r.Context(), role, clientID)
	if !found {
		s.sendError(w, http.StatusNotFound, "PROFILE_NOT_FOUND", "No saved profile")
		return
	}
	s.sendSuccess(w, profile)
}

// handleSaveProfile handles PUT /api/profiles/:role/:clientId
func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	role, clientID, ok := s.profileParams(w, ps)
	if !ok {
		return
	}

	var profile domain.Participant
	if err := decodeBody(r, &profile); err != nil {
		s.sendError(w, http.StatusBadRequest, ws.ErrCodeInvalidMessage, "Invalid request body")
		return
	}

	if err := s.profiles.Save(r.Context(), role, clientID, profile); err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendSuccess(w, profile.Normalize())
}

func (s *Server) profileParams(w http.ResponseWriter, ps httprouter.Params) (domain.Role, string, bool) {
	role, err := domain.ParseRole(ps.ByName("role"))
	if err != nil {
		s.sendError(w, http.StatusBadRequest, ws.ErrCodeInvalidMessage, "Invalid role")
		return "", "", false
	}

	clientID := ps.ByName("clientId")
	if _, err := uuid.Parse(clientID); err != nil {
		s.sendError(w, http.StatusBadRequest, ws.ErrCodeInvalidMessage, "Invalid client ID")
		return "", "", false
	}
	return role, clientID, true
}
