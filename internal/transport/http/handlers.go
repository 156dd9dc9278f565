package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"caixamisteriosa/internal/app"
	"caixamisteriosa/internal/domain"
	"caixamisteriosa/internal/transport/ws"
)

// qrSize is the edge of the join QR code in pixels
const qrSize = 320

// Response is a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateGameResponse is the response for game creation
type CreateGameResponse struct {
	RoomCode string `json:"roomCode"`
	JoinLink string `json:"joinLink"`
	QRCode   string `json:"qrCode"`
}

// GetGameResponse is the response for getting game info
type GetGameResponse struct {
	RoomCode        string        `json:"roomCode"`
	RoundID         string        `json:"roundId,omitempty"`
	Status          domain.Status `json:"status"`
	ClientCount     int           `json:"clientCount"`
	SubmissionCount int           `json:"submissionCount"`
	DrawPending     bool          `json:"drawPending"`
}

// GameExistsResponse is the response for checking if a game exists
type GameExistsResponse struct {
	Exists bool `json:"exists"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the response for stats endpoint
type StatsResponse struct {
	ActiveGames      int `json:"activeGames"`
	ConnectedClients int `json:"connectedClients"`
}

// handleCreateGame handles POST /api/games
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	session, err := s.hub.CreateGame(r.Context())
	if err != nil {
		s.logger.Error("failed to create game", "error", err)
		s.sendError(w, http.StatusInternalServerError, "CREATION_FAILED", "Failed to create game")
		return
	}

	code := session.GetRoomCode()
	s.sendSuccess(w, &CreateGameResponse{
		RoomCode: code,
		JoinLink: s.joinLink(r, code),
		QRCode:   "/api/games/" + code + "/qr",
	})
}

// handleGetGame handles GET /api/games/:code
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session, ok := s.joinSession(w, r, ps)
	if !ok {
		return
	}

	resp := &GetGameResponse{
		RoomCode:    session.GetRoomCode(),
		Status:      domain.StatusPending,
		ClientCount: session.GetClientCount(),
		DrawPending: session.DrawPending(),
	}
	if round := session.Snapshot(); round != nil {
		resp.RoundID = round.ID
		resp.Status = round.Status
		resp.SubmissionCount = len(round.Submissions)
	}

	s.sendSuccess(w, resp)
}

// handleGameExists handles GET /api/games/:code/exists
func (s *Server) handleGameExists(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	exists, err := s.hub.RoomExists(r.Context(), ps.ByName("code"))
	if err != nil {
		s.sendDomainError(w, err)
		return
	}

	s.sendSuccess(w, &GameExistsResponse{
		Exists: exists,
	})
}

// handleGameView handles GET /api/games/:code/view?role=&clientId=
func (s *Server) handleGameView(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	role, err := domain.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		s.sendError(w, http.StatusBadRequest, ws.ErrCodeInvalidMessage, "Invalid role")
		return
	}
	if role.IsOperator() && !s.ws.OperatorKeyValid(r.Header.Get("X-Operator-Key")) {
		s.sendError(w, http.StatusForbidden, ws.ErrCodeNotOperator, "Operator key required")
		return
	}

	session, ok := s.joinSession(w, r, ps)
	if !ok {
		return
	}

	s.sendSuccess(w, session.View(r.Context(), r.URL.Query().Get("clientId"), role))
}

// handleGameQR handles GET /api/games/:code/qr, a PNG of the participant join link
func (s *Server) handleGameQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := app.NormalizeRoomCode(ps.ByName("code"))
	exists, err := s.hub.RoomExists(r.Context(), code)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	if !exists {
		s.sendError(w, http.StatusNotFound, ws.ErrCodeGameNotFound, "Game not found")
		return
	}

	png, err := qrcode.Encode(s.joinLink(r, code), qrcode.Medium, qrSize)
	if err != nil {
		s.logger.Error("qr generation failed", "roomCode", code, "error", err)
		s.sendError(w, http.StatusInternalServerError, ws.ErrCodeInternalError, "QR generation failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(png)
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.sendSuccess(w, &HealthResponse{
		Status: "ok",
	})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.sendSuccess(w, &StatsResponse{
		ActiveGames:      s.hub.GetSessionCount(),
		ConnectedClients: s.hub.GetTotalClientCount(),
	})
}

// handleStatic serves static files
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	name := path.Clean("static/" + strings.TrimPrefix(ps.ByName("filepath"), "/"))
	if !strings.HasPrefix(name, "static/") {
		http.NotFound(w, r)
		return
	}

	// Try to open from webFS
	file, err := s.webFS.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer file.Close()

	// Get file info for content type and modification time
	stat, err := file.Stat()
	if err != nil || stat.IsDir() {
		http.NotFound(w, r)
		return
	}

	content, ok := file.(io.ReadSeeker)
	if !ok {
		http.NotFound(w, r)
		return
	}

	// Serve the file
	http.ServeContent(w, r, stat.Name(), stat.ModTime(), content)
}

// handleSPA serves the single-page application
func (s *Server) handleSPA(w http.ResponseWriter, r *http.Request) {
	// Unknown API routes stay JSON
	if strings.HasPrefix(r.URL.Path, "/api/") {
		s.sendError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
		return
	}

	file, err := s.webFS.Open("index.html")
	if err != nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	content, ok := file.(io.ReadSeeker)
	if !ok {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, "index.html", stat.ModTime(), content)
}

// joinSession resolves the :code parameter, writing the error response on failure
func (s *Server) joinSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (*app.GameSession, bool) {
	code := ps.ByName("code")
	if code == "" {
		s.sendError(w, http.StatusBadRequest, "MISSING_ROOM_CODE", "Room code is required")
		return nil, false
	}

	session, err := s.hub.JoinSession(r.Context(), code)
	if err != nil {
		s.sendDomainError(w, err)
		return nil, false
	}
	return session, true
}

// joinLink builds the participant URL of a room
func (s *Server) joinLink(r *http.Request, code string) string {
	base := s.config.Server.PublicURL
	if base == "" {
		// Derive scheme (respecting TLS and X-Forwarded-Proto if present)
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/join/" + code
}

// decodeBody reads a JSON request body into v
func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(v)
}

// sendSuccess sends a successful JSON response
func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	s.sendJSON(w, http.StatusOK, &Response{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	s.sendJSON(w, status, &Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}

// sendDomainError maps a game or catalog error to a response
func (s *Server) sendDomainError(w http.ResponseWriter, err error) {
	code, message := ws.ErrorCode(err)

	status := http.StatusBadRequest
	switch {
	case errors.Is(err, domain.ErrGameNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrSponsorNotFound):
		status = http.StatusNotFound
	case code == ws.ErrCodeInternalError:
		status = http.StatusInternalServerError
		s.logger.Error("request failed", "error", err)
	}

	s.sendError(w, status, code, message)
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}
