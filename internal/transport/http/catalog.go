package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"caixamisteriosa/internal/app"
	"caixamisteriosa/internal/catalog"
	"caixamisteriosa/internal/domain"
	"caixamisteriosa/internal/transport/ws"
)

// Catalog is the sponsor/product store behind the operator setup screen
type Catalog interface {
	CreateSponsor(ctx context.Context, name string) (*catalog.Sponsor, error)
	ListSponsors(ctx context.Context) ([]catalog.Sponsor, error)
	GetSponsor(ctx context.Context, id string) (*catalog.Sponsor, error)
	AddProduct(ctx context.Context, sponsorID, name string, clues []string) (*catalog.Product, error)
	UpdateClues(ctx context.Context, productID string, clues []string) (*catalog.Product, error)
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
	LastFinishedGame(ctx context.Context, room string) (*catalog.FinishedGame, error)
}

// CreateSponsorRequest is the body of POST /api/sponsors
type CreateSponsorRequest struct {
	Name string `json:"name"`
}

// AddProductRequest is the body of POST /api/sponsors/:id/products
type AddProductRequest struct {
	Name  string   `json:"name"`
	Clues []string `json:"clues"`
}

// UpdateCluesRequest is the body of PUT /api/products/:id/clues
type UpdateCluesRequest struct {
	Clues []string `json:"clues"`
}

// GeneratedCluesResponse carries clues suggested for a product
type GeneratedCluesResponse struct {
	ProductID string   `json:"productId"`
	Clues     []string `json:"clues"`
}

// handleListSponsors handles GET /api/sponsors
func (s *Server) handleListSponsors(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sponsors, err := s.catalog.ListSponsors(r.Context())
	if err != nil {
		s.sendCatalogError(w, err)
		return
	}
	s.sendSuccess(w, sponsors)
}

// handleCreateSponsor handles POST /api/sponsors
func (s *Server) handleCreateSponsor(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req CreateSponsorRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, ws.ErrCodeInvalidMessage, "Invalid request body")
		return
	}

	sponsor, err := s.catalog.CreateSponsor(r.Context(), req.Name)
	if err != nil {
		s.sendCatalogError(w, err)
		return
	}

	s.logger.Info("sponsor created", "sponsorId", sponsor.ID, "name", sponsor.Name)
	s.sendSuccess(w, sponsor)
}

// handleGetSponsor handles GET /api/sponsors/:id
func (s *Server) handleGetSponsor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sponsor, err := s.catalog.GetSponsor(r.Context(), ps.ByName("id"))
	if err != nil {
		s.sendCatalogError(w, err)
		return
	}
	s.sendSuccess(w, sponsor)
}

// handleAddProduct handles POST /api/sponsors/:id/products
func (s *Server) handleAddProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req AddProductRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, ws.ErrCodeInvalidMessage, "Invalid request body")
		return
	}

	product, err := s.catalog.AddProduct(r.Context(), ps.ByName("id"), req.Name, req.Clues)
	if err != nil {
		s.sendCatalogError(w, err)
		return
	}

	s.logger.Info("product added", "sponsorId", product.SponsorID, "productId", product.ID, "ready", product.Ready())
	s.sendSuccess(w, product)
}

// handleGetProduct handles GET /api/products/:id
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	product, err := s.catalog.GetProduct(r.Context(), ps.ByName("id"))
	if err != nil {
		s.sendCatalogError(w, err)
		return
	}
	s.sendSuccess(w, product)
}

// handleUpdateClues handles PUT /api/products/:id/clues
func (s *Server) handleUpdateClues(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req UpdateCluesRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, ws.ErrCodeInvalidMessage, "Invalid request body")
		return
	}

	product, err := s.catalog.UpdateClues(r.Context(), ps.ByName("id"), req.Clues)
	if err != nil {
		s.sendCatalogError(w, err)
		return
	}
	s.sendSuccess(w, product)
}

// handleGenerateClues handles POST /api/products/:id/clues/generate.
// The suggestion is returned for review and not saved.
func (s *Server) handleGenerateClues(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	product, err := s.catalog.GetProduct(r.Context(), ps.ByName("id"))
	if err != nil {
		s.sendCatalogError(w, err)
		return
	}

	generated := s.clues.Generate(r.Context(), product.Name)
	if len(generated) != domain.ClueCount {
		s.sendError(w, http.StatusBadGateway, "CLUE_GENERATION_FAILED", "Could not generate clues, please write them by hand")
		return
	}

	s.sendSuccess(w, &GeneratedCluesResponse{
		ProductID: product.ID,
		Clues:     generated,
	})
}

// handleLastFinished handles GET /api/history/last-finished?room=
func (s *Server) handleLastFinished(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	room := r.URL.Query().Get("room")
	if room != "" {
		room = app.NormalizeRoomCode(room)
	}

	game, err := s.catalog.LastFinishedGame(r.Context(), room)
	if err != nil {
		s.sendCatalogError(w, err)
		return
	}
	s.sendSuccess(w, game)
}

// sendCatalogError maps catalog errors to responses
func (s *Server) sendCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrEmptyName):
		s.sendError(w, http.StatusBadRequest, ws.ErrCodeInvalidMessage, "Name is required")
	case errors.Is(err, catalog.ErrNoFinishedGames):
		s.sendError(w, http.StatusNotFound, "NO_FINISHED_GAME", "No game has finished yet")
	default:
		s.sendDomainError(w, err)
	}
}
