package app

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"caixamisteriosa/internal/domain"
	"caixamisteriosa/internal/ledger"
	"caixamisteriosa/internal/presentation"
	"caixamisteriosa/internal/store"
)

const (
	// storeTimeout bounds store calls made outside of a client request
	storeTimeout = 5 * time.Second

	// remoteDrawGrace is how long past its animation a draw announced by another
	// producer keeps blocking new draws here
	remoteDrawGrace = 5 * time.Second
)

// ClientConnection represents a connected client
type ClientConnection interface {
	Send(message interface{}) error
	GetClientID() string
	GetRole() domain.Role
	Close() error
}

// Catalog is what a session needs from the sponsor/product catalog
type Catalog interface {
	Giveaway(ctx context.Context, productID string) (domain.Giveaway, error)
	RecordFinishedGame(ctx context.Context, room string, round *domain.Round) error
}

// pendingDraw is a draw whose roulette is still spinning
type pendingDraw struct {
	draw  *domain.Draw
	timer *time.Timer
}

// remoteDraw is a draw another producer announced and has not finished yet
type remoteDraw struct {
	roundID string
	until   time.Time
}

// GameSession owns the live round of one room on this server
type GameSession struct {
	room      string
	store     *store.GameStateStore
	ledger    *ledger.Ledger
	profiles  *store.ProfileStore
	catalog   Catalog
	settings  domain.DrawSettings
	logger    *slog.Logger
	createdAt time.Time

	mu           sync.Mutex
	round        *domain.Round
	pending      *pendingDraw
	remote       *remoteDraw
	rnd          domain.Random
	lastActivity time.Time

	clients   map[string]ClientConnection // clientID -> client
	clientsMu sync.RWMutex

	unsubscribe store.Unsubscribe

	// Event channel for broadcasting
	events chan *domain.GameEvent
	done   chan struct{}
}

// NewGameSession creates the session of a room, resuming the persisted round if there is one
func NewGameSession(ctx context.Context, room string, opts Options, logger *slog.Logger) (*GameSession, error) {
	logger = logger.With("room", room)
	now := time.Now()

	session := &GameSession{
		room:         room,
		store:        store.NewGameStateStore(opts.Backend, room, logger),
		ledger:       ledger.New(opts.Backend, room).WithFlagTTL(opts.SubmissionTTL),
		profiles:     opts.Profiles,
		catalog:      opts.Catalog,
		settings:     opts.DrawSettings,
		logger:       logger,
		createdAt:    now,
		rnd:          opts.newRandom(),
		lastActivity: now,
		clients:      make(map[string]ClientConnection),
		events:       make(chan *domain.GameEvent, 100),
		done:         make(chan struct{}),
	}

	unsubscribe, err := session.store.Subscribe(ctx, session.handleNotification)
	if err != nil {
		return nil, err
	}
	session.unsubscribe = unsubscribe

	// Subscribe first so nothing written in between is missed
	resumed := session.store.Read(ctx)
	session.mu.Lock()
	if session.round == nil {
		session.round = resumed
	}
	session.mu.Unlock()
	if resumed != nil {
		logger.Info("resumed live round", "roundId", resumed.ID, "status", resumed.Status)
	}

	// Start event broadcaster
	go session.eventLoop()

	return session, nil
}

// GetRoomCode returns the room code
func (s *GameSession) GetRoomCode() string {
	return s.room
}

// GetCreatedAt returns when the session was created on this server
func (s *GameSession) GetCreatedAt() time.Time {
	return s.createdAt
}

// GetLastActivity returns when the round last changed
func (s *GameSession) GetLastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// GetStatus returns the status of the live round
func (s *GameSession) GetStatus() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.StatusOf(s.round)
}

// Snapshot returns a copy of the live round, nil when there is none
func (s *GameSession) Snapshot() *domain.Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round.Clone()
}

// DrawPending reports whether a roulette is spinning, here or on another producer
func (s *GameSession) DrawPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawInFlightLocked(time.Now())
}

// View renders the live round for one client
func (s *GameSession) View(ctx context.Context, clientID string, role domain.Role) presentation.View {
	round := s.Snapshot()
	return presentation.Render(round, role, s.hasSubmitted(ctx, round, clientID, role))
}

// HasSubmitted reports whether a client has a guess in the live round
func (s *GameSession) HasSubmitted(ctx context.Context, clientID string) bool {
	return s.hasSubmitted(ctx, s.Snapshot(), clientID, domain.RoleParticipant)
}

// GetClientCount returns the number of connected clients
func (s *GameSession) GetClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// RegisterClient registers a client connection and sends it the current state.
// A client reconnecting with the same ID replaces its previous connection.
func (s *GameSession) RegisterClient(client ClientConnection) {
	clientID := client.GetClientID()

	s.clientsMu.Lock()
	previous, replaced := s.clients[clientID]
	s.clients[clientID] = client
	s.clientsMu.Unlock()

	if replaced && previous != client {
		previous.Close()
	}

	s.queueEvent(domain.NewClientEvent(domain.EventStateSynced, s.room, clientID, s.Snapshot()))
}

// UnregisterClient removes a client connection if it is still the registered one
func (s *GameSession) UnregisterClient(client ClientConnection) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if current, ok := s.clients[client.GetClientID()]; ok && current == client {
		delete(s.clients, client.GetClientID())
	}
}

// GetClient returns the connection of a client
func (s *GameSession) GetClient(clientID string) (ClientConnection, bool) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	client, ok := s.clients[clientID]
	return client, ok
}

// StartRound opens a new round for a product, superseding the current one (operator only)
func (s *GameSession) StartRound(ctx context.Context, role domain.Role, productID string) error {
	if !role.IsOperator() {
		return domain.ErrNotOperator
	}

	giveaway, err := s.catalog.Giveaway(ctx, productID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := domain.Reduce(s.liveRoundLocked(ctx), domain.NewStartRoundAction(giveaway))
	if err != nil {
		return err
	}

	s.cancelDrawLocked("new round")
	if err := s.commitLocked(ctx, next, domain.EventRoundStarted); err != nil {
		return err
	}

	s.logger.Info("round started", "roundId", next.ID, "product", giveaway.ProductName)
	return nil
}

// RevealClue shows the next clue (operator only)
func (s *GameSession) RevealClue(ctx context.Context, role domain.Role) error {
	return s.applyOperatorAction(ctx, role, &domain.RevealClueAction{}, domain.EventClueRevealed)
}

// EndSubmissions closes the round to new guesses (operator only)
func (s *GameSession) EndSubmissions(ctx context.Context, role domain.Role) error {
	return s.applyOperatorAction(ctx, role, &domain.CloseSubmissionsAction{}, domain.EventSubmissionsEnded)
}

// SubmitGuess records the guess of a participant, at most once per round
func (s *GameSession) SubmitGuess(ctx context.Context, clientID string, participant domain.Participant, guess string) (domain.Submission, error) {
	submission, err := domain.NewSubmission(participant, guess)
	if err != nil {
		return domain.Submission{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.ledger.Append(ctx, s.liveRoundLocked(ctx), clientID, submission)
	if err != nil {
		return domain.Submission{}, err
	}

	if err := s.commitLocked(ctx, next, domain.EventSubmissionMade); err != nil {
		// The guess was not saved, so the client may send it again
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
		defer cancel()
		if err := s.ledger.Release(releaseCtx, next.ID, next.Giveaway.ProductName, clientID); err != nil {
			s.logger.Error("failed to release submission flag", "roundId", next.ID, "clientID", clientID, "error", err)
		}
		return domain.Submission{}, err
	}

	if s.profiles != nil {
		if err := s.profiles.Save(ctx, domain.RoleParticipant, clientID, submission.Participant); err != nil {
			s.logger.Debug("failed to save participant profile", "clientID", clientID, "error", err)
		}
	}

	s.logger.Info("guess submitted", "roundId", next.ID, "clientID", clientID)
	return submission, nil
}

// DrawWinner spins the roulette among the correct guesses (operator only).
// The round becomes finished once the animation has run.
func (s *GameSession) DrawWinner(ctx context.Context, role domain.Role) (*domain.Draw, error) {
	if !role.IsOperator() {
		return nil, domain.ErrNotOperator
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drawInFlightLocked(time.Now()) {
		return nil, domain.ErrDrawInProgress
	}

	draw, err := domain.SelectWinner(s.liveRoundLocked(ctx), s.settings, s.rnd)
	if err != nil {
		return nil, err
	}

	if err := s.store.AnnounceDraw(ctx, draw); err != nil {
		s.logger.Warn("failed to announce draw", "roundId", draw.RoundID, "error", err)
	}

	pending := &pendingDraw{draw: draw}
	pending.timer = time.AfterFunc(s.settings.Duration, func() {
		s.finishDraw(pending)
	})
	s.pending = pending
	s.lastActivity = time.Now()

	s.queueEvent(domain.NewEvent(domain.EventDrawStarted, s.room, domain.NewDrawStartedPayload(draw)))

	s.logger.Info("draw started",
		"roundId", draw.RoundID,
		"wheelSize", len(draw.Wheel),
		"winnerIndex", draw.WinnerIndex,
	)

	return draw, nil
}

// ResetRound destroys the live round (operator only)
func (s *GameSession) ResetRound(ctx context.Context, role domain.Role) error {
	if !role.IsOperator() {
		return domain.ErrNotOperator
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.liveRoundLocked(ctx)
	if previous == nil {
		previous = s.round
	}
	next, err := domain.Reduce(previous, &domain.ResetRoundAction{})
	if err != nil {
		return err
	}

	s.cancelDrawLocked("round reset")
	if err := s.store.Write(ctx, next); err != nil {
		return err
	}

	s.destroyLocked(previous)
	s.logger.Info("round reset")
	return nil
}

// applyOperatorAction reduces an operator action and commits the result
func (s *GameSession) applyOperatorAction(ctx context.Context, role domain.Role, action domain.Action, eventType domain.EventType) error {
	if !role.IsOperator() {
		return domain.ErrNotOperator
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := domain.Reduce(s.liveRoundLocked(ctx), action)
	if err != nil {
		return err
	}

	if err := s.commitLocked(ctx, next, eventType); err != nil {
		return err
	}

	s.logger.Info("round updated", "action", action.Type(), "roundId", next.ID, "status", next.Status)
	return nil
}

// liveRoundLocked reads the persisted round; actions build on it rather than on the
// in-memory copy, which may lag behind another producer (caller must hold lock)
func (s *GameSession) liveRoundLocked(ctx context.Context) *domain.Round {
	return s.store.Read(ctx)
}

// drawInFlightLocked reports whether a draw is spinning here or was announced by
// another producer and not yet finished (caller must hold lock)
func (s *GameSession) drawInFlightLocked(now time.Time) bool {
	if s.pending != nil {
		return true
	}
	return s.remote != nil && now.Before(s.remote.until)
}

// commitLocked persists a new round and broadcasts it (caller must hold lock).
// The in-memory round only changes once the store accepted the write.
func (s *GameSession) commitLocked(ctx context.Context, next *domain.Round, eventType domain.EventType) error {
	if err := s.store.Write(ctx, next); err != nil {
		s.logger.Error("failed to persist round", "error", err)
		return err
	}

	s.round = next
	s.lastActivity = time.Now()
	s.queueEvent(domain.NewEvent(eventType, s.room, next.Clone()))
	return nil
}

// destroyLocked drops the in-memory round and tells clients (caller must hold lock)
func (s *GameSession) destroyLocked(previous *domain.Round) {
	s.round = nil
	s.lastActivity = time.Now()

	payload := &domain.RoundDestroyedPayload{}
	if previous != nil {
		payload.RoundID = previous.ID
	}
	s.queueEvent(domain.NewEvent(domain.EventRoundDestroyed, s.room, payload))
	s.queueEvent(domain.NewEvent(domain.EventStateSynced, s.room, (*domain.Round)(nil)))
}

// cancelDrawLocked stops a spinning roulette (caller must hold lock)
func (s *GameSession) cancelDrawLocked(reason string) {
	s.remote = nil
	if s.pending == nil {
		return
	}

	s.pending.timer.Stop()
	roundID := s.pending.draw.RoundID
	s.pending = nil

	s.logger.Info("draw cancelled", "roundId", roundID, "reason", reason)
	s.queueEvent(domain.NewEvent(domain.EventDrawCancelled, s.room, &domain.DrawCancelledPayload{RoundID: roundID}))
}

// finishDraw applies the drawn winner once the animation is over.
// It re-reads the store and only finishes the round the draw was made for.
func (s *GameSession) finishDraw(pending *pendingDraw) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != pending {
		return
	}
	s.pending = nil

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	current := s.store.Read(ctx)
	if current == nil || current.ID != pending.draw.RoundID || current.Status != domain.StatusClosed {
		s.logger.Info("draw superseded", "roundId", pending.draw.RoundID)
		s.queueEvent(domain.NewEvent(domain.EventDrawCancelled, s.room, &domain.DrawCancelledPayload{RoundID: pending.draw.RoundID}))
		return
	}

	next, err := domain.Reduce(current, &domain.FinishDrawAction{
		Winner: pending.draw.Winner,
		Now:    time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("failed to finish draw", "roundId", current.ID, "error", err)
		return
	}

	if err := s.commitLocked(ctx, next, domain.EventWinnerDrawn); err != nil {
		return
	}

	s.logger.Info("winner drawn", "roundId", next.ID, "winner", next.Winner.Participant.Name)

	if s.catalog != nil {
		if err := s.catalog.RecordFinishedGame(ctx, s.room, next); err != nil {
			s.logger.Error("failed to record finished game", "roundId", next.ID, "error", err)
		}
	}
}

// handleNotification applies a change made by another producer
func (s *GameSession) handleNotification(n store.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch n.Kind {
	case store.KindWritten:
		if n.Round == nil {
			return
		}
		if s.remote != nil && (n.Round.ID != s.remote.roundID || n.Round.Status != domain.StatusClosed) {
			s.remote = nil
		}
		if reflect.DeepEqual(n.Round, s.round) {
			return
		}
		if s.pending != nil && (n.Round.ID != s.pending.draw.RoundID || n.Round.Status != domain.StatusClosed) {
			s.cancelDrawLocked("superseded by another producer")
		}
		s.round = n.Round
		s.lastActivity = time.Now()
		s.queueEvent(domain.NewEvent(domain.EventStateSynced, s.room, n.Round.Clone()))

	case store.KindCleared:
		s.remote = nil
		if s.round == nil {
			return
		}
		s.cancelDrawLocked("cleared by another producer")
		s.destroyLocked(s.round)

	case store.KindDrawStarted:
		if n.Draw == nil {
			return
		}
		s.remote = &remoteDraw{
			roundID: n.Draw.RoundID,
			until:   time.Now().Add(time.Duration(n.Draw.DurationMs)*time.Millisecond + remoteDrawGrace),
		}
		s.queueEvent(domain.NewEvent(domain.EventDrawStarted, s.room, domain.NewDrawStartedPayload(n.Draw)))

	default:
		s.logger.Debug("ignoring unknown notification", "kind", n.Kind)
	}
}

func (s *GameSession) hasSubmitted(ctx context.Context, round *domain.Round, clientID string, role domain.Role) bool {
	if round == nil || role.IsOperator() {
		return false
	}
	submitted, err := s.ledger.HasSubmitted(ctx, round.ID, clientID)
	if err != nil {
		s.logger.Debug("failed to read submission flag", "clientID", clientID, "error", err)
		return false
	}
	return submitted
}

// queueEvent adds an event to the broadcast queue
func (s *GameSession) queueEvent(event *domain.GameEvent) {
	select {
	case s.events <- event:
	default:
		s.logger.Warn("event queue full, dropping event", "type", event.Type)
	}
}

// eventLoop processes events and broadcasts to clients
func (s *GameSession) eventLoop() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.events:
			s.broadcastEvent(event)
		}
	}
}

// broadcastEvent sends an event to appropriate clients.
// Round snapshots are rendered per client so each one gets its own screen.
func (s *GameSession) broadcastEvent(event *domain.GameEvent) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	send := func(clientID string, client ClientConnection) {
		out := event
		if event.CarriesState() {
			round, _ := event.Payload.(*domain.Round)
			ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			view := presentation.Render(round, client.GetRole(), s.hasSubmitted(ctx, round, clientID, client.GetRole()))
			cancel()
			out = &domain.GameEvent{
				Type:      event.Type,
				GameID:    event.GameID,
				ClientID:  clientID,
				Payload:   view,
				Timestamp: event.Timestamp,
			}
		}
		if err := client.Send(out); err != nil {
			s.logger.Debug("failed to send to client", "clientID", clientID, "error", err)
		}
	}

	// If client-specific, send only to that client
	if event.ClientID != "" {
		if client, ok := s.clients[event.ClientID]; ok {
			send(event.ClientID, client)
		}
		return
	}

	// Broadcast to all clients
	for clientID, client := range s.clients {
		send(clientID, client)
	}
}

// Close shuts down the session
func (s *GameSession) Close() {
	select {
	case <-s.done:
		return // Already closed
	default:
		close(s.done)
	}

	if s.unsubscribe != nil {
		s.unsubscribe()
	}

	s.mu.Lock()
	if s.pending != nil {
		s.pending.timer.Stop()
		s.pending = nil
	}
	s.mu.Unlock()

	// Close all client connections
	s.clientsMu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clients = make(map[string]ClientConnection)
	s.clientsMu.Unlock()
}
