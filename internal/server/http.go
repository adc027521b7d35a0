package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/partydeck/party-server-go/internal/game"
	"github.com/partydeck/party-server-go/internal/gameerrors"
	"go.uber.org/zap"
)

// Server exposes the game manager's operations as a JSON HTTP API. Every
// response is a structured result: {"success": true, ...} or
// {"success": false, "code": "...", "message": "..."} — clients branch on the
// code, never on message text.
type Server struct {
	games               *game.Manager
	replacementAttempts int
	logger              *zap.Logger
}

// New creates the API surface on top of a game manager.
func New(games *game.Manager, replacementAttempts int, logger *zap.Logger) *Server {
	return &Server{
		games:               games,
		replacementAttempts: replacementAttempts,
		logger:              logger,
	}
}

// Register attaches all routes to the mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("POST /api/sessions/{id}/players", s.handleAddPlayer)
	mux.HandleFunc("POST /api/sessions/{id}/draw", s.handleDraw)
	mux.HandleFunc("POST /api/sessions/{id}/replacement-draw", s.handleReplacementDraw)
	mux.HandleFunc("POST /api/sessions/{id}/flip", s.handleFlip)
	mux.HandleFunc("POST /api/sessions/{id}/clone", s.handleClone)
	mux.HandleFunc("POST /api/sessions/{id}/swap", s.handleSwap)
	mux.HandleFunc("POST /api/sessions/{id}/transfer", s.handleTransfer)
	mux.HandleFunc("POST /api/sessions/{id}/referee", s.handleAssignReferee)
	mux.HandleFunc("POST /api/sessions/{id}/prompt/resolve", s.handleResolvePrompt)
	mux.HandleFunc("GET /api/sessions/{id}/players/{playerId}/cards", s.handleOwnedCards)
	mux.HandleFunc("GET /api/sessions/{id}/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/decks", s.handleDeckSnapshot)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write response", zap.Error(err))
	}
}

func (s *Server) writeOK(w http.ResponseWriter, fields map[string]any) {
	out := map[string]any{"success": true}
	for k, v := range fields {
		out[k] = v
	}
	s.writeJSON(w, http.StatusOK, out)
}

// writeError maps the error's category to an HTTP status and surfaces the
// stable code.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "Internal"

	var ge *gameerrors.Error
	if errors.As(err, &ge) {
		code = ge.Code
		switch ge.Category {
		case gameerrors.CategoryInvalidInput:
			status = http.StatusBadRequest
		case gameerrors.CategoryNotFound:
			status = http.StatusNotFound
		case gameerrors.CategoryStateConflict, gameerrors.CategoryExhaustion:
			status = http.StatusConflict
		case gameerrors.CategoryPersistence:
			status = http.StatusServiceUnavailable
		}
	}

	s.writeJSON(w, status, map[string]any{
		"success": false,
		"code":    code,
		"message": err.Error(),
	})
}

func decode[T any](r *http.Request) (T, error) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, gameerrors.ErrInvalidInput
	}
	return req, nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	req, err := decode[struct {
		SessionID string `json:"sessionId"`
	}](r)
	if err != nil || req.SessionID == "" {
		s.writeError(w, gameerrors.ErrInvalidInput)
		return
	}
	sess := s.games.CreateSession(req.SessionID)
	s.writeOK(w, map[string]any{"sessionId": sess.ID})
}

func (s *Server) handleAddPlayer(w http.ResponseWriter, r *http.Request) {
	req, err := decode[struct {
		PlayerID string `json:"playerId"`
		Name     string `json:"name"`
	}](r)
	if err != nil || req.PlayerID == "" {
		s.writeError(w, gameerrors.ErrInvalidInput)
		return
	}
	p, err := s.games.AddPlayer(r.Context(), r.PathValue("id"), req.PlayerID, req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]any{"playerId": p.ID})
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	req, err := decode[struct {
		PlayerID       string `json:"playerId"`
		DeckType       string `json:"deckType"`
		TargetPlayerID string `json:"targetPlayerId"`
		TargetCardID   string `json:"targetCardId"`
	}](r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	c, res, err := s.games.DrawAndActivate(r.Context(), r.PathValue("id"), req.PlayerID, req.DeckType,
		game.EffectContext{TargetPlayerID: req.TargetPlayerID, TargetCardID: req.TargetCardID})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]any{
		"card":   c.ToRecord(),
		"effect": res.Kind,
		"text":   res.Text,
	})
}

func (s *Server) handleReplacementDraw(w http.ResponseWriter, r *http.Request) {
	req, err := decode[struct {
		PlayerID       string `json:"playerId"`
		DeckType       string `json:"deckType"`
		TargetPlayerID string `json:"targetPlayerId"`
		TargetCardID   string `json:"targetCardId"`
	}](r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	c, res, err := s.games.ReplacementDrawAndActivate(r.Context(), r.PathValue("id"), req.PlayerID, req.DeckType,
		s.replacementAttempts, game.EffectContext{TargetPlayerID: req.TargetPlayerID, TargetCardID: req.TargetCardID})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]any{
		"card":   c.ToRecord(),
		"effect": res.Kind,
		"text":   res.Text,
	})
}

func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	req, err := decode[struct {
		PlayerID string `json:"playerId"`
		CardID   string `json:"cardId"`
	}](r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.games.FlipCard(r.Context(), r.PathValue("id"), req.PlayerID, req.CardID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]any{"cardId": res.CardID, "text": res.Text})
}

func (s *Server) handleClone(w http.ResponseWriter, r *http.Request) {
	req, err := decode[struct {
		PlayerID       string `json:"playerId"`
		TargetPlayerID string `json:"targetPlayerId"`
		TargetCardID   string `json:"targetCardId"`
	}](r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	clone, err := s.games.CloneCard(r.Context(), r.PathValue("id"), req.PlayerID, req.TargetPlayerID, req.TargetCardID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]any{"clone": clone.ToRecord()})
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	req, err := decode[struct {
		ReceivingPlayerID string `json:"receivingPlayerId"`
		OriginalPlayerID  string `json:"originalPlayerId"`
		CardID            string `json:"cardId"`
	}](r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	moved, err := s.games.SwapCard(r.Context(), r.PathValue("id"), req.ReceivingPlayerID, req.OriginalPlayerID, req.CardID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]any{"card": moved.ToRecord()})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	req, err := decode[struct {
		FromPlayerID string `json:"fromPlayerId"`
		ToPlayerID   string `json:"toPlayerId"`
		CardID       string `json:"cardId"`
		Reason       string `json:"reason"`
	}](r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.games.TransferCard(r.Context(), r.PathValue("id"), req.FromPlayerID, req.ToPlayerID, req.CardID, req.Reason)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]any{"card": c.ToRecord()})
}

func (s *Server) handleAssignReferee(w http.ResponseWriter, r *http.Request) {
	req, err := decode[struct {
		CardName string `json:"cardName"`
	}](r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	name := req.CardName
	if name == "" {
		name = "Referee Card"
	}
	refCard := game.NewRefereeCard(name)
	playerID, err := s.games.AssignRefereeCard(r.Context(), r.PathValue("id"), refCard)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]any{"refereeId": playerID})
}

func (s *Server) handleResolvePrompt(w http.ResponseWriter, r *http.Request) {
	req, err := decode[struct {
		Judgment string `json:"judgment"`
	}](r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	pc, err := s.games.ResolvePrompt(r.PathValue("id"), req.Judgment)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]any{
		"playerId": pc.PlayerID,
		"cardId":   pc.Card.ID,
		"status":   pc.Status,
	})
}

func (s *Server) handleOwnedCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.games.PlayerOwnedCards(r.PathValue("id"), r.PathValue("playerId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	records := make([]any, 0, len(cards))
	for _, c := range cards {
		records = append(records, c.ToRecord())
	}
	s.writeOK(w, map[string]any{"cards": records})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.games.SnapshotSession(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]any{
		"session":  snap,
		"checksum": snap.ComputeChecksum(),
	})
}

func (s *Server) handleDeckSnapshot(w http.ResponseWriter, r *http.Request) {
	s.writeOK(w, map[string]any{"decks": s.games.Decks().Snapshot()})
}
