// internal/httpserver/routes_game.go
//
// Game endpoints: the three input entry points (start, reset, select) plus
// session creation, snapshot reads and teardown. Every response carries the
// engine's snapshot so the client can redraw the whole board from it.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/colormatch/internal/daily"
	"github.com/robalobadob/colormatch/internal/game"
	"github.com/robalobadob/colormatch/internal/store"
)

const (
	modeNormal = "normal"
	modeDaily  = "daily"

	maxPlayerName = 32
)

// newGameReq/Res payloads for POST /game/new.
type newGameReq struct {
	Mode   string `json:"mode"`   // "normal" (default) | "daily"
	Player string `json:"player"` // optional display name for messages
}
type newGameRes struct {
	GameID   string        `json:"gameId"`
	Token    string        `json:"token"`
	Mode     string        `json:"mode"`
	Date     string        `json:"date,omitempty"`
	Snapshot game.Snapshot `json:"snapshot"`
}

// handleNewGame creates an idle session and returns its id and token.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	s.createGame(w, r, req)
}

// createGame validates the request, builds the engine and responds.
func (s *Server) createGame(w http.ResponseWriter, r *http.Request, req newGameReq) {
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = modeNormal
	}
	if mode != modeNormal && mode != modeDaily {
		writeError(w, http.StatusBadRequest, "invalid_mode")
		return
	}
	player := strings.TrimSpace(req.Player)
	if utf8.RuneCountInString(player) > maxPlayerName {
		writeError(w, http.StatusBadRequest, "invalid_player")
		return
	}

	sess := s.newSession(mode, player)
	if err := s.store.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("save session")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	tok, _, err := s.signToken(sess.ID)
	if err != nil {
		log.Error().Err(err).Msg("sign session token")
		_ = s.store.Delete(r.Context(), sess.ID)
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	log.Info().Str("session", sess.ID).Str("mode", mode).Msg("game created")

	_ = json.NewEncoder(w).Encode(newGameRes{
		GameID:   sess.ID,
		Token:    tok,
		Mode:     mode,
		Date:     sess.Date,
		Snapshot: sess.Engine.Snapshot(),
	})
}

// newSession wires an engine with the server's catalog, delays and scheduler.
// Daily sessions shuffle from the date's seed.
func (s *Server) newSession(mode, player string) *store.Session {
	sess := &store.Session{ID: uuid.NewString(), Mode: mode, Player: player}
	logger := log.With().Str("session", sess.ID).Logger()
	cfg := game.Config{
		Catalog:      s.opts.Catalog,
		Scheduler:    s.opts.Scheduler,
		SettleDelay:  s.opts.SettleDelay,
		AdvanceDelay: s.opts.AdvanceDelay,
		PlayerName:   player,
		Logger:       &logger,
	}
	if mode == modeDaily {
		now := s.opts.Now()
		sess.Date = daily.DateKey(now)
		cfg.Shuffler = game.NewSeededShuffler(daily.Seed(now, s.opts.DailySalt))
	}
	sess.Engine = game.New(cfg)
	return sess
}

// handleSnapshot returns the current snapshot.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(sessionFrom(r).Engine.Snapshot())
}

// handleStart deals a fresh board for the current level.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(sessionFrom(r).Engine.Start())
}

// handleReset returns the game to level 1 with a zero score.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(sessionFrom(r).Engine.Reset())
}

// selectReq/Res payloads for POST /game/{id}/select.
type selectReq struct {
	CardID *int `json:"cardId"`
}
type selectRes struct {
	Accepted bool          `json:"accepted"`
	Snapshot game.Snapshot `json:"snapshot"`
}

// handleSelect flips a card. An ignored selection is not an error: the client
// gets accepted=false and the unchanged snapshot.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CardID == nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	snap, ok := sessionFrom(r).Engine.SelectCard(*req.CardID)
	_ = json.NewEncoder(w).Encode(selectRes{Accepted: ok, Snapshot: snap})
}

// handleDelete closes the engine and forgets the session.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := s.store.Delete(r.Context(), sess.ID); err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	log.Info().Str("session", sess.ID).Msg("game deleted")
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}
