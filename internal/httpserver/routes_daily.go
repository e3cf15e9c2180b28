// internal/httpserver/routes_daily.go
//
// HTTP routes for daily boards. Exposes two endpoints under /daily:
//   - GET  /daily/today → today's date key
//   - POST /daily/new   → start a session whose shuffles follow today's seed
//
// Boards are deterministic per date + salt: everyone who plays the same
// sequence of levels on a day is dealt the same layouts. Nothing is recorded
// about who played.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/colormatch/internal/daily"
)

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.Get("/today", s.handleDailyToday)
		r.Post("/new", s.handleDailyNew)
	})
}

// todayRes is returned by /daily/today.
type todayRes struct {
	Date string `json:"date"`
}

// handleDailyToday reports the UTC date the current daily board belongs to.
func (s *Server) handleDailyToday(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(todayRes{Date: daily.DateKey(s.opts.Now())})
}

// handleDailyNew is POST /game/new with the mode forced to daily.
func (s *Server) handleDailyNew(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	req.Mode = modeDaily
	s.createGame(w, r, req)
}
