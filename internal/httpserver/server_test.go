package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/colormatch/internal/catalog"
	"github.com/robalobadob/colormatch/internal/game"
	"github.com/robalobadob/colormatch/internal/store"
)

// manualScheduler queues callbacks until the test releases them.
// Safe for use from handler goroutines.
type manualScheduler struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	mu      sync.Mutex
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) game.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{f: f}
	s.pending = append(s.pending, t)
	return t
}

// flush runs every live callback queued so far.
func (s *manualScheduler) flush() int {
	s.mu.Lock()
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()

	n := 0
	for _, t := range queued {
		t.mu.Lock()
		live := !t.stopped && !t.fired
		t.fired = true
		t.mu.Unlock()
		if live {
			t.f()
			n++
		}
	}
	return n
}

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, store.Store, *manualScheduler) {
	t.Helper()
	c, err := catalog.Embedded()
	require.NoError(t, err)
	st := store.NewMemoryStore()
	sched := &manualScheduler{}
	srv := New(st, Options{
		Catalog:       c,
		SessionSecret: "test-secret",
		TokenTTL:      time.Hour,
		DailySalt:     "test-salt",
		ClientOrigin:  "http://localhost:5173",
		Scheduler:     sched,
		Now:           func() time.Time { return fixedNow },
	})
	return srv, st, sched
}

func do(t *testing.T, srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func newGame(t *testing.T, srv *Server, body string) newGameRes {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/game/new", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[newGameRes](t, rec)
}

func TestHealthAndRoot(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)

	rec = do(t, srv, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "colormatch")
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = do(t, srv, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not_found"}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodOptions, "/game/new", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCatalog(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/catalog", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[struct {
		Colors []catalog.ColorEntry `json:"colors"`
	}](t, rec)
	require.Len(t, res.Colors, 10)
	assert.Equal(t, "Calm Blue", res.Colors[0].Name)
}

func TestNewGame(t *testing.T) {
	srv, st, _ := newTestServer(t)
	res := newGame(t, srv, "")

	assert.NotEmpty(t, res.GameID)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "normal", res.Mode)
	assert.Empty(t, res.Date)
	assert.Equal(t, game.PhaseIdle, res.Snapshot.Phase)
	assert.Equal(t, 1, res.Snapshot.Level)
	assert.Equal(t, 1, st.Len())
}

func TestNewGameValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	tests := []struct {
		body string
		want string
	}{
		{`{"mode":"hard"}`, "invalid_mode"},
		{`{"player":"` + strings.Repeat("x", 33) + `"}`, "invalid_player"},
		{`{"mode":`, "bad_json"},
	}
	for _, tt := range tests {
		rec := do(t, srv, http.MethodPost, "/game/new", "", tt.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.body)
		assert.JSONEq(t, `{"error":"`+tt.want+`"}`, rec.Body.String())
	}
}

func TestSessionRoutesRequireToken(t *testing.T) {
	srv, _, _ := newTestServer(t)
	a := newGame(t, srv, "")
	b := newGame(t, srv, "")

	rec := do(t, srv, http.MethodGet, "/game/"+a.GameID, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodPost, "/game/"+a.GameID+"/start", b.Token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "token of another session")

	rec = do(t, srv, http.MethodGet, "/game/"+a.GameID, "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/game/"+a.GameID+"?token="+a.Token, "", "")
	assert.Equal(t, http.StatusOK, rec.Code, "query token accepted")
}

func TestSessionTokenExpiry(t *testing.T) {
	srv, _, _ := newTestServer(t)
	a := newGame(t, srv, "")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		SessionID: a.GameID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(fixedNow.Add(-time.Minute)),
		},
	})
	tok, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	rec := do(t, srv, http.MethodGet, "/game/"+a.GameID, tok, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownSession(t *testing.T) {
	srv, _, _ := newTestServer(t)
	tok, _, err := srv.signToken("ghost")
	require.NoError(t, err)

	rec := do(t, srv, http.MethodGet, "/game/ghost", tok, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlayThroughHTTP(t *testing.T) {
	srv, _, sched := newTestServer(t)
	g := newGame(t, srv, `{"player":"Ana"}`)
	base := "/game/" + g.GameID

	rec := do(t, srv, http.MethodPost, base+"/start", g.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[game.Snapshot](t, rec)
	assert.Equal(t, game.PhaseAwaitingFirstFlip, snap.Phase)
	assert.Len(t, snap.Cards, 8)

	rec = do(t, srv, http.MethodPost, base+"/select", g.Token, `{"cardId":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	sel := decode[selectRes](t, rec)
	assert.True(t, sel.Accepted)
	assert.Equal(t, game.PhaseOneFlipped, sel.Snapshot.Phase)

	// ids 0 and 1 are always a pair, wherever the shuffle put them
	rec = do(t, srv, http.MethodPost, base+"/select", g.Token, `{"cardId":1}`)
	sel = decode[selectRes](t, rec)
	assert.True(t, sel.Accepted)
	assert.Equal(t, game.PhaseAdjudicating, sel.Snapshot.Phase)

	rec = do(t, srv, http.MethodPost, base+"/select", g.Token, `{"cardId":2}`)
	sel = decode[selectRes](t, rec)
	assert.False(t, sel.Accepted, "third flip while adjudicating")

	require.Equal(t, 1, sched.flush())

	rec = do(t, srv, http.MethodGet, base, g.Token, "")
	snap = decode[game.Snapshot](t, rec)
	assert.Equal(t, 1, snap.MatchedPairs)
	assert.Equal(t, 10, snap.Score)
	assert.Equal(t, "Match found, Ana!", snap.Message)
	require.NotNil(t, snap.ColorInfo)
	assert.Equal(t, "Calm Blue", snap.ColorInfo.Name)

	rec = do(t, srv, http.MethodPost, base+"/reset", g.Token, "")
	snap = decode[game.Snapshot](t, rec)
	assert.Equal(t, game.PhaseIdle, snap.Phase)
	assert.Equal(t, 0, snap.Score)
}

func TestSelectBadBody(t *testing.T) {
	srv, _, _ := newTestServer(t)
	g := newGame(t, srv, "")
	for _, body := range []string{"", "{}", `{"cardId":"one"}`} {
		rec := do(t, srv, http.MethodPost, "/game/"+g.GameID+"/select", g.Token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestSelectUnknownCardIsNoop(t *testing.T) {
	srv, _, _ := newTestServer(t)
	g := newGame(t, srv, "")
	do(t, srv, http.MethodPost, "/game/"+g.GameID+"/start", g.Token, "")

	rec := do(t, srv, http.MethodPost, "/game/"+g.GameID+"/select", g.Token, `{"cardId":99}`)
	require.Equal(t, http.StatusOK, rec.Code)
	sel := decode[selectRes](t, rec)
	assert.False(t, sel.Accepted)
	assert.Equal(t, game.PhaseAwaitingFirstFlip, sel.Snapshot.Phase)
}

func TestResetDuringSettleDelayOverHTTP(t *testing.T) {
	srv, _, sched := newTestServer(t)
	g := newGame(t, srv, "")
	base := "/game/" + g.GameID

	do(t, srv, http.MethodPost, base+"/start", g.Token, "")
	do(t, srv, http.MethodPost, base+"/select", g.Token, `{"cardId":0}`)
	do(t, srv, http.MethodPost, base+"/select", g.Token, `{"cardId":1}`)
	do(t, srv, http.MethodPost, base+"/reset", g.Token, "")

	assert.Equal(t, 0, sched.flush(), "adjudication was cancelled")
	snap := decode[game.Snapshot](t, do(t, srv, http.MethodGet, base, g.Token, ""))
	assert.Equal(t, game.PhaseIdle, snap.Phase)
	assert.Equal(t, 0, snap.Score)
}

func TestDeleteGame(t *testing.T) {
	srv, st, _ := newTestServer(t)
	g := newGame(t, srv, "")

	rec := do(t, srv, http.MethodDelete, "/game/"+g.GameID, g.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, st.Len())

	rec = do(t, srv, http.MethodGet, "/game/"+g.GameID, g.Token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDailyBoardsMatch(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/daily/today", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"date":"2026-10-15"}`, rec.Body.String())

	a := newGame(t, srv, `{"mode":"daily"}`)
	rec = do(t, srv, http.MethodPost, "/daily/new", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	b := decode[newGameRes](t, rec)

	assert.Equal(t, "daily", a.Mode)
	assert.Equal(t, "daily", b.Mode)
	assert.Equal(t, "2026-10-15", a.Date)
	assert.NotEqual(t, a.GameID, b.GameID)

	boardA := decode[game.Snapshot](t, do(t, srv, http.MethodPost, "/game/"+a.GameID+"/start", a.Token, ""))
	boardB := decode[game.Snapshot](t, do(t, srv, http.MethodPost, "/game/"+b.GameID+"/start", b.Token, ""))
	assert.Equal(t, cardIDs(boardA), cardIDs(boardB))
}

func cardIDs(s game.Snapshot) []int {
	out := make([]int, len(s.Cards))
	for i, c := range s.Cards {
		out[i] = c.ID
	}
	return out
}

func TestEventStream(t *testing.T) {
	srv, _, sched := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	g := newGame(t, srv, "")
	base := "/game/" + g.GameID

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + base + "/events?token=" + g.Token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	next := func() game.Snapshot {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var snap game.Snapshot
		require.NoError(t, conn.ReadJSON(&snap))
		return snap
	}

	assert.Equal(t, game.PhaseIdle, next().Phase)

	do(t, srv, http.MethodPost, base+"/start", g.Token, "")
	assert.Equal(t, game.PhaseAwaitingFirstFlip, next().Phase)

	do(t, srv, http.MethodPost, base+"/select", g.Token, `{"cardId":0}`)
	assert.Equal(t, game.PhaseOneFlipped, next().Phase)
	do(t, srv, http.MethodPost, base+"/select", g.Token, `{"cardId":2}`)
	assert.Equal(t, game.PhaseAdjudicating, next().Phase)

	// the timer-driven adjudication is pushed without any request
	require.Equal(t, 1, sched.flush())
	snap := next()
	assert.Equal(t, game.PhaseAwaitingFirstFlip, snap.Phase)
	assert.Equal(t, "Try again!", snap.Message)
}

func TestEventStreamRequiresToken(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	g := newGame(t, srv, "")
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game/" + g.GameID + "/events"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
