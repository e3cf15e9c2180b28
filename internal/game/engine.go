// internal/game/engine.go
//
// Core game engine for a single color-matching session.
// Responsibilities:
//   - Deal a board for the current level from the leading catalog entries.
//   - Shuffle it with the injected Shuffler.
//   - Accept card selections and adjudicate pairs after a settle delay.
//   - Track score and level; auto-advance to the next level after a pause.
//   - Publish a Snapshot to listeners after every mutation.
//
// Notes:
//   - Every turn (a caller's operation or a scheduled callback) runs under e.mu,
//     so no two mutations interleave.
//   - Scheduled callbacks carry a generation token. Start, Reset and Close bump
//     the generation, so a callback that was already in flight applies nothing.
//   - Invalid input is never an error: the operation is a no-op.
package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/colormatch/internal/catalog"
)

const (
	DefaultSettleDelay  = 1000 * time.Millisecond
	DefaultAdvanceDelay = 3000 * time.Millisecond

	basePairs      = 4
	pairsPerLevel  = 2
	pointsPerLevel = 10
)

// Config carries an engine's collaborators. Zero fields get defaults.
type Config struct {
	Catalog      catalog.Catalog // default: catalog.Default()
	Shuffler     Shuffler        // default: unseeded Fisher–Yates
	Scheduler    Scheduler       // default: WallClock
	SettleDelay  time.Duration   // default: DefaultSettleDelay
	AdvanceDelay time.Duration   // default: DefaultAdvanceDelay
	PlayerName   string          // optional, woven into messages
	Logger       *zerolog.Logger // default: no-op
}

// Engine owns all state of one game.
type Engine struct {
	mu sync.Mutex

	catalog      catalog.Catalog
	shuffler     Shuffler
	sched        Scheduler
	settleDelay  time.Duration
	advanceDelay time.Duration
	player       string
	log          zerolog.Logger

	cards        []Card
	selection    []int // board indexes of face-up, unmatched cards awaiting adjudication
	matchedPairs int
	level        int
	score        int
	started      bool
	phase        Phase
	message      string
	colorInfo    *catalog.ColorEntry

	generation uint64
	pending    Timer

	listeners    map[int]Listener
	nextListener int
}

// New constructs an idle engine at level 1.
func New(cfg Config) *Engine {
	e := &Engine{
		catalog:      cfg.Catalog,
		shuffler:     cfg.Shuffler,
		sched:        cfg.Scheduler,
		settleDelay:  cfg.SettleDelay,
		advanceDelay: cfg.AdvanceDelay,
		player:       cfg.PlayerName,
		level:        1,
		phase:        PhaseIdle,
		listeners:    make(map[int]Listener),
	}
	if len(e.catalog) == 0 {
		e.catalog = catalog.Default()
	}
	if e.shuffler == nil {
		e.shuffler = NewShuffler(nil)
	}
	if e.sched == nil {
		e.sched = WallClock{}
	}
	if e.settleDelay <= 0 {
		e.settleDelay = DefaultSettleDelay
	}
	if e.advanceDelay <= 0 {
		e.advanceDelay = DefaultAdvanceDelay
	}
	if cfg.Logger != nil {
		e.log = *cfg.Logger
	} else {
		e.log = zerolog.Nop()
	}
	return e
}

// PairCount is the number of pairs dealt at level: 4 at level 1, two more per
// level after that, capped at the catalog size.
func PairCount(level, catalogSize int) int {
	if level < 1 {
		level = 1
	}
	n := basePairs + (level-1)*pairsPerLevel
	if n > catalogSize {
		n = catalogSize
	}
	if n < 0 {
		n = 0
	}
	return n
}

// dealCards builds the unshuffled board for level: two cards per leading
// catalog entry, ids 2*i and 2*i+1.
func dealCards(c catalog.Catalog, level int) []Card {
	n := PairCount(level, c.Len())
	cards := make([]Card, 0, 2*n)
	for i := 0; i < n; i++ {
		cards = append(cards,
			Card{ID: 2 * i, ColorRef: i},
			Card{ID: 2*i + 1, ColorRef: i},
		)
	}
	return cards
}

// Start deals and shuffles a fresh board for the current level.
// Valid from any phase; any pending adjudication or advance is discarded.
func (e *Engine) Start() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startLocked()
	return e.commitLocked()
}

// Reset returns to level 1 with a zero score and no board. Does not start a game.
func (e *Engine) Reset() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.invalidateLocked()
	e.cards = nil
	e.selection = nil
	e.matchedPairs = 0
	e.level = 1
	e.score = 0
	e.started = false
	e.message = ""
	e.colorInfo = nil
	e.phase = PhaseIdle
	e.log.Debug().Msg("game reset")
	return e.commitLocked()
}

// SelectCard reveals the card with the given id.
// It reports false, leaving the state untouched, when no selection is open
// (idle, adjudicating, level complete), the id is unknown, or the card is
// already face up or matched.
func (e *Engine) SelectCard(id int) (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseAwaitingFirstFlip && e.phase != PhaseOneFlipped {
		e.log.Debug().Int("card", id).Str("phase", string(e.phase)).Msg("select ignored: not accepting flips")
		return e.snapshotLocked(), false
	}
	idx := e.indexOf(id)
	if idx < 0 {
		e.log.Debug().Int("card", id).Msg("select ignored: unknown card")
		return e.snapshotLocked(), false
	}
	card := &e.cards[idx]
	if card.FaceUp || card.Matched || len(e.selection) >= 2 {
		e.log.Debug().Int("card", id).Msg("select ignored: card not selectable")
		return e.snapshotLocked(), false
	}

	card.FaceUp = true
	e.selection = append(e.selection, idx)
	if len(e.selection) == 1 {
		e.phase = PhaseOneFlipped
	} else {
		e.phase = PhaseAdjudicating
		e.scheduleLocked(e.settleDelay, e.adjudicateLocked)
	}
	return e.commitLocked(), true
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every mutation, including
// the ones made by scheduled callbacks, and returns the state as of registration.
// fn runs inside the engine's turn: it must not block and must not call back
// into the engine.
func (e *Engine) Subscribe(fn Listener) (current Snapshot, unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = fn
	return e.snapshotLocked(), func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

// Close discards pending callbacks and listeners.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invalidateLocked()
	e.listeners = make(map[int]Listener)
}

// startLocked deals a new board for e.level.
func (e *Engine) startLocked() {
	e.invalidateLocked()
	e.started = true
	e.matchedPairs = 0
	e.selection = nil
	e.message = ""
	e.cards = dealCards(e.catalog, e.level)
	e.shuffler.Shuffle(e.cards)
	e.phase = PhaseAwaitingFirstFlip
	e.log.Debug().Int("level", e.level).Int("cards", len(e.cards)).Msg("board dealt")
}

// adjudicateLocked compares the two selected cards.
func (e *Engine) adjudicateLocked() {
	if e.phase != PhaseAdjudicating || len(e.selection) != 2 {
		return
	}
	a, b := &e.cards[e.selection[0]], &e.cards[e.selection[1]]
	e.selection = nil

	if a.ColorRef != b.ColorRef {
		a.FaceUp, b.FaceUp = false, false
		e.message = e.personalize("Try again!", "Try again, %s!")
		e.phase = PhaseAwaitingFirstFlip
		return
	}

	a.Matched, b.Matched = true, true
	e.matchedPairs++
	e.score += pointsPerLevel * e.level
	entry := e.catalog[a.ColorRef]
	e.colorInfo = &entry
	e.log.Debug().Str("color", entry.Name).Int("score", e.score).Msg("pair matched")

	if e.matchedPairs == len(e.cards)/2 {
		done := e.level
		e.level++
		if e.player != "" {
			e.message = fmt.Sprintf("Level %d Complete, %s! Starting Level %d...", done, e.player, e.level)
		} else {
			e.message = fmt.Sprintf("Level %d Complete! Starting Level %d...", done, e.level)
		}
		e.phase = PhaseLevelComplete
		e.log.Info().Int("level", done).Int("score", e.score).Msg("level complete")
		e.scheduleLocked(e.advanceDelay, e.advanceLocked)
		return
	}
	e.message = e.personalize("Match found!", "Match found, %s!")
	e.phase = PhaseAwaitingFirstFlip
}

// advanceLocked opens the next level once the completion pause is over.
func (e *Engine) advanceLocked() {
	e.colorInfo = nil
	e.startLocked()
}

// scheduleLocked runs fn as its own turn after d, unless the engine is started,
// reset or closed first. Each scheduled task gets a fresh generation.
func (e *Engine) scheduleLocked(d time.Duration, fn func()) {
	e.generation++
	gen := e.generation
	e.pending = e.sched.AfterFunc(d, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if gen != e.generation {
			e.log.Debug().Uint64("gen", gen).Uint64("current", e.generation).Msg("stale callback dropped")
			return
		}
		e.pending = nil
		fn()
		e.commitLocked()
	})
}

// invalidateLocked stops the pending task and makes any in-flight one stale.
func (e *Engine) invalidateLocked() {
	e.generation++
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
}

// commitLocked snapshots the state, hands it to listeners and returns it.
func (e *Engine) commitLocked() Snapshot {
	s := e.snapshotLocked()
	for _, fn := range e.listeners {
		fn(s)
	}
	return s
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{
		Phase:        e.phase,
		Started:      e.started,
		Level:        e.level,
		Score:        e.score,
		MatchedPairs: e.matchedPairs,
		Message:      e.message,
		Cards:        make([]CardView, len(e.cards)),
	}
	if len(e.cards) > 0 {
		s.PairCount = len(e.cards) / 2
	} else {
		s.PairCount = PairCount(e.level, e.catalog.Len())
	}
	if e.colorInfo != nil {
		info := *e.colorInfo
		s.ColorInfo = &info
	}
	for i, c := range e.cards {
		v := CardView{ID: c.ID, FaceUp: c.FaceUp, Matched: c.Matched}
		if c.FaceUp || c.Matched {
			entry := e.catalog[c.ColorRef]
			v.Color, v.Name = entry.Color, entry.Name
		}
		s.Cards[i] = v
	}
	return s
}

func (e *Engine) indexOf(id int) int {
	for i := range e.cards {
		if e.cards[i].ID == id {
			return i
		}
	}
	return -1
}

// personalize picks the named variant of a message when a player name is known.
func (e *Engine) personalize(plain, named string) string {
	if e.player == "" {
		return plain
	}
	return fmt.Sprintf(named, e.player)
}
