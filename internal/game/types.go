// internal/game/types.go
//
// Core type definitions for the memory game engine.
// Defines:
//   - Phase: coarse state-machine position of an engine.
//   - Card: one card on the board.
//   - Snapshot / CardView: the read-only render contract handed to presentation.

package game

import "github.com/robalobadob/colormatch/internal/catalog"

// Phase is the state-machine position of an engine.
// Transitions:
//   - idle → awaiting_first_flip (Start)
//   - awaiting_first_flip → one_flipped (first SelectCard)
//   - one_flipped → adjudicating (second SelectCard)
//   - adjudicating → awaiting_first_flip (mismatch, or match with pairs left)
//   - adjudicating → level_complete (final match) → awaiting_first_flip (auto Start)
//   - any → idle (Reset), any → awaiting_first_flip (Start)
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseAwaitingFirstFlip Phase = "awaiting_first_flip"
	PhaseOneFlipped        Phase = "one_flipped"
	PhaseAdjudicating      Phase = "adjudicating"
	PhaseLevelComplete     Phase = "level_complete"
)

// Card is a single card on the board.
type Card struct {
	ID       int  // Unique within a board; 2*i and 2*i+1 for catalog entry i.
	ColorRef int  // Index into the engine's catalog.
	FaceUp   bool // Currently revealed.
	Matched  bool // Paired; never selectable again.
}

// CardView is a card as the presentation sees it. Color and Name are only
// filled in while the card is revealed or matched.
type CardView struct {
	ID      int    `json:"id"`
	FaceUp  bool   `json:"faceUp"`
	Matched bool   `json:"matched"`
	Color   string `json:"color,omitempty"`
	Name    string `json:"name,omitempty"`
}

// Snapshot is an immutable copy of an engine's state.
type Snapshot struct {
	Phase        Phase               `json:"phase"`
	Started      bool                `json:"started"`
	Level        int                 `json:"level"`
	Score        int                 `json:"score"`
	MatchedPairs int                 `json:"matchedPairs"`
	PairCount    int                 `json:"pairCount"`
	Message      string              `json:"message"`
	ColorInfo    *catalog.ColorEntry `json:"colorInfo,omitempty"`
	Cards        []CardView          `json:"cards"`
}

// Listener receives a snapshot after every mutation.
type Listener func(Snapshot)
