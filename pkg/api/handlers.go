package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/yourusername/tdgammon/internal/positionid"
	"github.com/yourusername/tdgammon/pkg/agent"
	"github.com/yourusername/tdgammon/pkg/engine"
)

// Handlers holds the HTTP handlers and the model they consult.
type Handlers struct {
	model   agent.Evaluator
	version string
	pool    *WorkerPool
	log     zerolog.Logger

	// sessions counts play sessions; each seeds its dice from it
	sessions atomic.Uint64
	seed     uint64
}

// NewHandlers creates a Handlers instance. model may be nil, in which case
// only move generation is available.
func NewHandlers(model agent.Evaluator, version string, pool *WorkerPool, seed uint64, logger zerolog.Logger) *Handlers {
	if pool == nil {
		pool = NewWorkerPool(DefaultPoolConfig())
	}
	return &Handlers{
		model:   model,
		version: version,
		pool:    pool,
		log:     logger,
		seed:    seed,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, msg string, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

// parsePosition decodes a position ID with side on roll.
func parsePosition(posID, sideName string) (engine.Board, engine.Side, *ErrorResponse) {
	if posID == "" {
		return engine.Board{}, engine.NoSide, &ErrorResponse{Error: "position is required", Code: "MISSING_POSITION"}
	}
	side, err := engine.ParseSide(sideName)
	if err != nil {
		return engine.Board{}, engine.NoSide, &ErrorResponse{Error: err.Error(), Code: "INVALID_SIDE"}
	}
	board, err := positionid.Decode(posID, side)
	if err != nil {
		return engine.Board{}, engine.NoSide, &ErrorResponse{Error: err.Error(), Code: "INVALID_POSITION"}
	}
	return board, side, nil
}

// Health handles GET /api/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.pool.Stats()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
		Ready:   h.model != nil,
		Pool:    &stats,
	})
}

// Moves handles POST /api/moves
func (h *Handlers) Moves(w http.ResponseWriter, r *http.Request) {
	if err := h.pool.AcquireRequest(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
		return
	}
	defer h.pool.ReleaseRequest()

	var req MovesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}

	board, side, bad := parsePosition(req.Position, req.Side)
	if bad != nil {
		writeJSON(w, http.StatusBadRequest, bad)
		return
	}
	if board.Finished() {
		writeError(w, http.StatusBadRequest, "game is already over", "GAME_OVER")
		return
	}

	if req.Dice[0] < 1 || req.Dice[0] > 6 || req.Dice[1] < 1 || req.Dice[1] > 6 {
		writeError(w, http.StatusBadRequest, "dice must be 1-6", "INVALID_DICE")
		return
	}

	legal := engine.GeneratePlays(board, side, engine.RollPips(req.Dice[0], req.Dice[1]))
	plays := make([]PlayResponse, len(legal))
	for i, p := range legal {
		after := board.After(side, p)
		plays[i] = PlayResponse{
			Play:     p.String(),
			Position: positionid.Encode(after, side.Opponent()),
		}
		if h.model != nil {
			v := agent.Value(h.model, after, side.Opponent())
			plays[i].WhiteWin = &v
		}
	}
	if h.model != nil {
		// Best for the side on roll first
		slices.SortStableFunc(plays, func(a, b PlayResponse) int {
			d := *b.WhiteWin - *a.WhiteWin
			if side == engine.Black {
				d = -d
			}
			switch {
			case d > 0:
				return 1
			case d < 0:
				return -1
			}
			return 0
		})
	}

	writeJSON(w, http.StatusOK, MovesResponse{
		Position: req.Position,
		Side:     side.String(),
		Dice:     req.Dice,
		Plays:    plays,
	})
}

// Evaluate handles POST /api/evaluate
func (h *Handlers) Evaluate(w http.ResponseWriter, r *http.Request) {
	if h.model == nil {
		writeError(w, http.StatusServiceUnavailable, "no model loaded", "NO_MODEL")
		return
	}
	if err := h.pool.AcquireRequest(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
		return
	}
	defer h.pool.ReleaseRequest()

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}

	board, side, bad := parsePosition(req.Position, req.Side)
	if bad != nil {
		writeJSON(w, http.StatusBadRequest, bad)
		return
	}

	white := agent.Value(h.model, board, side)
	sideWin := white
	if side == engine.Black {
		sideWin = 1 - white
	}
	writeJSON(w, http.StatusOK, EvaluateResponse{
		Position: req.Position,
		Side:     side.String(),
		WhiteWin: white,
		SideWin:  sideWin,
		PipCount: [2]int{board.PipCount(engine.White), board.PipCount(engine.Black)},
		Finished: board.Finished(),
	})
}
