package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/tdgammon/internal/positionid"
	"github.com/yourusername/tdgammon/pkg/agent"
	"github.com/yourusername/tdgammon/pkg/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins - configure properly in production
	},
}

const writeWait = 10 * time.Second

// errClientGone ends a session when the client stops reading.
var errClientGone = errors.New("client disconnected")

const msgNotYourTurn = "not your turn"

// WSMessage is a generic WebSocket message.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSResponse is a generic WebSocket response.
type WSResponse struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Play handles WS /api/play: a game between the client and the model.
// The query parameter side picks the client's colour (default white).
func (h *Handlers) Play(w http.ResponseWriter, r *http.Request) {
	if h.model == nil {
		writeError(w, http.StatusServiceUnavailable, "no model loaded", "NO_MODEL")
		return
	}
	side := engine.White
	if s := r.URL.Query().Get("side"); s != "" {
		var err error
		if side, err = engine.ParseSide(s); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "INVALID_SIDE")
			return
		}
	}
	if !h.pool.TryAcquireSession() {
		writeError(w, http.StatusServiceUnavailable, "too many sessions", "SERVER_BUSY")
		return
	}
	defer h.pool.ReleaseSession()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	// The server's read timeout covers the handshake only; a player may think.
	conn.SetReadDeadline(time.Time{})

	id := h.sessions.Add(1)
	s := &session{
		conn: conn,
		side: side,
		log:  h.log.With().Uint64("session", id).Stringer("side", side).Logger(),
	}
	s.log.Info().Msg("play session started")

	err = s.run(r.Context(), agent.NewLearned(h.model), engine.NewDice(h.seed+id))
	if err != nil && !errors.Is(err, errClientGone) && !errors.Is(err, context.Canceled) {
		s.log.Error().Err(err).Msg("play session failed")
		return
	}
	s.log.Info().Msg("play session ended")
}

// session is one remote game. The client is the engine.Agent for side.
type session struct {
	conn *websocket.Conn
	side engine.Side
	log  zerolog.Logger

	mu sync.Mutex // serialises writes

	turnMu sync.Mutex
	turn   *clientTurn // nil while the model is on roll
}

// clientTurn hands client moves to the Choose call waiting for them.
// done is closed when that call returns.
type clientTurn struct {
	moves chan WSMessage
	done  chan struct{}
}

func (s *session) beginTurn() *clientTurn {
	t := &clientTurn{moves: make(chan WSMessage), done: make(chan struct{})}
	s.turnMu.Lock()
	s.turn = t
	s.turnMu.Unlock()
	return t
}

func (s *session) endTurn(t *clientTurn) {
	s.turnMu.Lock()
	if s.turn == t {
		s.turn = nil
	}
	s.turnMu.Unlock()
	close(t.done)
}

func (s *session) currentTurn() *clientTurn {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	return s.turn
}

// deliver passes msg to the pending client turn. Moves sent while no turn
// is pending are rejected rather than queued for the next one.
func (s *session) deliver(ctx context.Context, msg WSMessage) error {
	if t := s.currentTurn(); t != nil {
		select {
		case t.moves <- msg:
			return nil
		case <-t.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := s.writeError(msgNotYourTurn); err != nil {
		return errClientGone
	}
	return nil
}

func (s *session) write(resp WSResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(resp)
}

func (s *session) writeError(msg string) error {
	return s.write(WSResponse{Type: MsgError, Error: msg})
}

// run plays the game while a second goroutine reads client messages.
func (s *session) run(ctx context.Context, model engine.Agent, dice *engine.Dice) error {
	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)

	g.Go(func() error {
		return s.readPump(ctx)
	})
	g.Go(func() error {
		defer cancel()
		defer s.conn.Close()
		return s.playGame(ctx, model, dice)
	})
	return g.Wait()
}

func (s *session) readPump(ctx context.Context) error {
	for {
		var msg WSMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			return errClientGone
		}
		switch msg.Type {
		case MsgPing:
			if err := s.write(WSResponse{Type: MsgPong}); err != nil {
				return errClientGone
			}
		case MsgMove:
			if err := s.deliver(ctx, msg); err != nil {
				return err
			}
		default:
			if err := s.writeError(fmt.Sprintf("unknown message type %q", msg.Type)); err != nil {
				return errClientGone
			}
		}
	}
}

func (s *session) playGame(ctx context.Context, model engine.Agent, dice *engine.Dice) error {
	white, black := engine.Agent(s), model
	if s.side == engine.Black {
		white, black = model, s
	}
	g := engine.NewGame(white, black, dice)
	if err := s.write(WSResponse{Type: MsgState, Payload: statePayload(g)}); err != nil {
		return errClientGone
	}

	for !g.Finished() {
		mover := g.Turn()
		if err := g.Step(ctx); err != nil {
			return err
		}
		if mover != s.side || g.Finished() {
			if err := s.write(WSResponse{Type: MsgState, Payload: statePayload(g)}); err != nil {
				return errClientGone
			}
		}
	}

	winner, _ := g.Winner()
	s.log.Info().Stringer("winner", winner).Int("turns", g.Turns()).Msg("play session game over")
	return s.write(WSResponse{Type: MsgOver, Payload: statePayload(g)})
}

// Choose sends the legal plays to the client and waits for one of them.
// Malformed or illegal replies are answered with an error message and the
// client is asked again.
func (s *session) Choose(ctx context.Context, legal []engine.Play, g *engine.Game) (engine.Play, error) {
	payload := statePayload(g)
	payload.Legal = make([]string, len(legal))
	for i, p := range legal {
		payload.Legal[i] = p.String()
	}
	if len(legal) == 0 {
		if err := s.write(WSResponse{Type: MsgTurn, Payload: payload}); err != nil {
			return engine.Play{}, errClientGone
		}
		return engine.Play{}, nil
	}

	turn := s.beginTurn()
	defer s.endTurn(turn)
	if err := s.write(WSResponse{Type: MsgTurn, Payload: payload}); err != nil {
		return engine.Play{}, errClientGone
	}

	for {
		var msg WSMessage
		select {
		case <-ctx.Done():
			return engine.Play{}, ctx.Err()
		case msg = <-turn.moves:
		}

		var req MovePayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			if err := s.writeError("invalid payload"); err != nil {
				return engine.Play{}, errClientGone
			}
			continue
		}
		p, err := engine.ParsePlay(req.Play)
		if err != nil {
			if err := s.writeError(err.Error()); err != nil {
				return engine.Play{}, errClientGone
			}
			continue
		}
		if lp, ok := engine.FindPlay(legal, p); ok {
			return lp, nil
		}
		if err := s.writeError("You can't play that move"); err != nil {
			return engine.Play{}, errClientGone
		}
	}
}

func statePayload(g *engine.Game) StatePayload {
	p := StatePayload{
		Position: positionid.Encode(g.Board(), g.Turn()),
		Board:    g.Board().String(),
		Turn:     g.Turn().String(),
		Dice:     g.Pips(),
	}
	if g.Turns() > 0 {
		p.LastPlay = g.LastPlay().String()
	}
	if w, ok := g.Winner(); ok {
		p.Winner = w.String()
	}
	return p
}
