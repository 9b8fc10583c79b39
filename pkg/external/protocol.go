// Package external implements gnubg's external player protocol.
// This allows the model to play inside other backgammon programs
// via a TCP socket using FIBS board format.
//
// Protocol overview:
// - Server listens on a TCP port
// - Client connects and sends one command per line
// - Commands include: evaluation, fibsboard, version, exit
// - Positions are sent in FIBS board format
// - Responses are the chosen play or the evaluation
package external

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yourusername/tdgammon/pkg/agent"
	"github.com/yourusername/tdgammon/pkg/engine"
)

// takePoint is the lowest winning chance at which a double is taken.
const takePoint = 0.25

// Server implements the external player protocol server.
type Server struct {
	model   agent.Evaluator
	options ServerOptions
	log     zerolog.Logger
	conns   sync.WaitGroup
}

// ServerOptions configures the external player server.
type ServerOptions struct {
	Host          string // Host to bind to
	Port          int    // TCP port to listen on
	PromptEnabled bool   // Send prompts after responses
}

// DefaultServerOptions returns sensible defaults.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		Host:          "localhost",
		Port:          1234,
		PromptEnabled: true,
	}
}

// NewServer creates a new external player server.
func NewServer(model agent.Evaluator, opts ServerOptions, logger zerolog.Logger) *Server {
	return &Server{
		model:   model,
		options: opts,
		log:     logger.With().Str("component", "external").Logger(),
	}
}

// ListenAndServe listens on the configured port and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.options.Host, s.options.Port)
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then closes
// every open connection and waits for their handlers.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info().Str("addr", ln.Addr().String()).Msg("starting external player server")
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer s.conns.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.log.Warn().Err(err).Msg("accept")
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// handleConnection handles a single client connection.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	log := s.log.With().Str("remote", conn.RemoteAddr().String()).Logger()
	log.Debug().Msg("external player connected")

	reader := bufio.NewScanner(conn)
	w := bufio.NewWriter(conn)

	if s.options.PromptEnabled {
		w.WriteString("> ")
		w.Flush()
	}

	for reader.Scan() {
		line := strings.TrimSpace(reader.Text())
		if line == "" {
			continue
		}

		w.WriteString(s.processCommand(ctx, line))
		if s.options.PromptEnabled {
			w.WriteString("> ")
		}
		if err := w.Flush(); err != nil {
			log.Debug().Err(err).Msg("write")
			return
		}

		cmd := strings.ToLower(line)
		if cmd == "exit" || cmd == "quit" {
			return
		}
	}
	log.Debug().Msg("external player disconnected")
}

// processCommand processes a single command and returns the response.
func (s *Server) processCommand(ctx context.Context, cmd string) string {
	parts := strings.Fields(cmd)
	command := strings.ToLower(parts[0])

	switch command {
	case "version":
		return "tdgammon external player protocol 1.0\n"

	case "help":
		return helpResponse

	case "exit", "quit":
		return "Goodbye\n"

	case "evaluation", "eval":
		return s.handleEvaluation(cmd)

	case "fibsboard", "board":
		return s.handleFIBSBoard(ctx, cmd)

	default:
		// A bare FIBS board asks for a play
		if strings.HasPrefix(cmd, "board:") {
			return s.handleFIBSBoard(ctx, cmd)
		}
		return fmt.Sprintf("Error: unknown command '%s'\n", command)
	}
}

const helpResponse = `Available commands:
  version     - Show version information
  help        - Show this help
  evaluation  - Evaluate a position (with FIBS board)
  fibsboard   - Get the play for a position
  exit        - Close connection
`

// parseBoard extracts the FIBS board following the command word.
func parseBoard(cmd string) (*FIBSBoard, engine.Board, error) {
	boardStart := strings.Index(cmd, "board:")
	if boardStart < 0 {
		return nil, engine.Board{}, errors.New("no board specified")
	}
	fb, err := ParseFIBSBoard(cmd[boardStart:])
	if err != nil {
		return nil, engine.Board{}, err
	}
	board, err := fb.Position()
	if err != nil {
		return nil, engine.Board{}, err
	}
	return fb, board, nil
}

// winChance returns your probability of winning the FIBS position.
func (s *Server) winChance(fb *FIBSBoard, board engine.Board) float64 {
	white := agent.Value(s.model, board, fb.ToMove())
	if fb.Side() == engine.Black {
		return 1 - white
	}
	return white
}

// handleEvaluation handles the evaluation command. The reply is equity
// followed by the win, win gammon, win backgammon, lose gammon and lose
// backgammon chances; the model predicts single wins only.
func (s *Server) handleEvaluation(cmd string) string {
	fb, board, err := parseBoard(cmd)
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}

	p := s.winChance(fb, board)
	return fmt.Sprintf("%.6f %.6f %.6f %.6f %.6f %.6f\n", 2*p-1, p, 0.0, 0.0, 0.0, 0.0)
}

// handleFIBSBoard handles the fibsboard command.
// Returns the play for a position, or a cube action.
func (s *Server) handleFIBSBoard(ctx context.Context, cmd string) string {
	fb, board, err := parseBoard(cmd)
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}

	// The model never offers a double; it takes one while it keeps
	// enough winning chances.
	if fb.Doubled {
		if s.winChance(fb, board) >= takePoint {
			return "take\n"
		}
		return "drop\n"
	}

	if fb.Dice[0] == 0 || fb.Dice[1] == 0 {
		return "roll\n"
	}
	if fb.Dice[0] < 1 || fb.Dice[0] > 6 || fb.Dice[1] < 1 || fb.Dice[1] > 6 {
		return "Error: dice must be 1-6\n"
	}

	side := fb.Side()
	legal := engine.GeneratePlays(board, side, engine.RollPips(fb.Dice[0], fb.Dice[1]))
	if len(legal) == 0 {
		return "cannot move\n"
	}

	g := engine.NewGameFrom(board, side, nil, nil, nil)
	play, err := agent.NewLearned(s.model).Choose(ctx, legal, g)
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}
	return FormatPlay(play, side) + "\n"
}
