package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yourusername/tdgammon/pkg/engine"
)

// Human reads moves typed at a console.
//
// Each move is entered on its own line as "<start>,<end>", e.g. "13,10"
// or "on,20". A blank line ends the play early once at least one move has
// been entered.
type Human struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewHuman returns a Human reading from r and prompting on w.
func NewHuman(r io.Reader, w io.Writer) *Human {
	return &Human{in: bufio.NewScanner(r), out: w}
}

// readLine blocks until a line is available.
func (h *Human) readLine() (string, error) {
	if !h.in.Scan() {
		if err := h.in.Err(); err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return "", fmt.Errorf("reading input: %w", io.EOF)
	}
	return strings.TrimSpace(h.in.Text()), nil
}

// Choose shows the board and legal plays, then reads moves until they
// form a legal play.
func (h *Human) Choose(ctx context.Context, legal []engine.Play, g *engine.Game) (engine.Play, error) {
	side := g.Turn()
	fmt.Fprintln(h.out, g.Board())
	fmt.Fprintf(h.out, "%s to move, rolled %v\n", side, g.Pips())

	if len(legal) == 0 {
		fmt.Fprint(h.out, "No moves for you...(hit enter)")
		if _, err := h.readLine(); err != nil {
			return engine.Play{}, err
		}
		return engine.Play{}, nil
	}

	maxLen := 0
	fmt.Fprintln(h.out, "Legal plays:")
	for i, p := range legal {
		fmt.Fprintf(h.out, "  %2d: %s", i+1, p)
		switch hits := engine.CountHits(g.Board(), side, p); hits {
		case 0:
		case 1:
			fmt.Fprint(h.out, " (hit)")
		default:
			fmt.Fprintf(h.out, " (%d hits)", hits)
		}
		fmt.Fprintln(h.out)
		maxLen = max(maxLen, p.Len())
	}

	for {
		if err := ctx.Err(); err != nil {
			return engine.Play{}, err
		}
		moves, err := h.readMoves(maxLen)
		if err != nil {
			return engine.Play{}, err
		}
		if p, ok := engine.FindPlay(legal, engine.NewPlay(moves...)); ok {
			return p, nil
		}
		fmt.Fprintln(h.out, "You can't play that move")
	}
}

// readMoves reads up to n moves, reprompting on malformed input.
func (h *Human) readMoves(n int) ([]engine.Move, error) {
	moves := make([]engine.Move, 0, n)
	for len(moves) < n {
		fmt.Fprintf(h.out, "Move %d of %d (from,to): ", len(moves)+1, n)
		line, err := h.readLine()
		if err != nil {
			return nil, err
		}
		if line == "" {
			if len(moves) > 0 {
				break
			}
			continue
		}
		m, err := engine.ParseMove(line)
		if err != nil {
			if !errors.Is(err, engine.ErrMalformedMove) {
				return nil, err
			}
			fmt.Fprintf(h.out, "Bad move %q, enter it as <start>,<end> with start 1-24 or on, end 1-24 or off\n", line)
			continue
		}
		moves = append(moves, m)
	}
	return moves, nil
}
