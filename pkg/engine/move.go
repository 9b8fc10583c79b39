package engine

import (
	"strings"
)

// MaxPlayLen is the longest play: four moves on doubles.
const MaxPlayLen = 4

// Move is a single checker movement.
type Move struct {
	From Location // point or On
	To   Location // point or Off
}

// pipPos returns the distance of a location from side's off tray.
func pipPos(side Side, loc Location) int {
	switch loc {
	case On:
		return 25
	case Off:
		return 0
	}
	if side == White {
		return int(loc)
	}
	return 25 - int(loc)
}

// Distance returns how far side's checker travels with m.
func (m Move) Distance(side Side) int {
	return pipPos(side, m.From) - pipPos(side, m.To)
}

func (m Move) String() string {
	return m.From.String() + "," + m.To.String()
}

// Play is the full sequence of moves made in one turn. The zero Play is
// a pass. Play is comparable and can be used as a map key.
type Play struct {
	moves [MaxPlayLen]Move
	n     uint8
}

// NewPlay builds a play from up to four moves.
func NewPlay(moves ...Move) Play {
	if len(moves) > MaxPlayLen {
		panic("engine: play longer than four moves")
	}
	var p Play
	for _, m := range moves {
		p = p.with(m)
	}
	return p
}

func (p Play) with(m Move) Play {
	p.moves[p.n] = m
	p.n++
	return p
}

// Len returns the number of moves in the play.
func (p Play) Len() int {
	return int(p.n)
}

// IsPass reports whether the play moves no checker.
func (p Play) IsPass() bool {
	return p.n == 0
}

// Move returns the i-th move.
func (p Play) Move(i int) Move {
	return p.moves[i]
}

// Moves returns a copy of the moves in order.
func (p Play) Moves() []Move {
	out := make([]Move, p.n)
	copy(out, p.moves[:p.n])
	return out
}

// Reverse returns the play with its moves in reverse order.
func (p Play) Reverse() Play {
	var r Play
	for i := int(p.n) - 1; i >= 0; i-- {
		r = r.with(p.moves[i])
	}
	return r
}

func (p Play) String() string {
	if p.n == 0 {
		return "pass"
	}
	parts := make([]string, p.n)
	for i := range parts {
		parts[i] = p.moves[i].String()
	}
	return strings.Join(parts, " ")
}

// GeneratePlays returns every legal play for side with the given pips.
//
// Only plays using the largest possible number of pips are returned, and
// when just one die can be played the larger one is required. Plays that
// differ only in move order are all kept; exact duplicates are not. An
// empty result means side must pass.
func GeneratePlays(board Board, side Side, pips Pips) []Play {
	g := &generator{
		side: side,
		seen: make(map[Play]struct{}),
	}
	g.search(board, pips, Play{}, 0)
	return g.plays
}

type generator struct {
	side    Side
	plays   []Play
	seen    map[Play]struct{}
	maxLen  int
	maxPips int
}

// search tries every distinct remaining pip from every source. Each branch
// works on its own copy of the board.
func (g *generator) search(board Board, pips []int, cur Play, used int) {
	moved := false
	for k, pip := range pips {
		if containsPip(pips[:k], pip) {
			continue
		}
		rest := withoutPip(pips, k)

		for src := barIndex; src >= 0; src-- {
			if board.Checkers[g.side][src] == 0 {
				continue
			}
			if legalMove(board, g.side, src, pip) {
				next := board
				applySubMove(&next, g.side, src, pip)
				play := cur.with(subMove(g.side, src, pip))
				if next.Borne[g.side] == NumCheckers {
					// Bearing off the last checker ends the turn with every pip spent.
					g.record(play, play.Len()+len(rest), used+pip+sumPips(rest))
				} else {
					g.search(next, rest, play, used+pip)
				}
				moved = true
			}
			// Checkers on the bar must enter before anything else moves.
			if src == barIndex {
				break
			}
		}
	}
	if !moved {
		g.record(cur, cur.Len(), used)
	}
}

// record keeps p if no longer play has been found. n is the number of
// pips the play accounts for, used their total value.
func (g *generator) record(p Play, n, used int) {
	if p.n == 0 {
		return
	}
	switch {
	case n < g.maxLen, n == g.maxLen && used < g.maxPips:
		return
	case n > g.maxLen || used > g.maxPips:
		g.plays = g.plays[:0]
		clear(g.seen)
		g.maxLen = n
		g.maxPips = used
	}
	if _, dup := g.seen[p]; dup {
		return
	}
	g.seen[p] = struct{}{}
	g.plays = append(g.plays, p)
}

func containsPip(pips []int, pip int) bool {
	for _, p := range pips {
		if p == pip {
			return true
		}
	}
	return false
}

func sumPips(pips []int) int {
	n := 0
	for _, p := range pips {
		n += p
	}
	return n
}

func withoutPip(pips []int, k int) []int {
	out := make([]int, 0, len(pips)-1)
	out = append(out, pips[:k]...)
	return append(out, pips[k+1:]...)
}

// subMove converts a side-relative source and pip into an absolute Move.
func subMove(side Side, src, pip int) Move {
	m := Move{From: On, To: Off}
	if src != barIndex {
		m.From = Location(absPoint(side, src))
	}
	if dst := src - pip; dst >= 0 {
		m.To = Location(absPoint(side, dst))
	}
	return m
}

// legalMove checks if moving side's checker at src by pip is legal.
func legalMove(board Board, side Side, src, pip int) bool {
	dst := src - pip

	if dst >= 0 {
		// Blocked when the opponent holds two or more checkers there
		return board.Checkers[side.Opponent()][23-dst] < 2
	}

	// Bearing off - every checker must be in the home board
	back := barIndex
	for back > 0 && board.Checkers[side][back] == 0 {
		back--
	}

	// Exact roll, or a larger roll from the rearmost checker
	return back <= 5 && (dst == -1 || src == back)
}

// applySubMove moves side's checker at src by pip, hitting a lone
// opposing checker on the destination.
func applySubMove(board *Board, side Side, src, pip int) {
	dst := src - pip

	board.Checkers[side][src]--

	if dst < 0 {
		board.Borne[side]++
		return
	}

	opp := side.Opponent()
	if board.Checkers[opp][23-dst] == 1 {
		board.Checkers[opp][23-dst] = 0
		board.Checkers[opp][barIndex]++
	}

	board.Checkers[side][dst]++
}

// srcIndex returns the side-relative index a move starts from.
func srcIndex(side Side, loc Location) int {
	if loc == On {
		return barIndex
	}
	return relIndex(side, int(loc))
}

// ApplyMove applies a single move for side without validating it.
func (b *Board) ApplyMove(side Side, m Move) {
	applySubMove(b, side, srcIndex(side, m.From), m.Distance(side))
}

// Apply applies every move of p for side, in order, without validating them.
func (b *Board) Apply(side Side, p Play) {
	for i := 0; i < int(p.n); i++ {
		b.ApplyMove(side, p.moves[i])
	}
}

// After returns the board that results from side making play p.
func (b Board) After(side Side, p Play) Board {
	b.Apply(side, p)
	return b
}

// CountHits counts how many opposing blots p hits.
func CountHits(board Board, side Side, p Play) int {
	hits := 0
	opp := side.Opponent()
	for i := 0; i < int(p.n); i++ {
		m := p.moves[i]
		if m.To.IsPoint() && board.Checkers[opp][relIndex(opp, int(m.To))] == 1 {
			hits++
		}
		board.ApplyMove(side, m)
	}
	return hits
}
