package match

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/yourusername/tdgammon/pkg/engine"
)

// SGF (Smart Game Format) is a standard format for recording games.
// See: https://www.red-bean.com/sgf/backgammon.html
//
// Each turn is a node holding the roll followed by the moves, two letters
// per move numbered from the mover's side: a=1 ... x=24, y=bar, z=off.
//
// Example SGF:
// (;FF[4]GM[6]AP[tdgammon:0.1]
//  PW[td]PB[random]
//  ;W[31hefe]
//  ;B[52xvmh]
//  ...
//  RE[W+1])

var (
	sgfPropertyRE = regexp.MustCompile(`([A-Z]+)\[([^\]]*)\]`)
	sgfResultRE   = regexp.MustCompile(`^([WB])\+`)
)

// ImportSGF reads a match from SGF format.
func ImportSGF(r io.Reader) (*Match, error) {
	content, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("reading SGF file: %w", err)
	}

	match := &Match{
		Games: make([]*Game, 0),
	}
	for i, gameContent := range splitSGFGames(string(content)) {
		game, err := parseSGFGame(gameContent, i+1)
		if err != nil {
			return nil, fmt.Errorf("parsing game %d: %w", i+1, err)
		}

		// Match info comes from the first game
		if i == 0 {
			extractMatchInfo(gameContent, match)
		}
		match.Games = append(match.Games, game)
	}

	return match, nil
}

// splitSGFGames splits SGF content into individual game trees.
func splitSGFGames(content string) []string {
	var games []string
	depth := 0
	start := -1

	for i, ch := range content {
		if ch == '(' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == ')' {
			depth--
			if depth == 0 && start >= 0 {
				games = append(games, content[start:i+1])
				start = -1
			}
		}
	}

	return games
}

// extractMatchInfo extracts match-level info from SGF properties.
func extractMatchInfo(content string, match *Match) {
	props := parseSGFProperties(content)

	if pw, ok := props["PW"]; ok {
		match.White = pw
	}
	if pb, ok := props["PB"]; ok {
		match.Black = pb
	}
	if dt, ok := props["DT"]; ok {
		match.Date = dt
	}
	if ev, ok := props["EV"]; ok {
		match.Event = ev
	}
	if pc, ok := props["PC"]; ok {
		match.Place = pc
	}
}

// parseSGFProperties extracts all properties from SGF content.
func parseSGFProperties(content string) map[string]string {
	props := make(map[string]string)
	for _, m := range sgfPropertyRE.FindAllStringSubmatch(content, -1) {
		props[m[1]] = m[2]
	}
	return props
}

// parseSGFGame parses a single SGF game tree.
func parseSGFGame(content string, gameNum int) (*Game, error) {
	game := NewGame(gameNum)

	// Nodes are separated by ';'; the first holds the game properties
	nodes := strings.Split(content, ";")
	for _, node := range nodes[1:] {
		if err := parseSGFNode(node, game); err != nil {
			return nil, err
		}
	}

	return game, nil
}

// parseSGFNode adds the turn or result held by a node to the game.
func parseSGFNode(node string, game *Game) error {
	props := parseSGFProperties(node)

	for _, side := range []engine.Side{engine.White, engine.Black} {
		value, ok := props[sgfSide(side)]
		if !ok {
			continue
		}
		if len(value) < 2 || value[0] < '1' || value[0] > '6' || value[1] < '1' || value[1] > '6' {
			return fmt.Errorf("%w: roll %q", ErrBadRecord, value)
		}
		play, err := parseSGFPlay(value[2:], side)
		if err != nil {
			return err
		}
		game.AddTurn(side, int(value[0]-'0'), int(value[1]-'0'), play)
	}

	if re, ok := props["RE"]; ok {
		if m := sgfResultRE.FindStringSubmatch(re); m != nil {
			game.Winner = engine.White
			if m[1] == "B" {
				game.Winner = engine.Black
			}
		}
	}
	return nil
}

func sgfSide(side engine.Side) string {
	if side == engine.Black {
		return "B"
	}
	return "W"
}

// parseSGFPlay parses SGF move letters, two per move.
func parseSGFPlay(s string, side engine.Side) (engine.Play, error) {
	if len(s)%2 != 0 || len(s) > 2*engine.MaxPlayLen {
		return engine.Play{}, fmt.Errorf("%w: moves %q", ErrBadRecord, s)
	}

	moves := make([]engine.Move, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		from, to := sgfLocation(s[i], side), sgfLocation(s[i+1], side)
		if from < 0 || to < 0 || from == engine.Off || to == engine.On {
			return engine.Play{}, fmt.Errorf("%w: move %q", ErrBadRecord, s[i:i+2])
		}
		moves = append(moves, engine.Move{From: from, To: to})
	}
	return engine.NewPlay(moves...), nil
}

// sgfLocation converts an SGF point letter to a board location, or -1.
func sgfLocation(ch byte, side engine.Side) engine.Location {
	switch {
	case ch == 'y':
		return engine.On
	case ch == 'z':
		return engine.Off
	case ch >= 'a' && ch <= 'x':
		return absPoint(int(ch-'a')+1, side)
	}
	return -1
}

// sgfLetter converts a board location to its SGF point letter.
func sgfLetter(loc engine.Location, side engine.Side) byte {
	switch loc {
	case engine.On:
		return 'y'
	case engine.Off:
		return 'z'
	}
	return byte('a' + int(absPoint(int(loc), side)) - 1)
}

// ExportSGF writes a match in SGF format, one game tree per game.
func ExportSGF(w io.Writer, match *Match) error {
	bw := bufio.NewWriter(w)
	for _, game := range match.Games {
		exportGameSGF(bw, match, game)
	}
	return bw.Flush()
}

// exportGameSGF writes a single game in SGF format.
func exportGameSGF(w io.Writer, match *Match, game *Game) {
	fmt.Fprintf(w, "(;FF[4]GM[6]AP[tdgammon:0.1]\n")
	fmt.Fprintf(w, "PW[%s]PB[%s]\n", match.White, match.Black)
	fmt.Fprintf(w, "MI[length:0][game:%d][ws:0][bs:0]\n", game.Number-1)
	if match.Date != "" {
		fmt.Fprintf(w, "DT[%s]\n", match.Date)
	}
	if match.Event != "" {
		fmt.Fprintf(w, "EV[%s]\n", match.Event)
	}
	if match.Place != "" {
		fmt.Fprintf(w, "PC[%s]\n", match.Place)
	}

	for _, t := range game.Turns {
		fmt.Fprintf(w, ";%s[%d%d%s]\n", sgfSide(t.Side), t.Dice[0], t.Dice[1], formatPlaySGF(t.Play, t.Side))
	}

	if game.Winner == engine.White || game.Winner == engine.Black {
		fmt.Fprintf(w, ";RE[%s+1]\n", sgfSide(game.Winner))
	}
	fmt.Fprintf(w, ")\n")
}

// formatPlaySGF formats a play in SGF notation.
func formatPlaySGF(play engine.Play, side engine.Side) string {
	var result strings.Builder
	for i := 0; i < play.Len(); i++ {
		m := play.Move(i)
		result.WriteByte(sgfLetter(m.From, side))
		result.WriteByte(sgfLetter(m.To, side))
	}
	return result.String()
}
