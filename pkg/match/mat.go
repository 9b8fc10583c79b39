package match

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/yourusername/tdgammon/pkg/engine"
)

// MAT format is the Jellyfish/gnubg match format. White is player 1 and
// takes the left column; points are numbered from the mover's side.
// Example format:
//
//	; [Player 1 "td"]
//	; [Player 2 "random"]
//	0 point match
//
//	Game 1
//	td : 0                          random : 0
//	1) 31: 8/5 6/5                  52: 24/22 13/8
//	2) 43: 24/20 13/10              ...

// matColumn is the width of the left column on move lines.
const matColumn = 32

// matIndent is the width of the "NNN) " move number prefix.
const matIndent = 5

var (
	gameHeaderRE = regexp.MustCompile(`^Game\s+(\d+)`)
	scoreLineRE  = regexp.MustCompile(`^(.+?)\s*:\s*(\d+)\s+(.+?)\s*:\s*(\d+)`)
	moveLineRE   = regexp.MustCompile(`^\s*(\d+)\)`)
	rollRE       = regexp.MustCompile(`([1-6])([1-6]):`)
	winsRE       = regexp.MustCompile(`Wins\s+\d+\s+points?`)
	tagRE        = regexp.MustCompile(`\[(\w+(?: \d)?)\s+"([^"]*)"\]`)
)

// ImportMAT reads a match from MAT format.
func ImportMAT(r io.Reader) (*Match, error) {
	scanner := bufio.NewScanner(r)
	match := &Match{
		Games: make([]*Game, 0),
	}

	var currentGame *Game
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if line == "" {
			continue
		}

		// Metadata comments
		if strings.HasPrefix(line, ";") {
			if m := tagRE.FindStringSubmatch(line); m != nil {
				switch strings.ToLower(m[1]) {
				case "player1", "player 1":
					match.White = m[2]
				case "player2", "player 2":
					match.Black = m[2]
				case "site", "place":
					match.Place = m[2]
				case "event":
					match.Event = m[2]
				case "date":
					match.Date = m[2]
				}
			}
			continue
		}

		if m := gameHeaderRE.FindStringSubmatch(line); m != nil {
			num, _ := strconv.Atoi(m[1])
			currentGame = NewGame(num)
			match.Games = append(match.Games, currentGame)
			continue
		}

		if currentGame == nil {
			// Match length and anything else before the first game
			continue
		}

		if loc := winsRE.FindStringIndex(raw); loc != nil {
			currentGame.Winner = matColumnSide(loc[0])
			continue
		}

		if moveLineRE.MatchString(line) {
			if err := parseMoveLineMAT(raw, currentGame); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			continue
		}

		// Score line (name : score   name : score)
		if m := scoreLineRE.FindStringSubmatch(line); m != nil {
			if match.White == "" {
				match.White = strings.TrimSpace(m[1])
			}
			if match.Black == "" {
				match.Black = strings.TrimSpace(m[3])
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading MAT file: %w", err)
	}

	return match, nil
}

// matColumnSide returns the side whose column starts at offset.
func matColumnSide(offset int) engine.Side {
	if offset >= matIndent+matColumn/2 {
		return engine.Black
	}
	return engine.White
}

// parseMoveLineMAT parses a single move line in MAT format.
// Format: "  1) 31: 8/5 6/5                  52: 24/22 13/8"
func parseMoveLineMAT(raw string, game *Game) error {
	rolls := rollRE.FindAllStringSubmatchIndex(raw, -1)
	if len(rolls) > 2 {
		return fmt.Errorf("%w: %d rolls on one line", ErrBadRecord, len(rolls))
	}

	for i, loc := range rolls {
		side := matColumnSide(loc[0])
		if len(rolls) == 2 {
			side = engine.White
			if i == 1 {
				side = engine.Black
			}
		}

		end := len(raw)
		if i+1 < len(rolls) {
			end = rolls[i+1][0]
		}

		die1, _ := strconv.Atoi(raw[loc[2]:loc[3]])
		die2, _ := strconv.Atoi(raw[loc[4]:loc[5]])
		play, err := parsePlayNotation(raw[loc[1]:end], side)
		if err != nil {
			return err
		}
		game.AddTurn(side, die1, die2, play)
	}
	return nil
}

// parsePlayNotation parses backgammon move notation like "8/5 6/5",
// "24/22(2)", "bar/22*" or "24/18/13", numbered from side's point of view.
// Empty text and "Cannot Move" are a pass.
func parsePlayNotation(notation string, side engine.Side) (engine.Play, error) {
	notation = strings.TrimSpace(notation)
	lower := strings.ToLower(notation)
	if notation == "" || strings.Contains(lower, "cannot") || strings.Contains(lower, "can't") {
		return engine.Play{}, nil
	}

	var moves []engine.Move
	for _, part := range strings.Fields(lower) {
		// "8/5(2)" moves two checkers
		count := 1
		if idx := strings.Index(part, "("); idx != -1 {
			endIdx := strings.Index(part, ")")
			if endIdx < idx {
				return engine.Play{}, fmt.Errorf("%w: %q", ErrBadRecord, part)
			}
			n, err := strconv.Atoi(part[idx+1 : endIdx])
			if err != nil || n < 1 {
				return engine.Play{}, fmt.Errorf("%w: %q", ErrBadRecord, part)
			}
			count = n
			part = part[:idx]
		}

		// "24/18/13" is one checker moving twice
		steps := strings.Split(strings.ReplaceAll(part, "*", ""), "/")
		if len(steps) < 2 {
			return engine.Play{}, fmt.Errorf("%w: %q", ErrBadRecord, part)
		}
		chain := make([]engine.Move, 0, len(steps)-1)
		for j := 1; j < len(steps); j++ {
			from, err := parsePoint(steps[j-1], side, true)
			if err != nil {
				return engine.Play{}, err
			}
			to, err := parsePoint(steps[j], side, false)
			if err != nil {
				return engine.Play{}, err
			}
			chain = append(chain, engine.Move{From: from, To: to})
		}
		for i := 0; i < count; i++ {
			moves = append(moves, chain...)
		}
	}

	if len(moves) > engine.MaxPlayLen {
		return engine.Play{}, fmt.Errorf("%w: %d moves in %q", ErrBadRecord, len(moves), notation)
	}
	return engine.NewPlay(moves...), nil
}

// parsePoint converts a point numbered from side's point of view into a
// board location. "bar" is only a start and "off" only an end.
func parsePoint(s string, side engine.Side, start bool) (engine.Location, error) {
	switch s {
	case "bar":
		if start {
			return engine.On, nil
		}
	case "off":
		if !start {
			return engine.Off, nil
		}
	default:
		n, err := strconv.Atoi(s)
		if err == nil && n >= 1 && n <= engine.NumPoints {
			return absPoint(n, side), nil
		}
	}
	return 0, fmt.Errorf("%w: point %q", ErrBadRecord, s)
}

// absPoint converts between side-relative and board point numbers; the
// mapping is its own inverse.
func absPoint(n int, side engine.Side) engine.Location {
	if side == engine.Black {
		n = engine.NumPoints + 1 - n
	}
	return engine.Location(n)
}

// ExportMAT writes a match in MAT format.
func ExportMAT(w io.Writer, match *Match) error {
	bw := bufio.NewWriter(w)

	if match.Place != "" {
		fmt.Fprintf(bw, " ; [Site \"%s\"]\n", match.Place)
	}
	if match.Event != "" {
		fmt.Fprintf(bw, " ; [Event \"%s\"]\n", match.Event)
	}
	if match.Date != "" {
		fmt.Fprintf(bw, " ; [Date \"%s\"]\n", match.Date)
	}
	fmt.Fprintf(bw, " ; [Player 1 \"%s\"]\n", match.White)
	fmt.Fprintf(bw, " ; [Player 2 \"%s\"]\n", match.Black)
	fmt.Fprintf(bw, " 0 point match\n\n")

	for _, game := range match.Games {
		exportGameMAT(bw, match, game)
	}

	return bw.Flush()
}

// exportGameMAT writes a single game in MAT format.
func exportGameMAT(w io.Writer, match *Match, game *Game) {
	fmt.Fprintf(w, " Game %d\n", game.Number)
	fmt.Fprintf(w, " %-*s %s : 0\n", matColumn, match.White+" : 0", match.Black)

	// White always opens a row; Black fills the right column
	var rows [][2]string
	for _, t := range game.Turns {
		col := 0
		if t.Side == engine.Black {
			col = 1
		}
		if col == 0 || len(rows) == 0 || rows[len(rows)-1][1] != "" {
			rows = append(rows, [2]string{})
		}
		rows[len(rows)-1][col] = formatTurnMAT(t)
	}

	for i, r := range rows {
		line := fmt.Sprintf("%3d) %-*s%s", i+1, matColumn, r[0], r[1])
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}

	switch game.Winner {
	case engine.White:
		fmt.Fprintf(w, "%*sWins 1 point\n", matIndent, "")
	case engine.Black:
		fmt.Fprintf(w, "%*sWins 1 point\n", matIndent+matColumn, "")
	}
	fmt.Fprintln(w)
}

// formatTurnMAT formats a roll and play, e.g. "31: 8/5 6/5".
func formatTurnMAT(t Turn) string {
	roll := fmt.Sprintf("%d%d:", t.Dice[0], t.Dice[1])
	if t.Play.IsPass() {
		return roll
	}

	parts := make([]string, t.Play.Len())
	for i := range parts {
		m := t.Play.Move(i)
		parts[i] = formatPointMAT(m.From, t.Side) + "/" + formatPointMAT(m.To, t.Side)
	}
	return roll + " " + strings.Join(parts, " ")
}

// formatPointMAT formats a location from side's point of view.
func formatPointMAT(loc engine.Location, side engine.Side) string {
	switch loc {
	case engine.On:
		return "bar"
	case engine.Off:
		return "off"
	}
	return strconv.Itoa(int(absPoint(int(loc), side)))
}
