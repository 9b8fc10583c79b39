package match

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yourusername/tdgammon/pkg/agent"
	"github.com/yourusername/tdgammon/pkg/engine"
)

func mustPlay(t *testing.T, s string) engine.Play {
	t.Helper()
	p, err := engine.ParsePlay(s)
	if err != nil {
		t.Fatalf("ParsePlay(%q): %v", s, err)
	}
	return p
}

// recordMatch records random games between two random players.
func recordMatch(t *testing.T, games int) *Match {
	t.Helper()
	m := NewMatch("td", "random")
	dice := engine.NewDice(21)
	for i := 1; i <= games; i++ {
		g := engine.NewGame(agent.NewRandom(uint64(i)), agent.NewRandom(uint64(100+i)), dice)
		rec, err := Record(context.Background(), g, i)
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		m.Games = append(m.Games, rec)
	}
	return m
}

func TestNewMatch(t *testing.T) {
	m := NewMatch("Alice", "Bob")
	if m.White != "Alice" {
		t.Errorf("White = %q, want %q", m.White, "Alice")
	}
	if m.Black != "Bob" {
		t.Errorf("Black = %q, want %q", m.Black, "Bob")
	}
	g := NewGame(3)
	if g.Number != 3 || g.Winner != engine.NoSide {
		t.Errorf("NewGame(3) = %+v", g)
	}
}

func TestRecord(t *testing.T) {
	m := recordMatch(t, 3)
	for _, g := range m.Games {
		if g.Winner == engine.NoSide {
			t.Fatalf("game %d has no winner", g.Number)
		}
		if last := g.Turns[len(g.Turns)-1]; last.Side != g.Winner {
			t.Errorf("game %d: last turn by %s, winner %s", g.Number, last.Side, g.Winner)
		}
		board, err := g.Replay()
		if err != nil {
			t.Fatalf("game %d: Replay: %v", g.Number, err)
		}
		if w, _ := board.Winner(); w != g.Winner {
			t.Errorf("game %d: replayed winner %s, want %s", g.Number, w, g.Winner)
		}
	}
}

func TestRecordCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := engine.NewGame(agent.NewRandom(1), agent.NewRandom(2), engine.NewDice(1))
	rec, err := Record(ctx, g, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Record error = %v, want context.Canceled", err)
	}
	if len(rec.Turns) != 0 {
		t.Errorf("Turns = %d, want 0", len(rec.Turns))
	}
}

func TestReplayRejectsIllegalTurns(t *testing.T) {
	tests := []struct {
		name  string
		turns []Turn
	}{
		{"illegal play", []Turn{{engine.White, [2]int{3, 1}, mustPlay(t, "24,18 24,18")}}},
		{"pass with moves available", []Turn{{engine.White, [2]int{3, 1}, engine.Play{}}}},
		{"same side twice", []Turn{
			{engine.White, [2]int{3, 1}, mustPlay(t, "8,5 6,5")},
			{engine.White, [2]int{3, 1}, mustPlay(t, "8,5 6,5")},
		}},
		{"bad die", []Turn{{engine.White, [2]int{7, 1}, mustPlay(t, "24,17 24,23")}}},
		{"no side", []Turn{{engine.NoSide, [2]int{3, 1}, mustPlay(t, "8,5 6,5")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGame(1)
			g.Turns = tt.turns
			if _, err := g.Replay(); !errors.Is(err, ErrIllegalTurn) {
				t.Errorf("Replay error = %v, want ErrIllegalTurn", err)
			}
		})
	}

	t.Run("wrong winner", func(t *testing.T) {
		g := NewGame(1)
		g.AddTurn(engine.White, 3, 1, mustPlay(t, "8,5 6,5"))
		g.Winner = engine.White
		if _, err := g.Replay(); !errors.Is(err, ErrIllegalTurn) {
			t.Errorf("Replay error = %v, want ErrIllegalTurn", err)
		}
	})
}

func TestReplayAcceptsAnyMoveOrder(t *testing.T) {
	g := NewGame(1)
	g.AddTurn(engine.White, 3, 1, mustPlay(t, "6,5 8,5"))
	g.AddTurn(engine.Black, 6, 6, mustPlay(t, "1,7 12,18 1,7 12,18"))
	board, err := g.Replay()
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if side, n := board.At(7); side != engine.Black || n != 2 {
		t.Errorf("point 7 = %s x%d, want black x2", side, n)
	}
}

func TestImportMAT(t *testing.T) {
	matContent := " ; [Site \"TestSite\"]\n ; [Player 1 \"Alice\"]\n ; [Player 2 \"Bob\"]\n 0 point match\n\n Game 1\n Alice : 0                          Bob : 0\n  1) 31: 8/5 6/5                    52: 24/22 13/8\n  2) 66: 24/18(2) 13/7*(2)\n"

	match, err := ImportMAT(strings.NewReader(matContent))
	if err != nil {
		t.Fatalf("ImportMAT error: %v", err)
	}

	if match.White != "Alice" {
		t.Errorf("White = %q, want %q", match.White, "Alice")
	}
	if match.Place != "TestSite" {
		t.Errorf("Place = %q, want %q", match.Place, "TestSite")
	}
	if len(match.Games) != 1 {
		t.Fatalf("Games = %d, want 1", len(match.Games))
	}

	turns := match.Games[0].Turns
	want := []Turn{
		{engine.White, [2]int{3, 1}, mustPlay(t, "8,5 6,5")},
		{engine.Black, [2]int{5, 2}, mustPlay(t, "1,3 12,17")},
		{engine.White, [2]int{6, 6}, mustPlay(t, "24,18 24,18 13,7 13,7")},
	}
	if len(turns) != len(want) {
		t.Fatalf("Turns = %d, want %d", len(turns), len(want))
	}
	for i := range want {
		if turns[i] != want[i] {
			t.Errorf("turn %d = %+v, want %+v", i+1, turns[i], want[i])
		}
	}
	if _, err := match.Games[0].Replay(); err != nil {
		t.Errorf("Replay: %v", err)
	}
}

func TestImportMATErrors(t *testing.T) {
	for _, line := range []string{
		"  1) 31: 8/5 6/x",
		"  1) 31: bar",
		"  1) 31: 8/off/5",
		"  1) 66: 24/18(5)",
		"  1) 31: 8/5(0)",
	} {
		_, err := ImportMAT(strings.NewReader(" Game 1\n" + line + "\n"))
		if !errors.Is(err, ErrBadRecord) {
			t.Errorf("%q: error = %v, want ErrBadRecord", line, err)
		}
	}
}

func TestMATRoundTrip(t *testing.T) {
	m := recordMatch(t, 3)
	m.Event = "self test"

	var buf bytes.Buffer
	if err := ExportMAT(&buf, m); err != nil {
		t.Fatalf("ExportMAT error: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "[Player 1 \"td\"]") || !strings.Contains(output, "Wins 1 point") {
		t.Errorf("output missing expected content:\n%s", output)
	}

	got, err := ImportMAT(&buf)
	if err != nil {
		t.Fatalf("ImportMAT error: %v", err)
	}
	compareMatches(t, m, got)
}

func TestMATBlackOpens(t *testing.T) {
	m := NewMatch("a", "b")
	g := NewGame(1)
	g.AddTurn(engine.Black, 5, 2, mustPlay(t, "1,3 12,17"))
	g.AddTurn(engine.White, 3, 1, mustPlay(t, "8,5 6,5"))
	m.Games = append(m.Games, g)

	var buf bytes.Buffer
	if err := ExportMAT(&buf, m); err != nil {
		t.Fatalf("ExportMAT error: %v", err)
	}
	if !strings.Contains(buf.String(), "  1) "+strings.Repeat(" ", matColumn)+"52: 24/22 13/8\n") {
		t.Errorf("black opening not in the right column:\n%s", buf.String())
	}

	got, err := ImportMAT(&buf)
	if err != nil {
		t.Fatalf("ImportMAT error: %v", err)
	}
	compareMatches(t, m, got)
}

func TestImportSGF(t *testing.T) {
	sgfContent := "(;FF[4]GM[6]AP[gnubg]PW[Alice]PB[Bob]MI[length:0]DT[2024-01-15];W[31hefe];B[52xvmh])"

	match, err := ImportSGF(strings.NewReader(sgfContent))
	if err != nil {
		t.Fatalf("ImportSGF error: %v", err)
	}

	if match.White != "Alice" || match.Black != "Bob" {
		t.Errorf("players = %q, %q", match.White, match.Black)
	}
	if match.Date != "2024-01-15" {
		t.Errorf("Date = %q", match.Date)
	}
	if len(match.Games) != 1 {
		t.Fatalf("Games = %d, want 1", len(match.Games))
	}
	turns := match.Games[0].Turns
	if len(turns) != 2 {
		t.Fatalf("Turns = %d, want 2", len(turns))
	}
	if want := mustPlay(t, "1,3 12,17"); turns[1].Play != want {
		t.Errorf("black play = %s, want %s", turns[1].Play, want)
	}
	if _, err := match.Games[0].Replay(); err != nil {
		t.Errorf("Replay: %v", err)
	}
}

func TestImportSGFErrors(t *testing.T) {
	for _, content := range []string{
		"(;FF[4];W[71hefe])",
		"(;FF[4];W[31heh])",
		"(;FF[4];W[31zh])",
		"(;FF[4];W[31hy])",
	} {
		if _, err := ImportSGF(strings.NewReader(content)); !errors.Is(err, ErrBadRecord) {
			t.Errorf("%q: error = %v, want ErrBadRecord", content, err)
		}
	}
}

func TestSGFRoundTrip(t *testing.T) {
	m := recordMatch(t, 2)

	var buf bytes.Buffer
	if err := ExportSGF(&buf, m); err != nil {
		t.Fatalf("ExportSGF error: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "FF[4]") || !strings.Contains(output, "GM[6]") {
		t.Error("Output missing SGF markers")
	}

	got, err := ImportSGF(&buf)
	if err != nil {
		t.Fatalf("ImportSGF error: %v", err)
	}
	compareMatches(t, m, got)
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		s     string
		side  engine.Side
		start bool
		want  engine.Location
	}{
		{"bar", engine.White, true, engine.On},
		{"bar", engine.Black, true, engine.On},
		{"off", engine.White, false, engine.Off},
		{"8", engine.White, true, 8},
		{"8", engine.Black, false, 17},
		{"24", engine.Black, true, 1},
	}
	for _, tt := range tests {
		got, err := parsePoint(tt.s, tt.side, tt.start)
		if err != nil || got != tt.want {
			t.Errorf("parsePoint(%q, %s) = %v, %v; want %v", tt.s, tt.side, got, err, tt.want)
		}
	}
	if _, err := parsePoint("off", engine.White, true); err == nil {
		t.Error("parsePoint(off) as a start should fail")
	}
}

func compareMatches(t *testing.T, want, got *Match) {
	t.Helper()
	if got.White != want.White || got.Black != want.Black {
		t.Errorf("players = %q, %q; want %q, %q", got.White, got.Black, want.White, want.Black)
	}
	if len(got.Games) != len(want.Games) {
		t.Fatalf("Games = %d, want %d", len(got.Games), len(want.Games))
	}
	for i, g := range want.Games {
		gg := got.Games[i]
		if gg.Number != g.Number || gg.Winner != g.Winner {
			t.Errorf("game %d: number %d winner %s; want %d %s", i, gg.Number, gg.Winner, g.Number, g.Winner)
		}
		if len(gg.Turns) != len(g.Turns) {
			t.Fatalf("game %d: %d turns, want %d", i, len(gg.Turns), len(g.Turns))
		}
		for j := range g.Turns {
			if gg.Turns[j] != g.Turns[j] {
				t.Errorf("game %d turn %d = %+v, want %+v", i, j+1, gg.Turns[j], g.Turns[j])
			}
		}
	}
}
