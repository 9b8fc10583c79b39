package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustPlay(t *testing.T, s string) Play {
	t.Helper()
	p, err := ParsePlay(s)
	require.NoError(t, err)
	return p
}

func containsPlay(plays []Play, p Play) bool {
	for _, q := range plays {
		if q == p {
			return true
		}
	}
	return false
}

// checkPlayRules replays p move by move and verifies bar entry, blocking
// and bear-off legality against the position at each step.
func checkPlayRules(t *testing.T, board Board, side Side, p Play) {
	t.Helper()
	opp := side.Opponent()
	for i := 0; i < p.Len(); i++ {
		m := p.Move(i)
		if board.Bar(side) > 0 {
			require.Equal(t, On, m.From, "play %s: must enter from the bar first", p)
		}
		if m.To.IsPoint() {
			owner, n := board.At(int(m.To))
			require.False(t, owner == opp && n >= 2, "play %s: lands on blocked point %d", p, m.To)
		}
		if m.To == Off {
			home := board.Off(side)
			for point := 1; point <= NumPoints; point++ {
				owner, n := board.At(point)
				if owner == side && pipPos(side, Location(point)) <= 6 {
					home += n
				}
			}
			require.Equal(t, NumCheckers, home, "play %s: bears off with checkers outside home", p)
		}
		board.ApplyMove(side, m)
		require.NoError(t, board.Check())
	}
}

func TestGeneratePlaysOpening31(t *testing.T) {
	board := StartingBoard()
	plays := GeneratePlays(board, White, RollPips(3, 1))

	require.NotEmpty(t, plays)
	t.Logf("Generated %d plays for 3-1 from starting position", len(plays))

	for _, p := range plays {
		require.Equal(t, 2, p.Len(), "play %s should use both dice", p)
		checkPlayRules(t, board, White, p)
	}

	// Same checkers, both orders
	require.True(t, containsPlay(plays, mustPlay(t, "8,5 6,5")))
	require.True(t, containsPlay(plays, mustPlay(t, "6,5 8,5")))
}

func TestOpeningRunChangesTwoPoints(t *testing.T) {
	board := StartingBoard()
	plays := GeneratePlays(board, White, RollPips(3, 1))

	run := mustPlay(t, "24,21 21,20")
	legal, ok := FindPlay(plays, run)
	require.True(t, ok)

	after := board.After(White, legal)
	require.NoError(t, after.Check())

	changed := 0
	for point := 1; point <= NumPoints; point++ {
		_, before := board.At(point)
		_, now := after.At(point)
		if before != now {
			changed++
		}
	}
	require.Equal(t, 2, changed)

	_, n24 := after.At(24)
	_, n20 := after.At(20)
	require.Equal(t, 1, n24)
	require.Equal(t, 1, n20)
	require.Equal(t, NumCheckers, after.Count(White))
}

func TestGeneratePlaysOpening66(t *testing.T) {
	board := StartingBoard()
	plays := GeneratePlays(board, White, RollPips(6, 6))

	require.NotEmpty(t, plays)
	for _, p := range plays {
		require.Equal(t, 4, p.Len(), "play %s should use all four pips", p)
		checkPlayRules(t, board, White, p)
	}
}

func TestGeneratePlaysBlackDirection(t *testing.T) {
	board := StartingBoard()
	plays := GeneratePlays(board, Black, RollPips(3, 1))

	require.True(t, containsPlay(plays, mustPlay(t, "17,20 19,20")))
	for _, p := range plays {
		for _, m := range p.Moves() {
			require.Greater(t, int(m.To), int(m.From), "black moves upwards: %s", p)
		}
	}
}

func TestGeneratePlaysBarEntry(t *testing.T) {
	board := StartingBoard()
	board.Place(White, 24, 1)
	board.SetBar(White, 1)
	require.NoError(t, board.Check())

	t.Run("entry point blocked on doubles", func(t *testing.T) {
		// Black holds 19 with five checkers
		plays := GeneratePlays(board, White, RollPips(6, 6))
		require.Empty(t, plays)
	})

	t.Run("every play starts from the bar", func(t *testing.T) {
		plays := GeneratePlays(board, White, RollPips(6, 5))
		require.NotEmpty(t, plays)
		for _, p := range plays {
			require.Equal(t, On, p.Move(0).From, "play %s", p)
			checkPlayRules(t, board, White, p)
		}
		// Only the 5 enters; the 6 can be played afterwards
		require.True(t, containsPlay(plays, mustPlay(t, "on,20 24,18")))
	})
}

func TestGeneratePlaysAllEntryPointsBlocked(t *testing.T) {
	var board Board
	board.SetBar(White, 1)
	board.Place(White, 6, 14)
	for point := 19; point <= 24; point++ {
		board.Place(Black, point, 2)
	}
	board.SetOff(Black, 3)
	require.NoError(t, board.Check())

	for d1 := 1; d1 <= 6; d1++ {
		for d2 := 1; d2 <= 6; d2++ {
			require.Empty(t, GeneratePlays(board, White, RollPips(d1, d2)))
		}
	}
}

func TestGeneratePlaysBearoff(t *testing.T) {
	var board Board
	board.Place(White, 1, 3)
	board.Place(White, 2, 3)
	board.Place(White, 3, 3)
	board.Place(White, 4, 3)
	board.Place(White, 5, 2)
	board.Place(White, 6, 1)
	board.SetOff(Black, NumCheckers)
	require.NoError(t, board.Check())

	plays := GeneratePlays(board, White, RollPips(6, 5))
	require.NotEmpty(t, plays)
	require.True(t, containsPlay(plays, mustPlay(t, "6,off 5,off")))
	for _, p := range plays {
		checkPlayRules(t, board, White, p)
	}
}

func TestGeneratePlaysNoBearoffWithCheckerOutside(t *testing.T) {
	var board Board
	board.Place(White, 1, 5)
	board.Place(White, 2, 5)
	board.Place(White, 3, 4)
	board.Place(White, 9, 1)
	board.SetOff(Black, NumCheckers)
	require.NoError(t, board.Check())

	plays := GeneratePlays(board, White, RollPips(2, 1))
	require.NotEmpty(t, plays)
	for _, p := range plays {
		for _, m := range p.Moves() {
			require.NotEqual(t, Off, m.To, "play %s bears off while 9-point is occupied", p)
		}
	}

	// 9 -> 6 with the 3 brings the last checker home, then the 1 bears off
	plays = GeneratePlays(board, White, RollPips(3, 1))
	require.True(t, containsPlay(plays, mustPlay(t, "9,6 1,off")))
	require.False(t, containsPlay(plays, mustPlay(t, "1,off 9,6")))
	for _, p := range plays {
		checkPlayRules(t, board, White, p)
	}
}

func TestGeneratePlaysHigherDieRule(t *testing.T) {
	var board Board
	board.Place(White, 13, 1)
	board.SetOff(White, 14)
	board.Place(Black, 2, 2)
	board.SetOff(Black, 13)
	require.NoError(t, board.Check())

	plays := GeneratePlays(board, White, RollPips(6, 5))
	require.Len(t, plays, 1)
	require.Equal(t, mustPlay(t, "13,7"), plays[0])
}

func TestGeneratePlaysPartialDoubles(t *testing.T) {
	var board Board
	board.Place(White, 13, 1)
	board.SetOff(White, 14)
	board.Place(Black, 1, 2)
	board.SetOff(Black, 13)
	require.NoError(t, board.Check())

	// 13 -> 9 -> 5 -> 1 is blocked on the third step
	plays := GeneratePlays(board, White, RollPips(4, 4))
	require.Equal(t, []Play{mustPlay(t, "13,9 9,5")}, plays)
}

func TestGeneratePlaysWinningBearoffOnSecondMove(t *testing.T) {
	var board Board
	board.Place(White, 1, 1)
	board.Place(White, 2, 1)
	board.SetOff(White, 13)
	board.Place(Black, 24, 15)
	require.NoError(t, board.Check())

	plays := GeneratePlays(board, White, RollPips(1, 2))
	require.ElementsMatch(t, []Play{
		mustPlay(t, "1,off 2,off"),
		mustPlay(t, "2,off 1,off"),
		mustPlay(t, "2,1 1,off"),
	}, plays)
	require.True(t, board.After(White, mustPlay(t, "1,off 2,off")).Finished())
}

// refMoves lists side's single moves with pip, written against absolute
// points without the side-relative frame.
func refMoves(board Board, side Side, pip int) []Move {
	dir := -1
	if side == Black {
		dir = 1
	}
	open := func(point int) bool {
		owner, n := board.At(point)
		return owner == side || n < 2
	}
	if board.Bar(side) > 0 {
		entry := 25 - pip
		if side == Black {
			entry = pip
		}
		if open(entry) {
			return []Move{{From: On, To: Location(entry)}}
		}
		return nil
	}

	// distance of a point from side's off tray
	dist := func(point int) int {
		if side == White {
			return point
		}
		return 25 - point
	}
	home, farthest := true, 0
	for point := 1; point <= 24; point++ {
		if owner, _ := board.At(point); owner == side {
			home = home && dist(point) <= 6
			farthest = max(farthest, dist(point))
		}
	}

	var moves []Move
	for point := 1; point <= 24; point++ {
		if owner, _ := board.At(point); owner != side {
			continue
		}
		dest := point + dir*pip
		switch {
		case dest >= 1 && dest <= 24:
			if open(dest) {
				moves = append(moves, Move{From: Location(point), To: Location(dest)})
			}
		case home && (dist(point) == pip || dist(point) == farthest):
			moves = append(moves, Move{From: Location(point), To: Off})
		}
	}
	return moves
}

// refPlays enumerates plays by brute force over both die orders and keeps
// those using the most dice, then the most pips.
func refPlays(board Board, side Side, pips Pips) []Play {
	orders := [][]int{pips}
	if !pips.IsDouble() {
		orders = append(orders, []int{pips[1], pips[0]})
	}

	type candidate struct {
		play      Play
		dice, sum int
	}
	var found []candidate
	var walk func(b Board, order []int, cur []Move)
	walk = func(b Board, order []int, cur []Move) {
		used := order[:len(cur)]
		if b.Off(side) == NumCheckers {
			used = order
		}
		if len(cur) < len(order) && b.Off(side) < NumCheckers {
			next := refMoves(b, side, order[len(cur)])
			for _, m := range next {
				nb := b
				nb.ApplyMove(side, m)
				walk(nb, order, append(append([]Move(nil), cur...), m))
			}
			if len(next) > 0 {
				return
			}
		}
		if len(cur) > 0 {
			found = append(found, candidate{NewPlay(cur...), len(used), sumPips(used)})
		}
	}
	for _, order := range orders {
		walk(board, order, nil)
	}

	bestDice, bestSum := 0, 0
	for _, c := range found {
		if c.dice > bestDice || c.dice == bestDice && c.sum > bestSum {
			bestDice, bestSum = c.dice, c.sum
		}
	}
	seen := make(map[Play]bool)
	var plays []Play
	for _, c := range found {
		if c.dice == bestDice && c.sum == bestSum && !seen[c.play] {
			seen[c.play] = true
			plays = append(plays, c.play)
		}
	}
	return plays
}

func TestGeneratePlaysMatchesBruteForce(t *testing.T) {
	boards := append(selfPlayBoards(t, 5, 23), StartingBoard())
	checked := 0
	for _, board := range boards {
		if board.Finished() {
			continue
		}
		for _, side := range []Side{White, Black} {
			for d1 := 1; d1 <= 6; d1++ {
				for d2 := d1; d2 <= 6; d2++ {
					pips := RollPips(d1, d2)
					require.ElementsMatch(t, refPlays(board, side, pips), GeneratePlays(board, side, pips),
						"%s to play %v on\n%s", side, pips, board)
					checked++
				}
			}
		}
	}
	require.Greater(t, checked, 1000)
}

func TestApplyHitsBlot(t *testing.T) {
	board := StartingBoard()
	board.Place(Black, 1, 1)
	board.Place(Black, 17, 4)
	require.NoError(t, board.Check())

	hit := mustPlay(t, "6,1")
	require.Equal(t, 1, CountHits(board, White, hit))
	require.Equal(t, 0, CountHits(board, White, mustPlay(t, "6,2")))

	board.Apply(White, hit)
	require.NoError(t, board.Check())
	require.Equal(t, 1, board.Bar(Black))
	owner, n := board.At(1)
	require.Equal(t, White, owner)
	require.Equal(t, 1, n)
}

func TestNoDuplicatePlays(t *testing.T) {
	board := StartingBoard()
	for d1 := 1; d1 <= 6; d1++ {
		for d2 := d1; d2 <= 6; d2++ {
			plays := GeneratePlays(board, Black, RollPips(d1, d2))
			seen := make(map[Play]bool)
			for _, p := range plays {
				require.False(t, seen[p], "duplicate play %s for %d-%d", p, d1, d2)
				seen[p] = true
			}
		}
	}
}

func TestPlayReverse(t *testing.T) {
	p := mustPlay(t, "on,20 13,7 8,2")
	require.Equal(t, mustPlay(t, "8,2 13,7 on,20"), p.Reverse())
	require.Equal(t, p, p.Reverse().Reverse())
	require.True(t, Play{}.IsPass())
	require.Equal(t, "pass", Play{}.String())
}
