package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// randomAgent picks uniformly among the legal plays.
type randomAgent struct {
	rng *rand.Rand
}

func (a randomAgent) Choose(_ context.Context, legal []Play, _ *Game) (Play, error) {
	if len(legal) == 0 {
		return Play{}, nil
	}
	return legal[a.rng.Intn(len(legal))], nil
}

// scriptedAgent returns a fixed play and records what it was offered.
type scriptedAgent struct {
	play    Play
	err     error
	offered []Play
}

func (a *scriptedAgent) Choose(_ context.Context, legal []Play, _ *Game) (Play, error) {
	a.offered = legal
	return a.play, a.err
}

// selfPlayBoards plays random games and returns every position reached.
func selfPlayBoards(t *testing.T, games int, seed uint64) []Board {
	t.Helper()
	agent := randomAgent{rng: rand.New(rand.NewSource(seed))}
	dice := NewDice(seed)
	var boards []Board
	for i := 0; i < games; i++ {
		g := NewGame(agent, agent, dice)
		for !g.Finished() {
			require.NoError(t, g.Step(context.Background()))
			boards = append(boards, g.Board())
		}
	}
	return boards
}

func TestRandomSelfPlayKeepsInvariants(t *testing.T) {
	agent := randomAgent{rng: rand.New(rand.NewSource(3))}
	dice := NewDice(3)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		g := NewGame(agent, agent, dice)
		require.Equal(t, AwaitingRoll, g.Phase())

		for !g.Finished() {
			before := g.Board()
			side := g.Turn()

			require.NoError(t, g.Roll())
			require.Equal(t, AwaitingMove, g.Phase())
			for _, p := range g.Legal() {
				checkPlayRules(t, before, side, p)
				if before.Bar(side) > 0 {
					require.Equal(t, On, p.Move(0).From)
				}
				if !g.Pips().IsDouble() {
					require.LessOrEqual(t, p.Len(), 2)
				}
			}

			require.NoError(t, g.Move(ctx))
			require.NoError(t, g.Board().Check())

			if g.Finished() {
				winner, ok := g.Winner()
				require.True(t, ok)
				require.Equal(t, side, winner)
				require.Equal(t, NumCheckers, g.Board().Off(side))
			} else {
				require.Equal(t, side.Opponent(), g.Turn())
				require.Less(t, g.Board().Off(side), NumCheckers)
			}
		}
		require.Greater(t, g.Turns(), 0)
	}
}

func TestGameRun(t *testing.T) {
	agent := randomAgent{rng: rand.New(rand.NewSource(9))}
	g := NewGame(agent, agent, NewDice(9))

	winner, err := g.Run(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, NoSide, winner)
	require.Equal(t, Terminal, g.Phase())
	require.Equal(t, WinArray(winner, White), g.WinArray())

	// Terminal games accept no further turns
	require.ErrorIs(t, g.Roll(), ErrWrongPhase)
	require.ErrorIs(t, g.Step(context.Background()), ErrWrongPhase)
	w, _ := g.Winner()
	require.Equal(t, winner, w)
}

func TestGameAcceptsReversedPlay(t *testing.T) {
	// Only "24,21 21,20" is legal; its reverse must be accepted too.
	white := &scriptedAgent{play: mustPlay(t, "21,20 24,21")}
	g := NewGameFrom(StartingBoard(), White, white, &scriptedAgent{}, NewDice(1))

	require.NoError(t, g.RollWith(RollPips(3, 1)))
	require.NoError(t, g.Move(context.Background()))

	require.Equal(t, mustPlay(t, "24,21 21,20"), g.LastPlay())
	_, n := g.Board().At(20)
	require.Equal(t, 1, n)
	require.Equal(t, Black, g.Turn())
	require.Equal(t, AwaitingRoll, g.Phase())
}

func TestGameRejectsIllegalPlay(t *testing.T) {
	white := &scriptedAgent{play: mustPlay(t, "24,18 24,18")}
	g := NewGameFrom(StartingBoard(), White, white, &scriptedAgent{}, NewDice(1))

	require.NoError(t, g.RollWith(RollPips(3, 1)))
	err := g.Move(context.Background())
	require.ErrorIs(t, err, ErrIllegalMove)
	require.Equal(t, AwaitingMove, g.Phase())
	require.Equal(t, StartingBoard(), g.Board())
	require.NotEmpty(t, white.offered)

	t.Run("pass with legal moves", func(t *testing.T) {
		white.play = Play{}
		require.ErrorIs(t, g.Move(context.Background()), ErrIllegalMove)
	})
}

func TestGameForcedPass(t *testing.T) {
	board := StartingBoard()
	board.Place(White, 24, 1)
	board.SetBar(White, 1)

	white := &scriptedAgent{}
	g := NewGameFrom(board, White, white, &scriptedAgent{}, NewDice(1))
	require.NoError(t, g.RollWith(RollPips(6, 6)))
	require.Empty(t, g.Legal())

	require.NoError(t, g.Move(context.Background()))
	require.Equal(t, board, g.Board())
	require.Equal(t, Black, g.Turn())

	t.Run("moving on a forced pass is illegal", func(t *testing.T) {
		g := NewGameFrom(board, White, &scriptedAgent{play: mustPlay(t, "on,19")}, &scriptedAgent{}, NewDice(1))
		require.NoError(t, g.RollWith(RollPips(6, 6)))
		require.ErrorIs(t, g.Move(context.Background()), ErrIllegalMove)
	})
}

func TestGameAgentError(t *testing.T) {
	boom := errors.New("boom")
	g := NewGameFrom(StartingBoard(), White, &scriptedAgent{err: boom}, &scriptedAgent{}, NewDice(1))
	require.ErrorIs(t, g.Step(context.Background()), boom)
}

func TestGameWrongPhase(t *testing.T) {
	g := NewGameFrom(StartingBoard(), White, &scriptedAgent{}, &scriptedAgent{}, NewDice(1))
	require.ErrorIs(t, g.Move(context.Background()), ErrWrongPhase)
	require.NoError(t, g.Roll())
	require.ErrorIs(t, g.Roll(), ErrWrongPhase)
}

func TestGameWinningMove(t *testing.T) {
	var board Board
	board.Place(White, 2, 1)
	board.SetOff(White, 14)
	board.Place(Black, 20, 15)

	g := NewGameFrom(board, White, &scriptedAgent{play: mustPlay(t, "2,off")}, &scriptedAgent{}, NewDice(1))
	require.NoError(t, g.RollWith(RollPips(6, 1)))
	require.ElementsMatch(t, []Play{mustPlay(t, "2,off"), mustPlay(t, "2,1 1,off")}, g.Legal())
	require.NoError(t, g.Move(context.Background()))

	require.True(t, g.Finished())
	winner, ok := g.Winner()
	require.True(t, ok)
	require.Equal(t, White, winner)
	require.Equal(t, White, g.Turn())
	require.Equal(t, []float64{1}, g.WinArray())
}

func TestGameFeatures(t *testing.T) {
	g := NewGameFrom(StartingBoard(), Black, &scriptedAgent{}, &scriptedAgent{}, NewDice(1))
	require.Equal(t, EncodeFeatures(StartingBoard(), White, Black), g.Features())
}

func TestNewGameFromFinishedBoard(t *testing.T) {
	var board Board
	board.SetOff(White, NumCheckers)
	board.Place(Black, 20, 15)
	g := NewGameFrom(board, Black, &scriptedAgent{}, &scriptedAgent{}, NewDice(1))
	require.True(t, g.Finished())
	w, ok := g.Winner()
	require.True(t, ok)
	require.Equal(t, White, w)
}
