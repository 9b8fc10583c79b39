package neuralnet

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Schedule is a staircase decay of the learning rate and trace decay:
// both are multiplied by Rate once every Steps global steps.
type Schedule struct {
	Alpha  float64
	Lambda float64
	Rate   float64
	Steps  int64
}

// DefaultSchedule returns α0 0.1, λ0 0.9, decayed by 0.96 every 20000 steps.
func DefaultSchedule() Schedule {
	return Schedule{Alpha: 0.1, Lambda: 0.9, Rate: 0.96, Steps: 20000}
}

// At returns the learning rate and trace decay in effect at step.
func (s Schedule) At(step int64) (alpha, lambda float64) {
	if s.Steps <= 0 {
		return s.Alpha, s.Lambda
	}
	f := math.Pow(s.Rate, float64(step/s.Steps))
	return s.Alpha * f, s.Lambda * f
}

// EMADecay is the decay of the moving averages kept in Stats.
const EMADecay = 0.999

// Stats holds exponential moving averages of training signals.
type Stats struct {
	Delta    float64 // TD error
	Loss     float64 // squared TD error
	Accuracy float64 // rounded prediction matches rounded target
	GameLoss float64 // average loss per game
}

func ema(avg, x float64) float64 {
	return EMADecay*avg + (1-EMADecay)*x
}

// Step describes one training update.
type Step struct {
	GlobalStep int64
	Value      float64
	Target     float64
	Delta      float64
	Loss       float64
	Alpha      float64
	Lambda     float64
}

// TrainStep moves V(x) toward V(xNext), the value of the following position.
func (n *Network) TrainStep(x, xNext []float64) Step {
	return n.update(x, n.Value(xNext))
}

// TrainTerminal moves V(x) toward the game outcome z and folds the game's
// average loss into the statistics.
func (n *Network) TrainTerminal(x []float64, z float64) Step {
	s := n.update(x, z)
	n.stats.GameLoss = ema(n.stats.GameLoss, n.lossSum/float64(n.gameStep))
	return s
}

// update applies one TD(λ) step for every parameter:
//
//	trace = λ·trace + ∇V(x)
//	w    += α·(target − V(x))·trace
func (n *Network) update(x []float64, target float64) Step {
	v := n.gradient(x)
	alpha, lambda := n.Schedule.At(n.globalStep)
	delta := target - v

	for i, p := range n.params {
		floats.Scale(lambda, p.Trace)
		floats.Add(p.Trace, n.grad[i])
		floats.AddScaled(p.Value, alpha*delta, p.Trace)
	}

	loss := delta * delta
	n.globalStep++
	n.gameStep++
	n.lossSum += loss

	acc := 0.0
	if math.Round(v) == math.Round(target) {
		acc = 1
	}
	n.stats.Delta = ema(n.stats.Delta, delta)
	n.stats.Loss = ema(n.stats.Loss, loss)
	n.stats.Accuracy = ema(n.stats.Accuracy, acc)

	return Step{
		GlobalStep: n.globalStep,
		Value:      v,
		Target:     target,
		Delta:      delta,
		Loss:       loss,
		Alpha:      alpha,
		Lambda:     lambda,
	}
}

// ResetGame clears the traces and per-game counters before a new game.
func (n *Network) ResetGame() {
	for _, p := range n.params {
		clear(p.Trace)
	}
	n.gameStep = 0
	n.lossSum = 0
}

// GlobalStep returns the number of training updates applied so far.
func (n *Network) GlobalStep() int64 { return n.globalStep }

// GameStep returns the number of updates in the current game.
func (n *Network) GameStep() int64 { return n.gameStep }

// GameLoss returns the average loss of the current game.
func (n *Network) GameLoss() float64 {
	if n.gameStep == 0 {
		return 0
	}
	return n.lossSum / float64(n.gameStep)
}

// Stats returns the current moving averages.
func (n *Network) Stats() Stats { return n.stats }
