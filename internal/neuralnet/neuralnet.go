// Package neuralnet implements the value network used to score backgammon
// positions and its TD(λ) training step.
//
// The network has one sigmoid hidden layer and a single sigmoid output, the
// estimated probability that White wins from the encoded position.
package neuralnet

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// Default network shape and initialisation.
const (
	DefaultHidden = 40
	initStddev    = 0.1
	initBias      = 0.1
)

// Param is a trainable tensor paired with its eligibility trace.
type Param struct {
	Name  string
	Value []float64
	Trace []float64
}

// Network is a single-hidden-layer sigmoid value network.
type Network struct {
	Inputs int
	Hidden int

	// Schedule controls the learning rate and trace decay over training.
	Schedule Schedule

	hiddenW *Param // Hidden*Inputs, one row per hidden unit
	hiddenB *Param
	outW    *Param
	outB    *Param
	params  []*Param

	globalStep int64
	gameStep   int64
	lossSum    float64
	stats      Stats

	// scratch buffers reused by Gradient
	act  []float64
	grad [][]float64
}

// New creates a network with inputs input units and hidden hidden units.
// Weights are drawn from a normal distribution with standard deviation 0.1,
// truncated at two deviations; biases start at 0.1.
func New(inputs, hidden int, seed uint64) (*Network, error) {
	if inputs < 1 || hidden < 1 {
		return nil, fmt.Errorf("invalid network dimensions: %d/%d", inputs, hidden)
	}
	n := newNetwork(inputs, hidden)

	rng := rand.New(rand.NewSource(seed))
	for _, p := range []*Param{n.hiddenW, n.outW} {
		for i := range p.Value {
			p.Value[i] = truncatedNormal(rng, initStddev)
		}
	}
	for _, p := range []*Param{n.hiddenB, n.outB} {
		for i := range p.Value {
			p.Value[i] = initBias
		}
	}
	return n, nil
}

func newNetwork(inputs, hidden int) *Network {
	n := &Network{
		Inputs:   inputs,
		Hidden:   hidden,
		Schedule: DefaultSchedule(),
		hiddenW:  newParam("hidden/weights", inputs*hidden),
		hiddenB:  newParam("hidden/bias", hidden),
		outW:     newParam("output/weights", hidden),
		outB:     newParam("output/bias", 1),
		act:      make([]float64, hidden),
	}
	n.params = []*Param{n.hiddenW, n.hiddenB, n.outW, n.outB}
	n.grad = make([][]float64, len(n.params))
	for i, p := range n.params {
		n.grad[i] = make([]float64, len(p.Value))
	}
	return n
}

func newParam(name string, size int) *Param {
	return &Param{
		Name:  name,
		Value: make([]float64, size),
		Trace: make([]float64, size),
	}
}

func truncatedNormal(rng *rand.Rand, stddev float64) float64 {
	for {
		v := rng.NormFloat64()
		if math.Abs(v) <= 2 {
			return v * stddev
		}
	}
}

// Params returns the trainable parameters in a fixed order.
func (n *Network) Params() []*Param {
	return n.params
}

// Value returns the network output for the feature vector x. It only
// reads the parameters and is safe for concurrent use while no training
// step runs.
func (n *Network) Value(x []float64) float64 {
	return n.forward(x, make([]float64, n.Hidden))
}

// forward computes hidden activations into act and returns the output.
func (n *Network) forward(x, act []float64) float64 {
	if len(x) != n.Inputs {
		panic(fmt.Sprintf("neuralnet: input has %d features, expected %d", len(x), n.Inputs))
	}
	for j := range act {
		row := n.hiddenW.Value[j*n.Inputs : (j+1)*n.Inputs]
		act[j] = sigmoid(floats.Dot(row, x) + n.hiddenB.Value[j])
	}
	return sigmoid(floats.Dot(n.outW.Value, act) + n.outB.Value[0])
}

// Gradient returns V(x) and ∂V/∂w for every parameter, in Params order.
// The returned slices are owned by the caller.
func (n *Network) Gradient(x []float64) (float64, [][]float64) {
	v := n.gradient(x)
	out := make([][]float64, len(n.grad))
	for i, g := range n.grad {
		out[i] = append([]float64(nil), g...)
	}
	return v, out
}

// gradient fills n.grad and returns V(x).
func (n *Network) gradient(x []float64) float64 {
	v := n.forward(x, n.act)
	dOut := v * (1 - v)

	gHiddenW, gHiddenB, gOutW, gOutB := n.grad[0], n.grad[1], n.grad[2], n.grad[3]
	gOutB[0] = dOut
	for j, h := range n.act {
		gOutW[j] = dOut * h
		dHidden := dOut * n.outW.Value[j] * h * (1 - h)
		gHiddenB[j] = dHidden
		row := gHiddenW[j*n.Inputs : (j+1)*n.Inputs]
		floats.ScaleTo(row, dHidden, x)
	}
	return v
}

// sigmoid computes the logistic function 1 / (1 + e^-x)
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
