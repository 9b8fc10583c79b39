package neuralnet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Snapshot file constants
const (
	snapshotMagic   = 0x4e474454 // "TDGN"
	snapshotVersion = 1
)

// ErrBadSnapshot is returned when a snapshot cannot be decoded.
var ErrBadSnapshot = errors.New("invalid network snapshot")

// header is the fixed-size prefix of a snapshot.
type header struct {
	Magic      uint32
	Version    uint32
	Inputs     uint32
	Hidden     uint32
	GlobalStep int64
	GameStep   int64
	LossSum    float64
	Schedule   Schedule
	Stats      Stats
}

// WriteTo writes the full training state: parameters, traces, counters,
// schedule and moving averages.
func (n *Network) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	h := header{
		Magic:      snapshotMagic,
		Version:    snapshotVersion,
		Inputs:     uint32(n.Inputs),
		Hidden:     uint32(n.Hidden),
		GlobalStep: n.globalStep,
		GameStep:   n.gameStep,
		LossSum:    n.lossSum,
		Schedule:   n.Schedule,
		Stats:      n.stats,
	}
	if err := binary.Write(&buf, binary.LittleEndian, &h); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}
	for _, p := range n.params {
		if err := binary.Write(&buf, binary.LittleEndian, p.Value); err != nil {
			return 0, fmt.Errorf("writing %s: %w", p.Name, err)
		}
		if err := binary.Write(&buf, binary.LittleEndian, p.Trace); err != nil {
			return 0, fmt.Errorf("writing %s trace: %w", p.Name, err)
		}
	}
	return buf.WriteTo(w)
}

// LoadBinary reads a network written by WriteTo.
func LoadBinary(r io.Reader) (*Network, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if h.Magic != snapshotMagic {
		return nil, fmt.Errorf("%w: magic %#x", ErrBadSnapshot, h.Magic)
	}
	if h.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, h.Version)
	}
	if h.Inputs < 1 || h.Hidden < 1 || h.Inputs > 1<<16 || h.Hidden > 1<<16 {
		return nil, fmt.Errorf("%w: dimensions %d/%d", ErrBadSnapshot, h.Inputs, h.Hidden)
	}

	n := newNetwork(int(h.Inputs), int(h.Hidden))
	n.globalStep = h.GlobalStep
	n.gameStep = h.GameStep
	n.lossSum = h.LossSum
	n.Schedule = h.Schedule
	n.stats = h.Stats

	for _, p := range n.params {
		if err := binary.Read(r, binary.LittleEndian, p.Value); err != nil {
			return nil, fmt.Errorf("reading %s: %w", p.Name, err)
		}
		if err := binary.Read(r, binary.LittleEndian, p.Trace); err != nil {
			return nil, fmt.Errorf("reading %s trace: %w", p.Name, err)
		}
	}
	return n, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (n *Network) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := n.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler, replacing the
// whole state of n.
func (n *Network) UnmarshalBinary(data []byte) error {
	loaded, err := LoadBinary(bytes.NewReader(data))
	if err != nil {
		return err
	}
	*n = *loaded
	return nil
}

// LoadFile loads a network from a snapshot file.
func LoadFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model file: %w", err)
	}
	defer f.Close()

	return LoadBinary(f)
}

// SaveFile writes the network to path, replacing any existing file.
func (n *Network) SaveFile(path string) error {
	data, err := n.MarshalBinary()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating model directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing model file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming model file: %w", err)
	}
	return nil
}
