package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	filePrefix = "checkpoint-"
	fileSuffix = ".bin"
)

// FileStore keeps each snapshot in its own file named after its step.
type FileStore struct {
	dir  string
	keep int
}

// NewFileStore creates dir if needed. keep is the number of snapshots
// retained; values below one keep one.
func NewFileStore(dir string, keep int) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("checkpoint directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory: %w", err)
	}
	return &FileStore{dir: dir, keep: max(keep, 1)}, nil
}

func (s *FileStore) path(step int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%d%s", filePrefix, step, fileSuffix))
}

// Save writes data atomically, then removes the oldest snapshots.
func (s *FileStore) Save(ctx context.Context, step int64, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("creating checkpoint file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(step)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("renaming checkpoint: %w", err)
	}
	return s.prune()
}

// steps lists the stored steps in ascending order.
func (s *FileStore) steps() ([]int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	var steps []int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		step, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix), 10, 64)
		if err != nil {
			continue
		}
		steps = append(steps, step)
	}
	slices.Sort(steps)
	return steps, nil
}

func (s *FileStore) prune() error {
	steps, err := s.steps()
	if err != nil {
		return err
	}
	for len(steps) > s.keep {
		if err := os.Remove(s.path(steps[0])); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing old checkpoint: %w", err)
		}
		steps = steps[1:]
	}
	return nil
}

// Latest reads the snapshot with the highest step.
func (s *FileStore) Latest(ctx context.Context) (Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, err
	}
	steps, err := s.steps()
	if err != nil {
		return Checkpoint{}, err
	}
	if len(steps) == 0 {
		return Checkpoint{}, ErrNotFound
	}
	step := steps[len(steps)-1]
	data, err := os.ReadFile(s.path(step))
	if err != nil {
		return Checkpoint{}, fmt.Errorf("reading checkpoint: %w", err)
	}
	return Checkpoint{Step: step, Data: data}, nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
