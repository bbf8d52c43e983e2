package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"positionengine/pkg/types"
)

// LocalFile persists the startup snapshot as JSON files in a
// directory: prices.json, active.json, pending.json. Writes use
// atomic file replacement (write to .tmp, then rename) so a crash
// mid-save never leaves a partially written file behind.
type LocalFile struct {
	dir string
	mu  sync.Mutex
}

// OpenLocalFile creates a LocalFile store backed by the given
// directory, creating it if necessary.
func OpenLocalFile(dir string) (*LocalFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &LocalFile{dir: dir}, nil
}

func (l *LocalFile) writeAtomic(name string, data []byte) error {
	path := filepath.Join(l.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return os.Rename(tmp, path)
}

func (l *LocalFile) readFile(name string) ([]byte, error) {
	path := filepath.Join(l.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// SavePrices atomically persists the full set of last-known quotes.
func (l *LocalFile) SavePrices(prices []types.BidAsk) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(prices)
	if err != nil {
		return fmt.Errorf("marshal prices: %w", err)
	}
	return l.writeAtomic("prices.json", data)
}

// SaveActive atomically persists the raw JSON for active positions.
func (l *LocalFile) SaveActive(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeAtomic("active.json", data)
}

// SavePending atomically persists the raw JSON for pending positions.
func (l *LocalFile) SavePending(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeAtomic("pending.json", data)
}

// LoadSnapshot implements Client, reading back whatever was last
// saved. Missing files are treated as an empty snapshot — a fresh
// deployment with no prior state.
func (l *LocalFile) LoadSnapshot() (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pricesRaw, err := l.readFile("prices.json")
	if err != nil {
		return Snapshot{}, err
	}
	var prices []types.BidAsk
	if pricesRaw != nil {
		if err := json.Unmarshal(pricesRaw, &prices); err != nil {
			return Snapshot{}, fmt.Errorf("unmarshal prices: %w", err)
		}
	}

	active, err := l.readFile("active.json")
	if err != nil {
		return Snapshot{}, err
	}
	pending, err := l.readFile("pending.json")
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{Prices: prices, Active: active, Pending: pending}, nil
}
