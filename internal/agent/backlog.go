package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/titanforge/titanforge/model"
)

type BacklogEntry struct {
	Department  model.Department `json:"department"`
	Description string           `json:"description"`
}

// Backlog is the CEO's queue of pending goals.
type Backlog struct {
	mu      sync.Mutex
	entries []BacklogEntry
}

func NewBacklog(entries []BacklogEntry) *Backlog {
	return &Backlog{entries: append([]BacklogEntry(nil), entries...)}
}

// LoadBacklog reads a JSON array of entries. A missing or malformed file gives
// an empty backlog.
func LoadBacklog(path string) *Backlog {
	if path == "" {
		return NewBacklog(nil)
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logrus.WithField("path", path).Info("backlog file not found, starting with an empty backlog")
		return NewBacklog(nil)
	}
	if err != nil {
		logrus.WithError(err).Warn("failed to read backlog, starting with an empty backlog")
		return NewBacklog(nil)
	}
	var entries []BacklogEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		logrus.WithError(fmt.Errorf("decode %s: %w", path, err)).Warn("starting with an empty backlog")
		return NewBacklog(nil)
	}
	return NewBacklog(entries)
}

func (b *Backlog) Pop() (BacklogEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == 0 {
		return BacklogEntry{}, false
	}
	e := b.entries[0]
	b.entries = b.entries[1:]
	return e, true
}

func (b *Backlog) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
