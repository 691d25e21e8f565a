// Package chain writes the tamper-evident audit trail: JSON lines where each
// record carries the hash of its predecessor.
package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event is one audit record. For approval decisions the decider identity is
// a snapshot taken at decision time.
type Event struct {
	Time     time.Time `json:"time"`
	Activity string    `json:"activity"` // APPROVE|DECLINE|...
	Role     string    `json:"role,omitempty"`
	Username string    `json:"username"`
	Name     string    `json:"name,omitempty"`
	Module   string    `json:"module"`
	Target   string    `json:"target"`
	Prev     string    `json:"prev"`
	Hash     string    `json:"hash"`
}

type Writer struct {
	mu   sync.Mutex
	f    *os.File
	prev []byte
}

func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &Writer{f: f, prev: make([]byte, sha256.Size)}, nil
}

func (w *Writer) Close() error { return w.f.Close() }

// Decision records a terminal approval decision. Implements approval.Auditor.
func (w *Writer) Decision(role, username, name, activity, module string, requestID uint) error {
	return w.append(Event{
		Activity: activity,
		Role:     role,
		Username: username,
		Name:     name,
		Module:   module,
		Target:   fmt.Sprintf("request:%d", requestID),
	})
}

func (w *Writer) append(ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	ev.Time = time.Now().UTC()
	ev.Prev = hex.EncodeToString(w.prev)
	b, _ := json.Marshal(ev)
	h := sha256.Sum256(append(append([]byte{}, w.prev...), b...))
	ev.Hash = hex.EncodeToString(h[:])
	b, _ = json.Marshal(ev)
	if _, err := w.f.Write(append(b, '\n')); err != nil {
		return err
	}
	copy(w.prev, h[:])
	return nil
}
