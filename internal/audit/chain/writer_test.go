package chain

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDecisionChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "audit.jsonl")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.Decision("ops", "alice", "Alice A.", "APPROVE", "create-role", 7); err != nil {
		t.Fatalf("first event: %v", err)
	}
	if err := w.Decision("risk", "bob", "Bob B.", "DECLINE", "update-limits", 8); err != nil {
		t.Fatalf("second event: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		events = append(events, ev)
	}
	if len(events) != 2 {
		t.Fatalf("want 2 events, got %d", len(events))
	}
	if events[0].Target != "request:7" || events[0].Activity != "APPROVE" {
		t.Fatalf("first event: %+v", events[0])
	}

	// Each record hashes over its predecessor; tampering anywhere breaks the
	// chain.
	if events[1].Prev != events[0].Hash {
		t.Fatalf("prev of second (%s) != hash of first (%s)", events[1].Prev, events[0].Hash)
	}
	for _, ev := range events {
		want := ev.Hash
		ev.Hash = ""
		b, _ := json.Marshal(ev)
		prev, err := hex.DecodeString(ev.Prev)
		if err != nil {
			t.Fatalf("decode prev: %v", err)
		}
		h := sha256.Sum256(append(prev, b...))
		if hex.EncodeToString(h[:]) != want {
			t.Fatalf("hash mismatch for %s", ev.Target)
		}
	}
}
