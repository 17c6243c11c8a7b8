package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/uhyunpark/cryptex/pkg/app/core/transaction"
)

// HistoryStore is the append-only Transaction Ledger.
// It runs Pebble on an in-memory filesystem: history lives as long as the process.
type HistoryStore struct {
	mu  sync.Mutex // serialises sequence allocation with the write
	db  *pebble.DB
	seq uint64

	closeOnce sync.Once
	closeErr  error
}

// NewHistoryStore opens an empty in-memory store
func NewHistoryStore() (*HistoryStore, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// Close releases the store. Calling it again is a no-op.
func (s *HistoryStore) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.db.Close() })
	return s.closeErr
}

// Append records tx at the end of the user's history
func (s *HistoryStore) Append(userID string, tx transaction.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if err := s.db.Set(txKey(userID, s.seq), data, pebble.NoSync); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

// AppendFill records both sides of a settled trade and the global fill in one batch
func (s *HistoryStore) AppendFill(buy, sell transaction.Transaction, fill transaction.Fill) error {
	buyData, err := json.Marshal(buy)
	if err != nil {
		return fmt.Errorf("failed to marshal buy transaction: %w", err)
	}
	sellData, err := json.Marshal(sell)
	if err != nil {
		return fmt.Errorf("failed to marshal sell transaction: %w", err)
	}
	fillData, err := json.Marshal(fill)
	if err != nil {
		return fmt.Errorf("failed to marshal fill: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()

	seq := s.seq
	seq++
	_ = b.Set(txKey(buy.UserID, seq), buyData, nil)
	seq++
	_ = b.Set(txKey(sell.UserID, seq), sellData, nil)
	seq++
	_ = b.Set(fillKey(seq), fillData, nil)

	if err := b.Commit(pebble.NoSync); err != nil {
		return fmt.Errorf("failed to save fill: %w", err)
	}
	s.seq = seq
	return nil
}

// RecordFill appends to the global fill tape
func (s *HistoryStore) RecordFill(fill transaction.Fill) error {
	data, err := json.Marshal(fill)
	if err != nil {
		return fmt.Errorf("failed to marshal fill: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if err := s.db.Set(fillKey(s.seq), data, pebble.NoSync); err != nil {
		return fmt.Errorf("failed to save fill: %w", err)
	}
	return nil
}

// List returns the user's transactions in append order
func (s *HistoryStore) List(userID string) ([]transaction.Transaction, error) {
	prefix := txPrefix(userID)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var out []transaction.Transaction
	for iter.First(); iter.Valid(); iter.Next() {
		var tx transaction.Transaction
		if err := json.Unmarshal(iter.Value(), &tx); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction %s: %w", iter.Key(), err)
		}
		out = append(out, tx)
	}
	return out, nil
}

// RecentFills returns up to limit fills, newest first
func (s *HistoryStore) RecentFills(limit int) ([]transaction.Fill, error) {
	if limit <= 0 {
		return nil, nil
	}
	prefix := []byte(prefixFill)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var out []transaction.Fill
	for iter.Last(); iter.Valid() && len(out) < limit; iter.Prev() {
		var f transaction.Fill
		if err := json.Unmarshal(iter.Value(), &f); err != nil {
			continue // skip corrupt entries
		}
		out = append(out, f)
	}
	return out, nil
}
