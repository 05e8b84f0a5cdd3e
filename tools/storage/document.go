package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"pantrycook/pantry"
)

// DocumentLotStore serves lots from a MemoryLotStore and persists them as a single pantry
// document (a local file or an S3 object). Writes mark the store dirty; Flush saves it.
type DocumentLotStore struct {
	*MemoryLotStore

	state  PantryState
	saveMu sync.Mutex
	dirty  bool
}

// OpenDocumentLotStore loads the pantry document from state.
func OpenDocumentLotStore(ctx context.Context, state PantryState) (*DocumentLotStore, error) {
	data, err := state.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pantry: %w", err)
	}
	var doc pantry.Pantry
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse pantry: %w", err)
	}
	return &DocumentLotStore{MemoryLotStore: NewMemoryLotStore(doc.Lots...), state: state}, nil
}

func (d *DocumentLotStore) Decrement(ctx context.Context, id string, amount float64) (float64, error) {
	left, err := d.MemoryLotStore.Decrement(ctx, id, amount)
	if err == nil {
		d.markDirty()
	}
	return left, err
}

func (d *DocumentLotStore) Add(ctx context.Context, lot pantry.Lot) (pantry.Lot, error) {
	added, err := d.MemoryLotStore.Add(ctx, lot)
	if err == nil {
		d.markDirty()
	}
	return added, err
}

func (d *DocumentLotStore) markDirty() {
	d.saveMu.Lock()
	d.dirty = true
	d.saveMu.Unlock()
}

// Flush writes the pantry document back if anything changed since the last flush.
func (d *DocumentLotStore) Flush(ctx context.Context) error {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()
	if !d.dirty {
		return nil
	}

	lots, err := d.MemoryLotStore.List(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(pantry.Pantry{Lots: lots}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode pantry: %w", err)
	}
	if err := d.state.Save(ctx, data); err != nil {
		return fmt.Errorf("failed to save pantry: %w", err)
	}
	d.dirty = false
	return nil
}
