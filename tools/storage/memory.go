package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"pantrycook/pantry"
)

type memoryLot struct {
	mu  sync.Mutex
	lot pantry.Lot
}

// MemoryLotStore keeps lots in process. Each lot has its own lock, so draws from different
// lots never wait on each other.
type MemoryLotStore struct {
	mu    sync.RWMutex
	lots  map[string]*memoryLot
	order []string
}

// NewMemoryLotStore seeds a store with lots. Lots without an ID get one.
func NewMemoryLotStore(lots ...pantry.Lot) *MemoryLotStore {
	m := &MemoryLotStore{lots: make(map[string]*memoryLot)}
	for _, l := range lots {
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		if l.Quantity < 0 {
			l.Quantity = 0
		}
		m.put(l)
	}
	return m
}

func (m *MemoryLotStore) put(l pantry.Lot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.lots[l.ID]; ok {
		existing.mu.Lock()
		existing.lot = l
		existing.mu.Unlock()
		return
	}
	m.lots[l.ID] = &memoryLot{lot: l}
	m.order = append(m.order, l.ID)
}

func (m *MemoryLotStore) entry(id string) (*memoryLot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.lots[id]
	return e, ok
}

// List returns the lots in insertion order.
func (m *MemoryLotStore) List(ctx context.Context) ([]pantry.Lot, error) {
	m.mu.RLock()
	ids := append([]string(nil), m.order...)
	m.mu.RUnlock()

	out := make([]pantry.Lot, 0, len(ids))
	for _, id := range ids {
		e, ok := m.entry(id)
		if !ok {
			continue
		}
		e.mu.Lock()
		out = append(out, e.lot)
		e.mu.Unlock()
	}
	return out, nil
}

func (m *MemoryLotStore) Get(ctx context.Context, id string) (pantry.Lot, error) {
	e, ok := m.entry(id)
	if !ok {
		return pantry.Lot{}, fmt.Errorf("%w: %s", ErrLotNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lot, nil
}

func (m *MemoryLotStore) Decrement(ctx context.Context, id string, amount float64) (float64, error) {
	if err := validateAmount(amount); err != nil {
		return 0, err
	}
	e, ok := m.entry(id)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrLotNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if amount > e.lot.Quantity+stockTolerance {
		return 0, &pantry.StockError{LotID: id, Requested: amount, Available: e.lot.Quantity}
	}
	e.lot.Quantity -= amount
	if e.lot.Quantity < stockTolerance {
		e.lot.Quantity = 0
	}
	return e.lot.Quantity, nil
}

func (m *MemoryLotStore) Add(ctx context.Context, lot pantry.Lot) (pantry.Lot, error) {
	if err := validateLot(lot); err != nil {
		return pantry.Lot{}, err
	}
	if lot.ID == "" {
		lot.ID = uuid.NewString()
	} else if _, exists := m.entry(lot.ID); exists {
		return pantry.Lot{}, fmt.Errorf("lot %s already exists", lot.ID)
	}
	m.put(lot)
	return lot, nil
}

// Clone returns an independent copy, used to plan against a scratch pantry.
func (m *MemoryLotStore) Clone() *MemoryLotStore {
	lots, _ := m.List(context.Background())
	return NewMemoryLotStore(lots...)
}
