package cart

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/chezmonami/marketplace-server/internal/storage"
)

// Store owns the authoritative cart list for one device context. Every
// mutation persists the full list under StorageKey and notifies
// in-process subscribers; changes written by other contexts arrive
// through HandleStorageChange. Last writer wins, there is no version
// counter.
type Store struct {
	storage storage.Store

	mu      sync.Mutex
	items   []LineItem
	subs    map[int]func([]LineItem)
	nextSub int
}

func NewStore(st storage.Store) *Store {
	return &Store{
		storage: st,
		subs:    make(map[int]func([]LineItem)),
	}
}

// Load re-reads the persisted list. Absent or malformed data yields an
// empty cart; storage read failures are logged and leave the in-memory
// list in place.
func (s *Store) Load(ctx context.Context) []LineItem {
	value, ok, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		log.Warn().Err(err).Msg("cart: storage read failed, keeping in-memory state")
		return s.Items()
	}

	var items []LineItem
	if ok {
		items = decodeItems(value)
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	return cloneItems(items)
}

// Items returns a copy of the current in-memory list.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// Add upserts a line item by product id. An existing line has the new
// quantity added to its own; every other field is taken from the latest
// call. A quantity below 1 defaults to 1.
func (s *Store) Add(ctx context.Context, item LineItem) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	s.mu.Lock()
	merged := false
	for i := range s.items {
		if s.items[i].ID == item.ID {
			item.Quantity += s.items[i].Quantity
			s.items[i] = item
			merged = true
			break
		}
	}
	if !merged {
		s.items = append(s.items, item)
	}
	s.mu.Unlock()

	s.persistAndNotify(ctx)
}

// Remove deletes the line at index. An out-of-range index is a no-op
// apart from the persist-and-notify cycle.
func (s *Store) Remove(ctx context.Context, index int) {
	s.mu.Lock()
	if index >= 0 && index < len(s.items) {
		s.items = append(s.items[:index], s.items[index+1:]...)
	}
	s.mu.Unlock()

	s.persistAndNotify(ctx)
}

// SetQuantity overwrites the quantity of the line at index. A quantity
// of zero or less removes the line.
func (s *Store) SetQuantity(ctx context.Context, index, quantity int) {
	if quantity <= 0 {
		s.Remove(ctx, index)
		return
	}

	s.mu.Lock()
	if index >= 0 && index < len(s.items) {
		s.items[index].Quantity = quantity
	}
	s.mu.Unlock()

	s.persistAndNotify(ctx)
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	s.persistAndNotify(ctx)
}

// Total is the sum of unit price times quantity over all lines.
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, item := range s.items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// Count is the sum of quantities over all lines.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

// Subscribe registers fn to run after every cart change, with a snapshot
// of the new list. The returned function unregisters it.
func (s *Store) Subscribe(fn func([]LineItem)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// HandleStorageChange applies a change observed from another context.
// Changes for other keys are ignored; a malformed value resets to an
// empty cart, mirroring Load.
func (s *Store) HandleStorageChange(key, value string) {
	if key != StorageKey {
		return
	}

	items := decodeItems(value)

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	s.notify()
}

func (s *Store) persistAndNotify(ctx context.Context) {
	s.mu.Lock()
	items := cloneItems(s.items)
	s.mu.Unlock()

	if items == nil {
		items = []LineItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		log.Warn().Err(err).Msg("cart: failed to encode cart, skipping persist")
	} else if err := s.storage.Set(ctx, StorageKey, string(payload)); err != nil {
		// The in-memory list already advanced; persistence is best effort.
		log.Warn().Err(err).Msg("cart: storage write failed")
	}

	s.notify()
}

func (s *Store) notify() {
	s.mu.Lock()
	items := cloneItems(s.items)
	subs := make([]func([]LineItem), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(cloneItems(items))
	}
}

func cloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
