package memory

import (
	"fmt"
	"sync"
	"time"

	"esco_tender/internal/models/bids"
	"esco_tender/internal/models/tender"
	"esco_tender/internal/storage"

	"github.com/google/uuid"
)

// Storage keeps tenders and bids in process memory.
type Storage struct {
	mu      sync.RWMutex
	tenders map[string]tender.Record
	bids    map[string]*bids.Bid
	// bid ids per tender in submission order
	order map[string][]string
}

func New() *Storage {
	return &Storage{
		tenders: make(map[string]tender.Record),
		bids:    make(map[string]*bids.Bid),
		order:   make(map[string][]string),
	}
}

func (s *Storage) SaveTender(rec tender.Record) (tender.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Id = uuid.NewString()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	lots := make([]tender.Lot, len(rec.Lots))
	for i, l := range rec.Lots {
		if l.Id == "" {
			l.Id = uuid.NewString()
		}
		lots[i] = l
	}
	rec.Lots = lots

	s.tenders[rec.Id] = rec
	return rec, nil
}

func (s *Storage) ReadTender(tenderId string) (tender.Record, error) {
	const op = "storage.memory.ReadTender"

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.tenders[tenderId]
	if !ok {
		return tender.Record{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return rec, nil
}

func (s *Storage) SaveBid(bid *bids.Bid) (*bids.Bid, error) {
	const op = "storage.memory.SaveBid"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenders[bid.TenderId]; !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	stored, err := bid.Clone()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	stored.Id = uuid.NewString()
	stored.Version = 1

	s.bids[stored.Id] = stored
	s.order[stored.TenderId] = append(s.order[stored.TenderId], stored.Id)

	return stored.Clone()
}

func (s *Storage) ReadBid(tenderId, bidId string) (*bids.Bid, error) {
	const op = "storage.memory.ReadBid"

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.bids[bidId]
	if !ok || stored.TenderId != tenderId {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return stored.Clone()
}

func (s *Storage) ReadTenderBids(tenderId string) ([]*bids.Bid, error) {
	const op = "storage.memory.ReadTenderBids"

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.tenders[tenderId]; !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	result := make([]*bids.Bid, 0, len(s.order[tenderId]))
	for _, id := range s.order[tenderId] {
		cp, err := s.bids[id].Clone()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, cp)
	}
	return result, nil
}

// check reports whether bid may replace the stored one. The caller holds the lock.
func (s *Storage) check(bid *bids.Bid) error {
	stored, ok := s.bids[bid.Id]
	if !ok || stored.TenderId != bid.TenderId {
		return storage.ErrNotFound
	}
	if stored.Version != bid.Version {
		return storage.ErrConflict
	}
	return nil
}

func (s *Storage) UpdateBid(bid *bids.Bid) (*bids.Bid, error) {
	const op = "storage.memory.UpdateBid"

	updated, err := s.UpdateBids([]*bids.Bid{bid})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated[0], nil
}

func (s *Storage) UpdateBids(bs []*bids.Bid) ([]*bids.Bid, error) {
	const op = "storage.memory.UpdateBids"

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]*bids.Bid, len(bs))
	seen := make(map[string]struct{}, len(bs))
	for i, bid := range bs {
		if _, dup := seen[bid.Id]; dup {
			return nil, fmt.Errorf("%s: bid %s: %w", op, bid.Id, storage.ErrConflict)
		}
		seen[bid.Id] = struct{}{}

		if err := s.check(bid); err != nil {
			return nil, fmt.Errorf("%s: bid %s: %w", op, bid.Id, err)
		}
		cp, err := bid.Clone()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		cp.Version = bid.Version + 1
		next[i] = cp
	}

	result := make([]*bids.Bid, len(next))
	for i, cp := range next {
		s.bids[cp.Id] = cp
		out, err := cp.Clone()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result[i] = out
	}
	return result, nil
}

func (s *Storage) Ping() error {
	return nil
}
