package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"esco_tender/internal/models/tender"
	"esco_tender/internal/storage"
)

type Cache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// Map is an in-process Cache.
type Map struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMap() *Map {
	return &Map{data: make(map[string]string)}
}

func (m *Map) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.data[key]
	return val, ok
}

func (m *Map) Set(key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value
	return nil
}

// Storage serves tender records from a cache in front of another storage.
// Bids always go to the underlying storage.
type Storage struct {
	storage.Storage
	cache Cache
	log   *slog.Logger
}

func New(next storage.Storage, cache Cache, log *slog.Logger) *Storage {
	return &Storage{Storage: next, cache: cache, log: log}
}

func tenderKey(tenderId string) string {
	return "tender:" + tenderId
}

func (s *Storage) ReadTender(tenderId string) (tender.Record, error) {
	const op = "storage.cache.ReadTender"
	log := s.log.With(slog.String("op", op), slog.String("tender_id", tenderId))

	if raw, ok := s.cache.Get(tenderKey(tenderId)); ok {
		var rec tender.Record
		if err := json.Unmarshal([]byte(raw), &rec); err == nil {
			return rec, nil
		}
		log.Warn("dropping undecodable cache entry")
	}

	rec, err := s.Storage.ReadTender(tenderId)
	if err != nil {
		return tender.Record{}, fmt.Errorf("%s: %w", op, err)
	}

	s.remember(log, rec)
	return rec, nil
}

func (s *Storage) SaveTender(rec tender.Record) (tender.Record, error) {
	const op = "storage.cache.SaveTender"

	saved, err := s.Storage.SaveTender(rec)
	if err != nil {
		return tender.Record{}, fmt.Errorf("%s: %w", op, err)
	}

	s.remember(s.log.With(slog.String("op", op), slog.String("tender_id", saved.Id)), saved)
	return saved, nil
}

// remember stores rec in the cache. A cache failure only costs a later miss.
func (s *Storage) remember(log *slog.Logger, rec tender.Record) {
	raw, err := json.Marshal(rec)
	if err != nil {
		log.Error("failed to encode tender for cache", slog.String("error", err.Error()))
		return
	}
	if err := s.cache.Set(tenderKey(rec.Id), string(raw)); err != nil {
		log.Warn("failed to cache tender", slog.String("error", err.Error()))
	}
}
