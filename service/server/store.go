package server

import (
	"time"

	"github.com/brojonat/swapexport/service/export"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ExportStore keeps finished exports in memory until they expire.
type ExportStore struct {
	cache *cache.Cache
}

// NewExportStore creates a store whose entries live for ttl.
func NewExportStore(ttl time.Duration) *ExportStore {
	return &ExportStore{cache: cache.New(ttl, 2*ttl)}
}

// Put stores res under a new random ID and returns the ID.
func (s *ExportStore) Put(res *export.Result) string {
	id := uuid.NewString()
	s.cache.SetDefault(id, res)
	return id
}

// Get returns the export stored under id, if it has not expired.
func (s *ExportStore) Get(id string) (*export.Result, bool) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	res, ok := v.(*export.Result)
	return res, ok
}

// Len is the number of unexpired exports.
func (s *ExportStore) Len() int {
	return s.cache.ItemCount()
}
