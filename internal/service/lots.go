package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-lots/internal/geometry"
	"github.com/joeblew999/plat-lots/internal/lots"
)

// LotService caches one dataset and answers lot queries over it. It is also
// a lots.Source, so every map session shares a single fetch.
type LotService struct {
	src    lots.Source
	anchor geometry.Anchor

	mu      sync.RWMutex
	fc      *geojson.FeatureCollection
	catalog *lots.Catalog
}

var _ lots.Source = (*LotService)(nil)

// NewLotService creates a service over src. Label anchors in summaries use
// the given policy.
func NewLotService(src lots.Source, anchor geometry.Anchor) *LotService {
	return &LotService{src: src, anchor: anchor}
}

// Fetch returns the cached collection, fetching it on first use. Callers
// must not modify it.
func (s *LotService) Fetch(ctx context.Context) (*geojson.FeatureCollection, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fc, nil
}

// Reload refetches the dataset. The previous data stays in place if the
// fetch fails.
func (s *LotService) Reload(ctx context.Context) error {
	fc, err := s.src.Fetch(ctx)
	if err != nil {
		return err
	}
	catalog := lots.NewCatalog(fc)

	s.mu.Lock()
	s.fc, s.catalog = fc, catalog
	s.mu.Unlock()
	return nil
}

func (s *LotService) ensure(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.catalog != nil
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Reload(ctx)
}

// Catalog returns the cached lots.
func (s *LotService) Catalog(ctx context.Context) (*lots.Catalog, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog, nil
}

// List returns one page of lots in dataset order, and the total count.
func (s *LotService) List(ctx context.Context, offset, limit int) ([]LotSummary, int, error) {
	c, err := s.Catalog(ctx)
	if err != nil {
		return nil, 0, err
	}
	all := c.All()
	total := len(all)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	page := make([]LotSummary, 0, end-offset)
	for _, f := range all[offset:end] {
		page = append(page, s.Summarize(f))
	}
	return page, total, nil
}

// Get returns the lot with the given lot number.
func (s *LotService) Get(ctx context.Context, lotNo string) (lots.Feature, error) {
	c, err := s.Catalog(ctx)
	if err != nil {
		return lots.Feature{}, err
	}
	f, ok := c.FindByLotNo(lotNo)
	if !ok {
		return lots.Feature{}, fmt.Errorf("lot %q: %w", lotNo, ErrNotFound)
	}
	return f, nil
}

// Stats counts lots per status.
func (s *LotService) Stats(ctx context.Context) (LotStats, error) {
	c, err := s.Catalog(ctx)
	if err != nil {
		return LotStats{}, err
	}
	st := LotStats{Total: c.Len(), ByStatus: map[lots.Status]int{}}
	for _, f := range c.All() {
		st.ByStatus[f.Props.Status]++
	}
	return st, nil
}

// Statuses returns the statuses present in the dataset, sorted.
func (st LotStats) Statuses() []lots.Status {
	out := make([]lots.Status, 0, len(st.ByStatus))
	for k := range st.ByStatus {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Summarize formats a lot for listings.
func (s *LotService) Summarize(f lots.Feature) LotSummary {
	sum := LotSummary{
		ID:         int(f.ID),
		LotNo:      f.Props.LotNumberText(),
		Label:      f.Props.LabelText(),
		Status:     f.Props.Status,
		StatusName: f.Props.Status.DisplayName(),
		Acreage:    f.Props.AcreageText(),
		Dimensions: f.Props.DimensionsText(),
	}
	if at, err := s.anchor.Place(f.Geometry); err == nil {
		sum.Anchor = &at
	}
	return sum
}
