package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/model"
)

// CatalogBackend is what the catalog store needs from the backend.
type CatalogBackend interface {
	ListRestaurants(ctx context.Context) ([]model.Restaurant, error)
	GetRestaurant(ctx context.Context, id uint64) (model.Restaurant, error)
}

// CatalogState is a snapshot of the catalog store.
type CatalogState struct {
	All       []model.Restaurant
	Filtered  []model.Restaurant
	Current   *model.Restaurant
	IsLoading bool
	Error     string
}

type catalogData struct {
	all      []model.Restaurant
	filtered []model.Restaurant
	current  *model.Restaurant
}

// CatalogStore holds the restaurant list, the filtered view of it and the
// restaurant currently being viewed.
type CatalogStore struct {
	c   *core[catalogData]
	api CatalogBackend
	log *zap.Logger
}

// NewCatalogStore returns an empty store.
func NewCatalogStore(api CatalogBackend, log *zap.Logger) *CatalogStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogStore{c: newCore(catalogData{}), api: api, log: log}
}

// Snapshot returns a copy of the current state.
func (s *CatalogStore) Snapshot() CatalogState {
	var st CatalogState
	s.c.read(func(d *catalogData, loading bool, err string) {
		st.All = append([]model.Restaurant(nil), d.all...)
		st.Filtered = append([]model.Restaurant(nil), d.filtered...)
		if d.current != nil {
			cur := *d.current
			st.Current = &cur
		}
		st.IsLoading = loading
		st.Error = err
	})
	return st
}

// Subscribe calls fn with a fresh snapshot after every change.
func (s *CatalogStore) Subscribe(fn func(CatalogState)) (unsubscribe func()) {
	return s.c.subscribe(func() { fn(s.Snapshot()) })
}

// FetchAll loads every restaurant and resets the filter.
func (s *CatalogStore) FetchAll(ctx context.Context) error {
	t := s.c.begin("fetchAll")
	defer s.c.finish(t)

	list, err := s.api.ListRestaurants(ctx)
	err = s.c.commit(ctx, t, err, func(d *catalogData) {
		d.all = list
		d.filtered = append([]model.Restaurant(nil), list...)
	})
	if err != nil {
		s.log.Debug("fetch restaurants failed", zap.Error(err))
	}
	return err
}

// FetchByID loads one restaurant into Current.
func (s *CatalogStore) FetchByID(ctx context.Context, id uint64) error {
	t := s.c.begin("fetchByID")
	defer s.c.finish(t)

	r, err := s.api.GetRestaurant(ctx, id)
	err = s.c.commit(ctx, t, err, func(d *catalogData) { d.current = &r })
	if err != nil {
		s.log.Debug("fetch restaurant failed", zap.Uint64("id", id), zap.Error(err))
	}
	return err
}

// Search replaces Filtered with the held restaurants matching query and
// cuisine.  It makes no network call and leaves All untouched.
func (s *CatalogStore) Search(query, cuisine string) {
	s.c.update(func(d *catalogData) {
		d.filtered = FilterRestaurants(d.all, query, cuisine)
	})
}

// Cuisines lists the distinct cuisines of the held restaurants.
func (s *CatalogStore) Cuisines() []string {
	var out []string
	s.c.read(func(d *catalogData, _ bool, _ string) { out = Cuisines(d.all) })
	return out
}
