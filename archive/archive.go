package archive

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/hupe1980/nxgraph/blobstore"
	"github.com/hupe1980/nxgraph/dataio"
	"github.com/hupe1980/nxgraph/graph"
)

const (
	// CurrentName is the blob holding the name of the current version.
	CurrentName = "CURRENT"

	namePrefix = "GRAPH-"
	nameSuffix = ".nxg"
)

// Version numbers commits starting at 1. 0 means the current version.
type Version uint64

// Name returns the container blob name of v.
func (v Version) Name() string {
	return fmt.Sprintf("%s%06d%s", namePrefix, uint64(v), nameSuffix)
}

// ParseName extracts the version from a container blob name.
func ParseName(name string) (Version, bool) {
	digits, ok := strings.CutPrefix(name, namePrefix)
	if !ok {
		return 0, false
	}
	digits, ok = strings.CutSuffix(digits, nameSuffix)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return Version(n), true
}

// Info describes one stored version.
type Info struct {
	Version Version
	Name    string
	Current bool
}

// Store manages versions in a blob store.
type Store struct {
	store     blobstore.BlobStore
	write     dataio.WriteOptions
	graphOpts []graph.Option
	cache     int64
	mu        sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithWriteOptions sets the container write options used by Commit.
func WithWriteOptions(opts dataio.WriteOptions) Option {
	return func(s *Store) { s.write = opts }
}

// WithGraphOptions sets the options of data structures created by Load.
func WithGraphOptions(opts ...graph.Option) Option {
	return func(s *Store) { s.graphOpts = opts }
}

// WithReadCache caches up to bytes of container blocks read by Load.
func WithReadCache(bytes int64) Option {
	return func(s *Store) { s.cache = bytes }
}

// NewStore returns a Store over store.
func NewStore(store blobstore.BlobStore, opts ...Option) *Store {
	s := &Store{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache > 0 {
		s.store = blobstore.NewCachingStore(store, s.cache, 0, nil)
	}
	return s
}

// Commit writes ds as a new version and makes it current.
func (s *Store) Commit(ctx context.Context, ds *graph.DataStructure) (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.versions(ctx)
	if err != nil {
		return 0, err
	}
	v := Version(1)
	if len(versions) > 0 {
		v = versions[len(versions)-1] + 1
	}
	if _, err := dataio.Save(ctx, s.store, v.Name(), ds, s.write); err != nil {
		return 0, fmt.Errorf("archive: commit %d: %w", v, err)
	}
	if err := s.store.Put(ctx, CurrentName, []byte(v.Name())); err != nil {
		return 0, fmt.Errorf("archive: commit %d: %w", v, err)
	}
	return v, nil
}

// Current returns the current version.
func (s *Store) Current(ctx context.Context) (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(ctx)
}

func (s *Store) current(ctx context.Context) (Version, error) {
	data, err := blobstore.Get(ctx, s.store, CurrentName)
	if errors.Is(err, blobstore.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	v, ok := ParseName(strings.TrimSpace(string(data)))
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPointer, data)
	}
	return v, nil
}

// Load loads the current version.
func (s *Store) Load(ctx context.Context) (*graph.DataStructure, error) {
	return s.LoadVersion(ctx, 0)
}

// LoadVersion loads version v. 0 means the current version.
func (s *Store) LoadVersion(ctx context.Context, v Version) (*graph.DataStructure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v == 0 {
		cur, err := s.current(ctx)
		if err != nil {
			return nil, err
		}
		v = cur
	}
	ds, err := dataio.Load(ctx, s.store, v.Name(), s.graphOpts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load %d: %w", v, err)
	}
	return ds, nil
}

// ListVersions returns every stored version in ascending order.
func (s *Store) ListVersions(ctx context.Context) ([]Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.versions(ctx)
	if err != nil {
		return nil, err
	}
	cur, err := s.current(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	out := make([]Info, len(versions))
	for i, v := range versions {
		out[i] = Info{Version: v, Name: v.Name(), Current: v == cur}
	}
	return out, nil
}

// versions lists the stored versions in ascending order. Names that do
// not parse are skipped.
func (s *Store) versions(ctx context.Context) ([]Version, error) {
	names, err := s.store.List(ctx, namePrefix)
	if err != nil {
		return nil, err
	}
	out := make([]Version, 0, len(names))
	for _, name := range names {
		if v, ok := ParseName(name); ok {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out, nil
}

// DeleteVersion removes version v. The current version cannot be deleted.
func (s *Store) DeleteVersion(ctx context.Context, v Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.current(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if v == 0 || v == cur {
		return fmt.Errorf("%w: %d", ErrCurrentVersion, v)
	}
	return s.store.Delete(ctx, v.Name())
}
