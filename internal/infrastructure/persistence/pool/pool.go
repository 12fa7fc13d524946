// Package pool keeps one SQLite database per location open on demand and
// closes handles that stay idle past their TTL.
package pool

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/garyjia/sales-insight/internal/application/port"
	"github.com/garyjia/sales-insight/internal/domain/entity"
	"github.com/garyjia/sales-insight/internal/infrastructure/persistence/repository"
	"github.com/garyjia/sales-insight/pkg/database"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

var (
	ErrInvalidLocation = errors.New("invalid location id")
	ErrClosed          = errors.New("location pool is closed")
)

// Config holds pool configuration
type Config struct {
	Driver          string
	DataDir         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Size            int           // max open locations, 0 for unbounded
	IdleTTL         time.Duration // 0 disables idle eviction
}

// handle is one open location database. It is closed once it has been
// evicted and no request holds it.
type handle struct {
	location string
	db       *database.DB
	store    *repository.Store
	logger   *zap.Logger

	mu      sync.Mutex
	refs    int
	evicted bool
}

func (h *handle) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.evicted {
		return false
	}
	h.refs++
	return true
}

func (h *handle) release() {
	h.mu.Lock()
	h.refs--
	closeNow := h.evicted && h.refs == 0
	h.mu.Unlock()
	if closeNow {
		h.close()
	}
}

func (h *handle) evict() {
	h.mu.Lock()
	h.evicted = true
	closeNow := h.refs == 0
	h.mu.Unlock()
	if closeNow {
		h.close()
	}
}

func (h *handle) close() {
	if err := h.db.Close(); err != nil {
		h.logger.Error("Failed to close location database",
			zap.String("location", h.location),
			zap.Error(err))
	}
}

// Pool implements port.StoreProvider
type Pool struct {
	cfg        Config
	migrations fs.FS
	logger     *zap.Logger

	mu     sync.Mutex
	cache  *expirable.LRU[string, *handle]
	locks  map[string]*importLock
	closed bool
}

// importLock is dropped from the pool once nobody holds or waits on it
type importLock struct {
	mu    sync.Mutex
	users int
}

// New creates a pool. Location databases are created under cfg.DataDir and
// migrated with the files in migrations the first time they are opened.
func New(cfg Config, migrations fs.FS, logger *zap.Logger) (*Pool, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	if _, err := database.DSN(cfg.Driver, cfg.DataDir); err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:        cfg,
		migrations: migrations,
		logger:     logger,
		locks:      make(map[string]*importLock),
	}
	p.cache = expirable.NewLRU[string, *handle](cfg.Size, p.onEvict, cfg.IdleTTL)
	return p, nil
}

func (p *Pool) onEvict(location string, h *handle) {
	p.logger.Debug("Evicting location database", zap.String("location", location))
	h.evict()
}

// Acquire returns the store of a location, opening and migrating its
// database when needed. The release func must be called exactly once.
func (p *Pool) Acquire(ctx context.Context, locationID string) (port.Store, func(), error) {
	if !entity.ValidLocationID(locationID) {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidLocation, locationID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, nil, ErrClosed
	}

	if h, ok := p.cache.Get(locationID); ok && h.acquire() {
		// re-adding refreshes the idle deadline
		p.cache.Add(locationID, h)
		return h.store, p.releaser(h), nil
	}

	h, err := p.open(ctx, locationID)
	if err != nil {
		return nil, nil, err
	}
	h.refs = 1
	p.cache.Add(locationID, h)
	return h.store, p.releaser(h), nil
}

func (p *Pool) releaser(h *handle) func() {
	var once sync.Once
	return func() { once.Do(h.release) }
}

func (p *Pool) open(ctx context.Context, locationID string) (*handle, error) {
	path := filepath.Join(p.cfg.DataDir, locationID+".db")

	db, err := database.New(database.Config{
		Driver:          p.cfg.Driver,
		Path:            path,
		MaxOpenConns:    p.cfg.MaxOpenConns,
		MaxIdleConns:    p.cfg.MaxIdleConns,
		ConnMaxLifetime: p.cfg.ConnMaxLifetime,
	}, p.logger)
	if err != nil {
		p.logger.Error("Failed to open location database",
			zap.String("location", locationID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to open location %s: %w", locationID, err)
	}

	applied, err := database.NewMigrator(db, p.logger).RunMigrations(ctx, p.migrations)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate location %s: %w", locationID, err)
	}

	p.logger.Info("Location database ready",
		zap.String("location", locationID),
		zap.Int("migrations_applied", applied))

	return &handle{
		location: locationID,
		db:       db,
		store:    repository.NewStore(db.DB, p.logger),
		logger:   p.logger,
	}, nil
}

// LockImports serializes imports of one location
func (p *Pool) LockImports(locationID string) func() {
	p.mu.Lock()
	l, ok := p.locks[locationID]
	if !ok {
		l = &importLock{}
		p.locks[locationID] = l
	}
	l.users++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		p.mu.Lock()
		l.users--
		if l.users == 0 {
			delete(p.locks, locationID)
		}
		p.mu.Unlock()
	}
}

// heldImportLocks returns the number of locations with an import lock in use
func (p *Pool) heldImportLocks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}

// Len returns the number of open location databases
func (p *Pool) Len() int {
	return p.cache.Len()
}

// Driver returns the configured sql driver name
func (p *Pool) Driver() string {
	if p.cfg.Driver == "" {
		return database.DriverCGO
	}
	return p.cfg.Driver
}

// Close evicts every location. Handles still in use close on release.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.cache.Purge()
	p.logger.Info("Location pool closed")
	return nil
}

// Verify interface compliance
var _ port.StoreProvider = (*Pool)(nil)
