// Package selfhosted implements the backend contract on Postgres through
// gorm. Passwords are bcrypt hashes, access tokens are HS256 JWTs and
// refresh tokens are rows. Every data query is scoped to the signed-in user.
package selfhosted

import (
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/medease/internal/backend"
)

type Config struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Driver struct {
	db      *gorm.DB
	tokens  *tokenIssuer
	storage backend.SessionStorage
	logger  zerolog.Logger
}

func New(db *gorm.DB, cfg Config, storage backend.SessionStorage, logger zerolog.Logger) *Driver {
	if storage == nil {
		storage = backend.NewMemoryStorage()
	}
	return &Driver{
		db:      db,
		tokens:  newTokenIssuer(cfg, time.Now),
		storage: storage,
		logger:  logger.With().Str("component", "selfhosted").Logger(),
	}
}

func (d *Driver) NewClient(key string) backend.Client {
	return &Client{d: d, state: backend.NewSessionState(key, d.storage)}
}

func (d *Driver) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type Client struct {
	d     *Driver
	state *backend.SessionState
}
