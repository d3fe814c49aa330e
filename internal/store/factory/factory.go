package factory

import (
	"errors"
	"strings"

	"github.com/devhatch/devhatch/internal/store"
	pg "github.com/devhatch/devhatch/internal/store/postgres"
	sq "github.com/devhatch/devhatch/internal/store/sqlite"
)

// NewFromDSN selects a history store implementation by DSN shape.
// Supported:
//   - postgres: DSN starting with "postgres://" or "postgresql://"
//   - sqlite:   "sqlite://<path>" or a bare filesystem path
func NewFromDSN(dsn string) (store.Store, error) {
	d := strings.TrimSpace(dsn)
	ld := strings.ToLower(d)
	if ld == "" {
		return nil, errors.New("empty DSN")
	}
	if strings.HasPrefix(ld, "postgres://") || strings.HasPrefix(ld, "postgresql://") {
		return pg.New(d)
	}
	if strings.HasPrefix(ld, "sqlite://") {
		return sq.New(strings.TrimPrefix(d, "sqlite://"))
	}
	return sq.New(d)
}
