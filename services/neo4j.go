package services

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph/storage"
)

// ErrNeo4jDisabled is returned when no NEO4J_URI is configured
var ErrNeo4jDisabled = errors.New("NEO4J_URI is not set, please set it in MCP Config")

var DefaultNeo4jStorage = sync.OnceValues(func() (*storage.Neo4jStorage, error) {
	cfg := DefaultConfig()
	if !cfg.Neo4jEnabled() {
		return nil, ErrNeo4jDisabled
	}

	store, err := storage.NewNeo4jStorage(cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database, DefaultLogger())
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
})
