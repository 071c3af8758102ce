// Package graph implements the social graph adapter over Neo4j.
package graph

import (
	"context"
	"fmt"

	"geosm/internal/models"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Store opens graph transactions.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one explicit graph transaction on its own session. Close must be
// called on every path; it releases the session.
type Tx interface {
	Repository
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
}

// Config holds the connection settings of the graph store.
type Config struct {
	URI      string
	User     string
	Password string
	Database string
}

// Connect creates a driver and verifies connectivity.
func Connect(ctx context.Context, cfg Config) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create Neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}
	return driver, nil
}

// Neo4jStore is the Store backed by a Neo4j driver.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewStore returns a Store that opens write sessions on database.
func NewStore(driver neo4j.DriverWithContext, database string) *Neo4jStore {
	return &Neo4jStore{driver: driver, database: database}
}

// Begin opens a session and an explicit transaction.
func (s *Neo4jStore) Begin(ctx context.Context) (Tx, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		_ = session.Close(ctx)
		return nil, models.NewStoreError(fmt.Errorf("begin graph transaction: %w", err))
	}
	return &neo4jTx{
		repository: &repository{run: &txRunner{tx: tx}},
		session:    session,
		tx:         tx,
	}, nil
}

// Close closes the underlying driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

type neo4jTx struct {
	*repository
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
	done    bool
}

func (t *neo4jTx) Commit(ctx context.Context) error {
	t.done = true
	if err := t.tx.Commit(ctx); err != nil {
		return models.NewStoreError(fmt.Errorf("commit graph transaction: %w", err))
	}
	return nil
}

func (t *neo4jTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(ctx); err != nil {
		return models.NewStoreError(fmt.Errorf("rollback graph transaction: %w", err))
	}
	return nil
}

func (t *neo4jTx) Close(ctx context.Context) error {
	err := t.tx.Close(ctx)
	if cerr := t.session.Close(ctx); err == nil {
		err = cerr
	}
	return err
}

// runner executes one Cypher statement and buffers its records.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)
}

// txRunner runs statements on an explicit transaction. Callers issue them
// one at a time; the transaction is not safe for concurrent use.
type txRunner struct {
	tx neo4j.ExplicitTransaction
}

func (r *txRunner) Run(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := r.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}
