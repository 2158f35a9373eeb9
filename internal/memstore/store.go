// Package memstore is a SQLite-backed memory provider for prompt building.
// It uses modernc.org/sqlite for pure-Go, CGO-free database access. The
// engine core consumes only the prompt.MemoryContextProvider interface;
// this package is the reference implementation wired in by the CLI.
package memstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/normanking/cogito/internal/logging"
	"github.com/normanking/cogito/internal/tier"
)

//go:embed schema.sql
var schema string

// approxCharsPerToken converts a tier's context-token budget into a
// character budget for retrieved snippets.
const approxCharsPerToken = 4

// Store persists and retrieves memory snippets for one agent.
type Store struct {
	db      *sql.DB
	agentID string
	log     zerolog.Logger
}

// Open creates or opens the memory database at path for the given agent.
// The parent directory is created if missing.
func Open(path, agentID string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create memory directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open memory database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:      db,
		agentID: agentID,
		log:     logging.Component("memstore").With().Str("agent_id", agentID).Logger(),
	}
	if err := s.initPragmas(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	s.log.Debug().Str("path", path).Msg("memory store opened")
	return s, nil
}

// initPragmas configures SQLite for concurrent reads and lock tolerance.
func (s *Store) initPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return nil
}

// Remember stores one memory snippet. Relevance is clamped to [0, 1].
func (s *Store) Remember(ctx context.Context, topic, content string, relevance float64) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("memstore: empty content")
	}
	if relevance < 0 {
		relevance = 0
	}
	if relevance > 1 {
		relevance = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (agent_id, topic, content, relevance) VALUES (?, ?, ?, ?)`,
		s.agentID, strings.ToLower(strings.TrimSpace(topic)), content, relevance)
	if err != nil {
		return fmt.Errorf("remember: %w", err)
	}
	return nil
}

// GetContextForTier returns the most relevant remembered snippets for the
// topic, sized to the tier's context budget. Deeper tiers get more rows.
// No matches yield an empty string, not an error.
func (s *Store) GetContextForTier(ctx context.Context, t tier.CognitiveTier, topic string) (string, error) {
	budget := tier.Get(t).MaxContextTokens * approxCharsPerToken
	limit := rowLimit(t)

	rows, err := s.db.QueryContext(ctx,
		`SELECT content FROM memories
		 WHERE agent_id = ? AND (topic LIKE ? OR ? LIKE '%' || topic || '%')
		 ORDER BY relevance DESC, created_at DESC
		 LIMIT ?`,
		s.agentID, "%"+strings.ToLower(strings.TrimSpace(topic))+"%",
		strings.ToLower(strings.TrimSpace(topic)), limit)
	if err != nil {
		return "", fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return "", fmt.Errorf("scan memory: %w", err)
		}
		line := "- " + content + "\n"
		if b.Len()+len(line) > budget {
			break
		}
		b.WriteString(line)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate memories: %w", err)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// rowLimit maps tier depth to a retrieval row cap.
func rowLimit(t tier.CognitiveTier) int {
	switch t {
	case tier.Reflex:
		return 1
	case tier.Reactive:
		return 2
	case tier.Deliberate:
		return 4
	case tier.Analytical:
		return 8
	default:
		return 12
	}
}

// Count returns the number of stored memories for this agent.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE agent_id = ?`, s.agentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count memories: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
