package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const pgChannel = "finsight_changes"

// PostgresStore is a Store backed by a Postgres table. Changes are
// announced with NOTIFY and received through one lib/pq listener per store.
type PostgresStore struct {
	db      *sql.DB
	dsn     string
	log     *logrus.Logger
	changes *fanout

	mu       sync.Mutex
	listener *pq.Listener
}

// NewPostgresStore opens the database and creates the state table
func NewPostgresStore(dsn string, log *logrus.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: db, dsn: dsn, log: log, changes: newFanout()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS finsight_state (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create state table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM finsight_state WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO finsight_state (key, value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	s.notify(ctx, Change{Key: key})
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM finsight_state WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.notify(ctx, Change{Key: key, Deleted: true})
	}
	return nil
}

func (s *PostgresStore) Keys(ctx context.Context, suffix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM finsight_state WHERE right(key, length($1)) = $1`, suffix)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) notify(ctx context.Context, c Change) {
	payload, _ := json.Marshal(c)
	if _, err := s.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, pgChannel, string(payload)); err != nil {
		s.log.WithError(err).Warnf("Failed to notify change for %s", c.Key)
	}
}

// Subscribe registers key with the store's shared listener, started on first use
func (s *PostgresStore) Subscribe(ctx context.Context, key string) (<-chan Change, func(), error) {
	if err := s.listen(); err != nil {
		return nil, nil, err
	}
	ch, cancel := s.changes.add(ctx, key)
	return ch, cancel, nil
}

// listen opens the one LISTEN connection of this store
func (s *PostgresStore) listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}

	listener := pq.NewListener(s.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			s.log.WithError(err).Warn("State listener event")
		}
	})
	if err := listener.Listen(pgChannel); err != nil {
		listener.Close()
		return fmt.Errorf("failed to listen on %s: %w", pgChannel, err)
	}
	s.listener = listener
	go s.dispatch(listener.Notify)
	return nil
}

func (s *PostgresStore) dispatch(notes <-chan *pq.Notification) {
	for n := range notes {
		// A nil notification follows a reconnect; anything may have changed
		if n == nil {
			s.changes.notifyAll()
			continue
		}
		var c Change
		if err := json.Unmarshal([]byte(n.Extra), &c); err != nil {
			s.log.WithError(err).Warn("Ignoring malformed change notification")
			continue
		}
		s.changes.notify(c)
	}
}

func (s *PostgresStore) Close() error {
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()
	s.changes.close()
	return s.db.Close()
}
