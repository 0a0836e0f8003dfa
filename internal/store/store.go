package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/macromover/internal/querysql"
)

//go:embed schema.sql
var schemaSQL string

// pragmas are applied to every connection the store opens. want is the
// value SQLite reports back once set.
var pragmas = []struct {
	name, set, want string
}{
	{"journal_mode", "WAL", "wal"},
	{"synchronous", "NORMAL", "1"},
	{"busy_timeout", "5000", "5000"},
	{"foreign_keys", "ON", "1"},
}

// migrations upgrade stores created by older builds. migrations[i] moves
// user_version from i to i+1; each must be idempotent because schema.sql
// already declares the final shape for new stores.
var migrations = []func(*sql.Tx) error{
	// v1: instruction lookups by (MacroId, SortOrder)
	func(tx *sql.Tx) error {
		_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_instruction_macro ON "MacroInstruction"("MacroId", "SortOrder")`)
		return err
	},
	// v2: runs listed by start time
	func(tx *sql.Tx) error {
		_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_deploy_runs_started ON deploy_runs(started_at, id)`)
		return err
	},
}

// currentSchemaVersion is the user_version of a fully migrated store.
var currentSchemaVersion = len(migrations)

// IDGenerator assigns ids to inserted rows.
// Implemented by UUIDv7Generator (production) and testutil.SequenceIDs (tests).
type IDGenerator interface {
	Generate() string
}

// Store is a SQLite target environment holding the Folder, Macro and
// MacroInstruction collections plus the deploy_runs ledger.
type Store struct {
	db       *sql.DB
	ids      IDGenerator
	compiler *querysql.SQLCompiler
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator sets the id generator for inserted rows.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open opens (creating if needed) the store at path and brings its
// schema up to date. ":memory:" opens a private in-memory store.
//
// The connection pool is capped at one: SQLite serializes writers, and a
// single connection keeps an in-memory database alive.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		ids:      UUIDv7Generator{},
		compiler: querysql.NewSQLCompiler(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	for _, p := range pragmas {
		stmt := fmt.Sprintf("PRAGMA %s = %s", p.name, p.set)
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", stmt, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s.db = db
	from, err := s.migrate()
	if err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Debug("store opened", "path", path, "schema_from", from, "schema", currentSchemaVersion)
	return s, nil
}

// migrate runs every migration past the stored user_version, each in its
// own transaction, and returns the version it started from.
func (s *Store) migrate() (int, error) {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}

	for v := version; v < len(migrations); v++ {
		tx, err := s.db.Begin()
		if err != nil {
			return version, fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if err := migrations[v](tx); err != nil {
			tx.Rollback()
			return version, fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return version, fmt.Errorf("set user_version %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return version, fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}
	return version, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}
