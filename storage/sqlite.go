package storage

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tolelom/consensusclash/core"
	_ "modernc.org/sqlite"
)

const createKVTable = `CREATE TABLE IF NOT EXISTS kv (
	k BLOB PRIMARY KEY,
	v BLOB NOT NULL
) WITHOUT ROWID`

// SQLiteDB implements DB as a single key-value table in SQLite.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens (or creates) a SQLite database file at path.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// One connection keeps batch transactions and plain writes serialized.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}
	if _, err := db.Exec(createKVTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &SQLiteDB{db: db}, nil
}

func (s *SQLiteDB) Get(key []byte) ([]byte, error) {
	var val []byte
	err := s.db.QueryRow(`SELECT v FROM kv WHERE k = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (s *SQLiteDB) Set(key, value []byte) error {
	_, err := s.db.Exec(`INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`, key, value)
	return err
}

func (s *SQLiteDB) Delete(key []byte) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE k = ?`, key)
	return err
}

// NewIterator materializes the matching rows up front; the iterator holds no
// open cursor.
func (s *SQLiteDB) NewIterator(prefix []byte) Iterator {
	rows, err := s.db.Query(`SELECT k, v FROM kv WHERE k >= ? ORDER BY k`, prefix)
	if err != nil {
		return &sliceIter{idx: -1, err: err}
	}
	defer rows.Close()

	it := &sliceIter{idx: -1}
	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			it.err = err
			return it
		}
		if !bytes.HasPrefix(k, prefix) {
			break
		}
		it.pairs = append(it.pairs, kvPair{k: k, v: v})
	}
	if err := rows.Err(); err != nil {
		it.err = err
	}
	return it
}

func (s *SQLiteDB) NewBatch() Batch {
	return &sqliteBatch{db: s.db}
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

type kvPair struct{ k, v []byte }

type sliceIter struct {
	pairs []kvPair
	idx   int
	err   error
}

func (it *sliceIter) Next() bool    { it.idx++; return it.err == nil && it.idx < len(it.pairs) }
func (it *sliceIter) Key() []byte   { return it.pairs[it.idx].k }
func (it *sliceIter) Value() []byte { return it.pairs[it.idx].v }
func (it *sliceIter) Release()      {}
func (it *sliceIter) Error() error  { return it.err }

// sqliteBatch applies buffered writes inside one transaction.
type sqliteBatch struct {
	db  *sql.DB
	ops []kvPair // nil v means delete
}

func (b *sqliteBatch) Set(key, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	b.ops = append(b.ops, kvPair{k: append([]byte(nil), key...), v: v})
}

func (b *sqliteBatch) Delete(key []byte) {
	b.ops = append(b.ops, kvPair{k: append([]byte(nil), key...)})
}

func (b *sqliteBatch) Reset() { b.ops = nil }

func (b *sqliteBatch) Write() error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	for _, op := range b.ops {
		if op.v == nil {
			_, err = tx.Exec(`DELETE FROM kv WHERE k = ?`, op.k)
		} else {
			_, err = tx.Exec(`INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`, op.k, op.v)
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("batch write: %w", err)
		}
	}
	return tx.Commit()
}
