//go:build !(rp2040 || rp2350)

package settings

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the durable host-side backend. One table holds every
// namespace; the NVS key limit is still enforced so a database written here
// can be mirrored onto a flash layout unchanged.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the settings database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS kv (
		ns TEXT NOT NULL,
		k  TEXT NOT NULL,
		v  TEXT NOT NULL,
		PRIMARY KEY (ns, k)
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create settings schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Open(namespace string) (Namespace, error) {
	return &sqliteNamespace{db: s.db, ns: namespace}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

type sqliteNamespace struct {
	db *sql.DB
	ns string
}

// GetString treats a broken backend like an absent key; writes surface the
// real error.
func (n *sqliteNamespace) GetString(key, def string) string {
	var v string
	err := n.db.QueryRow(`SELECT v FROM kv WHERE ns = ? AND k = ?`, n.ns, key).Scan(&v)
	if err != nil {
		return def
	}
	return v
}

func (n *sqliteNamespace) SetString(key, value string) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	_, err := n.db.Exec(
		`INSERT INTO kv (ns, k, v) VALUES (?, ?, ?)
		 ON CONFLICT (ns, k) DO UPDATE SET v = excluded.v`,
		n.ns, key, value)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", n.ns, key, err)
	}
	return nil
}

func (n *sqliteNamespace) EraseKey(key string) error {
	if _, err := n.db.Exec(`DELETE FROM kv WHERE ns = ? AND k = ?`, n.ns, key); err != nil {
		return fmt.Errorf("erase %s/%s: %w", n.ns, key, err)
	}
	return nil
}

func (n *sqliteNamespace) EraseAll() error {
	if _, err := n.db.Exec(`DELETE FROM kv WHERE ns = ?`, n.ns); err != nil {
		return fmt.Errorf("erase namespace %s: %w", n.ns, err)
	}
	return nil
}
