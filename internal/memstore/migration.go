// Migration implements §4.9: detect a stored schema version and
// rewrite v1 (text-framed) records to the current v2 binary framing,
// non-fatally skipping any record that fails both decodes. Grounded on
// original_source/codegraph-memory/src/migration.rs's try-v1-then-v2
// control flow and the host CLI's internal/index/consistency.go
// skip-and-log idiom for per-record recovery.
package memstore

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"github.com/codegraph-ai/codegraph-core/internal/cgerrors"
)

var versionKey = []byte("_db_version")

// MigrateIfNeeded opens dir read-write, detects the stored schema
// version, and rewrites every v1 record/vector to the v2 framing. A
// fresh directory (no BadgerDB CURRENT marker) is a no-op: no version
// key is written. Migration is idempotent — a database already at v2
// makes no writes.
func MigrateIfNeeded(dir string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if !isExistingDatabase(dir) {
		return nil
	}

	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return cgerrors.Storage("failed to open store for migration", err)
	}
	defer db.Close()

	version := readVersionOrV1(db)
	if version >= CurrentSchemaVersion {
		return nil // already current: idempotent no-op
	}

	if err := rewriteAllV1Records(db, logger); err != nil {
		return err
	}

	err = db.Update(func(txn *badger.Txn) error {
		return txn.Set(versionKey, encodeVersion(CurrentSchemaVersion))
	})
	if err != nil {
		return cgerrors.Storage("failed to write migrated schema version", err)
	}
	return db.Sync()
}

// isExistingDatabase reports whether dir already holds a BadgerDB
// instance (its CURRENT marker file), distinguishing "fresh directory"
// from "v1 database with no version key yet".
func isExistingDatabase(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "CURRENT"))
	return err == nil
}

func readVersionOrV1(db *badger.DB) uint32 {
	var version uint32 = 1
	_ = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(versionKey)
		if err != nil {
			return nil // absent: assume v1
		}
		return item.Value(func(val []byte) error {
			if v, ok := decodeVersion(val); ok {
				version = v
			}
			return nil
		})
	})
	return version
}

func rewriteAllV1Records(db *badger.DB, logger *slog.Logger) error {
	type rewrite struct {
		key   []byte
		value []byte
	}
	var rewrites []rewrite

	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := append([]byte{}, item.Key()...)
			if len(key) == 0 {
				continue
			}
			switch {
			case hasPrefix(key, memPrefix):
				val, err := item.ValueCopy(nil)
				if err != nil {
					logger.Warn("migration: failed to read record, skipping", "key", string(key), "error", err)
					continue
				}
				if rec, ok := decodeRecordV1(val); ok {
					encoded, err := encodeRecordV2(rec)
					if err != nil {
						logger.Warn("migration: failed to re-encode v1 record, skipping", "key", string(key), "error", err)
						continue
					}
					rewrites = append(rewrites, rewrite{key: key, value: encoded})
					continue
				}
				if rec, ok := decodeRecordV2(val); ok {
					encoded, err := encodeRecordV2(rec) // normalize
					if err == nil {
						rewrites = append(rewrites, rewrite{key: key, value: encoded})
					}
					continue
				}
				logger.Warn("migration: record failed both v1 and v2 decode, skipping", "key", string(key))
			case hasPrefix(key, vecPrefix):
				val, err := item.ValueCopy(nil)
				if err != nil {
					logger.Warn("migration: failed to read vector, skipping", "key", string(key), "error", err)
					continue
				}
				if vec, ok := decodeVectorV2(val); ok {
					encoded, err := encodeVectorV2(vec) // normalize
					if err == nil {
						rewrites = append(rewrites, rewrite{key: key, value: encoded})
					}
					continue
				}
				logger.Warn("migration: vector failed v2 decode, skipping", "key", string(key))
			}
		}
		return nil
	})
	if err != nil {
		return cgerrors.Storage("migration scan failed", err)
	}

	return db.Update(func(txn *badger.Txn) error {
		for _, r := range rewrites {
			if err := txn.Set(r.key, r.value); err != nil {
				return err
			}
		}
		return nil
	})
}

// SchemaVersion opens dir read-only and reports the stamped schema
// version without triggering migration — a read-only inspection helper
// supplementing the spec's stats surface (SPEC_FULL.md §3.1).
func SchemaVersion(dir string) (uint32, error) {
	if !isExistingDatabase(dir) {
		return 0, cgerrors.NotFound("no database at " + dir)
	}
	opts := badger.DefaultOptions(dir).WithReadOnly(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return 0, cgerrors.Storage("failed to open store for inspection", err)
	}
	defer db.Close()
	return readVersionOrV1(db), nil
}

func hasPrefix(key []byte, prefix string) bool {
	if len(key) < len(prefix) {
		return false
	}
	return string(key[:len(prefix)]) == prefix
}
