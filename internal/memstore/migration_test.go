package memstore

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/codegraph-ai/codegraph-core/internal/memory"
)

func TestMigrationOnFreshDirectoryIsNoOp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh")
	if err := MigrateIfNeeded(dir, nil); err != nil {
		t.Fatalf("unexpected error on fresh directory: %v", err)
	}
	if isExistingDatabase(dir) {
		t.Fatal("migration must not create a database on a fresh directory")
	}
}

func seedV1Database(t *testing.T, dir string) {
	t.Helper()
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	now := time.Now().UTC()
	raw, err := json.Marshal(recordV1{
		ID:        "test-id",
		Kind:      memory.Kind{Tag: memory.KindConvention, Convention: &memory.Convention{Name: "x", Description: "y"}},
		Title:     "v1 record",
		Content:   "legacy content",
		ValidAt:   now,
		CreatedAt: now,
		Source:    memory.Source{Tag: memory.SourceUserProvided},
	})
	if err != nil {
		t.Fatal(err)
	}
	err = db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("mem:test-id"), raw)
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestMigrateV1DatabaseUpgradesVersionAndRecord(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "v1db")
	seedV1Database(t, dir)

	if err := MigrateIfNeeded(dir, nil); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	version, err := SchemaVersion(dir)
	if err != nil {
		t.Fatalf("failed to read schema version: %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Fatalf("expected version %d, got %d", CurrentSchemaVersion, version)
	}

	opts := badger.DefaultOptions(dir).WithLogger(nil).WithReadOnly(true)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("mem:test-id"))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if _, ok := decodeRecordV2(val); !ok {
				t.Fatal("expected migrated record to decode under v2 framing")
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("expected migrated key readable: %v", err)
	}
}

func TestMigrationIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "v1db2")
	seedV1Database(t, dir)
	if err := MigrateIfNeeded(dir, nil); err != nil {
		t.Fatal(err)
	}
	if err := MigrateIfNeeded(dir, nil); err != nil {
		t.Fatalf("second migration run should be a no-op, got error: %v", err)
	}
	version, err := SchemaVersion(dir)
	if err != nil {
		t.Fatal(err)
	}
	if version != CurrentSchemaVersion {
		t.Fatalf("expected version to remain %d, got %d", CurrentSchemaVersion, version)
	}
}
