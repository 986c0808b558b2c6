// Package registry implements the Blueprint registry: a content-addressed
// store of published blueprints, persisted to a local bbolt file so a
// restarted gateway process doesn't lose what's been published. Adapted
// from the teacher's federation.SourceRegistry (sync.RWMutex + map) and
// generalized to a digest-keyed store with a durable backing store.
package registry

import (
	"errors"
	"sync"

	bolt "go.etcd.io/bbolt"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tailcall-go/tailcall/internal/blueprint"
)

var ErrNotFound = errors.New("registry: blueprint not found")

var bucketName = []byte("blueprints")

// record is the msgpack-encoded unit stored per digest: the raw Config
// source alongside metadata the `list`/`show` CLI subcommands need,
// without re-deriving them from the compiled Blueprint on every read.
type record struct {
	Digest      string `msgpack:"digest"`
	Name        string `msgpack:"name"`
	Source      []byte `msgpack:"source"`      // the original config document bytes
	SourceKind  string `msgpack:"source_kind"` // "json" | "yaml"
	Published   int64  `msgpack:"published_unix"`
}

// Registry is an in-memory index over every published blueprint, backed by
// a bbolt file for durability across restarts.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*record
	bps     map[string]*blueprint.Blueprint

	db *bolt.DB
}

// Open opens (creating if absent) a bbolt database at path and loads its
// existing entries into memory.
func Open(path string) (*Registry, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}

	r := &Registry{entries: map[string]*record{}, bps: map[string]*blueprint.Blueprint{}, db: db}

	err = db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		return bkt.ForEach(func(k, v []byte) error {
			var rec record
			if err := msgpack.Unmarshal(v, &rec); err != nil {
				return err
			}
			r.entries[string(k)] = &rec
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Registry) Close() error {
	return r.db.Close()
}

// Publish stores bp under its own Digest, alongside the raw config source
// it was compiled from, persisting the record to bbolt before returning.
func (r *Registry) Publish(name string, bp *blueprint.Blueprint, source []byte, sourceKind string, publishedUnix int64) (string, error) {
	digest, err := bp.Digest()
	if err != nil {
		return "", err
	}

	rec := &record{Digest: digest, Name: name, Source: source, SourceKind: sourceKind, Published: publishedUnix}
	raw, err := msgpack.Marshal(rec)
	if err != nil {
		return "", err
	}

	if err := r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(digest), raw)
	}); err != nil {
		return "", err
	}

	r.mu.Lock()
	r.entries[digest] = rec
	r.bps[digest] = bp
	r.mu.Unlock()

	return digest, nil
}

// Get returns the compiled Blueprint for digest, if it is still loaded in
// this process's memory (a fresh process must re-compile from the stored
// source — see Source).
func (r *Registry) Get(digest string) (*blueprint.Blueprint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bp, ok := r.bps[digest]
	if !ok {
		return nil, ErrNotFound
	}
	return bp, nil
}

// Source returns the raw config document a digest was published from, so
// the CLI or a freshly-started process can recompile it without needing
// the in-memory Blueprint cache warm.
func (r *Registry) Source(digest string) ([]byte, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.entries[digest]
	if !ok {
		return nil, "", ErrNotFound
	}
	return rec.Source, rec.SourceKind, nil
}

// Drop removes digest from both the in-memory index and the bbolt store.
func (r *Registry) Drop(digest string) error {
	if err := r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(digest))
	}); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.entries, digest)
	delete(r.bps, digest)
	r.mu.Unlock()
	return nil
}

// Entry is the list-friendly projection of a published blueprint.
type Entry struct {
	Digest    string
	Name      string
	Published int64
}

// List returns every published entry, copied out from under the lock the
// way federation.SourceRegistry.List copies its map before returning it.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.entries))
	for _, rec := range r.entries {
		out = append(out, Entry{Digest: rec.Digest, Name: rec.Name, Published: rec.Published})
	}
	return out
}

// Cache stores a compiled Blueprint in the in-memory index without
// publishing it (used by gqlfacade.Server when a Get misses for a digest
// whose record is on disk, after it recompiles the Blueprint from source).
func (r *Registry) Cache(digest string, bp *blueprint.Blueprint) {
	r.mu.Lock()
	r.bps[digest] = bp
	r.mu.Unlock()
}
