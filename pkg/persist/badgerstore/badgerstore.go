// Package badgerstore is a concrete demo host-key-value backend for
// pkg/persist, built on github.com/dgraph-io/badger/v4. pkg/persist itself
// never imports a storage client; this package exists to show one real
// wiring of its shard format into an actual embedded KV engine, the same
// role the teacher codebase's badger.go plays for its own storage engine,
// just keyed by graph shard rather than by node/edge.
package badgerstore

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/orneryd/mgraph/pkg/persist"
)

// prefixShard namespaces every key this package writes, mirroring the
// teacher's single-byte key-prefix convention (prefixNode, prefixEdge,
// ...) so a badgerstore database can share a directory with other
// prefixed key spaces without collision.
const prefixShard = byte(0xF0)

// Store persists graph shards in an embedded Badger database.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) a Badger database at dir.
func Open(dir string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dir))
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func shardKey(graphName string, coLocate bool, shardUUID string) []byte {
	name := persist.ShardKey(graphName, shardUUID, coLocate)
	key := make([]byte, 0, len(name)+1)
	key = append(key, prefixShard)
	key = append(key, name...)
	return key
}

// SaveGraph persists every shard Encode produced for g, assigning each a
// fresh uuid-suffixed key; coLocate requests the hashtag-prefixed key form
// so a clustered Badger-compatible deployment keeps a graph's shards on
// one node.
func (s *Store) SaveGraph(shards []persist.Shard, coLocate bool) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, shard := range shards {
			key := shardKey(shard.GraphName, coLocate, uuid.NewString())
			if err := txn.Set(key, shard.Marshal()); err != nil {
				return fmt.Errorf("badgerstore: set %s: %w", key, err)
			}
		}
		return nil
	})
}

// LoadGraph scans every key under graphName's shard prefix and returns the
// decoded, checksum-verified shards found. coLocate must match whatever
// was passed to the SaveGraph call that wrote them, since it changes the
// key's prefix shape.
func (s *Store) LoadGraph(graphName string, coLocate bool) ([]persist.Shard, error) {
	var shards []persist.Shard
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := graphKeyPrefix(graphName, coLocate)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var shard persist.Shard
			err := item.Value(func(val []byte) error {
				s, err := persist.UnmarshalShard(graphName, val)
				if err != nil {
					return err
				}
				shard = s
				return nil
			})
			if err != nil {
				return err
			}
			shards = append(shards, shard)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badgerstore: load %s: %w", graphName, err)
	}
	return shards, nil
}

// DeleteGraph removes every shard key stored for graphName, so a
// subsequent SaveGraph call fully replaces the prior persisted state
// rather than accumulating stale shards alongside the new ones.
func (s *Store) DeleteGraph(graphName string, coLocate bool) error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := graphKeyPrefix(graphName, coLocate)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("badgerstore: delete %s: %w", key, err)
			}
		}
		return nil
	})
}

// graphKeyPrefix returns the shared prefix every shard key for graphName
// starts with, given the key shape SaveGraph used.
func graphKeyPrefix(graphName string, coLocate bool) []byte {
	var name string
	if coLocate {
		name = fmt.Sprintf("{%s}%s_", graphName, graphName)
	} else {
		name = graphName + "_"
	}
	key := make([]byte, 0, len(name)+1)
	key = append(key, prefixShard)
	key = append(key, name...)
	return key
}
