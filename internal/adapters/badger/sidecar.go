package badger

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// Sidecar stores content identifiers keyed by "device:inode" for files on
// filesystems that cannot hold extended attributes.
//
// Keys are namespaced with a "fk:" prefix. Inode numbers can be reused after
// a file is deleted, so a hit is only trusted when the resolver finds no
// attribute on the file itself.
type Sidecar struct {
	db *badger.DB
}

// Ensure Sidecar implements IdentitySidecar
var _ ports.IdentitySidecar = (*Sidecar)(nil)

// Open opens (creating if needed) the sidecar at dir
func Open(dir string) (*Sidecar, error) {
	opts := badger.DefaultOptions(dir).
		WithLoggingLevel(badger.WARNING).
		WithCompression(options.None)
	return open(opts)
}

// OpenInMemory opens a sidecar that is never persisted
func OpenInMemory() (*Sidecar, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func open(opts badger.Options) (*Sidecar, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open identity sidecar at %s: %w", opts.Dir, err)
	}
	return &Sidecar{db: db}, nil
}

func keyFile(fileKey string) []byte {
	return []byte("fk:" + fileKey)
}

// Lookup returns the identifier stored for fileKey
func (s *Sidecar) Lookup(fileKey string) (domain.ContentID, bool, error) {
	var raw string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyFile(fileKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			raw = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sidecar lookup %s: %w", fileKey, err)
	}

	id, err := domain.ParseContentID(raw)
	if err != nil {
		return "", false, fmt.Errorf("sidecar entry %s: %w", fileKey, err)
	}
	return id, true, nil
}

// Store records id for fileKey, replacing any previous identifier
func (s *Sidecar) Store(fileKey string, id domain.ContentID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyFile(fileKey), []byte(id.String()))
	})
}

// Delete drops the identifier stored for fileKey
func (s *Sidecar) Delete(fileKey string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(keyFile(fileKey))
	})
}

// Len counts stored identifiers
func (s *Sidecar) Len() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte("fk:")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close flushes and closes the database
func (s *Sidecar) Close() error {
	return s.db.Close()
}
