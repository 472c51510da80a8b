package tokenstore

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Store holds API bearer tokens in a Badger database, optionally
// encrypted at rest. Encryption is provided by Badger options (value
// log + key registry), not by this wrapper.
type Store struct {
	db *badger.DB
}

// Record is the stored metadata for one issued token.
type Record struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type OpenOptions struct {
	Path          string
	EncryptionKey []byte // 32 bytes; if nil, DB is opened without encryption (not recommended)
	ReadOnly      bool
}

const tokenPrefix = "token:"

func Open(opts OpenOptions) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("tokenstore: path is required")
	}
	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithReadOnly(opts.ReadOnly)
	if len(opts.EncryptionKey) > 0 {
		// Badger requires index cache for encrypted workloads
		// Default cache size: 100MB (100 * 1024 * 1024 bytes)
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(100 << 20) // 100MB
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Issue creates a fresh token for the named caller and stores it.
func (s *Store) Issue(name string) (string, error) {
	if s == nil || s.db == nil {
		return "", errors.New("tokenstore: not opened")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("tokenstore: caller name is empty")
	}
	token := uuid.NewString()
	rec := Record{Name: name, CreatedAt: time.Now().UTC()}
	v, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(tokenPrefix+token), v)
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Lookup resolves a presented token to its caller name.
func (s *Store) Lookup(token string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, errors.New("tokenstore: not opened")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false, nil
	}
	var rec Record
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tokenPrefix + token))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, nil
	}
	return rec.Name, true, nil
}

// Revoke deletes a token. Revoking an unknown token is not an error.
func (s *Store) Revoke(token string) error {
	if s == nil || s.db == nil {
		return errors.New("tokenstore: not opened")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("tokenstore: token is empty")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(tokenPrefix + token))
	})
}

// List returns the metadata of every issued token, without the token
// values themselves.
func (s *Store) List() ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("tokenstore: not opened")
	}
	var out []Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(tokenPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParseKey expects 32 bytes (base64 or hex). Returns nil if input is empty.
func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	// Prefer hex if it looks like hex (64 hex chars = 32 bytes)
	// This avoids misinterpreting hex strings as base64
	rawHex := strings.TrimPrefix(raw, "0x")
	if len(rawHex) == 64 {
		if b, err := hex.DecodeString(rawHex); err == nil {
			if len(b) == 32 {
				return b, nil
			}
		}
	}
	if b, err := hex.DecodeString(rawHex); err == nil {
		if len(b) == 32 {
			return b, nil
		}
		return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
	}
	// Try base64
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	return nil, errors.New("key must be base64(32 bytes) or hex(32 bytes)")
}
