package state

import (
	"errors"
	"fmt"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"kaiadefi/storage"
)

// Manager persists ledger records as RLP values under Keccak-hashed keys.
// All access goes through a Txn so an operation's writes land together or not
// at all.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a write transaction. Callers must Commit or Discard it.
func (m *Manager) Begin() *Txn {
	return &Txn{db: m.db, writes: make(map[string]write)}
}

// View opens a transaction for reads. It is never committed.
func (m *Manager) View() *Txn {
	return m.Begin()
}

// Close releases the underlying database.
func (m *Manager) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

type write struct {
	value   []byte
	deleted bool
}

// Txn overlays uncommitted writes on top of the database. Reads observe the
// transaction's own writes.
type Txn struct {
	db     storage.Database
	writes map[string]write
	closed bool
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (t *Txn) get(hashed []byte) ([]byte, error) {
	if t.closed {
		return nil, errTxnClosed
	}
	if w, ok := t.writes[string(hashed)]; ok {
		if w.deleted {
			return nil, nil
		}
		return w.value, nil
	}
	data, err := t.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

var errTxnClosed = errors.New("state: transaction closed")

// KVPut stores the RLP encoding of value under key.
func (t *Txn) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	if t.closed {
		return errTxnClosed
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	t.writes[string(kvKey(key))] = write{value: encoded}
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (t *Txn) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := t.get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes key.
func (t *Txn) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	if t.closed {
		return errTxnClosed
	}
	t.writes[string(kvKey(key))] = write{deleted: true}
	return nil
}

// Dirty reports the number of keys written so far.
func (t *Txn) Dirty() int { return len(t.writes) }

// Commit writes every pending change in a single batch, in key order.
func (t *Txn) Commit() error {
	if t.closed {
		return errTxnClosed
	}
	t.closed = true
	if len(t.writes) == 0 {
		return nil
	}
	keys := make([]string, 0, len(t.writes))
	for k := range t.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	batch := t.db.NewBatch()
	for _, k := range keys {
		if w := t.writes[k]; w.deleted {
			batch.Delete([]byte(k))
		} else {
			batch.Put([]byte(k), w.value)
		}
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	t.writes = nil
	return nil
}

// Discard drops all pending writes.
func (t *Txn) Discard() {
	t.closed = true
	t.writes = nil
}
