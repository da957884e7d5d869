package state

import (
	"errors"
	"fmt"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"perkledger/core/events"
	"perkledger/storage"
)

// ErrConflict is returned when a transaction's read set was invalidated by a
// concurrent writer between read and commit. It is the only error callers
// should retry automatically.
var ErrConflict = errors.New("state: optimistic commit conflict")

// maxCommitRetries bounds the automatic retry loop in Update.
const maxCommitRetries = 5

// storedEntry wraps every persisted record with a version stamp used for
// optimistic concurrency control.
type storedEntry struct {
	Version uint64
	Payload []byte
}

// Store provides versioned key-value state on top of a storage backend.
// Records are RLP encoded and keys are hashed with keccak256 before hitting
// the backend.
type Store struct {
	db       storage.Database
	commitMu sync.Mutex
	emitter  events.Emitter

	// OnConflict, when set, is invoked once per detected commit conflict.
	OnConflict func()
}

// NewStore creates a store operating on the provided database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the emitter that receives events collected by
// committed transactions. Passing nil resets to a no-op implementation.
func (s *Store) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		s.emitter = events.NoopEmitter{}
		return
	}
	s.emitter = emitter
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (s *Store) readEntry(hashed []byte) (*storedEntry, bool, error) {
	data, err := s.db.Get(hashed)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	entry := new(storedEntry)
	if err := rlp.DecodeBytes(data, entry); err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// View runs fn against a read-only transaction. Writes staged inside fn are
// discarded.
func (s *Store) View(fn func(*Txn) error) error {
	txn := s.newTxn()
	return fn(txn)
}

// Update runs fn inside a transaction and commits it atomically. When the
// commit fails with ErrConflict the function is re-run against fresh reads,
// up to maxCommitRetries times. Any other error aborts with no state change.
func (s *Store) Update(fn func(*Txn) error) error {
	var lastErr error
	for attempt := 0; attempt < maxCommitRetries; attempt++ {
		txn := s.newTxn()
		if err := fn(txn); err != nil {
			return err
		}
		err := s.commit(txn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}
		if s.OnConflict != nil {
			s.OnConflict()
		}
		lastErr = err
	}
	return lastErr
}

func (s *Store) newTxn() *Txn {
	return &Txn{
		store:  s,
		reads:  make(map[string]uint64),
		writes: make(map[string]*pendingWrite),
	}
}

// commit re-validates every read against the latest committed state and
// applies the staged writes as one atomic batch. Events are delivered before
// the commit lock is released so downstream sequence numbers follow commit
// order.
func (s *Store) commit(txn *Txn) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if len(txn.writes) == 0 {
		s.deliver(txn)
		return nil
	}

	for hashed, seen := range txn.reads {
		entry, found, err := s.readEntry([]byte(hashed))
		if err != nil {
			return err
		}
		current := uint64(0)
		if found {
			current = entry.Version
		}
		if current != seen {
			return ErrConflict
		}
	}

	ops := make([]storage.BatchOp, 0, len(txn.writeOrder))
	for _, hashed := range txn.writeOrder {
		write := txn.writes[hashed]
		if write.delete {
			ops = append(ops, storage.BatchOp{Key: []byte(hashed), Delete: true})
			continue
		}
		version := uint64(1)
		if entry, found, err := s.readEntry([]byte(hashed)); err != nil {
			return err
		} else if found {
			version = entry.Version + 1
		}
		encoded, err := rlp.EncodeToBytes(&storedEntry{Version: version, Payload: write.payload})
		if err != nil {
			return fmt.Errorf("state: encode entry: %w", err)
		}
		ops = append(ops, storage.BatchOp{Key: []byte(hashed), Value: encoded})
	}
	if err := s.db.Write(ops); err != nil {
		return err
	}
	s.deliver(txn)
	return nil
}

func (s *Store) deliver(txn *Txn) {
	if s.emitter == nil {
		return
	}
	for _, evt := range txn.events {
		s.emitter.Emit(events.Raw{Evt: evt})
	}
}
