package state

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"perkledger/core/types"
)

type pendingWrite struct {
	payload []byte
	delete  bool
}

// Txn is a single atomic unit of work against the store. Reads record the
// version of every touched key; writes are buffered until commit. A Txn is
// not safe for concurrent use.
type Txn struct {
	store      *Store
	reads      map[string]uint64
	writes     map[string]*pendingWrite
	writeOrder []string
	events     []*types.Event
}

func (t *Txn) trackRead(hashed string, version uint64) {
	if _, seen := t.reads[hashed]; !seen {
		t.reads[hashed] = version
	}
}

func (t *Txn) stage(hashed string, write *pendingWrite) {
	if _, exists := t.writes[hashed]; !exists {
		t.writeOrder = append(t.writeOrder, hashed)
	}
	t.writes[hashed] = write
}

func (t *Txn) load(key []byte) ([]byte, bool, error) {
	hashed := string(kvKey(key))
	if write, ok := t.writes[hashed]; ok {
		if write.delete {
			return nil, false, nil
		}
		return write.payload, true, nil
	}
	entry, found, err := t.store.readEntry([]byte(hashed))
	if err != nil {
		return nil, false, err
	}
	if !found {
		t.trackRead(hashed, 0)
		return nil, false, nil
	}
	t.trackRead(hashed, entry.Version)
	return entry.Payload, true, nil
}

// KVPut stores the provided value under the supplied key using RLP encoding.
func (t *Txn) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	t.stage(string(kvKey(key)), &pendingWrite{payload: encoded})
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (t *Txn) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	payload, found, err := t.load(key)
	if err != nil || !found {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(payload, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the key from state. Deleting an absent key is a no-op but
// still participates in conflict detection.
func (t *Txn) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	if _, _, err := t.load(key); err != nil {
		return err
	}
	t.stage(string(kvKey(key)), &pendingWrite{delete: true})
	return nil
}

// KVAppend appends the provided value to the RLP-encoded byte slice list
// stored under the supplied key. Duplicate values are ignored to keep the
// index deterministic.
func (t *Txn) KVAppend(key []byte, value []byte) error {
	list, err := t.loadList(key)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return t.KVPut(key, list)
}

// KVRemove removes the provided value from the byte slice list stored under
// the supplied key. Removing an absent value is a no-op.
func (t *Txn) KVRemove(key []byte, value []byte) error {
	list, err := t.loadList(key)
	if err != nil {
		return err
	}
	filtered := make([][]byte, 0, len(list))
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			continue
		}
		filtered = append(filtered, existing)
	}
	if len(filtered) == len(list) {
		return nil
	}
	return t.KVPut(key, filtered)
}

// KVGetList retrieves an RLP-encoded slice stored under the provided key and
// decodes it into the supplied destination slice pointer. When no value is
// present the destination is initialised with an empty slice to avoid nil
// surprises for callers.
func (t *Txn) KVGetList(key []byte, out interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	payload, found, err := t.load(key)
	if err != nil {
		return err
	}
	if !found {
		val := reflect.ValueOf(out)
		if val.Kind() != reflect.Ptr || val.IsNil() {
			return fmt.Errorf("kv: destination must be a non-nil pointer")
		}
		elem := val.Elem()
		if elem.Kind() != reflect.Slice {
			return fmt.Errorf("kv: destination must point to a slice")
		}
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
		return nil
	}
	return rlp.DecodeBytes(payload, out)
}

func (t *Txn) loadList(key []byte) ([][]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("kv: key must not be empty")
	}
	payload, found, err := t.load(key)
	if err != nil {
		return nil, err
	}
	var list [][]byte
	if found {
		if err := rlp.DecodeBytes(payload, &list); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// AppendEvent queues an event for emission after the transaction commits.
// Events from aborted transactions are never delivered.
func (t *Txn) AppendEvent(evt *types.Event) {
	if evt == nil {
		return
	}
	t.events = append(t.events, evt)
}
