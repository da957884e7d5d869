package loyalty

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"perkledger/core/types"
)

// mockState is an in-memory ledgerState for exercising the registry and
// engines without a backing store. Records are stored as typed copies so
// aborted mutations can never leak through shared pointers.
type mockState struct {
	records map[string]interface{}
	lists   map[string][][]byte
	events  []*types.Event
}

func newMockState() *mockState {
	return &mockState{
		records: make(map[string]interface{}),
		lists:   make(map[string][][]byte),
	}
}

func (m *mockState) KVGet(key []byte, out interface{}) (bool, error) {
	stored, ok := m.records[string(key)]
	if !ok {
		return false, nil
	}
	if out != nil {
		reflect.ValueOf(out).Elem().Set(reflect.ValueOf(stored).Elem())
	}
	return true, nil
}

func (m *mockState) KVPut(key []byte, value interface{}) error {
	v := reflect.ValueOf(value)
	cp := reflect.New(v.Elem().Type())
	cp.Elem().Set(v.Elem())
	m.records[string(key)] = cp.Interface()
	return nil
}

func (m *mockState) KVDelete(key []byte) error {
	delete(m.records, string(key))
	delete(m.lists, string(key))
	return nil
}

func (m *mockState) KVAppend(key []byte, value []byte) error {
	for _, existing := range m.lists[string(key)] {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	m.lists[string(key)] = append(m.lists[string(key)], append([]byte(nil), value...))
	return nil
}

func (m *mockState) KVRemove(key []byte, value []byte) error {
	list := m.lists[string(key)]
	filtered := list[:0]
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			continue
		}
		filtered = append(filtered, existing)
	}
	m.lists[string(key)] = filtered
	return nil
}

func (m *mockState) KVGetList(key []byte, out interface{}) error {
	dst, ok := out.(*[][]byte)
	if !ok {
		return nil
	}
	list := m.lists[string(key)]
	*dst = make([][]byte, len(list))
	for i, entry := range list {
		(*dst)[i] = append([]byte(nil), entry...)
	}
	return nil
}

func (m *mockState) AppendEvent(evt *types.Event) {
	if evt != nil {
		m.events = append(m.events, evt)
	}
}

func (m *mockState) eventTypes() []string {
	out := make([]string, 0, len(m.events))
	for _, evt := range m.events {
		out = append(out, evt.Type)
	}
	return out
}

func (m *mockState) hasEvent(eventType string) bool {
	for _, evt := range m.events {
		if evt.Type == eventType {
			return true
		}
	}
	return false
}

var _ ledgerState = (*mockState)(nil)

const fixedNow = uint64(1_700_000_000)

// fixture wires a registry and engine against a mock state with one program
// and one active merchant at reward rate 10 (10 tokens per 100 spent).
type fixture struct {
	st        *mockState
	registry  *Registry
	engine    *Engine
	authority [20]byte
	wallet    [20]byte
	program   Address
	merchant  Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		st:       newMockState(),
		registry: NewRegistry(),
		engine:   NewEngine(),
	}
	f.registry.SetNowFunc(func() uint64 { return fixedNow })
	f.engine.SetNowFunc(func() uint64 { return fixedNow })
	f.authority[0] = 0xA1
	f.wallet[0] = 0xC1

	program, err := f.registry.CreateProgram(f.st, f.authority, "Main Street Rewards", 250)
	require.NoError(t, err)
	f.program = program

	merchant, err := f.registry.RegisterMerchant(f.st, f.authority, program, "Corner Cafe", "food", "", "espresso and pastries", 10)
	require.NoError(t, err)
	f.merchant = merchant
	return f
}

func (f *fixture) customer(t *testing.T) (*Customer, Address) {
	t.Helper()
	addr := DeriveCustomer(f.wallet, f.program)
	customer := new(Customer)
	found, err := f.st.KVGet(customerKey(addr), customer)
	require.NoError(t, err)
	require.True(t, found)
	return customer, addr
}

func (f *fixture) seedCustomer(t *testing.T, totalEarned, totalRedeemed, txCount uint64) Address {
	t.Helper()
	addr := DeriveCustomer(f.wallet, f.program)
	customer := &Customer{
		Wallet:           f.wallet,
		Program:          f.program,
		TotalEarned:      totalEarned,
		TotalRedeemed:    totalRedeemed,
		TransactionCount: txCount,
		Tier:             CalculateTier(totalEarned),
	}
	require.NoError(t, f.st.KVPut(customerKey(addr), customer))
	return addr
}
