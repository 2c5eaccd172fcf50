// Package memory holds map-backed repositories for local development
// (STORAGE_DRIVER=memory) and use case tests.
package memory

import (
	"context"
	"sync"

	"rizqara-backend/internal/domain"
)

type Store struct {
	mu            sync.RWMutex
	orders        map[string]*domain.Order
	history       map[string][]domain.OrderHistory
	vouchers      map[string]*domain.Voucher // by id
	users         map[string]*domain.User
	addresses     map[string][]domain.Address
	refreshTokens map[string]*domain.RefreshToken
	products      map[string]*domain.Product
	carts         map[string][]domain.CartItem
}

func NewStore() *Store {
	return &Store{
		orders:        make(map[string]*domain.Order),
		history:       make(map[string][]domain.OrderHistory),
		vouchers:      make(map[string]*domain.Voucher),
		users:         make(map[string]*domain.User),
		addresses:     make(map[string][]domain.Address),
		refreshTokens: make(map[string]*domain.RefreshToken),
		products:      make(map[string]*domain.Product),
		carts:         make(map[string][]domain.CartItem),
	}
}

// snapshot is a deep copy of every table, taken when a transaction starts.
type snapshot struct {
	orders        map[string]*domain.Order
	history       map[string][]domain.OrderHistory
	vouchers      map[string]*domain.Voucher
	users         map[string]*domain.User
	addresses     map[string][]domain.Address
	refreshTokens map[string]*domain.RefreshToken
	products      map[string]*domain.Product
	carts         map[string][]domain.CartItem
}

func copyPtrMap[T any](m map[string]*T, clone func(*T) *T) map[string]*T {
	c := make(map[string]*T, len(m))
	for k, v := range m {
		c[k] = clone(v)
	}
	return c
}

func copySliceMap[T any](m map[string][]T) map[string][]T {
	c := make(map[string][]T, len(m))
	for k, v := range m {
		c[k] = append([]T(nil), v...)
	}
	return c
}

func shallow[T any](v *T) *T {
	c := *v
	return &c
}

func (s *Store) snapshot() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &snapshot{
		orders:        copyPtrMap(s.orders, cloneOrder),
		history:       copySliceMap(s.history),
		vouchers:      copyPtrMap(s.vouchers, cloneVoucher),
		users:         copyPtrMap(s.users, cloneUser),
		addresses:     copySliceMap(s.addresses),
		refreshTokens: copyPtrMap(s.refreshTokens, shallow[domain.RefreshToken]),
		products:      copyPtrMap(s.products, shallow[domain.Product]),
		carts:         copySliceMap(s.carts),
	}
}

func (s *Store) restore(snap *snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = snap.orders
	s.history = snap.history
	s.vouchers = snap.vouchers
	s.users = snap.users
	s.addresses = snap.addresses
	s.refreshTokens = snap.refreshTokens
	s.products = snap.products
	s.carts = snap.carts
}

// TxManager serializes transactions over the store and restores the snapshot
// taken at Do when fn fails. Writes made outside Do while a transaction is
// rolling back are lost with it.
type TxManager struct {
	s  *Store
	mu sync.Mutex
}

func NewTxManager(s *Store) *TxManager { return &TxManager{s: s} }

type txKey struct{}

// Do runs fn in a transaction; nested calls join the outer one.
func (tm *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	snap := tm.s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, tm)); err != nil {
		tm.s.restore(snap)
		return err
	}
	return nil
}
