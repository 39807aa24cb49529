package service

import (
	"context"
	"sync"
	"time"

	"github.com/irisova/flower-order-reservation/internal/model"
	"github.com/irisova/flower-order-reservation/internal/repository"
)

// memStore is an in-memory stand-in for the repositories.  A single
// mutex serializes transactions the way row locks do in MySQL, and a
// snapshot taken at transaction start restores the state when the
// callback fails, matching rollback semantics.  Store methods themselves
// do not lock; tests drive them through WithTx or sequentially.
type memStore struct {
	mu sync.Mutex

	sellers  map[uint64]model.Seller
	capacity map[uint64]model.SellerCapacity
	products map[uint64]model.Product
	cart     map[uint64]model.CartLine
	orders   map[uint64]model.Order
	items    map[uint64][]model.OrderItem

	nextSellerID  uint64
	nextProductID uint64
	nextCartID    uint64
	nextOrderID   uint64
}

func newMemStore() *memStore {
	return &memStore{
		sellers:  map[uint64]model.Seller{},
		capacity: map[uint64]model.SellerCapacity{},
		products: map[uint64]model.Product{},
		cart:     map[uint64]model.CartLine{},
		orders:   map[uint64]model.Order{},
		items:    map[uint64][]model.OrderItem{},
	}
}

type memSnapshot struct {
	sellers  map[uint64]model.Seller
	capacity map[uint64]model.SellerCapacity
	products map[uint64]model.Product
	cart     map[uint64]model.CartLine
	orders   map[uint64]model.Order
	items    map[uint64][]model.OrderItem
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	items := make(map[uint64][]model.OrderItem, len(s.items))
	for k, v := range s.items {
		items[k] = append([]model.OrderItem(nil), v...)
	}
	return memSnapshot{
		sellers:  copyMap(s.sellers),
		capacity: copyMap(s.capacity),
		products: copyMap(s.products),
		cart:     copyMap(s.cart),
		orders:   copyMap(s.orders),
		items:    items,
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.sellers = snap.sellers
	s.capacity = snap.capacity
	s.products = snap.products
	s.cart = snap.cart
	s.orders = snap.orders
	s.items = snap.items
}

// WithTx implements TxRunner.
func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// --- SellerStore ---

func (s *memStore) Create(ctx context.Context, sl *model.Seller) error {
	s.nextSellerID++
	sl.ID = s.nextSellerID
	s.sellers[sl.ID] = *sl
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id uint64) (*model.Seller, error) {
	sl, ok := s.sellers[id]
	if !ok {
		return nil, repository.ErrSellerNotFound
	}
	return &sl, nil
}

func (s *memStore) GetByOwner(ctx context.Context, ownerUserID uint64) (*model.Seller, error) {
	for _, sl := range s.sellers {
		if sl.OwnerUserID == ownerUserID {
			out := sl
			return &out, nil
		}
	}
	return nil, repository.ErrSellerNotFound
}

// addSeller seeds a seller plus its capacity row and returns the id.
func (s *memStore) addSeller(sl model.Seller) uint64 {
	s.nextSellerID++
	sl.ID = s.nextSellerID
	s.sellers[sl.ID] = sl
	s.capacity[sl.ID] = model.SellerCapacity{SellerID: sl.ID}
	return sl.ID
}

// --- capacity store (distinct method names avoid clashing with SellerStore) ---

type memCapacityStore struct{ s *memStore }

func (c memCapacityStore) Create(ctx context.Context, sellerID uint64) error {
	c.s.capacity[sellerID] = model.SellerCapacity{SellerID: sellerID}
	return nil
}

func (c memCapacityStore) Get(ctx context.Context, sellerID uint64) (*model.SellerCapacity, error) {
	cap, ok := c.s.capacity[sellerID]
	if !ok {
		return nil, repository.ErrSellerNotFound
	}
	return &cap, nil
}

func (c memCapacityStore) GetForUpdate(ctx context.Context, sellerID uint64) (*model.SellerCapacity, error) {
	return c.Get(ctx, sellerID)
}

func (c memCapacityStore) Save(ctx context.Context, cap *model.SellerCapacity) error {
	c.s.capacity[cap.SellerID] = *cap
	return nil
}

// --- stock store ---

type memStockStore struct{ s *memStore }

func (st memStockStore) Create(ctx context.Context, p *model.Product) error {
	st.s.nextProductID++
	p.ID = st.s.nextProductID
	st.s.products[p.ID] = *p
	return nil
}

func (st memStockStore) Get(ctx context.Context, productID uint64) (*model.Product, error) {
	p, ok := st.s.products[productID]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (st memStockStore) GetForUpdate(ctx context.Context, productID uint64) (*model.Product, error) {
	return st.Get(ctx, productID)
}

func (st memStockStore) SaveQuantities(ctx context.Context, productID uint64, total, reserved int) error {
	p, ok := st.s.products[productID]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.TotalQuantity = total
	p.ReservedQuantity = reserved
	st.s.products[productID] = p
	return nil
}

// addProduct seeds a product and returns the id.
func (s *memStore) addProduct(p model.Product) uint64 {
	s.nextProductID++
	p.ID = s.nextProductID
	s.products[p.ID] = p
	return p.ID
}

// --- cart store ---

type memCartStore struct{ s *memStore }

func (c memCartStore) GetForUpdate(ctx context.Context, buyerID, productID uint64) (*model.CartLine, error) {
	for _, l := range c.s.cart {
		if l.BuyerID == buyerID && l.ProductID == productID {
			out := l
			return &out, nil
		}
	}
	return nil, repository.ErrCartLineNotFound
}

func (c memCartStore) Upsert(ctx context.Context, line *model.CartLine) error {
	if prev, err := c.GetForUpdate(ctx, line.BuyerID, line.ProductID); err == nil {
		line.ID = prev.ID
		c.s.cart[line.ID] = *line
		return nil
	}
	c.s.nextCartID++
	line.ID = c.s.nextCartID
	c.s.cart[line.ID] = *line
	return nil
}

func (c memCartStore) DeleteByID(ctx context.Context, id uint64) error {
	delete(c.s.cart, id)
	return nil
}

func (c memCartStore) ListByBuyer(ctx context.Context, buyerID uint64) ([]model.CartLine, error) {
	var out []model.CartLine
	for _, l := range c.s.cart {
		if l.BuyerID == buyerID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (c memCartStore) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]model.CartLine, error) {
	var out []model.CartLine
	for _, l := range c.s.cart {
		if !l.IsPreorder && l.ReservedAt != nil && l.ReservedAt.Before(cutoff) {
			out = append(out, l)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// --- order store ---

type memOrderStore struct{ s *memStore }

func (o memOrderStore) Create(ctx context.Context, ord *model.Order, items []model.OrderItem) error {
	o.s.nextOrderID++
	ord.ID = o.s.nextOrderID
	ord.CreatedAt = time.Now()
	o.s.orders[ord.ID] = *ord
	for i := range items {
		items[i].OrderID = ord.ID
	}
	o.s.items[ord.ID] = append([]model.OrderItem(nil), items...)
	return nil
}

func (o memOrderStore) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	ord, ok := o.s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return &ord, nil
}

func (o memOrderStore) GetForUpdate(ctx context.Context, id uint64) (*model.Order, error) {
	return o.GetByID(ctx, id)
}

func (o memOrderStore) Items(ctx context.Context, orderID uint64) ([]model.OrderItem, error) {
	return append([]model.OrderItem(nil), o.s.items[orderID]...), nil
}

func (o memOrderStore) UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus) error {
	ord, ok := o.s.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	ord.Status = status
	o.s.orders[id] = ord
	return nil
}

func (o memOrderStore) MarkPaid(ctx context.Context, id uint64, at time.Time) error {
	ord, ok := o.s.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	ord.PaidAt = &at
	o.s.orders[id] = ord
	return nil
}

func (o memOrderStore) CountSlotBookings(ctx context.Context, sellerID uint64, date, start string, lock bool) (int, error) {
	n := 0
	for _, ord := range o.s.orders {
		if ord.SellerID == sellerID && ord.SlotDate == date && ord.SlotStart == start &&
			ord.Status != model.StatusCancelled && ord.Status != model.StatusRejected {
			n++
		}
	}
	return n, nil
}

func (o memOrderStore) ListByBuyer(ctx context.Context, buyerID uint64) ([]model.Order, error) {
	var out []model.Order
	for _, ord := range o.s.orders {
		if ord.BuyerID == buyerID {
			out = append(out, ord)
		}
	}
	return out, nil
}

func (o memOrderStore) ListBySeller(ctx context.Context, sellerID uint64) ([]model.Order, error) {
	var out []model.Order
	for _, ord := range o.s.orders {
		if ord.SellerID == sellerID {
			out = append(out, ord)
		}
	}
	return out, nil
}
