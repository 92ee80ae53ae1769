package usecase_test

import (
	"context"
	"sort"
	"strings"
	"sync"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// =====================
// インメモリのストア。WithinTxはmutexで直列化し、
// fnがエラーを返したらスナップショットへ巻き戻す。
// =====================

type fakeStore struct {
	mu sync.Mutex

	products   map[int64]model.Product
	categories []model.Category
	cartItems  map[int64]model.CartItem
	orders     map[int64]model.Order
	orderItems map[int64][]model.OrderItem
	addresses  map[int64]model.Address
	auditLogs  []model.AuditLog
	users      map[int64]model.User

	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:   map[int64]model.Product{},
		cartItems:  map[int64]model.CartItem{},
		orders:     map[int64]model.Order{},
		orderItems: map[int64][]model.OrderItem{},
		addresses:  map[int64]model.Address{},
		users:      map[int64]model.User{},
	}
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

type storeSnapshot struct {
	products   map[int64]model.Product
	cartItems  map[int64]model.CartItem
	orders     map[int64]model.Order
	orderItems map[int64][]model.OrderItem
	auditLogs  []model.AuditLog
	nextID     int64
}

func (s *fakeStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		products:   make(map[int64]model.Product, len(s.products)),
		cartItems:  make(map[int64]model.CartItem, len(s.cartItems)),
		orders:     make(map[int64]model.Order, len(s.orders)),
		orderItems: make(map[int64][]model.OrderItem, len(s.orderItems)),
		auditLogs:  append([]model.AuditLog(nil), s.auditLogs...),
		nextID:     s.nextID,
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.cartItems {
		snap.cartItems[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	for k, v := range s.orderItems {
		snap.orderItems[k] = append([]model.OrderItem(nil), v...)
	}
	return snap
}

func (s *fakeStore) restore(snap storeSnapshot) {
	s.products = snap.products
	s.cartItems = snap.cartItems
	s.orders = snap.orders
	s.orderItems = snap.orderItems
	s.auditLogs = snap.auditLogs
	s.nextID = snap.nextID
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(fakeTxRepos{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type fakeTxRepos struct {
	s *fakeStore
}

func (r fakeTxRepos) Orders() repo.OrderRepository         { return &fakeOrderRepo{s: r.s} }
func (r fakeTxRepos) OrderItems() repo.OrderItemRepository { return &fakeOrderItemRepo{s: r.s} }
func (r fakeTxRepos) CartItems() repo.CartItemRepository   { return &fakeCartItemRepo{s: r.s} }
func (r fakeTxRepos) Products() repo.ProductRepository     { return &fakeProductRepo{s: r.s} }
func (r fakeTxRepos) Inventory() repo.InventoryRepository  { return &fakeInventoryRepo{s: r.s} }
func (r fakeTxRepos) Addresses() repo.AddressRepository    { return &fakeAddressRepo{s: r.s} }
func (r fakeTxRepos) AuditLogs() repo.AuditLogRepository   { return &fakeAuditLogRepo{s: r.s} }

// =====================
// Order
// =====================

type fakeOrderRepo struct {
	s *fakeStore
}

func (r *fakeOrderRepo) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	o, ok := r.s.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	var all []model.Order
	for _, o := range r.s.orders {
		if o.UserID == userID {
			all = append(all, o)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginateOrders(all, page, limit)
}

func (r *fakeOrderRepo) Create(ctx context.Context, order model.Order) (int64, error) {
	order.ID = r.s.id()
	r.s.orders[order.ID] = order
	return order.ID, nil
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	o, ok := r.s.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = status
	r.s.orders[orderID] = o
	return nil
}

func (r *fakeOrderRepo) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	for _, o := range r.s.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			return o, true, nil
		}
	}
	return model.Order{}, false, nil
}

func (r *fakeOrderRepo) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	var all []model.Order
	for _, o := range r.s.orders {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		if f.UserID != nil && o.UserID != *f.UserID {
			continue
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && o.CreatedAt.After(*f.To) {
			continue
		}
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginateOrders(all, f.Page, f.Limit)
}

func paginateOrders(all []model.Order, page int, limit int) ([]model.Order, int64, error) {
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []model.Order{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// =====================
// OrderItem
// =====================

type fakeOrderItemRepo struct {
	s *fakeStore
}

func (r *fakeOrderItemRepo) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	for _, it := range items {
		it.ID = r.s.id()
		it.OrderID = orderID
		r.s.orderItems[orderID] = append(r.s.orderItems[orderID], it)
	}
	return nil
}

func (r *fakeOrderItemRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	return append([]model.OrderItem(nil), r.s.orderItems[orderID]...), nil
}

// =====================
// CartItem
// =====================

type fakeCartItemRepo struct {
	s *fakeStore
}

func (r *fakeCartItemRepo) ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	var items []model.CartItem
	for _, it := range r.s.cartItems {
		if it.UserID == userID {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r *fakeCartItemRepo) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	it, ok := r.s.cartItems[cartItemID]
	if !ok {
		return model.CartItem{}, repo.ErrNotFound
	}
	return it, nil
}

func (r *fakeCartItemRepo) UpsertByUserAndProduct(ctx context.Context, userID int64, productID int64, addQty int64) error {
	for id, it := range r.s.cartItems {
		if it.UserID == userID && it.ProductID == productID {
			it.Quantity += addQty
			r.s.cartItems[id] = it
			return nil
		}
	}
	id := r.s.id()
	r.s.cartItems[id] = model.CartItem{
		ID:        id,
		UserID:    userID,
		ProductID: productID,
		Quantity:  addQty,
	}
	return nil
}

func (r *fakeCartItemRepo) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	it, ok := r.s.cartItems[cartItemID]
	if !ok {
		return repo.ErrNotFound
	}
	it.Quantity = qty
	r.s.cartItems[cartItemID] = it
	return nil
}

func (r *fakeCartItemRepo) DeleteByID(ctx context.Context, cartItemID int64) error {
	if _, ok := r.s.cartItems[cartItemID]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.cartItems, cartItemID)
	return nil
}

func (r *fakeCartItemRepo) ClearByUserID(ctx context.Context, userID int64) error {
	for id, it := range r.s.cartItems {
		if it.UserID == userID {
			delete(r.s.cartItems, id)
		}
	}
	return nil
}

// =====================
// Product / Category
// =====================

type fakeProductRepo struct {
	s *fakeStore
}

func (r *fakeProductRepo) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var all []model.Product
	for _, p := range r.s.products {
		if !p.IsActive {
			continue
		}
		if q.Q != "" {
			needle := strings.ToLower(q.Q)
			if !strings.Contains(strings.ToLower(p.Name), needle) && !strings.Contains(strings.ToLower(p.Brand), needle) {
				continue
			}
		}
		if q.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *q.CategoryID) {
			continue
		}
		if q.MinPrice != nil && p.Price.LessThan(*q.MinPrice) {
			continue
		}
		if q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice) {
			continue
		}
		all = append(all, p)
	}

	switch q.Sort {
	case "price_asc":
		sort.Slice(all, func(i, j int) bool { return all[i].Price.LessThan(all[j].Price) })
	case "price_desc":
		sort.Slice(all, func(i, j int) bool { return all[j].Price.LessThan(all[i].Price) })
	default:
		sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	}

	total := int64(len(all))
	start := (q.Page - 1) * q.Limit
	if start >= len(all) {
		return []model.Product{}, total, nil
	}
	end := start + q.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *fakeProductRepo) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r *fakeProductRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	p.ID = r.s.id()
	r.s.products[p.ID] = p
	return p, nil
}

type fakeCategoryRepo struct {
	s *fakeStore
}

func (r *fakeCategoryRepo) ListActive(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	for _, c := range r.s.categories {
		if c.IsActive {
			cats = append(cats, c)
		}
	}
	return cats, nil
}

func (r *fakeCategoryRepo) Create(ctx context.Context, c model.Category) (model.Category, error) {
	c.ID = r.s.id()
	r.s.categories = append(r.s.categories, c)
	return c, nil
}

// =====================
// Inventory
// =====================

type fakeInventoryRepo struct {
	s *fakeStore
}

func (r *fakeInventoryRepo) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	p, ok := r.s.products[productID]
	if !ok {
		return false, nil
	}
	if p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	r.s.products[productID] = p
	return true, nil
}

func (r *fakeInventoryRepo) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	p, ok := r.s.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock += qty
	r.s.products[productID] = p
	return nil
}

// =====================
// Address（トランザクション外から呼ばれるのでロックする）
// =====================

type fakeAddressRepo struct {
	s *fakeStore
}

func (r *fakeAddressRepo) FindByID(ctx context.Context, id int64) (model.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.addresses[id]
	if !ok {
		return model.Address{}, repo.ErrNotFound
	}
	return a, nil
}

func (r *fakeAddressRepo) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Address
	for _, a := range r.s.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeAddressRepo) Create(ctx context.Context, a model.Address) (model.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = r.s.id()
	r.s.addresses[a.ID] = a
	return a, nil
}

// =====================
// AuditLog
// =====================

type fakeAuditLogRepo struct {
	s *fakeStore
}

func (r *fakeAuditLogRepo) Create(ctx context.Context, log model.AuditLog) error {
	log.ID = r.s.id()
	r.s.auditLogs = append(r.s.auditLogs, log)
	return nil
}

// =====================
// User
// =====================

type fakeUserRepo struct {
	s *fakeStore
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id int64) (model.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return model.User{}, repo.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	for _, u := range r.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repo.ErrNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	u.ID = r.s.id()
	r.s.users[u.ID] = u
	return u, nil
}

func (r *fakeUserRepo) UpdateLastLoginAt(ctx context.Context, id int64) error {
	return nil
}

// =====================
// キャッシュのfake。noopは素通し、memは記録する。
// =====================

type noopCache struct{}

func (noopCache) GetProduct(ctx context.Context, productID int64) (model.Product, bool) {
	return model.Product{}, false
}
func (noopCache) SetProduct(ctx context.Context, p model.Product) {}
func (noopCache) GetProductList(ctx context.Context, qkey string) ([]model.Product, int64, bool) {
	return nil, 0, false
}
func (noopCache) SetProductList(ctx context.Context, qkey string, items []model.Product, total int64) {
}
func (noopCache) Invalidate(ctx context.Context, productIDs ...int64) {}

type memCache struct {
	mu          sync.Mutex
	details     map[int64]model.Product
	lists       map[string][]model.Product
	listTotals  map[string]int64
	invalidated []int64
}

func newMemCache() *memCache {
	return &memCache{
		details:    map[int64]model.Product{},
		lists:      map[string][]model.Product{},
		listTotals: map[string]int64{},
	}
}

func (c *memCache) GetProduct(ctx context.Context, productID int64) (model.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.details[productID]
	return p, ok
}

func (c *memCache) SetProduct(ctx context.Context, p model.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.details[p.ID] = p
}

func (c *memCache) GetProductList(ctx context.Context, qkey string) ([]model.Product, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, ok := c.lists[qkey]
	if !ok {
		return nil, 0, false
	}
	return items, c.listTotals[qkey], true
}

func (c *memCache) SetProductList(ctx context.Context, qkey string, items []model.Product, total int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[qkey] = items
	c.listTotals[qkey] = total
}

func (c *memCache) Invalidate(ctx context.Context, productIDs ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range productIDs {
		delete(c.details, id)
	}
	c.lists = map[string][]model.Product{}
	c.listTotals = map[string]int64{}
	c.invalidated = append(c.invalidated, productIDs...)
}
