package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"customer-orders-service/internal/model"
)

// Loader — минимальный контракт хранилища, нужный кэшу для полной перезагрузки
type Loader interface {
	GetAllCustomers(ctx context.Context) ([]model.Customer, error)
	GetAllOrders(ctx context.Context) ([]model.Order, error)
	GetAllOrderItems(ctx context.Context) ([]model.OrderItem, error)
}

// IndexCache — in-memory вторичные индексы поверх БД
// четыре индекса обновляются только согласованно, поэтому вместо sync.Map
// используется один общий RWMutex на всю структуру
type IndexCache struct {
	mu sync.RWMutex

	customersByID    map[int]model.Customer
	customersByEmail map[string]model.Customer // ключ — email в нижнем регистре
	ordersByCustomer map[int][]model.Order
	itemsByOrder     map[int][]model.OrderItem
}

// NewIndexCache создаёт пустой кэш; наполняется он вызовом LoadAll
func NewIndexCache() *IndexCache {
	c := &IndexCache{}
	c.reset()
	return c
}

// reset заменяет все индексы пустыми; вызывающий держит mu
func (c *IndexCache) reset() {
	c.customersByID = make(map[int]model.Customer)
	c.customersByEmail = make(map[string]model.Customer)
	c.ordersByCustomer = make(map[int][]model.Order)
	c.itemsByOrder = make(map[int][]model.OrderItem)
}

// emailKey нормализует email для индекса: поиск без учёта регистра
func emailKey(email string) string {
	return strings.ToLower(email)
}

// LoadAll полностью перечитывает содержимое БД в индексы
// при ошибке чтения кэш остаётся очищенным: частично загруженное
// состояние наружу не отдаём
func (c *IndexCache) LoadAll(ctx context.Context, store Loader) error {
	const op = "repository.cache.index_cache.LoadAll"

	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()

	customers, err := store.GetAllCustomers(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	orders, err := store.GetAllOrders(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	items, err := store.GetAllOrderItems(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, cust := range customers {
		c.customersByID[cust.CustomerID] = cust
		c.customersByEmail[emailKey(cust.Email)] = cust
	}
	for _, o := range orders {
		c.ordersByCustomer[o.CustomerID] = append(c.ordersByCustomer[o.CustomerID], o)
	}
	for _, it := range items {
		c.itemsByOrder[it.OrderID] = append(c.itemsByOrder[it.OrderID], it)
	}

	return nil
}

// Counts возвращает количество клиентов, заказов и позиций в кэше
func (c *IndexCache) Counts() (customers, orders, items int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	customers = len(c.customersByID)
	for _, group := range c.ordersByCustomer {
		orders += len(group)
	}
	for _, group := range c.itemsByOrder {
		items += len(group)
	}
	return customers, orders, items
}

// InsertCustomer добавляет клиента в оба клиентских индекса
// уникальность email к этому моменту уже проверена по БД, кэш её не перепроверяет
func (c *IndexCache) InsertCustomer(cust model.Customer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.customersByID[cust.CustomerID] = cust
	c.customersByEmail[emailKey(cust.Email)] = cust
}

// InsertOrder дописывает заказ в группу его клиента
func (c *IndexCache) InsertOrder(o model.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ordersByCustomer[o.CustomerID] = append(c.ordersByCustomer[o.CustomerID], o)
}

// InsertItem дописывает позицию в группу её заказа
func (c *IndexCache) InsertItem(it model.OrderItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.itemsByOrder[it.OrderID] = append(c.itemsByOrder[it.OrderID], it)
}

// RemoveCustomer удаляет клиента из всех индексов вместе с его заказами
// и позициями этих заказов — зеркало каскадного удаления в БД
// возвращает true, если клиент был в кэше
func (c *IndexCache) RemoveCustomer(customerID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, present := c.customersByID[customerID]
	delete(c.customersByID, customerID)

	// email по id не восстановить, поэтому ищем запись линейным проходом
	for key, cust := range c.customersByEmail {
		if cust.CustomerID == customerID {
			delete(c.customersByEmail, key)
			break
		}
	}

	if orders, ok := c.ordersByCustomer[customerID]; ok {
		delete(c.ordersByCustomer, customerID)
		for _, o := range orders {
			delete(c.itemsByOrder, o.OrderID)
		}
	}

	return present
}

// FindByCustomerID — точечный поиск клиента по id
func (c *IndexCache) FindByCustomerID(customerID int) (model.Customer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cust, ok := c.customersByID[customerID]
	return cust, ok
}

// FindByEmail — точечный поиск клиента по email без учёта регистра
func (c *IndexCache) FindByEmail(email string) (model.Customer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cust, ok := c.customersByEmail[emailKey(email)]
	return cust, ok
}

// OrdersOf возвращает заказы клиента по возрастанию даты
// отдаём отсортированную копию, чтобы не трогать хранимый срез
func (c *IndexCache) OrdersOf(customerID int) []model.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()

	group := c.ordersByCustomer[customerID]
	orders := make([]model.Order, len(group))
	copy(orders, group)

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].OrderDate.Before(orders[j].OrderDate)
	})
	return orders
}

// ItemsOf возвращает позиции заказа в порядке добавления
func (c *IndexCache) ItemsOf(orderID int) []model.OrderItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	group := c.itemsByOrder[orderID]
	items := make([]model.OrderItem, len(group))
	copy(items, group)
	return items
}

// FilterOrders возвращает все заказы из кэша, удовлетворяющие предикату
func (c *IndexCache) FilterOrders(pred func(model.Order) bool) []model.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := []model.Order{}
	for _, group := range c.ordersByCustomer {
		for _, o := range group {
			if pred(o) {
				result = append(result, o)
			}
		}
	}
	return result
}

// FilterItems возвращает все позиции из кэша, удовлетворяющие предикату
func (c *IndexCache) FilterItems(pred func(model.OrderItem) bool) []model.OrderItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := []model.OrderItem{}
	for _, group := range c.itemsByOrder {
		for _, it := range group {
			if pred(it) {
				result = append(result, it)
			}
		}
	}
	return result
}
