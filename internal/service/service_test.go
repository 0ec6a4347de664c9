package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"customer-orders-service/internal/model"
	"customer-orders-service/internal/repository/cache"
	"customer-orders-service/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store unavailable")

// fakeStore — in-memory реализация service.Store для тестов потоков
// повторяет контракт БД, включая каскадное удаление и уникальность email
type fakeStore struct {
	customers map[int]model.Customer
	orders    map[int]model.Order
	items     map[int]model.OrderItem

	nextCustomerID int
	nextOrderID    int
	nextItemID     int

	// failWrites имитирует недоступность БД на мутирующих вызовах
	failWrites bool
	// writes считает мутирующие обращения, чтобы проверять, что валидация
	// отсеивает ввод до похода в хранилище
	writes int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		customers:      map[int]model.Customer{},
		orders:         map[int]model.Order{},
		items:          map[int]model.OrderItem{},
		nextCustomerID: 1,
		nextOrderID:    1,
		nextItemID:     1,
	}
}

func (f *fakeStore) AddCustomer(_ context.Context, name, email string) (int, error) {
	f.writes++
	if f.failWrites {
		return 0, errStoreDown
	}
	for _, c := range f.customers {
		if strings.EqualFold(c.Email, email) {
			return 0, model.ErrEmailTaken
		}
	}
	id := f.nextCustomerID
	f.nextCustomerID++
	f.customers[id] = model.Customer{CustomerID: id, Name: name, Email: email}
	return id, nil
}

func (f *fakeStore) CustomerExistsByID(_ context.Context, customerID int) (bool, error) {
	_, ok := f.customers[customerID]
	return ok, nil
}

func (f *fakeStore) CustomerExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, c := range f.customers {
		if strings.EqualFold(c.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) DeleteCustomer(_ context.Context, customerID int) (bool, error) {
	f.writes++
	if f.failWrites {
		return false, errStoreDown
	}
	if _, ok := f.customers[customerID]; !ok {
		return false, nil
	}
	delete(f.customers, customerID)
	// каскад, как в настоящей схеме
	for orderID, o := range f.orders {
		if o.CustomerID != customerID {
			continue
		}
		delete(f.orders, orderID)
		for itemID, it := range f.items {
			if it.OrderID == orderID {
				delete(f.items, itemID)
			}
		}
	}
	return true, nil
}

func (f *fakeStore) AddOrder(_ context.Context, customerID int, orderDate time.Time) (int, error) {
	f.writes++
	if f.failWrites {
		return 0, errStoreDown
	}
	if _, ok := f.customers[customerID]; !ok {
		return 0, model.ErrCustomerNotFound
	}
	id := f.nextOrderID
	f.nextOrderID++
	f.orders[id] = model.Order{OrderID: id, CustomerID: customerID, OrderDate: orderDate}
	return id, nil
}

func (f *fakeStore) OrderExists(_ context.Context, orderID int) (bool, error) {
	_, ok := f.orders[orderID]
	return ok, nil
}

func (f *fakeStore) AddOrderItem(_ context.Context, orderID int, productName string, quantity int, price decimal.Decimal) (int, error) {
	f.writes++
	if f.failWrites {
		return 0, errStoreDown
	}
	if _, ok := f.orders[orderID]; !ok {
		return 0, model.ErrOrderNotFound
	}
	id := f.nextItemID
	f.nextItemID++
	f.items[id] = model.OrderItem{
		OrderItemID: id,
		OrderID:     orderID,
		ProductName: productName,
		Quantity:    quantity,
		Price:       price,
	}
	return id, nil
}

func (f *fakeStore) GetAllCustomers(_ context.Context) ([]model.Customer, error) {
	result := []model.Customer{}
	for _, c := range f.customers {
		result = append(result, c)
	}
	return result, nil
}

func (f *fakeStore) GetAllOrders(_ context.Context) ([]model.Order, error) {
	result := []model.Order{}
	for _, o := range f.orders {
		result = append(result, o)
	}
	return result, nil
}

func (f *fakeStore) GetAllOrderItems(_ context.Context) ([]model.OrderItem, error) {
	result := []model.OrderItem{}
	for _, it := range f.items {
		result = append(result, it)
	}
	return result, nil
}

func newService(t *testing.T) (*service.Service, *fakeStore, *cache.IndexCache) {
	t.Helper()
	store := newFakeStore()
	indexCache := cache.NewIndexCache()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return service.New(store, indexCache, log), store, indexCache
}

func date(s string) time.Time {
	d, err := time.ParseInLocation(model.DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return d
}

func TestService_AddCustomerRoundTrip(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	res, err := svc.AddCustomer(ctx, model.NewCustomer{Name: "Ann", Email: "ann@x.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CustomerID)
	assert.True(t, res.ExistsInDB)
	assert.True(t, res.ExistsInCache)

	// сразу после потока клиент находится и по email (в любом регистре), и по id
	cust, found := svc.FindCustomerByEmail("ANN@X.COM")
	require.True(t, found)
	assert.Equal(t, res.CustomerID, cust.CustomerID)

	// и после полной перезагрузки кэша из хранилища
	_, err = svc.RefreshCache(ctx)
	require.NoError(t, err)

	cust, found = svc.FindCustomerByEmail("ann@x.com")
	require.True(t, found)
	assert.Equal(t, "Ann", cust.Name)
}

func TestService_AddCustomerDuplicateEmail(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddCustomer(ctx, model.NewCustomer{Name: "Ann", Email: "ann@x.com"})
	require.NoError(t, err)

	// дубликат отклоняется и в другом регистре
	_, err = svc.AddCustomer(ctx, model.NewCustomer{Name: "Bob", Email: "ANN@X.COM"})
	assert.ErrorIs(t, err, model.ErrEmailTaken)
}

func TestService_AddCustomerValidation(t *testing.T) {
	svc, store, indexCache := newService(t)
	ctx := context.Background()

	cases := []model.NewCustomer{
		{Name: "", Email: "ann@x.com"},
		{Name: "Ann", Email: ""},
		{Name: "Ann", Email: "not-an-email"},
	}
	for _, in := range cases {
		_, err := svc.AddCustomer(ctx, in)
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	}

	// невалидный ввод не доходит ни до хранилища, ни до кэша
	assert.Zero(t, store.writes)
	customers, _, _ := indexCache.Counts()
	assert.Zero(t, customers)
}

func TestService_AddOrderTrustsCacheNotStore(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	// клиент есть в хранилище, но кэш о нём ещё не знает
	store.customers[10] = model.Customer{CustomerID: 10, Name: "Ann", Email: "ann@x.com"}
	store.nextCustomerID = 11

	_, err := svc.AddOrder(ctx, 10)
	assert.ErrorIs(t, err, model.ErrCustomerNotFound)

	// после перезагрузки кэша заказ создаётся
	_, err = svc.RefreshCache(ctx)
	require.NoError(t, err)

	res, err := svc.AddOrder(ctx, 10)
	require.NoError(t, err)
	assert.True(t, res.ExistsInDB)
	assert.True(t, res.ExistsInCache)
	assert.Equal(t, model.Today(), res.OrderDate)
}

func TestService_AddItemValidation(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, model.NewItem{OrderID: 1, ProductName: "", Quantity: 1, Price: decimal.Zero})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = svc.AddItem(ctx, model.NewItem{OrderID: 1, ProductName: "Widget", Quantity: 0, Price: decimal.Zero})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = svc.AddItem(ctx, model.NewItem{OrderID: 1, ProductName: "Widget", Quantity: 1, Price: decimal.RequireFromString("-0.01")})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	assert.Zero(t, store.writes)

	// валидный ввод, но заказа нет в хранилище
	_, err = svc.AddItem(ctx, model.NewItem{OrderID: 1, ProductName: "Widget", Quantity: 1, Price: decimal.Zero})
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestService_StoreFailureLeavesCacheUntouched(t *testing.T) {
	svc, store, indexCache := newService(t)
	ctx := context.Background()

	store.failWrites = true

	_, err := svc.AddCustomer(ctx, model.NewCustomer{Name: "Ann", Email: "ann@x.com"})
	require.ErrorIs(t, err, errStoreDown)

	// запись в БД не состоялась — зеркалирование не выполнялось,
	// кэш не может «убежать вперёд» хранилища
	customers, orders, items := indexCache.Counts()
	assert.Zero(t, customers)
	assert.Zero(t, orders)
	assert.Zero(t, items)
}

func TestService_DeleteCustomerCascade(t *testing.T) {
	svc, _, indexCache := newService(t)
	ctx := context.Background()

	custRes, err := svc.AddCustomer(ctx, model.NewCustomer{Name: "Ann", Email: "ann@x.com"})
	require.NoError(t, err)
	orderRes, err := svc.AddOrder(ctx, custRes.CustomerID)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, model.NewItem{
		OrderID:     orderRes.OrderID,
		ProductName: "Widget",
		Quantity:    3,
		Price:       decimal.RequireFromString("9.99"),
	})
	require.NoError(t, err)

	res, err := svc.DeleteCustomer(ctx, custRes.CustomerID)
	require.NoError(t, err)
	assert.True(t, res.DeletedInDB)
	assert.False(t, res.StillInDB)
	assert.True(t, res.RemovedFromCache)
	assert.True(t, res.RemovedFully)

	// клиент, его заказы и позиции ушли из кэша целиком
	_, found := svc.FindCustomerByEmail("ann@x.com")
	assert.False(t, found)
	assert.Empty(t, indexCache.OrdersOf(custRes.CustomerID))
	assert.Empty(t, indexCache.ItemsOf(orderRes.OrderID))
}

func TestService_DeleteCustomerAbsent(t *testing.T) {
	svc, _, _ := newService(t)

	res, err := svc.DeleteCustomer(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, res.DeletedInDB)
	assert.False(t, res.RemovedFromCache)
	assert.True(t, res.RemovedFully)
}

func TestService_EndToEndScenario(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	custRes, err := svc.AddCustomer(ctx, model.NewCustomer{Name: "Ann", Email: "ann@x.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, custRes.CustomerID)

	orderRes, err := svc.AddOrder(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, orderRes.OrderID)

	itemRes, err := svc.AddItem(ctx, model.NewItem{
		OrderID:     1,
		ProductName: "Widget",
		Quantity:    3,
		Price:       decimal.RequireFromString("9.99"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, itemRes.OrderItemID)

	filtered := svc.ItemsWithQuantityOver(2)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Widget", filtered[0].ProductName)

	_, err = svc.DeleteCustomer(ctx, 1)
	require.NoError(t, err)

	_, err = svc.CustomerOrders(1)
	assert.ErrorIs(t, err, model.ErrCustomerNotFound)
	assert.Empty(t, svc.ItemsWithQuantityOver(0))
}

func TestService_CustomerOrdersView(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	// заказы с разными датами заводим напрямую в хранилище,
	// чтобы не зависеть от «сегодня» в AddOrder
	store.customers[1] = model.Customer{CustomerID: 1, Name: "Ann", Email: "ann@x.com"}
	store.orders[1] = model.Order{OrderID: 1, CustomerID: 1, OrderDate: date("2025-03-10")}
	store.orders[2] = model.Order{OrderID: 2, CustomerID: 1, OrderDate: date("2025-01-05")}
	store.items[1] = model.OrderItem{OrderItemID: 1, OrderID: 1, ProductName: "Widget", Quantity: 3, Price: decimal.RequireFromString("9.99")}

	_, err := svc.RefreshCache(ctx)
	require.NoError(t, err)

	view, err := svc.CustomerOrders(1)
	require.NoError(t, err)
	assert.Equal(t, "Ann", view.Customer.Name)
	require.Len(t, view.Orders, 2)

	// заказы отсортированы по дате; у раннего заказа позиций пока нет
	assert.Equal(t, 2, view.Orders[0].Order.OrderID)
	assert.Empty(t, view.Orders[0].Items)
	assert.Equal(t, 1, view.Orders[1].Order.OrderID)
	require.Len(t, view.Orders[1].Items, 1)
	assert.Equal(t, "Widget", view.Orders[1].Items[0].ProductName)
}

func TestService_OrdersAfter(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	store.customers[1] = model.Customer{CustomerID: 1, Name: "Ann", Email: "ann@x.com"}
	store.orders[1] = model.Order{OrderID: 1, CustomerID: 1, OrderDate: date("2025-01-05")}
	store.orders[2] = model.Order{OrderID: 2, CustomerID: 1, OrderDate: date("2025-02-20")}

	_, err := svc.RefreshCache(ctx)
	require.NoError(t, err)

	assert.Len(t, svc.OrdersAfter(date("2024-12-31")), 2)
	assert.Empty(t, svc.OrdersAfter(date("2025-02-20"))) // строго больше

	filtered := svc.OrdersAfter(date("2025-01-05"))
	require.Len(t, filtered, 1)
	assert.Equal(t, 2, filtered[0].OrderID)
}
