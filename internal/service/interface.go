package service

import (
	"context"
	"time"

	"customer-orders-service/internal/model"
	"customer-orders-service/internal/repository/cache"

	"github.com/shopspring/decimal"
)

// Store определяет контракт хранилища (БД) для потоков операций
// сервис принимает интерфейсы, а не конкретные типы, для гибкости и тестируемости
type Store interface {
	AddCustomer(ctx context.Context, name, email string) (int, error)
	CustomerExistsByID(ctx context.Context, customerID int) (bool, error)
	CustomerExistsByEmail(ctx context.Context, email string) (bool, error)
	DeleteCustomer(ctx context.Context, customerID int) (bool, error)

	AddOrder(ctx context.Context, customerID int, orderDate time.Time) (int, error)
	OrderExists(ctx context.Context, orderID int) (bool, error)

	AddOrderItem(ctx context.Context, orderID int, productName string, quantity int, price decimal.Decimal) (int, error)

	GetAllCustomers(ctx context.Context) ([]model.Customer, error)
	GetAllOrders(ctx context.Context) ([]model.Order, error)
	GetAllOrderItems(ctx context.Context) ([]model.OrderItem, error)
}

// IndexCache определяет контракт in-memory индексов
type IndexCache interface {
	LoadAll(ctx context.Context, store cache.Loader) error
	Counts() (customers, orders, items int)

	InsertCustomer(cust model.Customer)
	InsertOrder(o model.Order)
	InsertItem(it model.OrderItem)
	RemoveCustomer(customerID int) bool

	FindByCustomerID(customerID int) (model.Customer, bool)
	FindByEmail(email string) (model.Customer, bool)
	OrdersOf(customerID int) []model.Order
	ItemsOf(orderID int) []model.OrderItem
	FilterOrders(pred func(model.Order) bool) []model.Order
	FilterItems(pred func(model.OrderItem) bool) []model.OrderItem
}
