package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"customer-orders-service/internal/model"
	"customer-orders-service/internal/service"

	"github.com/shopspring/decimal"
)

// Flows — контракт сервисного слоя, нужный консольному меню
// меню не зависит от конкретной реализации сервиса
type Flows interface {
	RefreshCache(ctx context.Context) (service.CacheCounts, error)
	AddCustomer(ctx context.Context, in model.NewCustomer) (service.CustomerResult, error)
	AddOrder(ctx context.Context, customerID int) (service.OrderResult, error)
	AddItem(ctx context.Context, in model.NewItem) (service.ItemResult, error)
	DeleteCustomer(ctx context.Context, customerID int) (service.DeleteResult, error)
	CustomerOrders(customerID int) (service.CustomerOrdersView, error)
	OrdersAfter(date time.Time) []model.Order
	ItemsWithQuantityOver(quantity int) []model.OrderItem
	FindCustomerByEmail(email string) (model.Customer, bool)
}

// Menu — интерактивное консольное меню поверх сервисного слоя
// всё форматирование вывода живёт здесь, сервис ничего не печатает
type Menu struct {
	flows Flows
	in    *bufio.Scanner
	out   io.Writer
	log   *slog.Logger
}

// NewMenu создает новый экземпляр меню
func NewMenu(flows Flows, in io.Reader, out io.Writer, log *slog.Logger) *Menu {
	return &Menu{
		flows: flows,
		in:    bufio.NewScanner(in),
		out:   out,
		log:   log,
	}
}

// Run крутит цикл меню до выбора выхода или конца ввода
func (m *Menu) Run(ctx context.Context) {
	for {
		m.printf("\n=== Customer Orders Lookup ===\n")
		m.printf("1) Refresh cache (reload indexes from DB)\n")
		m.printf("2) Add customer\n")
		m.printf("3) Create order for customer\n")
		m.printf("4) Add item to order\n")
		m.printf("5) View customer orders\n")
		m.printf("6) Find all orders after a date\n")
		m.printf("7) Find all items with quantity over a threshold\n")
		m.printf("8) Delete customer (verify removed from DB + cache)\n")
		m.printf("9) Find customer by email (case-insensitive)\n")
		m.printf("0) Exit\n")

		choice, ok := m.readLine("Choose: ")
		if !ok {
			return
		}
		m.printf("\n")

		switch choice {
		case "1":
			m.refreshCache(ctx)
		case "2":
			m.addCustomer(ctx)
		case "3":
			m.addOrder(ctx)
		case "4":
			m.addItem(ctx)
		case "5":
			m.viewCustomerOrders()
		case "6":
			m.ordersAfterDate()
		case "7":
			m.itemsOverQuantity()
		case "8":
			m.deleteCustomer(ctx)
		case "9":
			m.findByEmail()
		case "0":
			return
		default:
			m.printf("Unknown option.\n")
		}
	}
}

func (m *Menu) refreshCache(ctx context.Context) {
	counts, err := m.flows.RefreshCache(ctx)
	if err != nil {
		m.reportError(err)
		return
	}
	m.printf("Cache refreshed.\n")
	m.printf("Cache counts -> Customers: %d, Orders: %d, Items: %d\n",
		counts.Customers, counts.Orders, counts.Items)
}

func (m *Menu) addCustomer(ctx context.Context) {
	name, ok := m.readLine("Name: ")
	if !ok {
		return
	}
	email, ok := m.readLine("Email: ")
	if !ok {
		return
	}

	res, err := m.flows.AddCustomer(ctx, model.NewCustomer{Name: name, Email: email})
	if err != nil {
		m.reportError(err)
		return
	}
	m.printf("Customer added. Id=%d\n", res.CustomerID)
	m.printf("Check -> existsInDb=%t, existsInCache=%t\n", res.ExistsInDB, res.ExistsInCache)
}

func (m *Menu) addOrder(ctx context.Context) {
	customerID, ok := m.readInt("CustomerId: ")
	if !ok {
		return
	}

	res, err := m.flows.AddOrder(ctx, customerID)
	if err != nil {
		if errors.Is(err, model.ErrCustomerNotFound) {
			m.printf("Customer not found in cache. Try refreshing cache.\n")
			return
		}
		m.reportError(err)
		return
	}
	m.printf("Order created. OrderId=%d for CustomerId=%d on %s\n",
		res.OrderID, customerID, res.OrderDate.Format(model.DateLayout))
	m.printf("Check -> orderExistsInDb=%t, orderExistsInCache=%t\n", res.ExistsInDB, res.ExistsInCache)
}

func (m *Menu) addItem(ctx context.Context) {
	orderID, ok := m.readInt("OrderId: ")
	if !ok {
		return
	}
	product, ok := m.readLine("Product name: ")
	if !ok {
		return
	}
	quantity, ok := m.readInt("Quantity: ")
	if !ok {
		return
	}
	priceStr, ok := m.readLine("Price: ")
	if !ok {
		return
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		m.printf("Invalid price.\n")
		return
	}

	res, err := m.flows.AddItem(ctx, model.NewItem{
		OrderID:     orderID,
		ProductName: product,
		Quantity:    quantity,
		Price:       price,
	})
	if err != nil {
		m.reportError(err)
		return
	}
	m.printf("Item added. OrderItemId=%d -> %s x%d @ %s\n",
		res.OrderItemID, product, quantity, price.String())
	m.printf("Check -> existsInCache=%t\n", res.ExistsInCache)
}

func (m *Menu) viewCustomerOrders() {
	customerID, ok := m.readInt("CustomerId: ")
	if !ok {
		return
	}

	view, err := m.flows.CustomerOrders(customerID)
	if err != nil {
		if errors.Is(err, model.ErrCustomerNotFound) {
			m.printf("Customer not found in cache.\n")
			return
		}
		m.reportError(err)
		return
	}

	m.printf("Customer: %s (%s)\n", view.Customer.Name, view.Customer.Email)
	if len(view.Orders) == 0 {
		m.printf("No orders found.\n")
		return
	}
	for _, o := range view.Orders {
		m.printf("  OrderId=%d Date=%s\n", o.Order.OrderID, o.Order.OrderDate.Format(model.DateLayout))
		if len(o.Items) == 0 {
			m.printf("    (no items yet)\n")
			continue
		}
		for _, it := range o.Items {
			m.printf("    - %s Qty=%d Price=%s\n", it.ProductName, it.Quantity, it.Price.String())
		}
	}
}

func (m *Menu) ordersAfterDate() {
	input, ok := m.readLine("Enter date (yyyy-MM-dd): ")
	if !ok {
		return
	}
	date, err := time.ParseInLocation(model.DateLayout, input, time.UTC)
	if err != nil {
		m.printf("Invalid date format.\n")
		return
	}

	orders := m.flows.OrdersAfter(date)
	m.printf("Orders after %s: %d (foundAny=%t)\n",
		date.Format(model.DateLayout), len(orders), len(orders) > 0)
	for _, o := range orders {
		m.printf("  OrderId=%d CustomerId=%d Date=%s\n",
			o.OrderID, o.CustomerID, o.OrderDate.Format(model.DateLayout))
	}
}

func (m *Menu) itemsOverQuantity() {
	// по умолчанию порог 2, как в исходной постановке
	quantity := 2
	if input, ok := m.readLine("Min quantity, exclusive (default 2): "); ok && input != "" {
		parsed, err := strconv.Atoi(input)
		if err != nil {
			m.printf("Invalid quantity.\n")
			return
		}
		quantity = parsed
	}

	items := m.flows.ItemsWithQuantityOver(quantity)
	m.printf("Items with Quantity > %d: %d (foundAny=%t)\n", quantity, len(items), len(items) > 0)
	for _, it := range items {
		m.printf("  OrderId=%d ItemId=%d %s Qty=%d Price=%s\n",
			it.OrderID, it.OrderItemID, it.ProductName, it.Quantity, it.Price.String())
	}
}

func (m *Menu) deleteCustomer(ctx context.Context) {
	customerID, ok := m.readInt("CustomerId to delete: ")
	if !ok {
		return
	}

	res, err := m.flows.DeleteCustomer(ctx, customerID)
	if err != nil {
		m.reportError(err)
		return
	}
	m.printf("Delete attempted -> deletedInDb=%t\n", res.DeletedInDB)
	m.printf("Check -> stillExistsInDb=%t (should be false)\n", res.StillInDB)
	m.printf("Cache -> removedFromCache=%t, removedFullyFromCache=%t\n",
		res.RemovedFromCache, res.RemovedFully)
}

func (m *Menu) findByEmail() {
	email, ok := m.readLine("Email: ")
	if !ok {
		return
	}

	cust, found := m.flows.FindCustomerByEmail(email)
	m.printf("found=%t\n", found)
	if found {
		m.printf("CustomerId=%d, Name=%s, Email=%s\n", cust.CustomerID, cust.Name, cust.Email)
	}
}

// reportError переводит доменные ошибки в понятные пользователю сообщения
func (m *Menu) reportError(err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		m.printf("Invalid input: %s\n", err)
	case errors.Is(err, model.ErrEmailTaken):
		m.printf("A customer with that email already exists.\n")
	case errors.Is(err, model.ErrCustomerNotFound):
		m.printf("Customer not found.\n")
	case errors.Is(err, model.ErrOrderNotFound):
		m.printf("Order not found in DB.\n")
	default:
		m.log.Error("operation failed", slog.String("error", err.Error()))
		m.printf("Operation failed, the store may be unavailable.\n")
	}
}

func (m *Menu) printf(format string, args ...any) {
	fmt.Fprintf(m.out, format, args...)
}

// readLine печатает приглашение и читает одну строку
// второй результат false означает конец ввода
func (m *Menu) readLine(prompt string) (string, bool) {
	m.printf("%s", prompt)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

func (m *Menu) readInt(prompt string) (int, bool) {
	line, ok := m.readLine(prompt)
	if !ok {
		return 0, false
	}
	value, err := strconv.Atoi(line)
	if err != nil {
		m.printf("Invalid number.\n")
		return 0, false
	}
	return value, true
}
