package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"customer-orders-service/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// коды ошибок PostgreSQL, которые мы переводим в доменные ошибки
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Store инкапсулирует работу с клиентами, заказами и позициями в БД
// БД — источник истины; кэш лишь отражает её содержимое
type Store struct {
	db *pgxpool.Pool
	sq squirrel.StatementBuilderType
}

// NewStore создает новый экземпляр хранилища
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{
		db: db,
		// использую плейсхолдеры в стиле PostgreSQL ($1, $2, $3,...)
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// AddCustomer вставляет нового клиента и возвращает присвоенный БД id
// дубликат email (без учёта регистра) приводит к model.ErrEmailTaken
func (s *Store) AddCustomer(ctx context.Context, name, email string) (int, error) {
	const op = "repository.postgres.store.AddCustomer"

	sql, args, err := s.sq.Insert("customers").
		Columns("name", "email").
		Values(name, email).
		Suffix("RETURNING customer_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	var id int
	if err := s.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, fmt.Errorf("%s: %w", op, model.ErrEmailTaken)
		}
		return 0, fmt.Errorf("%s: failed to insert customer: %w", op, err)
	}
	return id, nil
}

// CustomerExistsByID проверяет наличие клиента с указанным id
func (s *Store) CustomerExistsByID(ctx context.Context, customerID int) (bool, error) {
	const op = "repository.postgres.store.CustomerExistsByID"

	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM customers WHERE customer_id = $1)", customerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: failed to query customer: %w", op, err)
	}
	return exists, nil
}

// CustomerExistsByEmail проверяет наличие клиента по email без учёта регистра
func (s *Store) CustomerExistsByEmail(ctx context.Context, email string) (bool, error) {
	const op = "repository.postgres.store.CustomerExistsByEmail"

	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM customers WHERE lower(email) = lower($1))", email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: failed to query customer by email: %w", op, err)
	}
	return exists, nil
}

// DeleteCustomer удаляет клиента; заказы и позиции удаляются каскадно на стороне БД
// возвращает true, если строка действительно была удалена
func (s *Store) DeleteCustomer(ctx context.Context, customerID int) (bool, error) {
	const op = "repository.postgres.store.DeleteCustomer"

	tag, err := s.db.Exec(ctx, "DELETE FROM customers WHERE customer_id = $1", customerID)
	if err != nil {
		return false, fmt.Errorf("%s: failed to delete customer: %w", op, err)
	}
	return tag.RowsAffected() > 0, nil
}

// AddOrder вставляет заказ с указанной датой и возвращает присвоенный id
// нарушение foreign key означает, что клиента нет в БД
func (s *Store) AddOrder(ctx context.Context, customerID int, orderDate time.Time) (int, error) {
	const op = "repository.postgres.store.AddOrder"

	sql, args, err := s.sq.Insert("orders").
		Columns("customer_id", "order_date").
		Values(customerID, orderDate).
		Suffix("RETURNING order_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	var id int
	if err := s.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return 0, fmt.Errorf("%s: %w", op, model.ErrCustomerNotFound)
		}
		return 0, fmt.Errorf("%s: failed to insert order: %w", op, err)
	}
	return id, nil
}

// OrderExists проверяет наличие заказа с указанным id
func (s *Store) OrderExists(ctx context.Context, orderID int) (bool, error) {
	const op = "repository.postgres.store.OrderExists"

	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM orders WHERE order_id = $1)", orderID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: failed to query order: %w", op, err)
	}
	return exists, nil
}

// AddOrderItem вставляет позицию заказа и возвращает присвоенный id
func (s *Store) AddOrderItem(ctx context.Context, orderID int, productName string, quantity int, price decimal.Decimal) (int, error) {
	const op = "repository.postgres.store.AddOrderItem"

	sql, args, err := s.sq.Insert("order_items").
		Columns("order_id", "product_name", "quantity", "price").
		Values(orderID, productName, quantity, price).
		Suffix("RETURNING order_item_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	var id int
	if err := s.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return 0, fmt.Errorf("%s: %w", op, model.ErrOrderNotFound)
		}
		return 0, fmt.Errorf("%s: failed to insert order item: %w", op, err)
	}
	return id, nil
}

// GetAllCustomers извлекает всех клиентов из базы данных
// метод предназначен для восстановления кэша при старте и по запросу
func (s *Store) GetAllCustomers(ctx context.Context) ([]model.Customer, error) {
	const op = "repository.postgres.store.GetAllCustomers"

	rows, err := s.db.Query(ctx, "SELECT customer_id, name, email FROM customers")
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query customers: %w", op, err)
	}
	defer rows.Close()

	result := []model.Customer{}
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.CustomerID, &c.Name, &c.Email); err != nil {
			return nil, fmt.Errorf("%s: failed to scan customer row: %w", op, err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: failed to read customer rows: %w", op, err)
	}
	return result, nil
}

// GetAllOrders извлекает все заказы из базы данных
func (s *Store) GetAllOrders(ctx context.Context) ([]model.Order, error) {
	const op = "repository.postgres.store.GetAllOrders"

	rows, err := s.db.Query(ctx, "SELECT order_id, customer_id, order_date FROM orders")
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query orders: %w", op, err)
	}
	defer rows.Close()

	result := []model.Order{}
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.OrderID, &o.CustomerID, &o.OrderDate); err != nil {
			return nil, fmt.Errorf("%s: failed to scan order row: %w", op, err)
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: failed to read order rows: %w", op, err)
	}
	return result, nil
}

// GetAllOrderItems извлекает все позиции заказов из базы данных
func (s *Store) GetAllOrderItems(ctx context.Context) ([]model.OrderItem, error) {
	const op = "repository.postgres.store.GetAllOrderItems"

	rows, err := s.db.Query(ctx,
		"SELECT order_item_id, order_id, product_name, quantity, price FROM order_items")
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query order items: %w", op, err)
	}
	defer rows.Close()

	result := []model.OrderItem{}
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.OrderItemID, &it.OrderID, &it.ProductName, &it.Quantity, &it.Price); err != nil {
			return nil, fmt.Errorf("%s: failed to scan order item row: %w", op, err)
		}
		result = append(result, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: failed to read order item rows: %w", op, err)
	}
	return result, nil
}
