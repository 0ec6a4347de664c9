package model

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Customer представляет клиента
// Email уникален без учёта регистра — это инвариант хранилища и кэша
type Customer struct {
	CustomerID int
	Name       string
	Email      string
}

// Order представляет заказ клиента
// OrderDate хранит только календарную дату (полночь UTC), без времени
type Order struct {
	OrderID    int
	CustomerID int
	OrderDate  time.Time
}

// OrderItem представляет одну позицию заказа
// Price — decimal, чтобы не терять точность на деньгах
type OrderItem struct {
	OrderItemID int
	OrderID     int
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

// DateLayout — формат дат во всём приложении (и в БД, и в консоли)
const DateLayout = "2006-01-02"

// Today возвращает сегодняшнюю календарную дату без компонента времени
func Today() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewCustomer — входные данные для создания клиента
// теги validate используются для проверки корректности данных до обращения к БД
type NewCustomer struct {
	Name  string `validate:"required"`
	Email string `validate:"required,email"`
}

// NewItem — входные данные для добавления позиции в заказ
type NewItem struct {
	OrderID     int    `validate:"required,gt=0"`
	ProductName string `validate:"required"`
	Quantity    int    `validate:"required,gt=0"`
	// цена проверяется вручную в Validate: validator не умеет decimal.Decimal
	Price decimal.Decimal `validate:"-"`
}

var validate = validator.New()

// Validate проверяет корректность данных нового клиента
func (c NewCustomer) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	return nil
}

// Validate проверяет корректность новой позиции заказа
func (i NewItem) Validate() error {
	if err := validate.Struct(i); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if i.Price.IsNegative() {
		return fmt.Errorf("%w: price must be non-negative", ErrInvalidInput)
	}
	return nil
}
