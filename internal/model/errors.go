package model

import "errors"

// классы ошибок, по которым вызывающий код различает исход операции
// всё остальное (соединение, ввод-вывод) считается недоступностью хранилища
// и оборачивается как есть
var (
	// ErrInvalidInput — данные не прошли валидацию, ни БД, ни кэш не трогались
	ErrInvalidInput = errors.New("invalid input")
	// ErrCustomerNotFound — клиент с указанным id не найден
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrOrderNotFound — заказ с указанным id не найден
	ErrOrderNotFound = errors.New("order not found")
	// ErrEmailTaken — клиент с таким email уже существует (без учёта регистра)
	ErrEmailTaken = errors.New("customer with this email already exists")
)
