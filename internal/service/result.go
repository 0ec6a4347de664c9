package service

import (
	"time"

	"customer-orders-service/internal/model"
)

// результаты потоков намеренно несут состояние и БД, и кэша по отдельности:
// запись идёт в два шага без транзакции, и расхождение должно быть видно
// вызывающему, а не проглатываться

// CustomerResult — итог создания клиента
type CustomerResult struct {
	CustomerID    int
	ExistsInDB    bool
	ExistsInCache bool
}

// OrderResult — итог создания заказа
type OrderResult struct {
	OrderID       int
	OrderDate     time.Time
	ExistsInDB    bool
	ExistsInCache bool
}

// ItemResult — итог добавления позиции заказа
type ItemResult struct {
	OrderItemID   int
	ExistsInCache bool
}

// DeleteResult — итог удаления клиента
type DeleteResult struct {
	DeletedInDB      bool
	StillInDB        bool
	RemovedFromCache bool
	RemovedFully     bool
}

// CacheCounts — размеры индексов после перезагрузки кэша
type CacheCounts struct {
	Customers int
	Orders    int
	Items     int
}

// OrderWithItems — заказ вместе с его позициями для просмотра
// пустой срез Items означает «позиций пока нет»
type OrderWithItems struct {
	Order model.Order
	Items []model.OrderItem
}

// CustomerOrdersView — клиент и его заказы, отсортированные по дате
type CustomerOrdersView struct {
	Customer model.Customer
	Orders   []OrderWithItems
}
