package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"customer-orders-service/internal/model"
)

// Service реализует потоки операций над клиентами, заказами и позициями
// каждый мутирующий поток идёт строго в два шага: сначала запись в БД,
// затем зеркалирование в кэш; читающие потоки работают только с кэшем
type Service struct {
	store Store
	cache IndexCache
	log   *slog.Logger
}

// New создаёт новый экземпляр сервиса
func New(store Store, cache IndexCache, log *slog.Logger) *Service {
	return &Service{
		store: store,
		cache: cache,
		log:   log,
	}
}

// RefreshCache полностью перезагружает кэш из БД и возвращает размеры индексов
// вызывается при старте и по запросу из меню
func (s *Service) RefreshCache(ctx context.Context) (CacheCounts, error) {
	const op = "service.Service.RefreshCache"
	log := s.log.With(slog.String("op", op))

	if err := s.cache.LoadAll(ctx, s.store); err != nil {
		log.Error("failed to reload cache", slog.String("error", err.Error()))
		return CacheCounts{}, fmt.Errorf("%s: %w", op, err)
	}

	customers, orders, items := s.cache.Counts()
	log.Info("cache reloaded",
		slog.Int("customers", customers),
		slog.Int("orders", orders),
		slog.Int("items", items),
	)
	return CacheCounts{Customers: customers, Orders: orders, Items: items}, nil
}

// AddCustomer создаёт клиента: валидация → проверка email по БД → вставка
// в БД → зеркалирование в кэш. Уникальность email проверяется по БД,
// а не по кэшу: БД — источник истины для создания
func (s *Service) AddCustomer(ctx context.Context, in model.NewCustomer) (CustomerResult, error) {
	const op = "service.Service.AddCustomer"
	log := s.log.With(slog.String("op", op), slog.String("email", in.Email))

	if err := in.Validate(); err != nil {
		return CustomerResult{}, fmt.Errorf("%s: %w", op, err)
	}

	taken, err := s.store.CustomerExistsByEmail(ctx, in.Email)
	if err != nil {
		log.Error("failed to check email", slog.String("error", err.Error()))
		return CustomerResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if taken {
		return CustomerResult{}, fmt.Errorf("%s: %w", op, model.ErrEmailTaken)
	}

	newID, err := s.store.AddCustomer(ctx, in.Name, in.Email)
	if err != nil {
		log.Error("failed to insert customer", slog.String("error", err.Error()))
		return CustomerResult{}, fmt.Errorf("%s: %w", op, err)
	}

	// контрольное чтение из БД — диагностика, а не условие продолжения:
	// запись уже состоялась, и кэш должен её отразить в любом случае
	existsInDB, err := s.store.CustomerExistsByID(ctx, newID)
	if err != nil {
		log.Warn("post-insert check failed", slog.String("error", err.Error()))
	}

	s.cache.InsertCustomer(model.Customer{CustomerID: newID, Name: in.Name, Email: in.Email})
	_, existsInCache := s.cache.FindByCustomerID(newID)

	log.Info("customer created", slog.Int("customer_id", newID))
	return CustomerResult{
		CustomerID:    newID,
		ExistsInDB:    existsInDB,
		ExistsInCache: existsInCache,
	}, nil
}

// AddOrder создаёт заказ на сегодняшнюю дату
// предусловие «клиент существует» сознательно проверяется по кэшу, а не по БД:
// это экономит обращение к хранилищу ценой ложного отказа при устаревшем кэше.
// это документированное поведение, не ошибка; foreign key в БД всё равно
// не даст создать заказ для действительно несуществующего клиента
func (s *Service) AddOrder(ctx context.Context, customerID int) (OrderResult, error) {
	const op = "service.Service.AddOrder"
	log := s.log.With(slog.String("op", op), slog.Int("customer_id", customerID))

	if _, ok := s.cache.FindByCustomerID(customerID); !ok {
		return OrderResult{}, fmt.Errorf("%s: %w", op, model.ErrCustomerNotFound)
	}

	orderDate := model.Today()
	orderID, err := s.store.AddOrder(ctx, customerID, orderDate)
	if err != nil {
		log.Error("failed to insert order", slog.String("error", err.Error()))
		return OrderResult{}, fmt.Errorf("%s: %w", op, err)
	}

	existsInDB, err := s.store.OrderExists(ctx, orderID)
	if err != nil {
		log.Warn("post-insert check failed", slog.String("error", err.Error()))
	}

	s.cache.InsertOrder(model.Order{OrderID: orderID, CustomerID: customerID, OrderDate: orderDate})

	existsInCache := false
	for _, o := range s.cache.OrdersOf(customerID) {
		if o.OrderID == orderID {
			existsInCache = true
			break
		}
	}

	log.Info("order created", slog.Int("order_id", orderID))
	return OrderResult{
		OrderID:       orderID,
		OrderDate:     orderDate,
		ExistsInDB:    existsInDB,
		ExistsInCache: existsInCache,
	}, nil
}

// AddItem добавляет позицию в заказ
// существование заказа проверяется по БД — кэшу здесь не доверяем
func (s *Service) AddItem(ctx context.Context, in model.NewItem) (ItemResult, error) {
	const op = "service.Service.AddItem"
	log := s.log.With(slog.String("op", op), slog.Int("order_id", in.OrderID))

	if err := in.Validate(); err != nil {
		return ItemResult{}, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := s.store.OrderExists(ctx, in.OrderID)
	if err != nil {
		log.Error("failed to check order", slog.String("error", err.Error()))
		return ItemResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return ItemResult{}, fmt.Errorf("%s: %w", op, model.ErrOrderNotFound)
	}

	itemID, err := s.store.AddOrderItem(ctx, in.OrderID, in.ProductName, in.Quantity, in.Price)
	if err != nil {
		log.Error("failed to insert order item", slog.String("error", err.Error()))
		return ItemResult{}, fmt.Errorf("%s: %w", op, err)
	}

	s.cache.InsertItem(model.OrderItem{
		OrderItemID: itemID,
		OrderID:     in.OrderID,
		ProductName: in.ProductName,
		Quantity:    in.Quantity,
		Price:       in.Price,
	})

	existsInCache := false
	for _, it := range s.cache.ItemsOf(in.OrderID) {
		if it.OrderItemID == itemID {
			existsInCache = true
			break
		}
	}

	log.Info("order item created", slog.Int("order_item_id", itemID))
	return ItemResult{OrderItemID: itemID, ExistsInCache: existsInCache}, nil
}

// DeleteCustomer удаляет клиента из БД (заказы и позиции уходят каскадом)
// и зеркалирует удаление в кэше. Предусловий нет: удаление отсутствующего
// клиента — не ошибка, результат просто покажет DeletedInDB=false
func (s *Service) DeleteCustomer(ctx context.Context, customerID int) (DeleteResult, error) {
	const op = "service.Service.DeleteCustomer"
	log := s.log.With(slog.String("op", op), slog.Int("customer_id", customerID))

	deletedInDB, err := s.store.DeleteCustomer(ctx, customerID)
	if err != nil {
		// БД не тронута — кэш тоже не трогаем, иначе он «убежит вперёд»
		log.Error("failed to delete customer", slog.String("error", err.Error()))
		return DeleteResult{}, fmt.Errorf("%s: %w", op, err)
	}

	stillInDB, err := s.store.CustomerExistsByID(ctx, customerID)
	if err != nil {
		log.Warn("post-delete check failed", slog.String("error", err.Error()))
	}

	removedFromCache := s.cache.RemoveCustomer(customerID)
	_, stillInCache := s.cache.FindByCustomerID(customerID)

	log.Info("customer deleted",
		slog.Bool("deleted_in_db", deletedInDB),
		slog.Bool("removed_from_cache", removedFromCache),
	)
	return DeleteResult{
		DeletedInDB:      deletedInDB,
		StillInDB:        stillInDB,
		RemovedFromCache: removedFromCache,
		RemovedFully:     !stillInCache,
	}, nil
}

// CustomerOrders возвращает клиента и его заказы с позициями
// читает только кэш; заказы отсортированы по дате, у заказа без позиций
// срез Items пуст
func (s *Service) CustomerOrders(customerID int) (CustomerOrdersView, error) {
	const op = "service.Service.CustomerOrders"

	cust, ok := s.cache.FindByCustomerID(customerID)
	if !ok {
		return CustomerOrdersView{}, fmt.Errorf("%s: %w", op, model.ErrCustomerNotFound)
	}

	orders := s.cache.OrdersOf(customerID)
	view := CustomerOrdersView{
		Customer: cust,
		Orders:   make([]OrderWithItems, 0, len(orders)),
	}
	for _, o := range orders {
		view.Orders = append(view.Orders, OrderWithItems{
			Order: o,
			Items: s.cache.ItemsOf(o.OrderID),
		})
	}
	return view, nil
}

// OrdersAfter возвращает все заказы со строго большей датой
func (s *Service) OrdersAfter(date time.Time) []model.Order {
	return s.cache.FilterOrders(func(o model.Order) bool {
		return o.OrderDate.After(date)
	})
}

// ItemsWithQuantityOver возвращает все позиции с количеством строго больше порога
func (s *Service) ItemsWithQuantityOver(quantity int) []model.OrderItem {
	return s.cache.FilterItems(func(it model.OrderItem) bool {
		return it.Quantity > quantity
	})
}

// FindCustomerByEmail ищет клиента в кэше по email без учёта регистра
func (s *Service) FindCustomerByEmail(email string) (model.Customer, bool) {
	return s.cache.FindByEmail(email)
}
