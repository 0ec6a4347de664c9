package main

import (
	"context"
	"log/slog"
	"os"

	"customer-orders-service/internal/config"
	"customer-orders-service/internal/lib/logger"
	"customer-orders-service/internal/repository/cache"
	"customer-orders-service/internal/repository/postgres"
	"customer-orders-service/internal/service"
	"customer-orders-service/internal/transport/cli"
)

func main() {
	// 1. Инициализация конфигурации
	cfg := config.MustLoad("config/config.yaml")

	// 2. Инициализация логгера
	log := logger.New(cfg.Logger.Level)
	log.Info("starting customer-orders-service", slog.String("log_level", cfg.Logger.Level))

	// 3. Инициализация хранилища (БД)
	ctx := context.Background()
	dbpool, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbpool.Close()
	log.Info("successfully connected to postgres")

	// 4. Применение схемы
	if err := postgres.Migrate(ctx, dbpool); err != nil {
		log.Error("failed to apply schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store := postgres.NewStore(dbpool)

	// 5. Инициализация кэша и сервисного слоя
	indexCache := cache.NewIndexCache()
	flows := service.New(store, indexCache, log)

	// 6. Первоначальная загрузка кэша из БД
	counts, err := flows.RefreshCache(ctx)
	if err != nil {
		// без загруженного кэша работать нельзя: читающие потоки ходят только в него
		log.Error("failed to load cache", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("cache loaded",
		slog.Int("customers", counts.Customers),
		slog.Int("orders", counts.Orders),
		slog.Int("items", counts.Items),
	)

	// 7. Запуск интерактивного меню
	menu := cli.NewMenu(flows, os.Stdin, os.Stdout, log)
	menu.Run(ctx)

	log.Info("application stopped")
}
