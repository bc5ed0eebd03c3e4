//REST API сервера инвентаря:
//CRUD по сущностям инвентаря (предметы, категории, контейнеры, локации);
//инкрементальная синхронизация по чекпоинтам;
//пакетный прием офлайн-событий с по-событийными подтверждениями;
//учет конфликтов и устройств.

//GET  /api/health                          # Проверка живости (публичный)
//GET  /api/inventory/{entity}              # Список сущностей (auth)
//POST /api/inventory/{entity}              # Создать сущность (auth)
//GET  /api/inventory/{entity}/{id}         # Получить сущность (auth)
//PUT  /api/inventory/{entity}/{id}         # Обновить сущность (auth)
//DELETE /api/inventory/{entity}/{id}       # Удалить сущность (auth)
//POST /api/sync/{entity}/incremental       # Дельта по чекпоинту (auth)
//POST /api/sync/batch                      # Пакет офлайн-событий (auth)

package api

import (
	healthAPI "invkeeper/internal/app/server/api/http/health"
	"invkeeper/internal/app/server/api/http/middleware"
	"invkeeper/internal/app/server/api/http/middleware/auth"
	"invkeeper/internal/app/server/api/http/middleware/logger"
	"invkeeper/internal/app/server/api/http/middleware/metrics"
	syncAPI "invkeeper/internal/app/server/api/http/sync"
	"invkeeper/internal/app/server/config"
	"invkeeper/internal/domain/inventory"
	"invkeeper/internal/domain/sync"
	"invkeeper/internal/infrastructure/storage/postgres"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/slog"
)

type Handlers struct {
	Health    *healthAPI.Handler
	Inventory *inventory.Handler
	Sync      *syncAPI.Handler
}

// New создает *chi.Mux с ВСЕМИ операциями через huma.Register
func New(storage *postgres.Storage, cfg *config.Config, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	humaConfig := huma.DefaultConfig("InvKeeper API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, humaConfig)

	h := handlers(storage, cfg, log)
	h.Health.SetupRoutes(API)
	h.Inventory.SetupRoutes(API)
	h.Sync.SetupRoutes(API)

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func handlers(storage *postgres.Storage, cfg *config.Config, log *slog.Logger) *Handlers {
	authMW := auth.New(auth.NewStaticVerifier(cfg.Server.APIToken), log)
	loggerMW := logger.New(log)
	metricsMW := metrics.New(prometheus.DefaultRegisterer)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	middlewares.Add(metricsMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, middlewares.GetAllAndClear())

	inventoryRepo := postgres.NewInventoryRepository(storage.Pool(), log)
	inventoryFactory := inventory.NewFactory()
	inventoryService := inventory.NewService(inventoryRepo, inventoryFactory, log)
	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	middlewares.Add(metricsMW.Middleware())
	inventoryHandler := inventory.NewHandler(inventoryService, log, middlewares.GetAllAndClear())

	syncRepo := postgres.NewSyncRepository(storage.Pool(), log)
	syncService := sync.NewService(syncRepo, log, &sync.ServiceConfig{
		BatchSize:      cfg.Sync.BatchSize,
		MaxSyncRecords: cfg.Sync.MaxSyncRecords,
		ConflictTTL:    time.Duration(cfg.Sync.ConflictTTLH) * time.Hour,
	})
	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	middlewares.Add(metricsMW.Middleware())
	syncHandler := syncAPI.NewHandler(syncService, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:    healthHandler,
		Inventory: inventoryHandler,
		Sync:      syncHandler,
	}
}
