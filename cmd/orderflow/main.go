package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/odyssey-erp/orderflow/cmd/orderflow/cli"
	"github.com/odyssey-erp/orderflow/internal/app"
	"github.com/odyssey-erp/orderflow/internal/auth"
	"github.com/odyssey-erp/orderflow/internal/cart"
	"github.com/odyssey-erp/orderflow/internal/catalog"
	"github.com/odyssey-erp/orderflow/internal/customers"
	"github.com/odyssey-erp/orderflow/internal/grv"
	"github.com/odyssey-erp/orderflow/internal/observability"
	"github.com/odyssey-erp/orderflow/internal/orders"
	"github.com/odyssey-erp/orderflow/internal/payments"
	"github.com/odyssey-erp/orderflow/internal/platform/cache"
	"github.com/odyssey-erp/orderflow/internal/platform/db"
	"github.com/odyssey-erp/orderflow/internal/proforma"
	"github.com/odyssey-erp/orderflow/internal/rbac"
	"github.com/odyssey-erp/orderflow/internal/reports"
	"github.com/odyssey-erp/orderflow/internal/shared"
	"github.com/odyssey-erp/orderflow/internal/warehouse"
	"github.com/odyssey-erp/orderflow/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	_ = godotenv.Load()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobsCommand(cfg, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PoolConfig("orderflow-api"))
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	rbacMiddleware := rbac.Middleware{Policy: rbac.DefaultPolicy(), Logger: logger}
	auditLogger := shared.NewAuditLogger(dbpool)
	approvals := shared.NewApprovalRecorder(dbpool, logger)
	idempotency := shared.NewIdempotencyStore(dbpool)
	locker := shared.NewRedisLocker(redisClient)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	if err := reportCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("report cache invalidation listener", slog.Any("error", err))
	}

	queueOpt, err := cache.QueueOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("queue options", slog.Any("error", err))
		os.Exit(1)
	}
	jobClient := jobs.NewClient(queueOpt, logger)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(queueOpt)
	defer func() { _ = inspector.Close() }()

	boxIDs, err := warehouse.NewSnowflakeBoxIDs(cfg.SnowflakeNode)
	if err != nil {
		logger.Error("init box id generator", slog.Any("error", err))
		os.Exit(1)
	}

	authService := auth.NewService(auth.NewRepository(dbpool), auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL), logger)
	catalogService := catalog.NewService(catalog.NewRepository(dbpool), auditLogger, logger)
	cartService := cart.NewService(cart.NewRepository(dbpool), catalogService, logger)
	customerService := customers.NewService(customers.NewRepository(dbpool), cfg.PhoneRegion, logger)
	orderService := orders.NewService(orders.NewRepository(dbpool), orders.Dependencies{
		Audit:    auditLogger,
		Locker:   locker,
		Notifier: jobClient,
		Cache:    reportCache,
		Metrics:  metrics,
		Logger:   logger,
	}, orders.ServiceConfig{CheckoutLockTTL: cfg.CheckoutLockTTL})
	proformaService := proforma.NewService(proforma.NewRepository(dbpool), auditLogger, approvals, locker, metrics, cfg.CheckoutLockTTL, logger)
	paymentService := payments.NewService(payments.NewRepository(dbpool), idempotency, auditLogger, reportCache, metrics, logger)
	warehouseService := warehouse.NewService(warehouse.NewRepository(dbpool), boxIDs, metrics, logger)
	returnService := grv.NewService(grv.NewRepository(dbpool), approvals, logger)
	reportService := reports.NewService(reports.NewRepository(dbpool), warehouseService, reportCache, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        auth.NewHandler(logger, authService),
		CatalogHandler:     catalog.NewHandler(logger, catalogService, rbacMiddleware),
		CartHandler:        cart.NewHandler(logger, cartService, rbacMiddleware),
		CustomersHandler:   customers.NewHandler(logger, customerService, rbacMiddleware),
		OrdersHandler:      orders.NewHandler(logger, orderService, rbacMiddleware),
		ProformaHandler:    proforma.NewHandler(logger, proformaService, rbacMiddleware),
		PaymentsHandler:    payments.NewHandler(logger, paymentService, rbacMiddleware),
		WarehouseHandler:   warehouse.NewHandler(logger, warehouseService, rbacMiddleware),
		ReturnsHandler:     grv.NewHandler(logger, returnService, rbacMiddleware),
		ReportsHandler:     reports.NewHandler(logger, reportService, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger),
		PermissionsHandler: rbac.NewPermissionsHandler(rbacMiddleware.Policy),
		Metrics:            metrics,
		Ready: func(r *http.Request) error {
			if err := dbpool.Ping(r.Context()); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			return redisClient.Ping(r.Context()).Err()
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("version", app.Version()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// runJobsCommand handles `orderflow jobs trigger <task> [date]` and `orderflow jobs stats`.
func runJobsCommand(cfg *app.Config, args []string) error {
	c, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	if len(args) == 0 {
		return errors.New("usage: orderflow jobs trigger <task> [date] | stats")
	}
	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return errors.New("usage: orderflow jobs trigger <task> [date]")
		}
		arg := ""
		if len(args) > 2 {
			arg = args[2]
		}
		info, err := c.Trigger(ctx, args[1], arg)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := c.InspectQueues(ctx)
		if err != nil {
			return err
		}
		for _, s := range stats {
			fmt.Printf("%-10s pending=%d active=%d scheduled=%d retry=%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry)
		}
	default:
		return fmt.Errorf("unknown jobs command %q", args[0])
	}
	return nil
}
