package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-core/internal/config"
	"github.com/ariefcatur/go-shop-core/internal/events"
	"github.com/ariefcatur/go-shop-core/internal/httpx"
	"github.com/ariefcatur/go-shop-core/internal/inventory"
	kafkax "github.com/ariefcatur/go-shop-core/internal/kafka"
	"github.com/ariefcatur/go-shop-core/internal/memstore"
	"github.com/ariefcatur/go-shop-core/internal/notify"
	"github.com/ariefcatur/go-shop-core/internal/observability"
	"github.com/ariefcatur/go-shop-core/internal/orders"
	"github.com/ariefcatur/go-shop-core/internal/postgres"
	"github.com/ariefcatur/go-shop-core/internal/redisx"
	"github.com/ariefcatur/go-shop-core/internal/users"
)

type stores struct {
	products inventory.ProductStore
	orders   orders.Store
	users    users.Store
	close    func()
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.StoreBackend != config.BackendPostgres {
		return stores{
			products: memstore.NewProducts(),
			orders:   memstore.NewOrders(),
			users:    memstore.NewUsers(),
			close:    func() {},
		}, nil
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return stores{}, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return stores{}, err
	}
	return stores{
		products: &postgres.Products{DB: db},
		orders:   &postgres.Orders{DB: db},
		users:    &postgres.Users{DB: db},
		close:    db.Close,
	}, nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Version)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}

	// Storage
	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatal("open stores", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer st.close()

	// Redis (tanpa REDIS_ADDR: idempotency & dedup in-process)
	var rdb redisx.Cmdable = redisx.NewMemory()
	if cfg.RedisAddr != "" {
		client := redisx.New(cfg.RedisAddr)
		if err := redisx.Ping(ctx, client); err != nil {
			logger.Fatal("redis ping", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer client.Close()
		rdb = client
	}

	// Events: Kafka kalau ada broker, selain itu langsung ke notifier lokal
	var (
		pub  events.Publisher
		prod *kafkax.Producer
	)
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger.Named("kafka"))
		prod.Start()
		pub = prod
	} else {
		dedup := redisx.NewDedup(rdb, cfg.ServiceName, 0)
		pub = notify.Local{D: notify.NewDispatcher(notify.LogSink{Log: logger.Named("notify")}, dedup, logger)}
	}

	policy, err := orders.ParsePolicy(cfg.ReservationPolicy)
	if err != nil {
		logger.Fatal("reservation policy", zap.Error(err))
	}

	ledger := inventory.NewLedger(st.products,
		inventory.WithLogger(logger.Named("inventory")),
		inventory.WithNotifier(notify.NewStockAlerts(rdb, pub, cfg.ServiceName, cfg.AlertDedupTTL)),
	)
	mgr := orders.NewManager(st.orders, ledger, st.users,
		orders.WithPolicy(policy),
		orders.WithPublisher(pub, cfg.ServiceName),
		orders.WithLogger(logger.Named("orders")),
	)

	if cfg.SeedDemo {
		if err := seedDemo(ctx, ledger, st.users); err != nil {
			logger.Fatal("seed demo data", zap.Error(err))
		}
		logger.Info("demo data seeded")
	}

	router := httpx.NewRouter(logger.Named("http"))
	(&httpx.OrdersHandler{
		Orders: mgr,
		Idem:   redisx.NewIdempotency(rdb, redisx.TTLIdempotency),
		Log:    logger,
	}).Register(router)
	(&httpx.ProductsHandler{Ledger: ledger, Log: logger}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("http listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("backend", cfg.StoreBackend),
			zap.String("policy", policy.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if prod != nil {
		prod.Close()      // tutup inbox -> flush & close writer
		prod.WaitClosed() // drain
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}
