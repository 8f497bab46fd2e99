package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"restaurant-pos/internal/config"
	"restaurant-pos/internal/database"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/metrics"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/notification"
	"restaurant-pos/internal/services/order"
	"restaurant-pos/internal/services/payment"
	"restaurant-pos/internal/services/pricing"
	"restaurant-pos/internal/services/promotion"
	"restaurant-pos/internal/services/stock"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/store/memory"
	"restaurant-pos/internal/store/postgres"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		mode       = flag.String("mode", "order-service", "Service mode (order-service, notification-subscriber)")
		backend    = flag.String("store", "postgres", "Storage backend (postgres, memory)")
		configPath = flag.String("config", "config.yaml", "Path to the YAML configuration")
		port       = flag.Int("port", 0, "HTTP port, overrides server.port")
		prefetch   = flag.Int("prefetch", 10, "RabbitMQ prefetch count")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	log.Info("service_starting", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode":  *mode,
		"store": *backend,
		"port":  cfg.Server.Port,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "order-service":
		err = runOrderService(ctx, cfg, log, *backend)
	case "notification-subscriber":
		err = runNotificationSubscriber(ctx, cfg, log, *prefetch)
	default:
		err = fmt.Errorf("unknown mode: %s", *mode)
	}
	if err != nil {
		log.Error("service_failed", fmt.Sprintf("%s failed", *mode), requestID, err, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// runOrderService serves the order core over HTTP
func runOrderService(ctx context.Context, cfg *config.Config, log *logger.Logger, backend string) error {
	requestID := logger.GenerateRequestID()

	taxRate, err := cfg.TaxRate()
	if err != nil {
		return err
	}

	m := metrics.New("order-service")
	hub := notification.NewHub(log)
	targets := []notification.Publisher{hub}

	var (
		st      store.Store
		catalog store.Catalog
	)
	switch backend {
	case "postgres":
		db, err := database.New(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		if err := db.RunMigrations(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		st = postgres.New(db.Pool)
		catalog = postgres.NewCatalog(db.Pool)

		// without a broker, events still reach /ws clients
		conn, err := messaging.New(cfg, log)
		if err != nil {
			log.Error("rabbitmq_unavailable", "Continuing without broker fan-out", requestID, err, nil)
			break
		}
		defer conn.Close()

		log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)
		targets = append(targets, notification.NewBrokerPublisher(messaging.NewPublisher(conn, log)))
	case "memory":
		mem := memory.New()
		memCatalog := memory.NewCatalog()
		if err := seedDemo(ctx, mem, memCatalog); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
		st, catalog = mem, memCatalog
		log.Info("demo_seeded", "Memory store seeded with demo catalog", requestID, nil)
	default:
		return fmt.Errorf("unknown store: %s", backend)
	}

	dispatcher := notification.NewDispatcher(cfg.Notifications.Buffer, log, m, targets...)

	engine := pricing.NewEngine(taxRate)
	ledger := stock.NewLedger(st, dispatcher, log)
	promotions := promotion.NewService(st, engine, dispatcher, log)
	orders := order.NewManager(st, catalog, engine, ledger, promotions, dispatcher, log, m)
	payments := payment.NewReconciler(st, orders, dispatcher, log, m)

	handler := order.NewHandler(orders, promotions, payments, ledger, st, log, m)
	mux := handler.SetupRoutes()
	mux.Handle("GET /ws", hub)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error {
		log.Info("service_started", fmt.Sprintf("Order service started on port %d", cfg.Server.Port), requestID, map[string]interface{}{
			"tax_rate": taxRate.String(),
		})
		return serve(server)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("graceful_shutdown", "Shutting down HTTP server", requestID, nil)
		return shutdown(server)
	})

	return g.Wait()
}

// runNotificationSubscriber relays broker events to WebSocket clients
func runNotificationSubscriber(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	requestID := logger.GenerateRequestID()

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)

	m := metrics.New("notification-subscriber")
	hub := notification.NewHub(log)
	consumer := messaging.NewConsumer(conn, log, messaging.NotificationsQueue, "notification-subscriber", prefetch)
	subscriber := notification.NewSubscriber(consumer, hub, log)

	mux := http.NewServeMux()
	mux.Handle("GET /ws", hub)
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		if conn.IsClosed() {
			status = http.StatusServiceUnavailable
		}
		w.WriteHeader(status)
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return subscriber.Start(gctx) })
	g.Go(func() error {
		log.Info("service_started", fmt.Sprintf("Notification subscriber started on port %d", cfg.Server.Port), requestID, nil)
		return serve(server)
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(server)
	})

	return g.Wait()
}

func serve(server *http.Server) error {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}

// seedDemo loads a small catalog so the memory backend is usable out of the box
func seedDemo(ctx context.Context, st *memory.Store, catalog *memory.Catalog) error {
	catalog.PutStaff(models.Staff{ID: 1, Name: "Awa", Role: models.RoleServer})
	catalog.PutStaff(models.Staff{ID: 2, Name: "Jean", Role: models.RoleChef})
	catalog.PutStaff(models.Staff{ID: 3, Name: "Mireille", Role: models.RoleCashier})
	for id := int64(1); id <= 10; id++ {
		catalog.PutTable(id)
	}

	tomato := models.Ingredient{Name: "Tomate", Quantity: decimal.NewFromInt(10), Unit: "kg", AlertThreshold: decimal.NewFromInt(2)}
	cheese := models.Ingredient{Name: "Fromage", Quantity: decimal.NewFromInt(5), Unit: "kg", AlertThreshold: decimal.NewFromInt(1)}
	chicken := models.Ingredient{Name: "Poulet", Quantity: decimal.NewFromInt(8), Unit: "kg", AlertThreshold: decimal.NewFromInt(2)}

	err := st.WithTx(ctx, func(tx store.Tx) error {
		now := time.Now()
		for _, ingredient := range []*models.Ingredient{&tomato, &cheese, &chicken} {
			ingredient.UpdatedAt = now
			if err := tx.Ingredients().Insert(ctx, ingredient); err != nil {
				return err
			}
		}

		promotions := []models.Promotion{
			{Name: "Happy hour", Kind: models.PromotionPercentage, Value: decimal.NewFromInt(10), Active: true, ExpiresOn: now.AddDate(0, 3, 0)},
			{Name: "Fidelite", Kind: models.PromotionFixed, Value: decimal.NewFromInt(1000), Active: true, ExpiresOn: now.AddDate(1, 0, 0)},
		}
		for i := range promotions {
			if err := tx.Promotions().Insert(ctx, &promotions[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	catalog.PutMenuItem(models.MenuItem{ID: 1, Name: "Pizza Margherita", Price: decimal.NewFromInt(5000), Available: true})
	catalog.PutMenuItem(models.MenuItem{ID: 2, Name: "Poulet DG", Price: decimal.NewFromInt(6500), Available: true})
	catalog.PutMenuItem(models.MenuItem{ID: 3, Name: "Jus de bissap", Price: decimal.NewFromInt(1000), Available: true})
	catalog.PutRecipe(1,
		models.RecipeItem{MenuItemID: 1, IngredientID: tomato.ID, Quantity: decimal.RequireFromString("0.3")},
		models.RecipeItem{MenuItemID: 1, IngredientID: cheese.ID, Quantity: decimal.RequireFromString("0.2")},
	)
	catalog.PutRecipe(2,
		models.RecipeItem{MenuItemID: 2, IngredientID: chicken.ID, Quantity: decimal.RequireFromString("0.5")},
		models.RecipeItem{MenuItemID: 2, IngredientID: tomato.ID, Quantity: decimal.RequireFromString("0.1")},
	)
	return nil
}
