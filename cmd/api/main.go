package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/app"
	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/clock"
	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/config"
	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/notify"
	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/payment"
	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/storage/postgres"
	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/ticketing"
	transporthttp "github.com/malekbenamor02/Andiamo-Events-sub004/internal/transport/http"
	"github.com/malekbenamor02/Andiamo-Events-sub004/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()
	config.LoadEnvFile(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.SessionSecret == "" {
		logger.Printf("WARN: SESSION_SECRET not set, sessions will not validate")
	}
	if cfg.WebhookSecret == "" {
		logger.Printf("WARN: PAYMENT_WEBHOOK_SECRET not set, webhooks will be rejected")
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	blobStore, err := ticketing.NewFSStore(cfg.TicketArtifactDir, cfg.TicketBaseURL)
	if err != nil {
		log.Fatalf("artifact store: %v", err)
	}

	clk := clock.NewSystem()
	poolRepo := postgres.NewPoolRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	ticketRepo := postgres.NewTicketRepository(pool)

	inventorySvc := app.NewInventoryService(poolRepo, logger)
	orderSvc := app.NewOrderService(orderRepo, inventorySvc, clk, logger)
	fulfillmentSvc := app.NewFulfillmentService(
		ticketRepo,
		orderRepo,
		ticketing.NewRenderer(blobStore),
		notify.NewHTTPEmailSender(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom, nil),
		notify.NewHTTPSMSSender(cfg.SMSAPIURL, cfg.SMSAPIKey, nil),
		clk,
		logger,
		app.WithNotifyBudget(cfg.NotifyBudget),
	)
	adminSvc := app.NewAdminService(orderSvc, fulfillmentSvc, orderRepo, clk, logger)
	gateway := payment.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayTimeout)
	paymentSvc := app.NewPaymentService(
		gateway,
		orderSvc,
		fulfillmentSvc,
		logger,
		app.WithBackoff(cfg.VerifyBaseDelay, cfg.VerifyMaxDelay, cfg.VerifyMaxAttempts),
	)

	auth := transporthttp.NewAuthorizer(cfg.SessionSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/orders", transporthttp.HandleCreateOrder(orderSvc, paymentSvc, auth))
	mux.Handle("/orders/", orderRouter(orderSvc, fulfillmentSvc, adminSvc, auth))
	mux.Handle("/outlets/", transporthttp.HandleOutletOrders(orderSvc, auth))
	mux.Handle("/payments/verify", transporthttp.HandleVerifyPayment(paymentSvc))
	mux.Handle("/payments/webhook", transporthttp.HandleGatewayWebhook(paymentSvc, cfg.WebhookSecret))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	log.Printf("api listening on :%s", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}

// orderRouter splits /orders/{id} reads from the admin action posts.
func orderRouter(orders *app.OrderService, fulfillment *app.FulfillmentService, admin *app.AdminService, auth *transporthttp.Authorizer) http.Handler {
	get := transporthttp.HandleGetOrder(orders, fulfillment)
	actions := transporthttp.HandleAdminOrders(admin, auth)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			get(w, r)
			return
		}
		actions(w, r)
	})
}
