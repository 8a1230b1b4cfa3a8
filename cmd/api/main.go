package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"charipay/internal/config"
	"charipay/internal/gateway/checkout"
	"charipay/internal/gateway/reconcile"
	"charipay/internal/gateway/webhook"
	httpx "charipay/internal/http"
	"charipay/internal/paystack"
	"charipay/internal/store/postgres"
	"charipay/internal/store/redislock"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init DB
	pool := postgres.MustOpen(ctx, cfg.DB.DSN)
	defer pool.Close()

	donations := postgres.NewDonationRepository(pool)
	recurring := postgres.NewRecurringRepository(pool)
	plans := postgres.NewPlanRepository(pool)
	customers := postgres.NewCustomerCodeRepository(pool)

	// Webhook lock, optional: without Redis the database marker still
	// keeps reconciliation idempotent.
	var locker *redislock.Locker
	if cfg.Redis.Addr != "" {
		locker = redislock.MustOpen(ctx, cfg.Redis)
		defer locker.Close()
	}

	// Gateway clients, one per mode
	gateway := paystack.NewGateway(cfg.Paystack)

	builder := checkout.NewBuilder(gateway, donations, recurring, plans, customers,
		cfg.Paystack, cfg.App.BaseURL)
	processor := reconcile.NewProcessor(donations, recurring, gateway)

	// Router
	r := httpx.NewRouter(httpx.RouterDependencies{
		Config:    cfg,
		Builder:   builder,
		Processor: processor,
		WebhookDeps: webhook.Deps{
			SecretKey: cfg.Paystack.SecretKey(cfg.Paystack.TestMode),
			Donations: donations,
			Recurring: recurring,
			Verifier:  gateway,
		},
		Locker: locker,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Msgf("ChariPay API listening on :%s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	cancel()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	log.Info().Msg("server stopped")
}
