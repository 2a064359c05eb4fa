package main

import (
	"context"
	"log"
	"time"

	"order-reconciler/internal/core/cache"
	"order-reconciler/internal/core/config"
	"order-reconciler/internal/core/dedup"
	"order-reconciler/internal/core/logger"
	"order-reconciler/internal/core/server"
	orderadapter "order-reconciler/internal/features/orders/adapters"
	orderhandler "order-reconciler/internal/features/orders/handler"
	orderports "order-reconciler/internal/features/orders/ports"
	orderservice "order-reconciler/internal/features/orders/service"
	orderstore "order-reconciler/internal/features/orders/store"
	paymentadapter "order-reconciler/internal/features/payments/adapters"
	paymenthandler "order-reconciler/internal/features/payments/handler"
	paymentservice "order-reconciler/internal/features/payments/service"
	paymentstore "order-reconciler/internal/features/payments/store"

	"go.uber.org/zap"
)

// @title Order Reconciler API
// @version 1.0
// @description Storefront order/payment reconciliation service.
// @contact.name API Support
// @contact.email support@orderreconciler.dev
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	// Initialize storefront adapters and run Health Check
	ordersAdapter := orderadapter.NewStorefrontAdapter(cfg.Storefront)
	if err := ordersAdapter.HealthCheck(); err != nil {
		l.Fatal("Storefront API Health Check Failed", zap.Error(err))
	}
	l.Info("Storefront API connection verified")

	paymentsAdapter := paymentadapter.NewStorefrontAdapter(cfg.Storefront)

	// Redis-backed shipping cache; the service degrades to direct fetches
	// when Redis is unreachable.
	var shippingCache *orderadapter.ShippingCache
	redisCache, err := cache.NewRedisAdapter(cfg.Redis.URL)
	if err != nil {
		l.Warn("Redis unavailable, shipping cache disabled", zap.Error(err))
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisCache.Ping(ctx); err != nil {
			l.Warn("Redis unreachable, shipping cache disabled", zap.Error(err))
		} else {
			shippingCache = orderadapter.NewShippingCache(redisCache, cfg.Redis.ShippingCacheTTL())
			defer redisCache.Close()
		}
		cancel()
	}

	// Shared state containers and dedup guard
	ordersStore := orderstore.New()
	paymentsStore := paymentstore.New()
	guard := dedup.NewGuard(cfg.Reconcile.DedupWindow())

	// Services
	orderSvc := orderservice.NewOrderService(ordersAdapter, shippingCacheOrNil(shippingCache), ordersStore, guard)
	paymentSvc := paymentservice.NewPaymentService(paymentsAdapter, paymentsStore, ordersStore, orderSvc, guard, paymentservice.Options{
		SuccessCode:  cfg.Gateway.SuccessCode,
		PollInterval: cfg.Reconcile.PollInterval(),
		PollTimeout:  cfg.Reconcile.PollTimeout(),
	})

	// Handlers
	orderHdl := orderhandler.NewOrderHandler(orderSvc, cfg.Reconcile.RetryAttempts, cfg.Reconcile.RetryDelay())
	paymentHdl := paymenthandler.NewPaymentHandler(paymentSvc, cfg.Reconcile.RetryAttempts, cfg.Reconcile.RetryDelay())

	srv := server.New(cfg)

	// Register Routes
	srv.App.Post("/orders", orderHdl.CreateOrder)
	srv.App.Get("/orders/:id", orderHdl.GetOrder)
	srv.App.Get("/orders", orderHdl.ListOrders)
	srv.App.Post("/orders/:id/cancel", orderHdl.CancelOrder)
	srv.App.Get("/shipping/methods", orderHdl.GetShippingMethods)
	srv.App.Get("/shipping/estimate", orderHdl.EstimateShipping)

	srv.App.Post("/payments", paymentHdl.CreatePayment)
	srv.App.Get("/payments/order/:orderId", paymentHdl.GetPaymentByOrder)
	srv.App.Get("/payments/order/:orderId/poll", paymentHdl.PollPayment)
	srv.App.Post("/payments/:id/cancel", paymentHdl.CancelPayment)
	srv.App.Get("/payments/:id/history", paymentHdl.GetHistory)
	srv.App.Get("/payments/confirm", paymentHdl.ConfirmCallback)
	srv.App.Post("/payments/confirm-delivery/:orderId", paymentHdl.ConfirmDelivery)

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}

// shippingCacheOrNil avoids passing a typed nil pointer through the
// ShippingMethodCache interface.
func shippingCacheOrNil(c *orderadapter.ShippingCache) orderports.ShippingMethodCache {
	if c == nil {
		return nil
	}
	return c
}
