package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/events"
	"storefront/internal/httpserver"
	"storefront/internal/notify"
	"storefront/internal/payment"
	cartrepo "storefront/internal/repository/cart"
	couponrepo "storefront/internal/repository/coupon"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
	couponsvc "storefront/internal/service/coupon"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"

	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	notifier := notify.Publisher(notify.Nop{})
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		notifier = notify.NewRedisPublisher(rdb, logger)
	}

	stream := events.Stream(events.Nop{})
	if len(cfg.KafkaBrokers) > 0 {
		kafkaClient, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.KafkaBrokers...),
			kgo.ClientID("storefront-api"),
		)
		if err != nil {
			logger.Fatalf("connect to kafka: %v", err)
		}
		defer kafkaClient.Close()
		if err := events.EnsureTopics(ctx, kafkaClient); err != nil {
			logger.Fatalf("ensure kafka topics: %v", err)
		}
		stream = events.NewKafkaStream(kafkaClient, logger)
	}

	gateway := payment.NewClient(cfg.PaymentAPIURL, cfg.PaymentSecretKey)

	productRepo := productrepo.NewPostgres(dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool)
	couponRepo := couponrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)

	pricing := checkoutsvc.Pricing{
		Currency:                   cfg.Currency,
		ShippingFlatCents:          cfg.ShippingFlatCents,
		FreeShippingThresholdCents: cfg.FreeShippingThresholdCents,
		TaxRateBasisPoints:         cfg.TaxRateBasisPoints,
	}

	productService := productsvc.New(productRepo)
	cartService := cartsvc.New(cartRepo, productRepo, notifier)
	couponService := couponsvc.New(couponRepo)
	checkoutService := checkoutsvc.New(productRepo, cartRepo, couponService, orderRepo, gateway, notifier, stream, pricing, logger)
	orderService := ordersvc.New(orderRepo, notifier, stream)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		ProductSvc:    productService,
		CartSvc:       cartService,
		CouponSvc:     couponService,
		CheckoutSvc:   checkoutService,
		OrderSvc:      orderService,
		WebhookSecret: cfg.PaymentWebhookSecret,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
