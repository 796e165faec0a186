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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	appcatalog "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/catalog"
	apporder "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/order"
	apppay "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/config"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/notify"
	infraobs "github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/outbox"
	infrapay "github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	httppresentation "github.com/Zhima-Mochi/minishop-fulfillment/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-fulfillment/internal/presentation/worker"
)

func main() {
	configPath := flag.String("config", os.Getenv("MINISHOP_CONFIG"), "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, err := zaplogger.New(zaplogger.Options{
		Service: cfg.App.Name,
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		LogFile: cfg.App.LogFile,
	})
	if err != nil {
		return err
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger.Zap())

	systemLogger := baseLogger.WithTrace(zaplogger.SystemTraceID, zaplogger.SystemSpanID)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	counters, histograms := prometrics.Instruments(prometrics.New(prometheus.DefaultRegisterer, "", ""))
	tel := infraobs.New(oteltrace.New(cfg.App.Name), baseLogger, counters, histograms)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// catalog seeded from configuration
	store := memory.NewCatalog()
	catalogService := appcatalog.NewService(store, baseLogger)
	seed := make([]appcatalog.ProductInput, 0, len(cfg.Catalog.Products))
	for _, p := range cfg.Catalog.Products {
		seed = append(seed, appcatalog.ProductInput{SKU: p.SKU, Title: p.Title, Price: p.Price, Stock: p.Stock})
	}
	if _, err := catalogService.Load(ctx, seed...); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	// in-memory event bus for reporting side channels
	bus := outbox.NewBus(baseLogger, outbox.Options{})
	orderWorker := apporder.NewWorker(tel)
	workerpresentation.Mount(bus, orderWorker.Logger(), tel, orderWorker.Handlers())
	bus.Start(ctx)

	gateway := infrapay.NewTokenGateway(
		infrapay.WithPrefixes(cfg.Payment.CredentialPrefix, cfg.Payment.ChargePrefix),
		infrapay.WithLatency(cfg.Payment.Latency),
		infrapay.WithDeclined(cfg.Payment.Declined...),
	)
	orders := memory.NewOrderRepository()
	placeOrder := apporder.NewPlaceOrderUseCase(apporder.Deps{
		Catalog:     store,
		Orders:      orders,
		Charger:     apppay.NewChargeUseCase(gateway, cfg.Payment.Timeout, tel),
		Notifier:    notify.NewMailer(cfg.Notify.Sender, baseLogger),
		Publisher:   bus,
		OrderIDs:    id.NewUUIDGenerator(),
		InvoiceIDs:  id.Prefixed{Prefix: "INV-"},
		ShipmentIDs: id.Prefixed{Prefix: "SHP-"},
		Tel:         tel,
	})

	router := httppresentation.NewHandler(placeOrder, orders, catalogService, baseLogger, tel).Router()
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		systemLogger.Info("http_server_start", observability.F("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			systemLogger.Error("http_server_error", observability.F("error", err))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", observability.F("error", err))
	} else {
		systemLogger.Info("http_server_stopped")
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		systemLogger.Warn("event_bus_drain_incomplete", observability.F("error", err))
	}
	return nil
}
