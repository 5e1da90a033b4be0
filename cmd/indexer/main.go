package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-wallet-ledger/internal/export"
	"solana-wallet-ledger/internal/indexer"
	"solana-wallet-ledger/internal/observability"
	"solana-wallet-ledger/internal/solana"
	"solana-wallet-ledger/internal/storage"
	chstore "solana-wallet-ledger/internal/storage/clickhouse"
	"solana-wallet-ledger/internal/storage/memory"
	"solana-wallet-ledger/internal/storage/migrations"
	pgstore "solana-wallet-ledger/internal/storage/postgres"
)

const defaultRPCEndpoint = "https://api.mainnet-beta.solana.com"

func main() {
	// Parse flags
	wallet := flag.String("wallet", "", "Wallet address to reconstruct transfers for (required)")
	rpcEndpoint := flag.String("rpc-endpoint", defaultRPCEndpoint, "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint (required for watch mode)")
	hours := flag.Int("hours", 24, "Lookback window in hours")
	service := flag.Bool("service", false, "Run repeatedly on a fixed interval instead of once")
	watch := flag.Bool("watch", false, "Follow live transactions over WebSocket instead of backfilling")
	interval := flag.Duration("interval", time.Hour, "Cycle interval for service mode")
	out := flag.String("out", export.DefaultFilename, "Output JSON file path")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for transfer persistence")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for volume rollups")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of external databases")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[indexer] ", log.LstdFlags)

	if *wallet == "" {
		logger.Fatal("--wallet is required")
	}
	if err := solana.ValidatePubkey(*wallet); err == nil && !solana.IsOnCurve(*wallet) {
		logger.Printf("Warning: %s is not an on-curve address, likely a program-derived account", *wallet)
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	var err error
	switch {
	case *watch:
		err = runWatch(ctx, logger, *wallet, *rpcEndpoint, *wsEndpoint, *postgresDSN, *useMemory)
	default:
		err = runBackfill(ctx, logger, *wallet, *rpcEndpoint, *postgresDSN, *clickhouseDSN,
			time.Duration(*hours)*time.Hour, *service, *interval, *out, *useMemory)
	}

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// openStores wires the transfer and volume stores selected by flags. The
// returned closer releases the underlying connections.
func openStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (storage.TransferStore, storage.VolumeTimeseriesStore, func(), error) {
	if useMemory {
		return memory.NewTransferStore(), memory.NewVolumeTimeseriesStore(), func() {}, nil
	}

	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	var transferStore storage.TransferStore
	if postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			closeAll()
			return nil, nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		transferStore = pgstore.NewTransferStore(pool)
	}

	var volumeStore storage.VolumeTimeseriesStore
	if clickhouseDSN != "" {
		conn, err := chstore.Bootstrap(ctx, clickhouseDSN)
		if err != nil {
			closeAll()
			return nil, nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		volumeStore = chstore.NewVolumeTimeseriesStore(conn)
	}

	return transferStore, volumeStore, closeAll, nil
}

// runBackfill runs a one-shot or repeating backfill.
func runBackfill(ctx context.Context, logger *log.Logger, wallet, rpcEndpoint, postgresDSN, clickhouseDSN string,
	lookback time.Duration, service bool, interval time.Duration, out string, useMemory bool) error {

	rpc := solana.NewHTTPClient(rpcEndpoint)

	transferStore, volumeStore, closeStores, err := openStores(ctx, postgresDSN, clickhouseDSN, useMemory)
	if err != nil {
		return err
	}
	defer closeStores()

	backfiller := indexer.NewBackfiller(indexer.BackfillOptions{
		RPC:    rpc,
		Logger: logger,
	})

	svc := indexer.NewService(indexer.ServiceOptions{
		Backfiller:    backfiller,
		Wallet:        wallet,
		Lookback:      lookback,
		Interval:      interval,
		OutPath:       out,
		TransferStore: transferStore,
		VolumeStore:   volumeStore,
		OnCycle: func(result *indexer.BackfillResult) {
			fmt.Print(export.RenderSummary(wallet, result.Transfers))
		},
		Logger: logger,
	})

	if service {
		logger.Printf("Starting service mode for %s", wallet)
		return svc.Run(ctx)
	}

	_, err = svc.RunOnce(ctx)
	return err
}

// runWatch follows live transactions over a logs subscription.
func runWatch(ctx context.Context, logger *log.Logger, wallet, rpcEndpoint, wsEndpoint, postgresDSN string, useMemory bool) error {
	if wsEndpoint == "" {
		return fmt.Errorf("--ws-endpoint is required for watch mode")
	}

	rpc := solana.NewHTTPClient(rpcEndpoint)

	ws, err := solana.NewWSClient(ctx, wsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("create websocket client: %w", err)
	}
	defer ws.Close()

	transferStore, _, closeStores, err := openStores(ctx, postgresDSN, "", useMemory)
	if err != nil {
		return err
	}
	defer closeStores()

	watcher := indexer.NewWatcher(indexer.WatcherOptions{
		WS:     ws,
		RPC:    rpc,
		Store:  transferStore,
		Logger: logger,
	})

	logger.Printf("Starting watch mode for %s", wallet)
	return watcher.Run(ctx, wallet)
}
