package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/oddsline/amm-engine/internal/bank"
	"github.com/oddsline/amm-engine/internal/config"
	"github.com/oddsline/amm-engine/internal/liquidity"
	"github.com/oddsline/amm-engine/internal/market"
	"github.com/oddsline/amm-engine/internal/metrics"
	"github.com/oddsline/amm-engine/internal/oracle"
	"github.com/oddsline/amm-engine/internal/pool"
	"github.com/oddsline/amm-engine/internal/pricing"
	"github.com/oddsline/amm-engine/internal/risk"
	"github.com/oddsline/amm-engine/internal/service"
	"github.com/oddsline/amm-engine/internal/settlement"
	"github.com/oddsline/amm-engine/internal/store"
	"github.com/oddsline/amm-engine/internal/token"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pgPool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pgPool.Close)
		st = store.NewPostgresStore(pgPool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Market lifecycle and anchor oracle ---
	now := time.Now()
	timedMarket := market.NewTimedMarket(now.Add(cfg.MarketExpiry), cfg.DisputeWindow, cfg.TimeoutOutcome)

	fixedAnchor := oracle.NewFixed(cfg.AnchorPrice)
	anchor := oracle.NewSwitchable(cfg.Owner, fixedAnchor)

	// --- Risk engine ---
	riskEngine, err := risk.NewEngine(cfg.Owner, risk.Params{
		DivergenceCeiling: cfg.DivergenceCeiling,
		TimeCeiling:       cfg.TimeCeiling,
		LiquidityTarget:   cfg.LiquidityTarget,
		WDiv:              cfg.WDiv,
		WTime:             cfg.WTime,
		WLiq:              cfg.WLiq,
		FeeMinBps:         cfg.FeeMinBps,
		FeeMaxBps:         cfg.FeeMaxBps,
		BaseMaxTrade:      cfg.BaseMaxTrade,
		DepthSensitivity:  cfg.DepthSensitivity,
	})
	if err != nil {
		slog.Error("invalid risk parameters", "err", err)
		os.Exit(1)
	}

	// --- Ledgers, collateral bank, shared pool state ---
	yesLedger, yesAuth := token.NewLedger("YES")
	noLedger, noAuth := token.NewLedger("NO")
	lpLedger, lpAuth := token.NewLedger("LP")
	treasury := bank.NewMemoryBank()

	state := pool.NewState(cfg.InitialPrice)
	guard := pool.NewGuard()

	// --- Engine components ---
	core := pricing.NewCore(pricing.Config{
		PoolAccount:     cfg.PoolAccount,
		FeeRecipient:    cfg.FeeRecipient,
		BandWidth:       cfg.BandWidth,
		DepthMultiplier: cfg.DepthMultiplier,
		MinBaseDepth:    cfg.MinBaseDepth,
	}, state, guard, riskEngine, anchor, timedMarket, treasury, yesLedger, yesAuth, noLedger, noAuth)

	lpool := liquidity.NewPool(cfg.PoolAccount, state, guard, treasury, lpLedger, lpAuth)
	settle := settlement.NewEngine(cfg.PoolAccount, state, guard, treasury, timedMarket, yesLedger, yesAuth, noLedger, noAuth)

	// --- WebSocket hub ---
	wsHub := service.NewHub()
	go wsHub.Run()

	// --- HTTP service ---
	svc := service.NewService(core, lpool, settle, riskEngine, st, cfg.Owner, wsHub).
		WithAdmin(timedMarket, fixedAnchor, treasury)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"amm-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", svc.RegisterRoutes)

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("amm-engine listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down amm-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("amm-engine stopped")
}
