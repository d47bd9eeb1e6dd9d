package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"worktrust/internal/admin"
	credentialhandler "worktrust/internal/credential/handler"
	fraudhandler "worktrust/internal/fraud/handler"
	jwttoken "worktrust/internal/jwt_token"
	"worktrust/internal/platform/httpserver"
	"worktrust/internal/platform/metrics"
	"worktrust/internal/platform/scheduler"
	"worktrust/internal/proof"
	"worktrust/internal/ratelimit"
	reputationhandler "worktrust/internal/reputation/handler"
	verificationhandler "worktrust/internal/verification/handler"
	"worktrust/pkg/platform/httputil"
	adminmw "worktrust/pkg/platform/middleware/admin"
	authmw "worktrust/pkg/platform/middleware/auth"
	"worktrust/pkg/platform/middleware/metadata"
	"worktrust/pkg/platform/middleware/request"
	"worktrust/pkg/platform/middleware/requesttime"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the WorkTrust HTTP API.

Backends are chosen from WORKTRUST_* variables: postgres when
WORKTRUST_DATABASE_URL is set, Redis for the revocation list when
WORKTRUST_REDIS_URL is set, and a Kafka audit stream when
WORKTRUST_KAFKA_BROKERS is set. Anything unset falls back to memory.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		// Seed the fast revocation list from the durable store so a fresh
		// Redis never reports a revoked credential as valid.
		if n, err := a.credentials.SyncRevocations(ctx); err != nil {
			log.Warn("revocation sync failed", "error", err)
		} else {
			log.Info("revocation list synced", "count", n)
		}

		srv := httpserver.New(cfg.Server.Addr, a.router())

		var sched *scheduler.Scheduler
		if cfg.Sweep.Enabled {
			sched = scheduler.New(log)
			if err := sched.Add("reverify_expired", cfg.Sweep.Schedule, a.sweep); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info("starting worktrust", "addr", cfg.Server.Addr, "environment", cfg.Server.Environment)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		if a.auditConsumer != nil {
			g.Go(func() error {
				return a.auditConsumer.Run(gctx)
			})
		}
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			log.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		})

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func (a *app) sweep(ctx context.Context) error {
	result, err := a.verification.ReVerifyExpired(ctx, time.Now())
	if err != nil {
		return err
	}
	a.logger.Info("sweep finished",
		"examined", result.Examined,
		"reverified", result.Reverified,
		"failed", len(result.Errors),
	)
	return nil
}

// router mounts the public, holder and admin surfaces.
func (a *app) router() http.Handler {
	httpMetrics := metrics.NewHTTP(a.registry)

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(httpMetrics.Middleware)

	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(
		prometheus.Gatherers{prometheus.DefaultGatherer, a.registry},
		promhttp.HandlerOpts{},
	))

	credentials := credentialhandler.New(a.credentials, proof.KeySet(a.signer), a.logger)
	r.Group(func(r chi.Router) {
		if a.cfg.RateLimit.Enabled {
			limits := ratelimit.New(a.rateLimits, a.logger, ratelimit.WithLimit(a.cfg.RateLimit.Limit, a.cfg.RateLimit.Window))
			r.Use(limits.PerIP("public"))
		}
		credentials.RegisterPublic(r)
	})

	tokens := jwttoken.NewJWTService(a.cfg.Auth.TokenSecret, a.cfg.Auth.TokenIssuer, a.cfg.Auth.TokenAudience)
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(jwttoken.NewJWTServiceAdapter(tokens), a.logger))
		verificationhandler.New(a.verification, a.logger).Register(r)
		fraudhandler.New(a.fraud, a.verification, a.logger).Register(r)
		reputationhandler.New(a.reputation, a.logger).Register(r)
		credentials.Register(r)
		credentialhandler.NewProfileHandler(a.profiles, a.logger).Register(r)
	})

	if a.cfg.Auth.AdminToken != "" {
		r.Group(func(r chi.Router) {
			r.Use(adminmw.RequireAdminToken(a.cfg.Auth.AdminToken, a.logger))
			admin.New(a.verification, a.credentials, a.auditReader, a.logger).Register(r)
		})
	} else {
		a.logger.Info("admin token not set, admin routes disabled")
	}
	return r
}

// handleHealth pings each configured backend.
func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	check := func(name string, err error) {
		if err != nil {
			healthy = false
			checks[name] = err.Error()
			return
		}
		checks[name] = "ok"
	}
	if a.db != nil {
		check("postgres", a.db.PingContext(ctx))
	}
	if a.redis != nil {
		check("redis", a.redis.Health(ctx))
	}
	if a.producer != nil {
		check("kafka", a.producer.Ping(ctx))
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, map[string]any{"healthy": healthy, "checks": checks})
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
