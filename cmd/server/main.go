package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"telehealth-scheduler/internal/auth"
	"telehealth-scheduler/internal/config"
	"telehealth-scheduler/internal/handler"
	"telehealth-scheduler/internal/logger"
	"telehealth-scheduler/internal/middleware"
	"telehealth-scheduler/internal/service"
	"telehealth-scheduler/internal/store"
	"telehealth-scheduler/internal/telemetry"
	"telehealth-scheduler/internal/view"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logger.Init("telehealth-scheduler", "production")
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Init(cfg.OTEL.ServiceName, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTEL.Enabled {
		shutdown, err := telemetry.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.Endpoint)
		if err != nil {
			log.Fatal().Err(err).Msg("telemetry")
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				log.Error().Err(err).Msg("telemetry shutdown")
			}
		}()
		log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("tracing enabled")
	}

	// database
	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	st := store.New(pool)
	if err := st.Migrate(ctx, cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.MigrationsPath).Msg("migrate")
	}
	log.Info().Msg("migration applied")

	var sessions service.SessionRepository = st
	if cfg.Redis.URL != "" {
		rs, err := store.NewRedisSessions(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis")
		}
		defer rs.Close()
		sessions = rs
		log.Info().Msg("sessions in redis")
	} else {
		go purgeSessions(ctx, st, time.Hour)
	}

	// signing key lives for the process; a restart logs everyone out
	signer, err := auth.NewSigner()
	if err != nil {
		log.Fatal().Err(err).Msg("session key")
	}

	creds := service.NewCredentials(st)
	embed := service.NewEmbedCode(st, cfg.Policy.LockSetup)
	sched := service.NewScheduler(st, embed, service.SchedulerOptions{RejectPastStart: cfg.Policy.RejectPastStart})

	rl := middleware.NewRateLimiter(cfg.Limit.RPS, cfg.Limit.Burst)
	defer rl.Stop()

	h := handler.New(creds, service.NewSessions(sessions, creds, signer, cfg.Session.TTL), sched, embed, rl)
	h.SecureCookie = !cfg.Development()

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Tracing())
	if len(cfg.Server.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Server.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			AllowCredentials: true,
		}))
	}
	tmpl, err := view.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("templates")
	}
	r.SetHTMLTemplate(tmpl)
	h.Routes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http")
			stop()
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
}

func purgeSessions(ctx context.Context, st *store.Store, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		n, err := st.PurgeSessions(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Warn().Err(err).Msg("purge sessions")
		case n > 0:
			log.Debug().Int64("removed", n).Msg("purged expired sessions")
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
