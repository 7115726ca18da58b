package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"hotel_rates/internal/adapters/channels"
	server "hotel_rates/internal/adapters/http_server"
	"hotel_rates/internal/adapters/observability"
	redisad "hotel_rates/internal/adapters/redis"
	"hotel_rates/internal/app"
	"hotel_rates/internal/domain"
	"hotel_rates/internal/engine"
	"hotel_rates/internal/shared"
	mysqlrepo "hotel_rates/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	eng := engine.New(repo, repo, repo, cfg.Workers)

	var dist domain.RateDistributor
	if cfg.ChannelBase != "" && cfg.ChannelKey != "" {
		cl, err := channels.New(cfg.ChannelBase, cfg.ChannelKey, cfg.ChannelRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize channel client")
		}
		dist = cl
	}

	q := app.NewQueryService(eng, cache, cfg.CacheTTL)
	c := app.NewCommandService(eng, repo, repo, cache, dist)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, C: c})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("rates API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
