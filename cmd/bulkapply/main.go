package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"hotel_rates/internal/adapters/channels"
	"hotel_rates/internal/adapters/observability"
	redisad "hotel_rates/internal/adapters/redis"
	"hotel_rates/internal/app"
	"hotel_rates/internal/domain"
	"hotel_rates/internal/engine"
	"hotel_rates/internal/shared"
	mysqlrepo "hotel_rates/internal/storage/mysql"
)

// bulkapply runs one batch operation from the command line. With -apply
// unset it previews only; the preview summary is exactly what the apply
// would report against the same state.
func main() {
	var (
		hotelID  = flag.Int64("hotel", 0, "hotel id (required)")
		category = flag.String("category", "", "room category filter")
		roomsCSV = flag.String("rooms", "", "explicit room ids, comma separated")
		start    = flag.String("start", "", "start date YYYY-MM-DD (required)")
		end      = flag.String("end", "", "end date YYYY-MM-DD (required)")
		kind     = flag.String("op", "set_price", "operation: set_price | apply_rules")
		mode     = flag.String("mode", "fixed", "price mode: fixed | base_amount | base_percent")
		value    = flag.String("value", "0", "price value (decimal)")
		groupKey = flag.String("group-key", "", "group key tag for written overrides")
		override = flag.Bool("override-existing", false, "rewrite cells holding an individual override")
		nights   = flag.Int("nights", 1, "booking-context nights for rule matching")
		apply    = flag.Bool("apply", false, "persist changes (default: preview only)")
	)
	flag.Parse()

	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)

	if *hotelID == 0 || *start == "" || *end == "" {
		log.Fatal().Msg("-hotel, -start and -end are required")
	}
	startDate, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -start")
	}
	endDate, err := time.Parse(time.DateOnly, *end)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -end")
	}
	val, err := decimal.NewFromString(*value)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -value")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	eng := engine.New(repo, repo, repo, cfg.Workers)

	var dist domain.RateDistributor
	if cfg.ChannelBase != "" && cfg.ChannelKey != "" {
		cl, cerr := channels.New(cfg.ChannelBase, cfg.ChannelKey, cfg.ChannelRPS)
		if cerr != nil {
			log.Fatal().Err(cerr).Msg("failed to initialize channel client")
		}
		dist = cl
	}
	cmds := app.NewCommandService(eng, repo, repo, cache, dist)

	target := domain.BatchTarget{
		HotelID:   *hotelID,
		RoomIDs:   parseRoomIDs(*roomsCSV),
		StartDate: startDate,
		EndDate:   endDate,
	}
	if *category != "" {
		target.Category = category
	}
	op := domain.BatchOperation{
		Kind:             domain.BatchOpKind(*kind),
		Mode:             domain.PriceMode(*mode),
		Value:            val,
		OverrideExisting: *override,
		ApplyToExisting:  *apply,
		GroupKey:         *groupKey,
		Nights:           *nights,
	}

	log.Info().
		Int64("hotel", *hotelID).
		Str("op", *kind).
		Bool("apply", *apply).
		Time("start", startDate).
		Time("end", endDate).
		Msg("bulkapply starting")

	var res domain.BatchResult
	if *apply {
		res, err = cmds.ApplyBatch(ctx, target, op)
	} else {
		res, err = cmds.PreviewBatch(ctx, target, op)
	}
	if err != nil {
		log.Warn().Err(err).Msg("batch did not run to completion")
	}

	for _, c := range res.Cells {
		if c.Outcome == domain.OutcomeFailed {
			log.Warn().
				Int64("room", c.RoomID).
				Time("date", c.Date).
				Str("error", c.Error).
				Msg("cell failed")
		}
	}
	log.Info().
		Int("rooms_affected", res.RoomsAffected).
		Int("rates_created", res.RatesCreated).
		Int("rates_updated", res.RatesUpdated).
		Int("rates_skipped", res.RatesSkipped).
		Int("rates_failed", res.RatesFailed).
		Msg("bulkapply finished")
}

func parseRoomIDs(csv string) []int64 {
	if csv == "" {
		return nil
	}
	var out []int64
	for _, p := range strings.Split(csv, ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}
