package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/router"
	"github.com/iliyamo/table-reservation/internal/service"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reservation event consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			db, err := database.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if migrateUp {
				if err := runMigrations(ctx, db, log); err != nil {
					return err
				}
			}

			rl := config.LoadRateLimitConfig()
			redisCfg := config.LoadRedisConfig()
			rdb := config.NewRedisClient(redisCfg)
			if rdb == nil {
				log.WithField("addr", redisCfg.Addr).Warn("redis unreachable, rate limiting and caching disabled")
			} else {
				defer rdb.Close()
			}

			var (
				events service.EventPublisher
				wg     sync.WaitGroup
			)
			if cfg.EventsEnabled {
				pub := queue.NewPublisher(cfg.AMQPURL, log)
				defer pub.Close()
				events = pub

				consumer := &queue.Consumer{URL: cfg.AMQPURL, LogPath: cfg.EventLogPath, Log: log}
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = consumer.Run(ctx)
				}()
			}

			users := repository.NewUserRepo(db)
			tokens := repository.NewTokenRepo(db)
			restaurants := repository.NewRestaurantRepo(db)
			holidays := repository.NewHolidayRepo(db)
			reservations := service.NewReservations(service.NewSQLStore(db), cfg.Location, events)

			e := router.New(router.Deps{
				Auth:         handler.NewAuthHandler(cfg, users, tokens),
				Users:        handler.NewUserHandler(users),
				Restaurants:  handler.NewRestaurantHandler(restaurants, reservations),
				Holidays:     handler.NewHolidayHandler(holidays, restaurants, reservations),
				Reservations: handler.NewReservationHandler(reservations),
				Reports:      handler.NewReportHandler(repository.NewReportRepo(db)),
				DB:           db,
				JWTSecret:    cfg.JWTSecret,
				Redis:        rdb,
				RateLimit:    rl,
				BookingLimit: config.LoadBookingRateLimitConfig(rl),
				Cache:        config.LoadCacheConfig(),
				Log:          log,
			})

			errc := make(chan error, 1)
			go func() {
				log.WithFields(logrus.Fields{"addr": ":" + cfg.Port, "env": cfg.Env, "version": Version}).Info("listening")
				errc <- e.Start(":" + cfg.Port)
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					cancel()
					wg.Wait()
					return err
				}
			case <-ctx.Done():
				log.Info("shutting down")
			}

			sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer scancel()
			err = e.Shutdown(sctx)
			cancel()
			wg.Wait()
			return err
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", false, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
