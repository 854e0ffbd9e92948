package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/library-desk/library/config"
	"github.com/Astemirdum/library-desk/library/internal/handler"
	"github.com/Astemirdum/library-desk/library/internal/repository"
	"github.com/Astemirdum/library-desk/library/internal/server"
	"github.com/Astemirdum/library-desk/library/internal/service"
	"github.com/Astemirdum/library-desk/library/migrations"
	"github.com/Astemirdum/library-desk/pkg/circuit_breaker"
	"github.com/Astemirdum/library-desk/pkg/kafka"
	"github.com/Astemirdum/library-desk/pkg/logger"
	"github.com/Astemirdum/library-desk/pkg/postgres"
)

const (
	cbRecordLength     = 20
	cbTimeout          = 30 * time.Second
	cbPercentile       = 0.5
	cbRecoveryRequests = 3
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "library")
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := newRepository(ctx, cfg, log)
	if err != nil {
		log.Fatal("repository init", zap.Error(err))
	}
	defer closeRepo()

	events, closeEvents := newEnqueuer(cfg.Kafka, log)
	defer closeEvents()

	svc := service.NewService(repo, log,
		service.WithEvents(events),
		service.WithFinePolicy(service.FinePolicy{
			GraceDays:  cfg.Fines.GraceDays,
			RatePerDay: cfg.Fines.RatePerDay,
		}),
	)
	if err = svc.Load(ctx); err != nil {
		log.Fatal("load catalog", zap.Error(err))
	}

	g, gCtx := errgroup.WithContext(ctx)

	console := handler.NewConsole(svc, handler.Credentials{
		AdminUser:      cfg.Desk.AdminUser,
		AdminPassword:  cfg.Desk.AdminPassword,
		MemberPassword: cfg.Desk.MemberPassword,
	}, os.Stdin, os.Stdout, log)
	g.Go(func() error {
		defer stop()
		return console.Run(gCtx)
	})

	if cfg.Server.Enabled {
		srv := server.NewServer(cfg.Server, handler.New(svc, log).NewRouter())
		log.Info("http server start ON: ",
			zap.String("addr",
				net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
		g.Go(srv.Run)
		g.Go(func() error {
			<-gCtx.Done()
			closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			return srv.Stop(closeCtx)
		})
	}

	if err = g.Wait(); err != nil {
		log.Error("desk stopped", zap.Error(err))
	}
	log.Info("Graceful shutdown finished")
}

func newRepository(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Repository, func(), error) {
	switch cfg.Store.Driver {
	case config.StoragePostgres:
		db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
		if err != nil {
			return nil, nil, errors.Wrap(err, "db init")
		}
		repo, err := repository.NewPostgresRepository(db, log)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return repo, closeDB(db, log), nil
	default:
		repo, err := repository.NewFileRepository(cfg.Store.Path, log)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}
}

func closeDB(db *sqlx.DB, log *zap.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Warn("db close", zap.Error(err))
		}
	}
}

// newEnqueuer falls back to dropping events when kafka is not configured or unreachable.
func newEnqueuer(cfg kafka.Config, log *zap.Logger) (kafka.Enqueuer, func()) {
	if !cfg.Enabled() {
		return kafka.NopEnqueuer{}, func() {}
	}
	producer, err := kafka.NewProducer(cfg)
	if err != nil {
		log.Warn("kafka producer unavailable, circulation events disabled", zap.Error(err))
		return kafka.NopEnqueuer{}, func() {}
	}
	cb := circuit_breaker.New(cbRecordLength, cbTimeout, cbPercentile, cbRecoveryRequests)
	return kafka.NewEnqueuer(producer, cb), func() {
		if err := producer.Close(); err != nil {
			log.Warn("kafka producer close", zap.Error(err))
		}
	}
}
