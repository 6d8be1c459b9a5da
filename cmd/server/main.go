// Command server runs the Brain-O-Math registration backend.
//
// Storage, the sequence allocator and the audit publisher are selected by
// configuration: with DATABASE_URL, REDIS_URL and KAFKA_BROKERS unset the
// process runs entirely in memory, which is the development mode.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	adminhandler "github.com/Dibyendu78/Brain-O-Math/internal/adminreview/handler"
	adminservice "github.com/Dibyendu78/Brain-O-Math/internal/adminreview/service"
	"github.com/Dibyendu78/Brain-O-Math/internal/audit"
	coordhandler "github.com/Dibyendu78/Brain-O-Math/internal/coordinator/handler"
	coordservice "github.com/Dibyendu78/Brain-O-Math/internal/coordinator/service"
	coordstore "github.com/Dibyendu78/Brain-O-Math/internal/coordinator/store"
	"github.com/Dibyendu78/Brain-O-Math/internal/notify"
	"github.com/Dibyendu78/Brain-O-Math/internal/platform/config"
	"github.com/Dibyendu78/Brain-O-Math/internal/platform/httpserver"
	"github.com/Dibyendu78/Brain-O-Math/internal/platform/logger"
	"github.com/Dibyendu78/Brain-O-Math/internal/platform/metrics"
	"github.com/Dibyendu78/Brain-O-Math/internal/platform/middleware"
	platformredis "github.com/Dibyendu78/Brain-O-Math/internal/platform/redis"
	reghandler "github.com/Dibyendu78/Brain-O-Math/internal/registration/handler"
	regservice "github.com/Dibyendu78/Brain-O-Math/internal/registration/service"
	regstore "github.com/Dibyendu78/Brain-O-Math/internal/registration/store"
	"github.com/Dibyendu78/Brain-O-Math/internal/revenue"
	"github.com/Dibyendu78/Brain-O-Math/internal/sequence"
	"github.com/Dibyendu78/Brain-O-Math/internal/storage/postgres"
	"github.com/Dibyendu78/Brain-O-Math/internal/token"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	// storage
	var (
		coordinators  coordstore.Store
		registrations regstore.RegistrationStore
		students      regstore.StudentStore
		ledger        revenue.Store
		auditLog      audit.Store
	)
	if cfg.PostgresURL != "" {
		db, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("postgres unavailable", "error", err)
			return err
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Error("schema setup failed", "error", err)
			return err
		}
		coordinators = coordstore.NewPostgres(db)
		registrations = regstore.NewPostgresRegistrations(db)
		students = regstore.NewPostgresStudents(db)
		ledger = revenue.NewPostgres(db)
		auditLog = audit.NewPostgresStore(db)
		log.Info("storage: postgres")
	} else {
		coordinators = coordstore.NewInMemory()
		registrations = regstore.NewInMemoryRegistrations()
		students = regstore.NewInMemoryStudents()
		ledger = revenue.NewInMemory()
		auditLog = audit.NewInMemoryStore()
		log.Info("storage: in-memory")
	}

	// student ID sequence, seeded past anything already issued
	maxSeq, err := students.MaxSequence(ctx)
	if err != nil {
		log.Error("failed to read issued student ids", "error", err)
		return err
	}
	var allocator sequence.Allocator
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		redisSeq := sequence.NewRedis(redisClient)
		if err := redisSeq.SeedIfLower(ctx, maxSeq); err != nil {
			log.Error("failed to seed sequence", "error", err)
			return err
		}
		allocator = redisSeq
		log.Info("sequence: redis")
	} else {
		allocator = sequence.NewMemory(maxSeq)
		log.Info("sequence: in-memory")
	}

	// background workers
	dispatcher := notify.NewDispatcher(notify.LogSender{Logger: log}, log, m,
		cfg.NotifyQueueSize, cfg.NotifyTimeout)
	recorder := audit.NewRecorder(log, cfg.NotifyQueueSize)
	var publisher audit.Publisher
	if kafka, err := audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic); err != nil {
		log.Error("kafka unavailable", "error", err)
		return err
	} else if kafka != nil {
		defer kafka.Close()
		publisher = kafka
		log.Info("audit publisher: kafka", "topic", cfg.KafkaTopic)
	}
	auditWorker := audit.NewWorker(recorder, auditLog, publisher, log)

	// services
	tokens := token.NewService(cfg.JWTSigningKey, cfg.TokenTTL)
	coordSvc := coordservice.New(coordinators, tokens, dispatcher, log)
	regSvc := regservice.New(registrations, students, coordinators, coordSvc,
		allocator, dispatcher, m, log)
	adminSvc := adminservice.New(registrations, students, coordinators, ledger,
		recorder, auditLog, dispatcher, tokens, m, log,
		cfg.AdminEmail, cfg.AdminPassword)

	// router
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Latency(m))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Mount("/coordinator", coordhandler.New(coordSvc, tokens, log).Routes())
		r.Mount("/registration", reghandler.New(regSvc, tokens, log).Routes())
		r.Mount("/admin", adminhandler.New(adminSvc, tokens, log).Routes())
	})

	server := httpserver.New(cfg.Addr, r)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return dispatcher.Run(groupCtx) })
	group.Go(func() error { return auditWorker.Run(groupCtx) })
	group.Go(func() error {
		log.Info("listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		return err
	}
	log.Info("shutdown complete")
	return nil
}
