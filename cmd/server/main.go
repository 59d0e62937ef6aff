package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/siaa/storage-rental/internal/config"
	"github.com/siaa/storage-rental/internal/database"
	"github.com/siaa/storage-rental/internal/handler"
	"github.com/siaa/storage-rental/internal/jobs"
	"github.com/siaa/storage-rental/internal/middleware"
	"github.com/siaa/storage-rental/internal/queue"
	"github.com/siaa/storage-rental/internal/repository"
	"github.com/siaa/storage-rental/internal/repository/memory"
	"github.com/siaa/storage-rental/internal/router"
	"github.com/siaa/storage-rental/internal/service"
	"github.com/siaa/storage-rental/internal/utils"
)

const appName = "siaa-api"

type notificationStore interface {
	handler.NotificationStore
	queue.NotificationWriter
}

// stores is the storage driver selected by STORE_DRIVER.
type stores struct {
	spaces        service.SpaceRepository
	bookings      service.BookingRepository
	locker        service.SpaceLocker
	reviews       service.ReviewRepository
	users         handler.UserStore
	tokens        handler.TokenStore
	notifications notificationStore
	db            *sql.DB
}

func openStores(cfg config.Config) stores {
	if cfg.StoreDriver == config.DriverMemory {
		utils.Logger.Warn("using in-memory store; data is lost on restart")
		m := memory.New()
		return stores{spaces: m, bookings: m, locker: m, reviews: m, users: m, tokens: m, notifications: m}
	}
	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass,
		Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		MaxOpenConns:    cfg.DBMaxOpen,
		MaxIdleConns:    cfg.DBMaxIdle,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		utils.Logger.WithError(err).Fatal("database connection failed")
	}
	bookings := repository.NewBookingRepo(db)
	return stores{
		spaces:        repository.NewSpaceRepo(db),
		bookings:      bookings,
		locker:        bookings,
		reviews:       repository.NewReviewRepo(db),
		users:         repository.NewUserRepo(db),
		tokens:        repository.NewTokenRepo(db),
		notifications: repository.NewNotificationRepo(db),
		db:            db,
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		utils.Logger.Debug("no .env file, using process environment")
	}
	utils.InitLogger(appName)
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := openStores(cfg)
	if st.db != nil {
		defer st.db.Close()
	}

	// ---- Events ----
	qc := config.LoadQueueConfig()
	var events service.EventPublisher
	if qc.Enabled {
		events = service.NewAMQPPublisher(qc.URL, qc.Queue)
		if qc.ConsumerEnabled {
			consumer := queue.NewConsumer(qc.URL, qc.Queue, st.notifications)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					utils.Logger.WithError(err).Error("booking consumer stopped")
				}
			}()
		}
	} else {
		utils.Logger.Info("RABBITMQ_URL not set; booking events disabled")
	}

	// ---- Services ----
	bookingSvc := service.NewBookingService(st.spaces, st.bookings, st.locker, st.users, events)
	reviewSvc := service.NewReviewService(st.bookings, st.reviews)
	spaceSvc := service.NewSpaceService(st.spaces)

	// ---- Status sweep ----
	if sc := config.LoadSweepConfig(); sc.Enabled {
		sweep, err := jobs.NewStatusSweep(sc, bookingSvc)
		if err != nil {
			utils.Logger.WithError(err).Fatal("failed to schedule status sweep")
		}
		sweep.Start()
		defer sweep.Stop()
		utils.Logger.WithField("schedule", sc.Schedule).Info("status sweep enabled")
	}

	// ---- HTTP ----
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = middleware.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.CORS(cfg.CORSOrigins))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	authH := handler.NewAuthHandler(cfg, st.users, st.tokens)
	spaceH := handler.NewSpaceHandler(spaceSvc, bookingSvc, reviewSvc)
	bookingH := handler.NewBookingHandler(bookingSvc, reviewSvc)
	dashH := handler.NewDashboardHandler(bookingSvc, reviewSvc)
	notifH := handler.NewNotificationHandler(st.notifications)

	var store handler.Pinger
	if st.db != nil {
		store = st.db
	}
	router.RegisterRoutes(e, store)
	router.RegisterAuth(e, authH, notifH, bookingH, cfg.JWTSecret)
	cc := config.LoadCacheConfig()
	router.RegisterPublic(e, spaceH,
		middleware.NewRedisCache(cc.WithTTL(cc.SearchTTL), rdb),
		middleware.NewRedisCache(cc.WithTTL(cc.DetailTTL), rdb))
	router.RegisterSeeker(e, bookingH, dashH, cfg.JWTSecret)
	router.RegisterProvider(e, spaceH, dashH, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		utils.Logger.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "store": cfg.StoreDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		utils.Logger.WithError(err).Error("graceful shutdown failed")
	}
	utils.Logger.Info("server stopped")
}
