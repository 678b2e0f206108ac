package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/nrednav/cuid2"
	"github.com/prometheus/client_golang/prometheus"
	"uk.co.dudmesh.liveusers/internal/boot"
	"uk.co.dudmesh.liveusers/internal/broadcast"
	"uk.co.dudmesh.liveusers/internal/handlers"
	"uk.co.dudmesh.liveusers/internal/presence"
	presencerouter "uk.co.dudmesh.liveusers/internal/service/presence"
	"uk.co.dudmesh.liveusers/internal/service/reconcile"
	"uk.co.dudmesh.liveusers/internal/service/user"
	"uk.co.dudmesh.liveusers/internal/session"
	"uk.co.dudmesh.liveusers/internal/userstore"
)

func registerGauges(hub *broadcast.Hub, cache *presence.Cache) {
	prometheus.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "liveusers",
			Name:      "presence_entries",
			Help:      "Number of users held in the presence cache",
		}, func() float64 { return float64(cache.Len()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "liveusers",
			Name:      "connections",
			Help:      "Number of open websocket connections",
		}, func() float64 { return float64(hub.Count()) }),
	)
}

func main() {
	config, err := boot.Load()
	if err != nil {
		log.Fatalf("boot: %+v", err)
	}

	logger := log.New("liveusers")
	logger.SetLevel(log.INFO)
	if config.IsDevelopment() {
		logger.SetLevel(log.DEBUG)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := userstore.Open(ctx, config)
	if err != nil {
		log.Fatalf("opening user store: %+v", err)
	}

	hub := broadcast.NewHub(logger)

	cache, err := presence.New(hub)
	if err != nil {
		log.Fatalf("creating presence cache: %+v", err)
	}

	metrics, err := reconcile.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("registering metrics: %+v", err)
	}
	registerGauges(hub, cache)

	engine := reconcile.New(store, cache, config.Sync.Interval, metrics, logger)
	if n, err := engine.Seed(ctx); err != nil {
		logger.Errorf("initial cache load failed: %+v", err)
	} else {
		logger.Infof("loaded %d users into presence cache", n)
	}
	go engine.Run(ctx)

	issuer := session.NewIssuer(config.Session.Secret, config.Session.TTL)
	var verifier presencerouter.TokenVerifier
	if config.Session.Enforce {
		if !issuer.Enabled() {
			log.Fatal("SESSION_ENFORCE requires SESSION_SECRET")
		}
		verifier = issuer
	}

	userService := user.New(store, cache, issuer, config.Auth.BcryptCost, logger)
	router := presencerouter.New(cache, engine, hub, verifier, logger)

	server := echo.New()
	server.HideBanner = config.IsProduction()
	server.Debug = config.IsDevelopment()
	server.Use(middleware.BodyLimit("1M"))
	server.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return cuid2.Generate()
		},
	}))
	server.Use(echoprometheus.NewMiddleware("liveusers"))
	server.Use(middleware.Recover())

	server.Logger.SetLevel(logger.Level())

	headers := []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID}
	server.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     config.AllowedOrigins(),
		AllowHeaders:     headers,
		AllowCredentials: true,
	}))

	server.Static("/static", config.Server.StaticDir)

	server.GET("/", handlers.Liveness())
	server.POST("/users", handlers.CreateUser(userService))
	server.GET("/users", handlers.ListUsers(userService))
	server.GET("/users/:id", handlers.GetUser(userService))
	server.GET("/sync-users", handlers.SyncUsers(engine, cache))
	server.POST("/auth/login", handlers.Login(userService))
	server.POST("/auth/logout", handlers.Logout(router))
	server.GET("/ws", handlers.Socket(hub, router, logger))

	metricsServer := echo.New()
	metricsServer.HideBanner = true
	metricsServer.GET("/metrics", echoprometheus.NewHandler())
	go func() {
		if err := metricsServer.Start(":" + config.Server.MetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	go func() {
		if err := server.Start(":" + config.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		server.Logger.Error(err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		server.Logger.Error(err)
	}

	hub.Close()
	cache.Close()
	if err := store.Close(); err != nil {
		logger.Errorf("closing user store: %+v", err)
	}
}
