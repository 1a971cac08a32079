package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tomikjetu/vpwa26/internal/archive"
	"github.com/tomikjetu/vpwa26/internal/bus"
	"github.com/tomikjetu/vpwa26/internal/config"
	"github.com/tomikjetu/vpwa26/internal/engine"
	"github.com/tomikjetu/vpwa26/internal/logger"
	"github.com/tomikjetu/vpwa26/internal/notify"
	"github.com/tomikjetu/vpwa26/internal/rabbitmq"
	"github.com/tomikjetu/vpwa26/internal/state"
	"github.com/tomikjetu/vpwa26/internal/telemetry"
	"github.com/tomikjetu/vpwa26/internal/transport"
)

const serviceName = "vpwa26-engine"

func main() {
	cfg := config.Load()
	log := logger.New("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTLPEndpoint, serviceName, cfg.AppEnv, log)
	if err != nil {
		log.Fatalw("tracing setup failed", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger.New("rabbitmq"))
	defer publisher.Close()
	log.Infow("audit publisher ready", "mode", rabbitmq.PublisherMode(publisher))
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, serviceName, cfg.AppEnv, logger.New("telemetry"))

	store := state.New()
	session := state.NewSession()
	eventBus := bus.New()

	if cfg.ArchiveDSN != "" {
		db, err := archive.Connect(cfg.ArchiveDSN, logger.New("archive"))
		if err != nil {
			log.Fatalw("archive setup failed", "error", err)
		}
		defer db.Close()
		archive.NewRecorder(archive.NewRepo(db), eventBus, logger.New("archive"))
	}

	var creds engine.Credentials = engine.NewTokenFile(cfg.TokenFile)
	if cfg.Token != "" {
		creds = engine.NewStaticCredentials(cfg.Token)
	}

	socket := transport.NewSocket(cfg.ServerURL, logger.New("transport"), transport.SocketOptions{
		ReconnectInitial: cfg.ReconnectInitial,
		ReconnectMax:     cfg.ReconnectMax,
		Reconnect:        true,
	})

	eng := engine.New(engine.Options{
		Transport:   socket,
		Store:       store,
		Session:     session,
		Bus:         eventBus,
		Notifier:    &notify.LogNotifier{Log: logger.New("notify")},
		Visibility:  notify.StaticVisibility(true),
		Credentials: creds,
		Audit:       audit,
		Log:         logger.New("engine"),
	})

	srv := debugServer(cfg, eng, store, session, audit)
	go func() {
		log.Infow("debug server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("debug server error", "error", err)
		}
	}()

	if err := eng.Connect(ctx); err != nil {
		log.Fatalw("connect failed", "error", err)
	}

	<-ctx.Done()
	log.Infow("shutting down")
	_ = eng.Disconnect()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// debugServer exposes health, metrics and a read-only view of the local
// model. It never mutates engine state.
func debugServer(cfg config.Config, eng *engine.Engine, store *state.Store, session *state.Session, audit *telemetry.AuditEmitter) *http.Server {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"connected": eng.Connected(),
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/debug/state", func(c *gin.Context) {
		user, _ := session.User()
		c.JSON(http.StatusOK, gin.H{
			"user":        user,
			"connected":   eng.Connected(),
			"openChannel": store.OpenChannelID(),
			"channels":    store.Channels(),
			"invites":     store.Invites(),
		})
	})

	router.POST("/debug/audit-test", func(c *gin.Context) {
		audit.Emit(c.Request.Context(), "INFO", "audit test event", session.UserID())
		c.JSON(http.StatusOK, gin.H{"session_id": audit.SessionID()})
	})

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}
