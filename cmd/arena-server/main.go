package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/archive"
	"github.com/park285/cheese-arena/internal/broadcast"
	appcfg "github.com/park285/cheese-arena/internal/config"
	"github.com/park285/cheese-arena/internal/gateway"
	"github.com/park285/cheese-arena/internal/httpapi"
	"github.com/park285/cheese-arena/internal/match"
	"github.com/park285/cheese-arena/internal/msgcat"
	"github.com/park285/cheese-arena/internal/obslog"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	cat, err := msgcat.New(cfg.MsgTemplateDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := match.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis init error: %v", err)
	}
	defer rdb.Close()

	store := match.NewStore(rdb, time.Duration(cfg.SessionTTLSec)*time.Second)
	reg := match.NewRegistry(store)
	pub := broadcast.NewRedisPublisher(rdb)
	defer pub.Close()

	var opts []match.Option
	if cfg.DatabaseURL != "" {
		repo, err := archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
		defer repo.Close()
		opts = append(opts, match.WithArchiver(repo))
	}

	var mgr *match.Manager
	if cfg.DisconnectGraceSec > 0 {
		grace := time.Duration(cfg.DisconnectGraceSec) * time.Second
		opts = append(opts, match.WithDisconnectPolicy(func(s *match.Session, leaver match.Color, _ time.Time) bool {
			sessionID, userID := s.ID, s.PlayerID(leaver)
			time.AfterFunc(grace, func() {
				if err := mgr.ForfeitDisconnected(context.Background(), sessionID, userID); err != nil {
					obslog.L().Warn("forfeit_check_error", zap.String("session_id", sessionID), zap.Error(err))
				}
			})
			return false
		}))
	}
	mgr = match.NewManager(reg, pub, cat, opts...)

	mux := http.NewServeMux()
	httpapi.NewServer(mgr).Register(mux)
	gateway.NewHub(rdb, mgr).Register(mux)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Fatal("server_error", zap.Error(err))
		}
	}()
	obslog.L().Info("server_start",
		zap.String("addr", cfg.ListenAddr),
		zap.Bool("archive", cfg.DatabaseURL != ""),
		zap.Int("disconnect_grace_sec", cfg.DisconnectGraceSec),
	)

	<-ctx.Done()
	obslog.L().Info("server_shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		obslog.L().Warn("server_shutdown_error", zap.Error(err))
	}
}
