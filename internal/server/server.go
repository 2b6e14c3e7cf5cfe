package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/mathduel/mathduel/internal/api"
	"github.com/mathduel/mathduel/internal/bus"
	"github.com/mathduel/mathduel/internal/event"
	"github.com/mathduel/mathduel/internal/round"
	"github.com/mathduel/mathduel/internal/telemetry"
	"github.com/mathduel/mathduel/internal/token"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Redis struct {
		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Token struct {
		Key string
		TTL time.Duration
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			pubsub redis.UniversalClient
		}
	}

	service struct {
		bus   *bus.Bus
		token *token.Service
	}

	api  *api.API
	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Pubsub.Addrs,
		Password: s.c.Redis.Pubsub.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return err
	}

	s.infra.redis.pubsub = r
	return nil
}

func (s *Server) initService() {
	s.service.bus = bus.New(bus.Config{
		Redis:  s.infra.redis.pubsub,
		Prefix: s.c.Redis.Pubsub.Prefix,
	})

	s.service.token = token.NewService(token.Config{
		Key: s.c.Token.Key,
		TTL: s.c.Token.TTL,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	e.HandleMethodNotAllowed = true
	e.NoMethod(api.MethodNotAllowed)

	s.api = api.New(api.Config{
		Router:    e,
		EventBus:  s.eb,
		Bus:       s.service.bus,
		Generator: round.NewGenerator(),
		Token:     s.service.token,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	if err := s.infra.redis.pubsub.Close(); err != nil {
		slog.ErrorContext(ctx, "server: close redis failed", "error", err)
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
