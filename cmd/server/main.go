package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/example/sscs-hearings-service/internal/adapter/httpapi"
	"github.com/example/sscs-hearings-service/internal/adapter/memstore"
	"github.com/example/sscs-hearings-service/internal/adapter/natsstan"
	"github.com/example/sscs-hearings-service/internal/adapter/redisstore"
	"github.com/example/sscs-hearings-service/internal/adapter/repo"
	"github.com/example/sscs-hearings-service/internal/adapter/sqlitestore"
	"github.com/example/sscs-hearings-service/internal/config"
	"github.com/example/sscs-hearings-service/internal/dispatch"
	"github.com/example/sscs-hearings-service/internal/domain"
	"github.com/example/sscs-hearings-service/internal/emit"
	"github.com/example/sscs-hearings-service/internal/handlers"
	"github.com/example/sscs-hearings-service/internal/hearing"
	"github.com/example/sscs-hearings-service/internal/log"
	"github.com/example/sscs-hearings-service/internal/usecase"
)

type caseStore interface {
	domain.CaseStore
	domain.CaseSeeder
}

// App — собранные компоненты сервиса.
type App struct {
	cfg      config.Config
	store    caseStore
	server   *httpapi.Server
	consumer *hearing.Consumer
	bus      *emit.MemoryBus
	closers  []func()
	logger   zerolog.Logger
}

func main() {
	fs := pflag.NewFlagSet("sscs-hearings", pflag.ExitOnError)
	configPath := fs.String("config", os.Getenv("CONFIG_FILE"), "path to YAML config")
	httpAddr := fs.String("http-addr", "", "HTTP listen address (overrides config)")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	log.Configure(log.Config{Level: cfg.LogLevel})
	logger := log.WithComponent("main")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("service stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("service stopped")
}

func newApp(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{cfg: cfg, logger: log.WithComponent("main")}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	if err := a.seed(ctx); err != nil {
		a.Close()
		return nil, err
	}

	publisher, err := a.openPublisher()
	if err != nil {
		a.Close()
		return nil, err
	}
	emitter := emit.NewDirect(publisher, cfg.Hearings.PublishTimeout)

	reg := dispatch.NewRegistry()
	if err := handlers.Register(reg); err != nil {
		a.Close()
		return nil, fmt.Errorf("register handlers: %w", err)
	}
	d := dispatch.New(reg, emitter, dispatch.FeatureSet{
		ListAssistEnabled: cfg.Features.ListAssistEnabled,
		ListAssistRegions: cfg.Features.ListAssistRegions,
		DeferredEmit:      cfg.Features.DeferredEmit,
	})

	syncer := hearing.NewSynchronizer(store, emitter, hearing.LogAlerter{}, hearing.Config{
		MaxAttempts: cfg.Hearings.MaxAttempts,
		OpTimeout:   cfg.Hearings.OpTimeout,
	})
	a.consumer = hearing.NewConsumer(syncer, cfg.Hearings.ServiceCode, cfg.Hearings.DeploymentID)

	a.server = httpapi.NewServer(
		usecase.GetCase{Store: store},
		usecase.SubmitCaseEvent{Store: store, Dispatcher: d},
		usecase.HandleCallback{Dispatcher: d},
	)
	a.logger.Info().
		Str("store", cfg.Store.Driver).
		Bool("stan", cfg.Stan.Enabled).
		Bool("list_assist", cfg.Features.ListAssistEnabled).
		Msg("service assembled")
	return a, nil
}

func (a *App) openStore(ctx context.Context) (caseStore, error) {
	sc := a.cfg.Store
	switch strings.ToLower(sc.Driver) {
	case "memory":
		return memstore.New(), nil
	case "sqlite":
		s, err := sqlitestore.Open(ctx, sc.SQLitePath, sqlitestore.DefaultConfig())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = s.Close() })
		return s, nil
	case "redis":
		s, err := redisstore.New(ctx, redisstore.Config{Addr: sc.RedisAddr, DB: sc.RedisDB}, log.WithComponent("redis"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = s.Close() })
		return s, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, sc.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := repo.EnsureSchema(ctx, pool); err != nil {
			return nil, fmt.Errorf("init schema: %w", err)
		}
		return repo.NewPostgresCaseRepo(pool), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
}

func (a *App) seed(ctx context.Context) error {
	if a.cfg.Store.SeedFile == "" {
		return nil
	}
	f, err := os.Open(a.cfg.Store.SeedFile)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	n, err := usecase.LoadCases{Seeder: a.store}.Execute(ctx, f)
	if err != nil {
		return fmt.Errorf("seed cases: %w", err)
	}
	a.logger.Info().Int("loaded", n).Msg("cases seeded")
	return nil
}

// openPublisher выбирает исходящий канал: NATS Streaming или внутрипроцессную шину.
func (a *App) openPublisher() (domain.HearingPublisher, error) {
	if !a.cfg.Stan.Enabled {
		a.bus = emit.NewMemoryBus(a.cfg.Stan.OutSubject)
		return a.bus, nil
	}
	clientID := a.cfg.Stan.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("sscs-hearings-pub-%d", time.Now().UnixNano())
	} else {
		clientID += "-pub"
	}
	conn, err := natsstan.Dial(a.cfg.Stan.ClusterID, clientID, a.cfg.Stan.URL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = conn.Close() })
	return natsstan.NewPublisher(conn, a.cfg.Stan.OutSubject), nil
}

// Run обслуживает HTTP и входящие статусы до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{Addr: a.cfg.HTTPAddr, Handler: a.server.Router, ReadHeaderTimeout: 10 * time.Second}
	g.Go(func() error {
		a.logger.Info().Str("addr", srv.Addr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if a.cfg.Stan.Enabled {
		sub := &natsstan.Subscriber{
			ClusterID: a.cfg.Stan.ClusterID,
			ClientID:  a.cfg.Stan.ClientID,
			URL:       a.cfg.Stan.URL,
			Subject:   a.cfg.Stan.Subject,
			Durable:   a.cfg.Stan.Durable,
			Queue:     a.cfg.Stan.Queue,
		}
		uc := usecase.ProcessHearingMessage{Consumer: a.consumer}
		g.Go(func() error {
			if err := sub.Subscribe(ctx, uc.Execute); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		})
	}
	if a.bus != nil {
		g.Go(func() error { return a.drainBus(ctx) })
	}
	return g.Wait()
}

// drainBus пишет в лог запросы, ушедшие во внутрипроцессную шину.
func (a *App) drainBus(ctx context.Context) error {
	ch, unsubscribe := a.bus.Subscribe(64)
	defer unsubscribe()
	logger := log.WithComponent("local_bus")
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-ch:
			logger.Info().
				Str(log.FieldCaseID, req.CaseID).
				Str("message_id", req.MessageID).
				Str("desired_state", string(req.DesiredState)).
				Msg("hearing request (local bus)")
		}
	}
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
