// Package server wires storage, scenario settings and both transports into
// the carbon-crafts server process.
package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xtding233/carbon-crafts/internal/api/grpcapi"
	"github.com/xtding233/carbon-crafts/internal/api/httpapi"
	"github.com/xtding233/carbon-crafts/internal/platform/config"
	"github.com/xtding233/carbon-crafts/internal/platform/otel"
	"github.com/xtding233/carbon-crafts/internal/round"
	"github.com/xtding233/carbon-crafts/internal/scenario"
	"github.com/xtding233/carbon-crafts/internal/storage"
	"github.com/xtding233/carbon-crafts/internal/storage/memory"
	"github.com/xtding233/carbon-crafts/internal/storage/sqlite"
)

const (
	serviceName     = "carbon-crafts"
	shutdownTimeout = 5 * time.Second
)

// Config is the server process configuration. Environment supplies the
// defaults and flags override them.
type Config struct {
	HTTPAddr       string        `env:"CARBON_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr       string        `env:"CARBON_GRPC_ADDR" envDefault:":9090"`
	DBPath         string        `env:"CARBON_DB_PATH" envDefault:"data/carbon.db"`
	ScenarioDir    string        `env:"CARBON_SCENARIO_DIR" envDefault:"config/scenarios"`
	Class          string        `env:"CARBON_CLASS"`
	AdminToken     string        `env:"CARBON_ADMIN_TOKEN"`
	ReloadInterval time.Duration `env:"CARBON_SCENARIO_RELOAD" envDefault:"2s"`
}

// ParseConfig loads .env, then the environment, then parses args.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.LoadDotEnv(); err != nil {
		return Config{}, err
	}
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP listen address (empty disables)")
	fs.StringVar(&cfg.GRPCAddr, "grpc", cfg.GRPCAddr, "gRPC listen address (empty disables)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, `SQLite database path; "" or ":memory:" keeps state in process`)
	fs.StringVar(&cfg.ScenarioDir, "scenarios", cfg.ScenarioDir, "directory holding default.yaml and classes/")
	fs.StringVar(&cfg.Class, "class", cfg.Class, "class scenario to overlay on default.yaml")
	fs.StringVar(&cfg.AdminToken, "admin-token", cfg.AdminToken, "token required on /admin routes (empty leaves them open)")
	fs.DurationVar(&cfg.ReloadInterval, "reload", cfg.ReloadInterval, "scenario poll interval, 0 disables hot reload")
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.HTTPAddr == "" && cfg.GRPCAddr == "" {
		return Config{}, errors.New("at least one of -http or -grpc is required")
	}
	return cfg, nil
}

// Run serves until ctx is cancelled or a listener fails.
func Run(ctx context.Context, cfg Config) error {
	loader := scenario.NewLoader(cfg.ScenarioDir)
	settings, err := loader.Resolve(cfg.Class)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	log.Printf("scenario %q loaded (class %q)", settings.Version, cfg.Class)

	shutdown, err := otel.Setup(ctx, otel.Game{
		Service:         serviceName,
		ScenarioVersion: settings.Version,
		Class:           cfg.Class,
	})
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	// Bind both listeners before serving so a bad address fails fast with
	// nothing left running.
	lis, err := listen(cfg)
	if err != nil {
		return err
	}

	store, err := OpenStore(cfg.DBPath, settings.WelcomeMessage)
	if err != nil {
		lis.Close()
		return err
	}
	defer store.Close()

	svc := round.New(store, settings)

	if cfg.ReloadInterval > 0 {
		w := scenario.NewFileWatcher(loader.Paths(cfg.Class), cfg.ReloadInterval, func(path string) {
			loader.Invalidate()
			next, err := loader.Resolve(cfg.Class)
			if err != nil {
				log.Printf("scenario reload from %s rejected: %v", path, err)
				return
			}
			svc.UpdateSettings(next)
			log.Printf("scenario reloaded from %s (version %q)", path, next.Version)
		})
		w.Start()
		defer w.Stop()
	}

	return serve(ctx, svc, cfg.AdminToken, lis)
}

type listeners struct {
	http net.Listener
	grpc net.Listener
}

// listen binds the configured addresses. On failure every listener already
// bound is closed.
func listen(cfg Config) (listeners, error) {
	var lis listeners
	if cfg.HTTPAddr != "" {
		l, err := net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			return listeners{}, fmt.Errorf("listen http on %s: %w", cfg.HTTPAddr, err)
		}
		lis.http = l
	}
	if cfg.GRPCAddr != "" {
		l, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			lis.Close()
			return listeners{}, fmt.Errorf("listen grpc on %s: %w", cfg.GRPCAddr, err)
		}
		lis.grpc = l
	}
	return lis, nil
}

func (l listeners) Close() {
	if l.http != nil {
		l.http.Close()
	}
	if l.grpc != nil {
		l.grpc.Close()
	}
}

// serve runs both transports on lis until ctx is cancelled or one of them
// fails, then shuts the other down. It owns the listeners.
func serve(ctx context.Context, svc *round.Service, adminToken string, lis listeners) error {
	g, gctx := errgroup.WithContext(ctx)

	if lis.http != nil {
		httpSrv := &http.Server{
			Handler:           httpapi.New(svc, adminToken, nil).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			log.Printf("http listening at %v", lis.http.Addr())
			if err := httpSrv.Serve(lis.http); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpSrv.Shutdown(sctx)
		})
	}

	if lis.grpc != nil {
		grpcSrv := grpcapi.NewServer(svc)
		g.Go(func() error { return grpcSrv.Serve(gctx, lis.grpc) })
	}

	return g.Wait()
}

// OpenStore opens the SQLite store at path, or an in-memory store when path
// is empty or ":memory:".
func OpenStore(path, welcome string) (storage.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == ":memory:" {
		log.Printf("using in-memory store; state is lost on exit")
		return memory.New(welcome), nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	store, err := sqlite.Open(path, welcome)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Printf("using sqlite store at %s", path)
	return store, nil
}
