package core

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/breeew/otterly-api/internal/core/srv"
	"github.com/breeew/otterly-api/internal/store"
	"github.com/breeew/otterly-api/internal/store/memstore"
	"github.com/breeew/otterly-api/internal/store/sqlstore"
)

type Core struct {
	cfg CoreConfig
	srv *srv.Srv

	stores store.Stores

	metrics *Metrics
	Plugins
}

func MustSetupCore(cfg CoreConfig) *Core {
	{
		var writer io.Writer = os.Stdout
		if cfg.Log.Path != "" {
			writer = &lumberjack.Logger{
				Filename:   cfg.Log.Path,
				MaxSize:    500, // megabytes
				MaxBackups: 3,
				MaxAge:     28,   //days
				Compress:   true, // disabled by default
			}
		}
		l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level: cfg.Log.SlogLevel(),
		}))
		slog.SetDefault(l)
	}

	return NewCore(cfg, mustSetupStore(cfg), srv.SetupSrvs(
		srv.ApplyAI(cfg.AI), // reply & classify drivers
		srv.ApplyEmotion(),
	))
}

// NewCore assembles a core from ready parts. Plugins are installed afterwards.
func NewCore(cfg CoreConfig, stores store.Stores, s *srv.Srv) *Core {
	return &Core{
		cfg:     cfg,
		srv:     s,
		stores:  stores,
		metrics: NewMetrics("otterly_api", "core"),
	}
}

func mustSetupStore(cfg CoreConfig) store.Stores {
	if cfg.Postgres.DSN == "" {
		slog.Warn("postgres dsn is empty, data is kept in memory only")
		return memstore.New()
	}
	p := sqlstore.MustSetup(cfg.Postgres)
	if err := p.Install(); err != nil {
		panic(err)
	}
	return p
}

func (s *Core) Cfg() CoreConfig {
	return s.cfg
}

func (s *Core) Metrics() *Metrics {
	return s.metrics
}

func (s *Core) Store() store.Stores {
	return s.stores
}

func (s *Core) Srv() *srv.Srv {
	return s.srv
}
