package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptly/internal/catalog"
	"github.com/abhisek/adaptly/internal/circuit"
	"github.com/abhisek/adaptly/internal/config"
	"github.com/abhisek/adaptly/internal/diagnosis"
	"github.com/abhisek/adaptly/internal/engine"
	"github.com/abhisek/adaptly/internal/events"
	"github.com/abhisek/adaptly/internal/llm"
	"github.com/abhisek/adaptly/internal/lock"
	"github.com/abhisek/adaptly/internal/metrics"
	"github.com/abhisek/adaptly/internal/store"
)

// runtime holds everything a command needs to drive the engine.
type runtime struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *store.Store
	metrics *metrics.Metrics

	catalog        catalog.Source
	catalogSink    catalog.Sink
	catalogBreaker *circuit.Breaker

	publisher events.Publisher
	engine    *engine.Engine

	closers []func()
}

// newRuntime opens the store and wires the configured backends. Close
// must be called when done.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	rt := &runtime{cfg: cfg, logger: newLogger(cfg), metrics: metrics.New()}

	st, err := openStore(cmd, cfg)
	if err != nil {
		return nil, err
	}
	rt.store = st
	rt.onClose(func() { st.Close() })

	if err := rt.openCatalog(ctx); err != nil {
		rt.Close()
		return nil, err
	}

	locker, err := rt.openLocker(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.publisher = events.Noop{}
	if cfg.AMQPURL != "" {
		pub, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect event broker: %w", err)
		}
		rt.publisher = pub
		rt.onClose(func() { pub.Close() })
	}

	provider, err := llm.NewProvider(ctx, cfg.LLM, st, rt.logger, nil)
	if err != nil {
		rt.logger.Warn("LLM provider not configured; misconception refinement disabled", "error", err)
	}
	detector := diagnosis.NewDetector(
		diagnosis.WithRefiner(provider, cfg.LLM.Timeout),
		diagnosis.WithLogger(rt.logger),
	)

	rt.engine = engine.New(engine.Options{
		Store:        st,
		Catalog:      rt.catalog,
		Detector:     detector,
		Locker:       locker,
		Publisher:    rt.publisher,
		Metrics:      rt.metrics,
		Logger:       rt.logger,
		Policy:       cfg.Policy(),
		TargetStreak: cfg.TargetStreak,
	})
	return rt, nil
}

func (rt *runtime) openCatalog(ctx context.Context) error {
	var src interface {
		catalog.Source
		catalog.Sink
	}
	switch rt.cfg.Catalog {
	case config.CatalogMongo:
		m, err := catalog.OpenMongo(ctx, catalog.MongoConfig{URI: rt.cfg.MongoURI, Database: rt.cfg.MongoDB})
		if err != nil {
			return fmt.Errorf("open mongo catalog: %w", err)
		}
		rt.onClose(func() { m.Close(context.Background()) })
		src = m
	default:
		src = catalog.NewStoreSource(rt.store)
	}
	rt.catalogBreaker = circuit.New("catalog", rt.cfg.Breaker, nil)
	rt.catalog = catalog.Guard(src, rt.catalogBreaker)
	rt.catalogSink = src
	return nil
}

func (rt *runtime) openLocker(ctx context.Context) (lock.Locker, error) {
	if rt.cfg.RedisAddr == "" {
		return lock.NewLocal(), nil
	}
	client, err := lock.DialRedis(ctx, rt.cfg.RedisAddr, rt.cfg.RedisPassword, rt.cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	rt.onClose(func() { client.Close() })
	return lock.NewRedis(client, lock.RedisConfig{}, rt.logger), nil
}

func (rt *runtime) onClose(fn func()) {
	rt.closers = append(rt.closers, fn)
}

// Close releases backends in reverse order of opening.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
