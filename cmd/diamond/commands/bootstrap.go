package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/wonny/diamond/internal/brain"
	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/internal/execution"
	"github.com/wonny/diamond/internal/external/nse"
	"github.com/wonny/diamond/internal/external/yahoo"
	"github.com/wonny/diamond/internal/fundamentals"
	"github.com/wonny/diamond/internal/market"
	"github.com/wonny/diamond/internal/notify"
	"github.com/wonny/diamond/internal/records"
	"github.com/wonny/diamond/internal/s0_guard"
	"github.com/wonny/diamond/internal/s4_contract"
	"github.com/wonny/diamond/internal/strategyconfig"
	"github.com/wonny/diamond/pkg/config"
	"github.com/wonny/diamond/pkg/httputil"
	"github.com/wonny/diamond/pkg/logger"
	"github.com/wonny/diamond/pkg/redis"
)

const notifyTimeout = 10 * time.Second

// app holds the wired process dependencies shared by every command
type app struct {
	cfg        *config.Config
	strategy   *strategyconfig.Config
	snapshot   *strategyconfig.DecisionSnapshot
	configHash string
	log        *logger.Logger

	cal        *market.Calendar
	http       *httputil.Client
	redis      *redis.Client
	yahoo      *yahoo.Client
	nse        *nse.Client
	quarantine *s0_guard.Quarantine
	notifier   contracts.Notifier
}

// bootstrap loads both config layers and builds the shared clients.
// Stores that hold connections (record store) are opened per command.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	path := cfg.StrategyConfigPath
	if strategyFile != "" {
		path = strategyFile
	}
	strategy, raw, err := strategyconfig.Load(path)
	if err != nil {
		return nil, err
	}
	for _, w := range strategyconfig.Warn(strategy) {
		log.WithFields(map[string]interface{}{
			"code":    w.Code,
			"message": w.Message,
		}).Warn("Strategy config warning")
	}
	snapshot, err := strategyconfig.NewDecisionSnapshot(strategy, raw)
	if err != nil {
		return nil, fmt.Errorf("hash strategy config: %w", err)
	}
	hash := snapshot.ConfigHash

	cal, err := market.NewCalendar(strategy.Market)
	if err != nil {
		return nil, err
	}

	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rps := strategy.Universe.RequestsPerSec
	httpClient := httputil.New(cfg, log).WithPacer(rps, strategy.Universe.Workers)
	if rdb.Enabled() {
		// 여러 프로세스가 같은 Yahoo 한도를 공유
		httpClient = httpClient.WithRateLimiter(redis.NewRateLimiter(rdb, "diamond"), redis.RateLimitConfig{
			Key:    "yahoo",
			Limit:  int(rps * 60),
			Window: time.Minute,
		})
	}

	quarantine := s0_guard.NewQuarantine(
		s0_guard.NewFileRepository(cfg.Path(strategy.Guard.Quarantine.File)),
		strategy.Guard.Quarantine.Days, cal, log)

	// 알림은 Yahoo 페이서와 분리
	notifier := notify.New(cfg, httputil.NewWithTimeout(cfg, log, notifyTimeout), log)

	log.WithFields(map[string]interface{}{
		"strategy_id":  strategy.Meta.StrategyID,
		"config_hash":  hash,
		"record_store": cfg.RecordStore,
		"data_dir":     cfg.DataDir,
	}).Debug("Bootstrap complete")

	return &app{
		cfg:        cfg,
		strategy:   strategy,
		snapshot:   snapshot,
		configHash: hash,
		log:        log,
		cal:        cal,
		http:       httpClient,
		redis:      rdb,
		yahoo:      yahoo.NewClient(httpClient, log, strategy.Market.SymbolSuffix),
		nse:        nse.NewClient(httpClient, log, strategy.Universe.ListURL, strategy.Delivery.URLTemplate),
		quarantine: quarantine,
		notifier:   notifier,
	}, nil
}

// Close releases the redis connection
func (a *app) Close() error {
	return a.redis.Close()
}

// fundamentalsCache picks the cache backend from FUNDAMENTALS_CACHE
func (a *app) fundamentalsCache() fundamentals.Cache {
	if a.cfg.FundamentalsCache == "redis" && a.redis.Enabled() {
		return fundamentals.NewRedisCache(a.redis)
	}
	return fundamentals.NewFileCache(a.cfg.Path(a.strategy.Fundamentals.File))
}

// orchestrator wires the strategy pipeline
func (a *app) orchestrator() *brain.Orchestrator {
	ports := brain.Ports{
		Prices:       a.yahoo,
		Universe:     a.nse,
		Delivery:     a.nse,
		Fundamentals: a.yahoo,
		Cache:        a.fundamentalsCache(),
		Notifier:     a.notifier,
	}
	if a.redis.Enabled() {
		ports.DeliveryCache = redis.NewCache(a.redis, "diamond")
	}
	return brain.NewOrchestrator(ports, a.quarantine, a.cal, a.strategy, a.snapshot, a.cfg.DataDir, a.log)
}

// contractReader reads the published signal contract
func (a *app) contractReader() *s4_contract.Reader {
	return s4_contract.NewReader(a.contractPath(), a.log)
}

func (a *app) contractPath() string {
	return a.cfg.Path(a.strategy.Contract.File)
}

// executionEngine wires the execution stage with the configured record store.
// The caller closes the returned closer.
func (a *app) executionEngine(ctx context.Context) (*execution.Engine, io.Closer, error) {
	store, closer, err := records.New(ctx, a.cfg, a.log)
	if err != nil {
		return nil, nil, fmt.Errorf("open record store: %w", err)
	}
	engine := execution.NewEngine(a.contractReader(), a.yahoo, store, a.notifier, a.cal, a.strategy, a.log)
	return engine, closer, nil
}
