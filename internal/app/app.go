// Package app assembles promptrelay from its configuration.
package app

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/promptrelay/auth"
	"github.com/jonwraymond/promptrelay/cache"
	"github.com/jonwraymond/promptrelay/config"
	"github.com/jonwraymond/promptrelay/contextstore"
	"github.com/jonwraymond/promptrelay/diary"
	"github.com/jonwraymond/promptrelay/health"
	"github.com/jonwraymond/promptrelay/observe"
	"github.com/jonwraymond/promptrelay/proxy"
	"github.com/jonwraymond/promptrelay/refresh"
	"github.com/jonwraymond/promptrelay/schedule"
	"github.com/jonwraymond/promptrelay/template"
	"github.com/jonwraymond/promptrelay/upstream"
)

// ServiceName names the service in telemetry.
const ServiceName = "promptrelay"

// WeatherMaxAge is the age after which the weather check reports degraded.
const WeatherMaxAge = 36 * time.Hour

// App holds every long-lived component.
type App struct {
	cfg    *config.Config
	obs    observe.Observer
	inst   *observe.Instrument
	logger observe.Logger

	client   *upstream.Client
	store    *contextstore.Store
	engine   *template.Engine
	weather  *refresh.Weather
	assets   *refresh.Assets
	captions *cache.FileStore
	proxy    *proxy.Handler
	health   *health.Aggregator
	authn    auth.Authenticator
}

// New builds an App. The caller must call Close.
func New(ctx context.Context, cfg *config.Config, version string) (*App, error) {
	obs, err := observe.NewObserver(ctx, cfg.ObserveConfig(ServiceName, version))
	if err != nil {
		return nil, errors.Wrap(err, "observe")
	}
	inst, err := observe.InstrumentFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, errors.Wrap(err, "instrument")
	}

	a := &App{
		cfg:    cfg,
		obs:    obs,
		inst:   inst,
		logger: obs.Logger(),
		client: upstream.New(upstream.Config{BaseURL: cfg.Upstream.URL, APIKey: cfg.Upstream.APIKey}),
		store:  contextstore.New(cfg.StoreConfig()),
	}
	a.engine = template.New(a.store,
		template.WithDiaryRoot(cfg.Paths.DiaryDir),
		template.WithLocation(cfg.Location()),
		template.WithLogger(a.logger),
	)

	a.weather = refresh.NewWeather(refresh.WeatherConfig{
		Model:       cfg.Weather.Model,
		Prompt:      cfg.Weather.Prompt,
		File:        cfg.Weather.Path,
		MaxAttempts: cfg.Weather.MaxAttempts,
		RetryDelay:  cfg.Weather.RetryDelay,
		Timeout:     cfg.Upstream.Timeout,
		UseSearch:   cfg.Weather.UseSearch,
	}, a.client, a.store, contextstore.NewFilePersister(""), a.engine, inst)

	a.assets = refresh.NewAssets(cfg.Paths.ImageDir, a.store,
		contextstore.NewFilePersister(cfg.Paths.CacheDir), a.logger)

	var captions proxy.Describer
	if cfg.Caption.Enabled {
		a.captions, err = cache.NewFileStore(cfg.Caption.CachePath)
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, errors.Wrap(err, "caption cache")
		}
		policy := cache.DefaultPolicy()
		if cfg.Caption.MinLength > 0 {
			policy.MinLength = cfg.Caption.MinLength
		}
		filler := cache.NewFiller(a.captions, cache.NewContentKeyer(), policy)
		captions = refresh.NewCaption(refresh.CaptionConfig{
			Model:       cfg.Caption.Model,
			Prompt:      cfg.Caption.Prompt,
			Marker:      cfg.Caption.Marker,
			MaxTokens:   cfg.Caption.MaxTokens,
			MinLength:   cfg.Caption.MinLength,
			MaxAttempts: cfg.Caption.MaxAttempts,
			RetryDelay:  cfg.Caption.RetryDelay,
			Timeout:     cfg.Upstream.Timeout,
		}, a.client, filler, inst)
	}

	a.proxy = proxy.New(
		proxy.Options{CaptionConcurrency: cfg.Caption.Concurrency},
		a.client, a.engine, captions,
		diary.NewWriter(cfg.Paths.DiaryDir, diary.WithLogger(a.logger)),
		inst,
	)

	a.health = health.NewAggregator()
	a.health.Register(health.NewUpstreamChecker(a.client))
	a.health.Register(health.NewWeatherChecker(a.store, WeatherMaxAge))
	var entries health.Counter
	if a.captions != nil {
		entries = a.captions
	}
	a.health.Register(health.NewCaptionCacheChecker(entries))

	a.authn = authenticator(cfg.Server)
	return a, nil
}

func authenticator(cfg config.ServerConfig) auth.Authenticator {
	var auths []auth.Authenticator
	if cfg.Key != "" {
		auths = append(auths, auth.NewKeyAuthenticator(cfg.Key))
	}
	if cfg.JWTSecret != "" {
		auths = append(auths, auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret: []byte(cfg.JWTSecret),
			Leeway: 30 * time.Second,
		}))
	}
	return auth.NewComposite(auths...)
}

// Logger returns the application logger.
func (a *App) Logger() observe.Logger { return a.logger }

// Store returns the context store.
func (a *App) Store() *contextstore.Store { return a.store }

// Handler returns the HTTP surface: health and metrics endpoints without
// auth, the proxied API behind it.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	health.RegisterHandlers(mux, a.health)
	if h := a.obs.MetricsHandler(); h != nil {
		mux.Handle("GET /metrics", h)
	}
	mux.Handle("/", auth.Middleware(a.authn, a.logger)(a.proxy.Routes()))
	return mux
}

// RefreshWeather runs one weather refresh.
func (a *App) RefreshWeather(ctx context.Context) refresh.Outcome {
	if _, err := a.weather.Load(ctx); err != nil {
		a.logger.Warn(ctx, "persisted weather unreadable", observe.F("error", err))
	}
	return a.weather.Refresh(ctx)
}

// RefreshAssets rebuilds every agent's asset list.
func (a *App) RefreshAssets(ctx context.Context) ([]string, error) {
	return a.assets.RefreshAll(ctx)
}

// Resolve substitutes placeholders in text using persisted facts.
func (a *App) Resolve(ctx context.Context, text string) string {
	if _, err := a.weather.Load(ctx); err != nil {
		a.logger.Warn(ctx, "persisted weather unreadable", observe.F("error", err))
	}
	if _, err := a.assets.RefreshAll(ctx); err != nil {
		a.logger.Warn(ctx, "asset refresh failed", observe.F("error", err))
	}
	return a.engine.ResolveString(ctx, text)
}

// Serve starts background refreshes and the HTTP server, and blocks until
// ctx is done or the server fails. Shutdown waits up to the configured
// timeout for requests and background work.
func (a *App) Serve(ctx context.Context) error {
	if err := os.MkdirAll(a.cfg.Paths.ImageDir, 0o755); err != nil {
		return errors.Wrapf(err, "create image root %s", a.cfg.Paths.ImageDir)
	}
	if _, err := a.assets.RefreshAll(ctx); err != nil {
		a.logger.Warn(ctx, "asset refresh failed", observe.F("error", err))
	}

	daily, err := schedule.StartWeather(ctx, a.cfg.Weather.Cron, a.cfg.Location(), a.weather, a.logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	if w, err := refresh.NewWatcher(a.assets, 0); err != nil {
		a.logger.Warn(ctx, "asset watcher disabled", observe.F("error", err))
	} else {
		g.Go(func() error { return w.Run(gctx) })
	}

	g.Go(func() error {
		a.logger.Info(ctx, "listening", observe.F("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		a.logger.Info(sctx, "shutting down")
		err := srv.Shutdown(sctx)
		a.proxy.Wait()
		if serr := daily.Stop(sctx); serr != nil && err == nil {
			err = serr
		}
		return err
	})

	return g.Wait()
}

// Close flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	return a.obs.Shutdown(ctx)
}
