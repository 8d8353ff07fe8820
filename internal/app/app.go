package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"tradealert/internal/commands"
	"tradealert/internal/config"
	"tradealert/internal/digest"
	"tradealert/internal/httpapi"
	"tradealert/internal/metrics"
	"tradealert/internal/notify"
	rtsup "tradealert/internal/runtime/supervisor"
	"tradealert/internal/storage"
	"tradealert/internal/transport/botapi"
	"tradealert/pkg/logx"
)

// App owns the notification subsystem and its optional surfaces.
type App struct {
	cfgPath string
	cfgm    *config.Manager
	sup     *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service

	store storage.Store
	audit *notify.StoreReporter
	reg   *prometheus.Registry

	adapter *notify.Adapter
	bus     *notify.Bus

	http   *httpapi.Server
	cmds   *commands.Bridge
	digest *digest.Runner
}

// New loads the config and builds every component. Nothing runs until Start.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, root := logx.New(cfg.Logging.Logx())
	log := root.With(logx.String("comp", "app"))

	store, err := storage.Open(cfg.StorageOptions(), root.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var bus *notify.Bus
	met := metrics.New(reg, func() int { return bus.Len() })

	reporters := notify.MultiReporter{
		notify.LogReporter{Log: root.With(logx.String("comp", "deliver"))},
		met,
	}
	var audit *notify.StoreReporter
	if store != nil {
		audit = notify.NewStoreReporter(store, root.With(logx.String("comp", "audit")), cfg.Storage.Buffer)
		reporters = append(reporters, audit)
		log.Info("delivery audit enabled", logx.String("driver", cfg.Storage.Driver))
	}

	adapter := notify.NewAdapter(cfg.Channel.Notify(), botapi.New(cfg.Channel.Host, nil), reporters)
	bus = notify.NewBus(adapter,
		notify.WithHistoryCapacity(cfg.History.Capacity),
		notify.WithLogger(root.With(logx.String("comp", "bus"))),
	)
	bus.Subscribe(met.Observe)
	eventLog := root.With(logx.String("comp", "events"))
	bus.Subscribe(func(e notify.Event) {
		eventLog.Debug("event",
			logx.String("id", e.ID),
			logx.String("category", string(e.Category)),
			logx.String("severity", string(e.Severity)),
			logx.String("title", e.Title),
		)
	})

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		store:   store,
		audit:   audit,
		reg:     reg,
		adapter: adapter,
		bus:     bus,
	}

	if cfg.HTTP.Enabled {
		opts, err := httpOptions(cfg.HTTP)
		if err != nil {
			return nil, a.abort(err)
		}
		router := httpapi.NewRouter(httpapi.Deps{
			Events:     bus,
			Channel:    adapter,
			Deliveries: store, // nil when storage is disabled
			Gatherer:   reg,
			Log:        root.With(logx.String("comp", "http")),

			Profiling:      cfg.HTTP.Pprof,
			ProfilingToken: cfg.HTTP.PprofToken,
		})
		a.http = httpapi.NewServer(opts, router, root.With(logx.String("comp", "http")))
	}

	if cfg.Commands.Enabled {
		poll, _ := config.ParseDurationOrDefault("commands.poll_timeout", cfg.Commands.PollTimeout, config.DefaultPollTimeout)
		a.cmds = commands.New(commands.Options{
			Token:       cfg.Channel.Token,
			Target:      cfg.Channel.Target,
			URL:         botapi.BaseURL(cfg.Channel.Host),
			PollTimeout: poll,
		}, bus, adapter, root.With(logx.String("comp", "commands")))
	}

	if cfg.Digest.Enabled {
		sched, err := cfg.Digest.ParseSchedule()
		if err != nil {
			return nil, a.abort(err)
		}
		loc, _ := cfg.Digest.Location()
		a.digest = digest.NewRunner(bus, sched, loc, root.With(logx.String("comp", "digest")))
	}

	return a, nil
}

// abort releases what New opened so far.
func (a *App) abort(err error) error {
	if a.store != nil {
		_ = a.store.Close()
	}
	_ = a.logs.Close()
	return err
}

func httpOptions(c config.HTTPConfig) (httpapi.Options, error) {
	var (
		o    = httpapi.Options{Addr: strings.TrimSpace(c.Addr)}
		errs []error
		err  error
	)
	if o.Addr == "" {
		o.Addr = config.DefaultHTTPAddr
	}
	o.ReadTimeout, err = config.ParseDurationField("http.read_timeout", c.ReadTimeout)
	errs = append(errs, err)
	o.WriteTimeout, err = config.ParseDurationField("http.write_timeout", c.WriteTimeout)
	errs = append(errs, err)
	o.IdleTimeout, err = config.ParseDurationField("http.idle_timeout", c.IdleTimeout)
	errs = append(errs, err)
	o.ShutdownTimeout, err = config.ParseDurationField("http.shutdown_timeout", c.ShutdownTimeout)
	errs = append(errs, err)
	return o, errors.Join(errs...)
}

// Bus is the in-process producer entry point.
func (a *App) Bus() *notify.Bus { return a.bus }

// Adapter exposes the channel adapter (connection checks, live config).
func (a *App) Adapter() *notify.Adapter { return a.adapter }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.NewSupervisor(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	if a.http != nil {
		// Bind before returning so a busy port fails startup.
		ln, err := a.http.Listen()
		if err != nil {
			a.sup.Cancel()
			return fmt.Errorf("http listen: %w", err)
		}
		a.sup.Go("http", func(c context.Context) error { return a.http.Serve(c, ln) })
	}
	if a.audit != nil {
		a.sup.Go("audit", a.audit.Run)
	}
	if a.cmds != nil {
		// The command bridge is optional; failures restart it but never stop the app.
		a.sup.GoRestart("commands", a.cmds.Run, rtsup.WithRestartBackoff(time.Second, time.Minute))
	}
	if a.digest != nil {
		a.sup.Go("digest", a.digest.Run)
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})
	a.sup.Go("config.watch", a.cfgm.Watch)

	if _, err := a.bus.Publish(notify.Draft{
		Category: notify.CategorySystem,
		Severity: notify.SeverityInfo,
		Title:    "Backend online",
		Message:  "Notification service started.",
	}); err != nil {
		a.log.Warn("startup event rejected", logx.Err(err))
	}

	cc := a.adapter.Config()
	a.log.Info("app started",
		logx.Bool("channel_enabled", cc.Enabled()),
		logx.Int("history_capacity", a.bus.Capacity()),
		logx.Bool("http", a.http != nil),
		logx.Bool("commands", a.cmds != nil),
		logx.Bool("digest", a.digest != nil),
	)
	return nil
}

// reloadLoop applies committed config reloads. Logging and channel settings
// take effect live; other sections need a restart.
func (a *App) reloadLoop(ctx context.Context, sub <-chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config in the channel.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}
			a.apply(lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

func (a *App) apply(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}

	a.logs.Apply(newCfg.Logging.Logx())
	a.adapter.Reconfigure(newCfg.Channel.Notify())

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config applied", fields...)
	if config.RestartRequired(sections) {
		a.log.Warn("some config changes need a restart to take effect", logx.String("changed", strings.Join(sections, ",")))
	}
}

// Stop drains in-flight deliveries, stops background loops and closes
// storage. Each step is bounded so one component cannot stall shutdown.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			return
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}

	// Deliveries first so their reports still reach the audit writer.
	step("bus", 5*time.Second, a.bus.Close)
	step("supervisor", 5*time.Second, func(c context.Context) error {
		err := a.sup.Stop(c)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	step("storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	return a.logs.Close()
}
