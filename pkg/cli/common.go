package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/harbor-usertools/pkg/config"
	"github.com/platinummonkey/harbor-usertools/pkg/harbor"
	"github.com/platinummonkey/harbor-usertools/pkg/observability"
)

// version is reported as the service version of traces unless the config sets one
var version = "dev"

// addCommonFlags registers the flags shared by the commands that talk to Harbor
func addCommonFlags(fs *flag.FlagSet) {
	fs.String("config", "", "YAML config file (default $HARBOR_CONFIG)")
	fs.String("host", "", "Harbor host, e.g. https://harbor.example.com (or set HARBOR_HOST)")
	fs.Bool("insecure", false, "Skip TLS certificate verification")
	fs.Duration("timeout", 0, "HTTP request timeout (default 30s)")
	fs.String("log-level", "", "Log level: debug, info, warn, error")
	fs.String("log-format", "", "Log format: text or json")
	fs.String("metrics-file", "", "Write Prometheus metrics to this file when done")
}

// loadConfig builds the configuration and applies every common flag the
// user set explicitly. Flags left at their zero value never override the
// file or the environment.
func loadConfig(fs *flag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(fs.Lookup("config").Value.String())
	if err != nil {
		return nil, usageError(err)
	}

	fs.Visit(func(f *flag.Flag) {
		value := f.Value.String()
		switch f.Name {
		case "host":
			cfg.Harbor.Host = value
		case "insecure":
			cfg.Harbor.Insecure = flagBool(f)
		case "timeout":
			cfg.Harbor.Timeout = f.Value.(flag.Getter).Get().(time.Duration)
		case "log-level":
			cfg.Observability.LogLevel = value
		case "log-format":
			cfg.Observability.LogFormat = value
		case "metrics-file":
			cfg.Observability.MetricsFile = value
		}
	})

	return cfg, nil
}

// validateConfig checks cfg and requires a Harbor host
func validateConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return usageError(fmt.Errorf("invalid configuration: %w", err))
	}
	if cfg.Harbor.Host == "" {
		return usageErrorf("--host is required (or set HARBOR_HOST)")
	}
	if _, err := harbor.BaseURL(cfg.Harbor.Host); err != nil {
		return usageError(err)
	}
	return nil
}

func flagBool(f *flag.Flag) bool {
	b, _ := f.Value.(flag.Getter).Get().(bool)
	return b
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// session holds the logger, metrics and tracing of one command invocation
type session struct {
	cfg      *config.Config
	log      *logrus.Logger
	metrics  *observability.Metrics
	shutdown *observability.ShutdownManager
	ctx      context.Context
	cancel   context.CancelFunc
}

// newSession sets up observability for a command. close must be called.
func newSession(cfg *config.Config, command string) (*session, error) {
	log := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, stderr)
	s := &session{
		cfg:      cfg,
		log:      log,
		metrics:  observability.NewMetrics(nil),
		shutdown: observability.NewShutdownManager(log, 10*time.Second),
	}
	s.ctx, s.cancel = observability.SignalContext(context.Background(), log.WithField("command", command))

	serviceVersion := cfg.Observability.OTelServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}
	shutdownTracing, err := observability.InitTracing(s.ctx, observability.TracingConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: serviceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, log)
	if err != nil {
		s.cancel()
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.shutdown.RegisterShutdownFunc(shutdownTracing)

	if path := cfg.Observability.MetricsFile; path != "" {
		s.shutdown.RegisterShutdownFunc(func(context.Context) error {
			if err := s.metrics.WriteTextfile(path); err != nil {
				return err
			}
			log.WithField("path", path).Debug("Metrics written")
			return nil
		})
	}

	return s, nil
}

// client creates a Harbor client authenticated as user
func (s *session) client(user, pass string) (*harbor.Client, error) {
	return harbor.NewClient(harbor.Config{
		Host:     s.cfg.Harbor.Host,
		Username: user,
		Password: pass,
		Insecure: s.cfg.Harbor.Insecure,
		Timeout:  s.cfg.Harbor.Timeout,
		Metrics:  s.metrics,
	})
}

// close flushes traces and metrics
func (s *session) close() error {
	defer s.cancel()
	return s.shutdown.Shutdown()
}
