package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"example.com/netadapter/internal/config"
	"example.com/netadapter/pkg"
	"example.com/netadapter/pkg/connection"
	"example.com/netadapter/pkg/discovery"
	"example.com/netadapter/pkg/ethtool"
	"example.com/netadapter/pkg/types"
)

// settings is the configuration after flags, environment and file are merged.
var settings = config.Default()

func addGlobalFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML configuration file")
	fs.String("log-level", "", "Log level: debug, info, warn, error")
	fs.String("log-format", "", "Log format: text, json")
	fs.String("host", "", "Run commands on this host over SSH instead of locally")
	fs.Int("port", 0, "SSH port")
	fs.String("user", "", "SSH user")
	fs.String("password", "", "SSH password")
	fs.String("identity-file", "", "SSH private key")
	fs.String("known-hosts", "", "known_hosts file used to verify the host key")
	fs.Bool("insecure-ignore-host-key", false, "Do not verify the SSH host key")
	fs.Duration("timeout", 0, "Per-command timeout")
	fs.StringSliceP("namespace", "n", nil, "Network namespaces to inspect (default namespace when empty)")
	fs.BoolP("all-namespaces", "A", false, "Inspect the default namespace and every named namespace")
	fs.StringSlice("management-network", nil, "CIDR whose addresses mark a management interface")
}

// loadSettings merges the config file, NETADAPTER_* variables and flags, in
// increasing precedence.
func loadSettings(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	v.SetEnvPrefix("NETADAPTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	cfg := config.Default()
	if path := v.GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	applyOverrides(v, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := pkg.SetLogLevelFromString(cfg.LogLevel); err != nil {
		return err
	}
	if err := pkg.SetLogFormat(cfg.LogFormat); err != nil {
		return err
	}
	settings = cfg
	return nil
}

func applyOverrides(v *viper.Viper, cfg *config.Config) {
	setString := func(key string, dst *string) {
		if v.IsSet(key) && v.GetString(key) != "" {
			*dst = v.GetString(key)
		}
	}
	setString("log-level", &cfg.LogLevel)
	setString("log-format", &cfg.LogFormat)
	setString("host", &cfg.Target.Host)
	setString("user", &cfg.Target.User)
	setString("password", &cfg.Target.Password)
	setString("identity-file", &cfg.Target.IdentityFile)
	setString("known-hosts", &cfg.Target.KnownHostsFile)

	if v.IsSet("port") && v.GetInt("port") != 0 {
		cfg.Target.Port = v.GetInt("port")
	}
	if v.GetBool("insecure-ignore-host-key") {
		cfg.Target.InsecureIgnoreHostKey = true
	}
	if v.IsSet("timeout") && v.GetDuration("timeout") > 0 {
		cfg.Target.Timeout = v.GetDuration("timeout")
	}
	if ns := v.GetStringSlice("namespace"); len(ns) > 0 {
		cfg.Discovery.Namespaces = ns
	}
	if v.GetBool("all-namespaces") {
		cfg.Discovery.AllNamespaces = true
	}
	if nets := v.GetStringSlice("management-network"); len(nets) > 0 {
		cfg.Discovery.ManagementNetworks = nets
	}
}

// session is a runner plus the discoverer built on it.
type session struct {
	runner     connection.Runner
	discoverer *discovery.Discoverer
	closers    []func()
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func newRunner(cfg *config.Config) (connection.Runner, func(), error) {
	if cfg.Target.Host == "" {
		return connection.NewLocalRunner(cfg.Target.Timeout), func() {}, nil
	}
	r, err := connection.NewSSHRunner(cfg.Target.SSHConfig())
	if err != nil {
		return nil, nil, err
	}
	return r, func() { r.Close() }, nil
}

func openSession(cfg *config.Config, metrics *discovery.Metrics) (*session, error) {
	runner, closeRunner, err := newRunner(cfg)
	if err != nil {
		return nil, err
	}
	s := &session{runner: runner, closers: []func(){closeRunner}}

	opts := cfg.Discovery.Options()
	opts.Metrics = metrics
	if cfg.Target.Host == "" && cfg.Discovery.LocalEthtool {
		prober, err := ethtool.NewLocalProber(&ethtool.CommandProber{Runner: runner})
		if err != nil {
			pkg.WithError(err).Warn("ethtool ioctl unavailable, using the ethtool command")
		} else {
			opts.DriverInfo = prober
			s.closers = append(s.closers, prober.Close)
		}
	}

	d, err := discovery.New(runner, opts)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.discoverer = d
	return s, nil
}

// discoverConfigured runs discovery over the namespaces selected in cfg.
func discoverConfigured(ctx context.Context, d *discovery.Discoverer, cfg *config.Config) ([]types.InterfaceRecord, error) {
	switch {
	case cfg.Discovery.AllNamespaces:
		return d.DiscoverAll(ctx)
	case len(cfg.Discovery.Namespaces) > 0:
		return d.DiscoverNamespaces(ctx, cfg.Discovery.Namespaces)
	default:
		return d.Discover(ctx, "")
	}
}

// namespace returns the single namespace a modifying command acts on.
func namespace(cfg *config.Config) (string, error) {
	switch len(cfg.Discovery.Namespaces) {
	case 0:
		return "", nil
	case 1:
		return cfg.Discovery.Namespaces[0], nil
	}
	return "", fmt.Errorf("exactly one --namespace is allowed for this command")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// withRunner opens a runner for the configured target and passes it, with
// the single selected namespace, to fn.
func withRunner(fn func(ctx context.Context, runner connection.Runner, ns string) error) error {
	ns, err := namespace(settings)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	runner, closeRunner, err := newRunner(settings)
	if err != nil {
		return err
	}
	defer closeRunner()
	return fn(ctx, runner, ns)
}
