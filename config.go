package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	port           int
	prefix         string
	profile        bool
	requestTimeout time.Duration
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.requestTimeout < 0 {
		return fmt.Errorf("invalid request timeout (must not be negative): %s", c.requestTimeout)
	}
	if c.sessionTimeout < 0 {
		return fmt.Errorf("invalid session timeout (must not be negative): %s", c.sessionTimeout)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CLASH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "clash",
		Short:         "Real-time two-player rock-paper-scissors, matched by invitation.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: CLASH_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: CLASH_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: CLASH_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: CLASH_PROFILE)")
	fs.DurationVar(&cfg.requestTimeout, "request-timeout", 2*time.Minute, "time before unanswered game requests expire, 0 to disable (env: CLASH_REQUEST_TIMEOUT)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game rooms are closed, 0 to disable (env: CLASH_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: CLASH_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: CLASH_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: CLASH_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: CLASH_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("clash v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
