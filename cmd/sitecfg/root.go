package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dshills/sitecfg/internal/config"
	"github.com/dshills/sitecfg/internal/config/loader"
	"github.com/dshills/sitecfg/internal/config/storage"
)

// cli holds the state shared by all commands.
type cli struct {
	dir       string
	url       string
	logLevel  string
	logFormat string

	out    io.Writer
	errOut io.Writer

	logger  *slog.Logger
	backend *storage.File
	store   *config.Store
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "sitecfg",
		Short:         "Inspect and edit site-aware settings",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return c.close()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	env, err := loader.NewEnvLoader(loader.EnvPrefix).Load()
	if err != nil {
		env = map[string]any{}
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.dir, "dir", loader.String(env, "dir", defaultDir()), "settings directory")
	flags.StringVar(&c.url, "url", loader.String(env, "url", ""), "URL used to pick site overrides")
	flags.StringVar(&c.logLevel, "log-level", loader.String(env, "log.level", "warn"), "log level (debug, info, warn, error)")
	flags.StringVar(&c.logFormat, "log-format", loader.String(env, "log.format", ""), "log format (text, json); default depends on the terminal")

	root.AddCommand(
		c.getCmd(),
		c.setCmd(),
		c.unsetCmd(),
		c.setURLCmd(),
		c.unsetURLCmd(),
		c.dumpCmd(),
		c.exportCmd(),
		c.importCmd(),
		c.explainCmd(),
		c.watchCmd(),
	)
	return root
}

// open builds the logger, the file backend and the store.
func (c *cli) open(cmd *cobra.Command) error {
	logger, err := newLogger(c.errOut, c.logLevel, c.logFormat)
	if err != nil {
		return err
	}
	c.logger = logger

	opts := []storage.FileOption{storage.WithLogger(logger)}
	if cmd.Name() != "watch" {
		opts = append(opts, storage.WithoutWatch())
	}
	backend, err := storage.OpenFile(c.dir, opts...)
	if err != nil {
		return err
	}
	c.backend = backend

	url := c.url
	c.store = config.New(backend,
		config.WithLogger(logger),
		config.WithLocation(func() string { return url }),
	)
	if err := c.store.Init(cmd.Context()); err != nil {
		backend.Close()
		return err
	}
	return nil
}

func (c *cli) close() error {
	if c.store != nil {
		c.store.Close()
	}
	if c.backend != nil {
		return c.backend.Close()
	}
	return nil
}

func defaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".sitecfg"
	}
	return filepath.Join(dir, "sitecfg")
}

// newLogger returns a text logger for terminals and a JSON logger
// otherwise, unless format names one.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if format == "" {
		format = "json"
		if isTerminal(w) {
			format = "text"
		}
	}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (must be text or json)", format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
