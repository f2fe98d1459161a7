package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/sitecfg/internal/config"
	"github.com/dshills/sitecfg/internal/config/export"
	"github.com/dshills/sitecfg/internal/config/layer"
	"github.com/dshills/sitecfg/internal/config/loader"
)

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [path]",
		Short: "Print the resolved value of a setting",
		Long:  "Print the resolved value of a dot-separated setting path. Without a path the whole configuration is printed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var path []string
			if len(args) == 1 {
				path = splitPath(args[0])
			}
			v := c.store.GetDynamic(path...)
			if v == nil {
				return fmt.Errorf("%w: %s", config.ErrSettingNotFound, strings.Join(path, "."))
			}
			return printValue(c.out, v)
		},
	}
}

func (c *cli) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <path> <value>",
		Short: "Set a user value",
		Long:  "Set a user value. The value is parsed as JSON when valid and kept as a string otherwise.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.store.SetPath(cmd.Context(), splitPath(args[0]), parseValue(args[1]))
		},
	}
}

func (c *cli) unsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <path>",
		Short: "Remove a user value so the default applies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.store.Unset(cmd.Context(), splitPath(args[0])...)
		},
	}
}

func (c *cli) setURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seturl <pattern> <path> <value>",
		Short: "Set a value for URLs matching a pattern",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := splitPath(args[1])
			setArgs := make([]any, 0, len(path)+1)
			for _, p := range path {
				setArgs = append(setArgs, p)
			}
			setArgs = append(setArgs, parseValue(args[2]))
			return c.store.SetURL(cmd.Context(), args[0], setArgs...)
		},
	}
}

func (c *cli) unsetURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unseturl <pattern> <path>",
		Short: "Remove a value set for a pattern",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.store.UnsetURL(cmd.Context(), args[0], splitPath(args[1])...)
		},
	}
}

func (c *cli) dumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the user settings as a command script",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			_, err := fmt.Fprint(c.out, export.Script(c.store.UserTree()))
			return err
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the user settings to a JSON, TOML or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return loader.WriteFile(args[0], c.store.UserTree())
		},
	}
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge top-level settings from a JSON, TOML or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := loader.LoadFile(args[0])
			if err != nil {
				return err
			}
			if err := c.store.Import(cmd.Context(), tree); err != nil {
				return err
			}
			c.logger.Info("imported settings", "path", args[0], "keys", len(tree))
			return nil
		},
	}
}

func (c *cli) explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <path>",
		Short: "Show how each layer contributes to a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			e := c.store.Explain(splitPath(args[0])...)

			fmt.Fprintf(c.out, "path:     %s\n", strings.Join(e.Path, "."))
			fmt.Fprintf(c.out, "url:      %s\n", e.URL)
			fmt.Fprintf(c.out, "default:  %s\n", layerValue(e.Default, e.HasDefault))
			fmt.Fprintf(c.out, "user:     %s\n", layerValue(e.User, e.HasUser))
			fmt.Fprintf(c.out, "site:     %s\n", layerValue(e.Site, e.HasSite))
			fmt.Fprintf(c.out, "patterns: %s\n", strings.Join(e.Patterns, ", "))
			fmt.Fprintf(c.out, "source:   %s\n", e.Source)
			return nil
		},
	}
}

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [key...]",
		Short: "Print changes made by other writers until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := args
			if len(keys) == 0 {
				keys = watchKeys(c.store)
			}
			return c.watch(cmd.Context(), keys)
		},
	}
}

func (c *cli) watch(ctx context.Context, keys []string) error {
	changes := make(chan string, 64)
	for _, key := range keys {
		sub := c.store.AddChangeListener(config.Key(key), func(old, new any) {
			line := fmt.Sprintf("%s: %s -> %s", key, compact(old), compact(new))
			select {
			case changes <- line:
			default:
				c.logger.Warn("dropped change notification", "key", key)
			}
		})
		defer sub.Unsubscribe()
	}
	c.logger.Info("watching settings", "dir", c.dir, "keys", len(keys))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case line := <-changes:
				if _, err := fmt.Fprintln(c.out, line); err != nil {
					return err
				}
			}
		}
	})
	return g.Wait()
}

// watchKeys returns every top-level key of the default and user trees.
func watchKeys(s *config.Store) []string {
	seen := make(map[string]struct{})
	for _, t := range []layer.Tree{s.DefaultTree(), s.UserTree()} {
		for k := range t {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func splitPath(p string) []string {
	return strings.Split(p, ".")
}

// parseValue reads a command-line value as JSON, falling back to the raw
// string.
func parseValue(s string) any {
	if !gjson.Valid(s) {
		return s
	}
	return fromJSON(gjson.Parse(s).Value())
}

// fromJSON converts decoded JSON into tree values, keeping whole numbers
// as int64.
func fromJSON(v any) any {
	switch val := v.(type) {
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	case map[string]any:
		for k, e := range val {
			val[k] = fromJSON(e)
		}
		return val
	case []any:
		for i, e := range val {
			val[i] = fromJSON(e)
		}
		return val
	default:
		return v
	}
}

func layerValue(v any, ok bool) string {
	if !ok {
		return "(unset)"
	}
	return compact(v)
}
