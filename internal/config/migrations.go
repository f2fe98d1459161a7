package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/dshills/sitecfg/internal/config/layer"
	"github.com/dshills/sitecfg/internal/config/migrate"
	"github.com/dshills/sitecfg/internal/config/site"
	"github.com/dshills/sitecfg/internal/config/storage"
)

// LatestVersion is the schema version written by this build.
const LatestVersion = "1.7"

// Migrations returns the chain that upgrades user trees written by any
// earlier version to LatestVersion.
func Migrations(opts ...migrate.Option) *migrate.Chain {
	return migrate.New(opts...).MustRegister(
		migrate.Step{From: "0.0", To: "1.0", Description: "merge root-level nmaps", Apply: migrateLegacyNmaps},
		migrate.Step{From: "1.0", To: "1.1", Description: "vimium-gi becomes gimode", Apply: migrateGiMode},
		migrate.Step{From: "1.1", To: "1.2", Description: "numeric logging levels become names", Apply: migrateLoggingLevels},
		migrate.Step{From: "1.2", To: "1.3", Description: "im_ functions move to text.", Apply: migrateTextFunctions},
		migrate.Step{From: "1.3", To: "1.4", Description: "numeric settings stored as numbers", Apply: migrateNumericSettings},
		migrate.Step{From: "1.4", To: "1.5", Description: "noiframeon becomes per-site noiframe", Apply: migrateNoIframeOn},
		migrate.Step{From: "1.5", To: "1.6", Description: "drop the tab alias", Apply: migrateTabAlias},
		migrate.Step{From: "1.6", To: "1.7", Description: "space bindings use <Space>", Apply: migrateSpaceBindings},
	)
}

// migrationTarget exposes a Store to the migration chain.
type migrationTarget struct {
	s *Store
}

func (t migrationTarget) Version() string {
	return t.s.version()
}

func (t migrationTarget) SetVersion(ctx context.Context, v string) error {
	return t.s.Set(ctx, KeyConfigVersion, v)
}

func (t migrationTarget) User(path ...string) (any, bool) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	v, ok := layer.GetDeep(t.s.user, path)
	return layer.CloneValue(v), ok
}

func (t migrationTarget) SetPath(ctx context.Context, path []string, value any) error {
	return t.s.SetPath(ctx, path, value)
}

func (t migrationTarget) Unset(ctx context.Context, path ...string) error {
	return t.s.Unset(ctx, path...)
}

func (t migrationTarget) SetURL(ctx context.Context, pattern string, path []string, value any) error {
	return t.s.SetPath(ctx, append([]string{site.SubconfigsKey, pattern}, path...), value)
}

func (t migrationTarget) Patterns() []string {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	subs := site.Subconfigs(t.s.user)
	patterns := make([]string, 0, len(subs))
	for p := range subs {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)
	return patterns
}

func (t migrationTarget) Legacy(ctx context.Context, key string) (layer.Tree, bool, error) {
	return t.s.backend.Get(ctx, storage.AreaSync, key)
}

func migrateLegacyNmaps(ctx context.Context, t migrate.Target) error {
	legacy, ok, err := t.Legacy(ctx, string(KeyNmaps))
	if err != nil {
		return fmt.Errorf("read legacy nmaps: %w", err)
	}
	if !ok || len(legacy) == 0 {
		return nil
	}
	user, _ := t.User(string(KeyNmaps))
	current, _ := user.(layer.Tree)
	return t.SetPath(ctx, KeyNmaps.path(), layer.Merge(legacy, current))
}

func migrateGiMode(ctx context.Context, t migrate.Target) error {
	v, _ := t.User("vimium-gi")
	switch v {
	case true, "true":
		if err := t.SetPath(ctx, KeyGiMode.path(), "nextinput"); err != nil {
			return err
		}
	case false, "false":
		if err := t.SetPath(ctx, KeyGiMode.path(), "firefox"); err != nil {
			return err
		}
	}
	return t.Unset(ctx, "vimium-gi")
}

var levelNames = []string{"never", "error", "warning", "info", "debug"}

func migrateLoggingLevels(ctx context.Context, t migrate.Target) error {
	v, _ := t.User(string(KeyLogging))
	logging, ok := v.(layer.Tree)
	if !ok {
		return nil
	}
	for _, module := range layer.Keys(logging) {
		n, ok := integral(logging[module])
		if !ok {
			continue
		}
		var err error
		if n >= 0 && n < int64(len(levelNames)) {
			err = t.SetPath(ctx, KeyLogging.path(module), levelNames[n])
		} else {
			err = t.Unset(ctx, KeyLogging.path(module)...)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

var textFunction = regexp2.MustCompile(`^im_|([^a-zA-Z0-9_-])im_`, regexp2.None)

func migrateTextFunctions(ctx context.Context, t migrate.Target) error {
	for _, key := range []Key{KeyIgnoremaps, KeyInputmaps, KeyImaps, KeyNmaps} {
		v, _ := t.User(string(key))
		maps, ok := v.(layer.Tree)
		if !ok {
			continue
		}
		for _, binding := range layer.Keys(maps) {
			cmd, ok := maps[binding].(string)
			if !ok {
				continue
			}
			replaced, err := textFunction.Replace(cmd, "$1text.", -1, 1)
			if err != nil {
				return fmt.Errorf("rewrite %s %q: %w", key, binding, err)
			}
			if replaced == cmd {
				continue
			}
			if err := t.SetPath(ctx, key.path(binding), replaced); err != nil {
				return err
			}
		}
	}
	return nil
}

var numericSettings = []string{
	"priority", "hintdelay", "scrollduration", "ttsvolume",
	"ttsrate", "ttspitch", "jumpdelay", "historyresults",
}

func migrateNumericSettings(ctx context.Context, t migrate.Target) error {
	var errs []error
	for _, name := range numericSettings {
		err := migrate.UpdateAll(ctx, t, []string{name}, func(v any) (any, bool) {
			if _, ok := v.(int64); ok {
				return nil, false
			}
			n, ok := leadingInt(v)
			return n, ok
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func migrateNoIframeOn(ctx context.Context, t migrate.Target) error {
	v, _ := t.User(string(KeyNoIframeOn))
	sites, _ := v.([]any)
	for _, s := range sites {
		pattern, ok := s.(string)
		if !ok {
			continue
		}
		if err := t.SetURL(ctx, pattern, KeyNoIframe.path(), "true"); err != nil {
			return err
		}
	}
	return nil
}

func migrateTabAlias(ctx context.Context, t migrate.Target) error {
	return t.Unset(ctx, KeyExaliases.path("tab")...)
}

var modifiedSpaces = []string{
	"<A- >", "<C- >", "<M- >", "<S- >", "<AC- >",
	"<AM- >", "<AS- >", "<CM- >", "<CS- >", "<MS- >",
}

func migrateSpaceBindings(ctx context.Context, t migrate.Target) error {
	rename := func(v any) (any, bool) {
		maps, ok := v.(layer.Tree)
		if !ok {
			return nil, false
		}
		changed := false
		if cmd, ok := maps[" "]; ok {
			maps["<Space>"] = cmd
			delete(maps, " ")
			changed = true
		}
		for _, binding := range modifiedSpaces {
			if cmd, ok := maps[binding]; ok {
				maps[strings.Replace(binding, " ", "Space", 1)] = cmd
				delete(maps, binding)
				changed = true
			}
		}
		return maps, changed
	}

	var errs []error
	for _, key := range []Key{KeyNmaps, KeyExmaps, KeyImaps, KeyInputmaps, KeyIgnoremaps} {
		if err := migrate.UpdateAll(ctx, t, key.path(), rename); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// integral returns v as an integer if it is a whole number.
func integral(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int64(n), true
		}
	}
	return 0, false
}

// leadingInt parses the integer at the start of v, ignoring anything after
// it, the way "300ms" reads as 300.
func leadingInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case string:
		s := strings.TrimSpace(n)
		end := 0
		if end < len(s) && (s[end] == '-' || s[end] == '+') {
			end++
		}
		digits := end
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}
		if end == digits {
			return 0, false
		}
		i, err := strconv.ParseInt(s[:end], 10, 64)
		return i, err == nil
	}
	return 0, false
}
