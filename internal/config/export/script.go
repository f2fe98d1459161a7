// Package export renders a user tree as a script of commands that
// recreates it when run.
package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/sitecfg/internal/config/layer"
)

// bindModes maps binding trees to the bind flag for their mode.
var bindModes = map[string]string{
	"nmaps":      "",
	"exmaps":     "--mode=ex ",
	"ignoremaps": "--mode=ignore ",
	"imaps":      "--mode=insert ",
	"inputmaps":  "--mode=input ",
	"hintmaps":   "--mode=hint ",
}

var levelNames = []string{"never", "error", "warning", "info", "debug"}

// script collects lines per section.
type script struct {
	general    []string
	binds      []string
	subconfigs []string
	aliases    []string
	autocmds   []string
	autocont   []string
	logging    []string
}

// Script renders user. Sections appear in a fixed order, each under a
// `" <Title>` comment and followed by a blank line. Empty sections are
// left out and keys are sorted.
func Script(user layer.Tree) string {
	var s script
	for _, key := range layer.Keys(user) {
		s.add(key, user[key])
	}

	var b strings.Builder
	section(&b, "General Settings", s.general)
	section(&b, "Binds", s.binds)
	section(&b, "Subconfig Settings", s.subconfigs)
	section(&b, "Aliases", s.aliases)
	section(&b, "Autocmds", s.autocmds)
	section(&b, "Autocontainers", s.autocont)
	section(&b, "Logging", s.logging)
	return b.String()
}

func section(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "\" %s\n", title)
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
}

func (s *script) add(key string, v any) {
	if v == nil {
		return
	}
	if list, ok := v.([]any); ok {
		for i, e := range list {
			s.general = append(s.general, fmt.Sprintf("set %s.%d %s", key, i, format(e)))
		}
		return
	}
	tree, ok := v.(layer.Tree)
	if !ok {
		s.general = append(s.general, fmt.Sprintf("set %s %s", key, format(v)))
		return
	}

	for _, e := range layer.Keys(tree) {
		val := tree[e]
		if mode, ok := bindModes[key]; ok {
			if cmd := format(val); cmd != "" {
				s.binds = append(s.binds, fmt.Sprintf("bind %s%s %s", mode, e, cmd))
			} else {
				s.binds = append(s.binds, fmt.Sprintf("unbind %s%s", mode, e))
			}
			continue
		}

		switch key {
		case "subconfigs":
			s.subconfigs = append(s.subconfigs,
				fmt.Sprintf(`js tri.config.set("subconfigs", {%s: %s})`, jsonString(e), jsonValue(val)))
		case "exaliases":
			if e == "alias" {
				s.aliases = append(s.aliases, fmt.Sprintf("command %s %s", e, format(val)))
			} else {
				s.aliases = append(s.aliases, fmt.Sprintf("alias %s %s", e, format(val)))
			}
		case "autocmds":
			patterns, _ := val.(layer.Tree)
			for _, p := range layer.Keys(patterns) {
				s.autocmds = append(s.autocmds, fmt.Sprintf("autocmd %s %s %s", e, p, format(patterns[p])))
			}
		case "autocontain":
			s.autocont = append(s.autocont, fmt.Sprintf("autocontain %s %s", e, format(val)))
		case "logging":
			s.logging = append(s.logging, fmt.Sprintf("set logging.%s %s", e, level(val)))
		default:
			s.general = append(s.general, fmt.Sprintf("set %s.%s %s", key, e, format(val)))
		}
	}
}

// level names a logging level, mapping the numeric levels of old trees.
func level(v any) string {
	var n int64
	switch l := v.(type) {
	case int:
		n = int64(l)
	case int64:
		n = l
	case float64:
		n = int64(l)
	default:
		return format(v)
	}
	if n >= 0 && n < int64(len(levelNames)) {
		return levelNames[n]
	}
	return format(v)
}

// format renders a value as a command argument. Nested lists are joined
// with commas and trees are written as JSON.
func format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = format(e)
		}
		return strings.Join(parts, ",")
	case layer.Tree:
		return jsonValue(val)
	default:
		return fmt.Sprint(val)
	}
}

func jsonString(s string) string {
	return jsonValue(s)
}

// jsonValue encodes v compactly without escaping <, > and &, which are
// common in key bindings.
func jsonValue(v any) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "null"
	}
	return strings.TrimSuffix(b.String(), "\n")
}
