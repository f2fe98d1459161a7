package export

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/sitecfg/internal/config/layer"
)

func TestScript(t *testing.T) {
	user := layer.Tree{
		"configversion": "1.7",
		"hintdelay":     int64(100),
		"blacklistkeys": []any{"/", "?"},
		"nmaps": layer.Tree{
			"j": "scrollline 5",
			"x": "",
		},
		"exmaps": layer.Tree{"<C-a>": "ex.complete"},
		"searchurls": layer.Tree{
			"ddg": "https://duckduckgo.com/?q=",
		},
		"subconfigs": layer.Tree{
			"example.com": layer.Tree{"nmaps": layer.Tree{"<C-f>": "hint"}},
		},
		"exaliases": layer.Tree{
			"alias": "command",
			"o":     "open",
		},
		"autocmds": layer.Tree{
			"DocStart": layer.Tree{"mail.example.com": "mode ignore"},
		},
		"autocontain": layer.Tree{"github.com": "work"},
		"logging": layer.Tree{
			"excmd":   "debug",
			"hinting": float64(1),
		},
	}

	want := `" General Settings
set blacklistkeys.0 /
set blacklistkeys.1 ?
set configversion 1.7
set hintdelay 100
set searchurls.ddg https://duckduckgo.com/?q=

" Binds
bind --mode=ex <C-a> ex.complete
bind j scrollline 5
unbind x

" Subconfig Settings
js tri.config.set("subconfigs", {"example.com": {"nmaps":{"<C-f>":"hint"}}})

" Aliases
command alias command
alias o open

" Autocmds
autocmd DocStart mail.example.com mode ignore

" Autocontainers
autocontain github.com work

" Logging
set logging.excmd debug
set logging.hinting error

`

	if diff := cmp.Diff(want, Script(user)); diff != "" {
		t.Errorf("Script mismatch (-want +got):\n%s", diff)
	}
}

func TestScript_OmitsEmptySections(t *testing.T) {
	tests := []struct {
		name string
		user layer.Tree
		want string
	}{
		{"empty", layer.Tree{}, ""},
		{"nil values skipped", layer.Tree{"theme": nil}, ""},
		{"scalars only", layer.Tree{"theme": "dark", "smoothscroll": true},
			"\" General Settings\nset smoothscroll true\nset theme dark\n\n"},
		{"binds only", layer.Tree{"hintmaps": layer.Tree{"q": "hint.exit"}},
			"\" Binds\nbind --mode=hint q hint.exit\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Script(tt.user); got != tt.want {
				t.Errorf("Script() = %q, want %q", got, tt.want)
			}
		})
	}
}
