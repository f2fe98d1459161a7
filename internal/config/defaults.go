package config

import "github.com/dshills/sitecfg/internal/config/layer"

// Defaults returns a fresh copy of the built-in default tree.
func Defaults() layer.Tree {
	imaps := layer.Tree{
		"<Escape>":    "composite unfocus | mode normal",
		"<C-[>":       "composite unfocus | mode normal",
		"<C-i>":       "editor",
		"<CA-Escape>": "mode normal",
		"<CA-`>":      "mode normal",
		"<C-6>":       "tab #",
		"<C-^>":       "tab #",
		"<S-Escape>":  "mode ignore",
	}

	return layer.Tree{
		"configversion": "0.0",
		"subconfigs": layer.Tree{
			"www.google.com": layer.Tree{
				"followpagepatterns": layer.Tree{
					"next": "Next",
					"prev": "Previous",
				},
			},
		},
		"priority": 0,

		"exmaps": layer.Tree{
			"<Enter>":     "ex.accept_line",
			"<C-j>":       "ex.accept_line",
			"<C-m>":       "ex.accept_line",
			"<Escape>":    "ex.hide_and_clear",
			"<ArrowUp>":   "ex.prev_history",
			"<ArrowDown>": "ex.next_history",
			"<C-a>":       "text.beginning_of_line",
			"<C-e>":       "text.end_of_line",
			"<C-u>":       "text.backward_kill_line",
			"<C-k>":       "text.kill_line",
			"<C-c>":       "text.kill_whole_line",
			"<C-f>":       "ex.complete",
			"<Tab>":       "ex.next_completion",
			"<S-Tab>":     "ex.prev_completion",
			"<Space>":     "ex.insert_space_or_completion",
		},
		"ignoremaps": layer.Tree{
			"<S-Insert>":  "mode normal",
			"<CA-Escape>": "mode normal",
			"<CA-`>":      "mode normal",
			"<S-Escape>":  "mode normal",
			"<C-^>":       "tab #",
			"<C-6>":       "tab #",
		},
		"imaps": imaps,

		"inputmaps": layer.Merge(imaps, layer.Tree{
			"<Tab>":   "focusinput -n",
			"<S-Tab>": "focusinput -N",
		}),
		"nmaps": layer.Tree{
			"<A-p>": "pin",
			"<A-m>": "mute toggle",
			"<F1>":  "help",
			"o":     "fillcmdline open",
			"O":     "current_url open",
			"w":     "fillcmdline winopen",
			"W":     "current_url winopen",
			"t":     "fillcmdline tabopen",
			"T":     "current_url tabopen",
			"]]":    "followpage next",
			"[[":    "followpage prev",
			"[c":    "urlincrement -1",
			"]c":    "urlincrement 1",
			"<C-x>": "urlincrement -1",
			"<C-a>": "urlincrement 1",
			"yy":    "clipboard yank",
			"ys":    "clipboard yankshort",
			"yc":    "clipboard yankcanon",
			"ym":    "clipboard yankmd",
			"yt":    "clipboard yanktitle",
			"gh":    "home",
			"gH":    "home true",
			"p":     "clipboard open",
			"P":     "clipboard tabopen",
			"j":     "scrollline 10",
			"<C-e>": "scrollline 10",
			"k":     "scrollline -10",
			"<C-y>": "scrollline -10",
			"h":     "scrollpx -50",
			"l":     "scrollpx 50",
			"G":     "scrollto 100",
			"gg":    "scrollto 0",
			"<C-u>": "scrollpage -0.5",
			"<C-d>": "scrollpage 0.5",
			"<C-f>": "scrollpage 1",
			"<C-b>": "scrollpage -1",
			"$":     "scrollto 100 x",
			"^":     "scrollto 0 x",
			"H":     "back",
			"L":     "forward",
			"<C-o>": "jumpprev",
			"<C-i>": "jumpnext",
			"d":     "tabclose",
			"D":     "composite tabprev; tabclose #",
			"u":     "undo",
			"r":     "reload",
			"R":     "reloadhard",
			"gi":    "focusinput -l",
			"f":     "hint",
			"F":     "hint -b",
			":":     "fillcmdline_notrail",
			"s":     "fillcmdline open search",
			"S":     "fillcmdline tabopen search",
			"M":     "gobble 1 quickmark",
			"<Esc>": "composite mode normal ; hidecmdline",
		},
		"hintmaps": layer.Tree{
			"<Backspace>":  "hint.popKey",
			"<Escape>":     "hint.reset",
			"<Tab>":        "hint.focusPreviousHint",
			"<S-Tab>":      "hint.focusNextHint",
			"<ArrowUp>":    "hint.focusTopHint",
			"<ArrowDown>":  "hint.focusBottomHint",
			"<ArrowLeft>":  "hint.focusLeftHint",
			"<ArrowRight>": "hint.focusRightHint",
			"<Enter>":      "hint.selectFocusedHint",
			"<Space>":      "hint.selectFocusedHint",
		},

		"leavegithubalone": "false",
		"blacklistkeys":    []any{"/"},

		"autocmds": layer.Tree{
			"DocStart": layer.Tree{},
			"DocEnd":   layer.Tree{},
			"TriStart": layer.Tree{},
			"TabEnter": layer.Tree{},
			"TabLeft":  layer.Tree{},
		},
		"autocontain": layer.Tree{},

		"exaliases": layer.Tree{
			"alias":       "command",
			"au":          "autocmd",
			"aucon":       "autocontain",
			"audel":       "autocmddelete",
			"b":           "tab",
			"noh":         "clearsearchhighlight",
			"o":           "open",
			"w":           "winopen",
			"t":           "tabopen",
			"tabnew":      "tabopen",
			"tabm":        "tabmove",
			"tn":          "tabnext_gt",
			"tp":          "tabprev",
			"tabfirst":    "tab 1",
			"tablast":     "tab 0",
			"buffer":      "tab",
			"bd":          "tabclose",
			"q":           "tabclose",
			"qa":          "qall",
			"h":           "help",
			"unmute":      "mute unmute",
			"colors":      "colourscheme",
			"zo":          "zoom",
			"current_url": "composite get_current_url | fillcmdline_notrail ",
		},

		"followpagepatterns": layer.Tree{
			"next": `^(next|newer)\b|»|>>|more`,
			"prev": `^(prev(ious)?|older)\b|«|<<`,
		},
		"searchengine": "",
		"searchurls": layer.Tree{
			"google":     "https://www.google.com/search?q=",
			"scholar":    "https://scholar.google.com/scholar?q=",
			"bing":       "https://www.bing.com/search?q=",
			"duckduckgo": "https://duckduckgo.com/?q=",
			"wikipedia":  "https://en.wikipedia.org/wiki/Special:Search/",
			"youtube":    "https://www.youtube.com/results?search_query=",
			"github":     "https://github.com/search?utf8=✓&q=",
			"osm":        "https://www.openstreetmap.org/search?query=",
			"mdn":        "https://developer.mozilla.org/en-US/search?q=",
			"qwant":      "https://www.qwant.com/?q=",
		},
		"newtab":     "",
		"storageloc": "sync",

		"hintchars":      "hjklasdfgyuiopqwertnmzxcvb",
		"hintdelay":      300,
		"smoothscroll":   "false",
		"scrollduration": 100,
		"ttsvoice":       "default",
		"ttsvolume":      1,
		"ttsrate":        1,
		"ttspitch":       1,
		"gimode":         "nextinput",
		"theme":          "default",
		"customthemes":   layer.Tree{},
		"modeindicator":  "true",
		"jumpdelay":      3000,

		"logging": layer.Tree{
			"cmdline":     "warning",
			"containers":  "warning",
			"controller":  "warning",
			"excmd":       "error",
			"hinting":     "warning",
			"messaging":   "warning",
			"native":      "warning",
			"performance": "warning",
			"state":       "warning",
			"styling":     "warning",
		},

		"noiframe":   "false",
		"noiframeon": []any{},
		"editorcmd":  "auto",
		"browser":    "firefox",

		"update": layer.Tree{
			"nag":               true,
			"nagwait":           7,
			"lastnaggedversion": "1.14.0",
			"lastchecktime":     0,
			"checkintervalsecs": 60 * 60 * 24,
		},

		"profiledir":            "auto",
		"historyresults":        50,
		"findresults":           -1,
		"findcontextlen":        100,
		"findcase":              "smart",
		"incsearch":             "false",
		"minincsearchlen":       3,
		"csp":                   "untouched",
		"wordpattern":           `[^\s]+`,
		"modeindicatorshowkeys": "false",
	}
}
