package config

// Key names a top-level setting.
type Key string

// Top-level settings referenced by this package and its callers.
const (
	KeyConfigVersion  Key = "configversion"
	KeySubconfigs     Key = "subconfigs"
	KeyPriority       Key = "priority"
	KeyStorageLoc     Key = "storageloc"
	KeyNmaps          Key = "nmaps"
	KeyExmaps         Key = "exmaps"
	KeyIgnoremaps     Key = "ignoremaps"
	KeyImaps          Key = "imaps"
	KeyInputmaps      Key = "inputmaps"
	KeyHintmaps       Key = "hintmaps"
	KeyExaliases      Key = "exaliases"
	KeyAutocmds       Key = "autocmds"
	KeyAutocontain    Key = "autocontain"
	KeyLogging        Key = "logging"
	KeyUpdate         Key = "update"
	KeySearchURLs     Key = "searchurls"
	KeySearchEngine   Key = "searchengine"
	KeyFollowPatterns Key = "followpagepatterns"
	KeyHintChars      Key = "hintchars"
	KeyHintDelay      Key = "hintdelay"
	KeySmoothScroll   Key = "smoothscroll"
	KeyScrollDuration Key = "scrollduration"
	KeyGiMode         Key = "gimode"
	KeyTheme          Key = "theme"
	KeyNoIframe       Key = "noiframe"
	KeyNoIframeOn     Key = "noiframeon"
	KeyBlacklistKeys  Key = "blacklistkeys"
	KeyHistoryResults Key = "historyresults"
)

// StorageKey is the storage key the user tree is persisted under.
const StorageKey = "userconfig"

// String returns the key name.
func (k Key) String() string {
	return string(k)
}

// path returns the key followed by rest.
func (k Key) path(rest ...string) []string {
	return append([]string{string(k)}, rest...)
}
