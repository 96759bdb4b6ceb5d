package config

import (
	"runtime"
	"time"
)

type Config struct {
	Version       int           `toml:"version"`
	Project       Project       `toml:"project"`
	Formats       Formats       `toml:"formats"`
	Scan          Scan          `toml:"scan"`
	Routes        Routes        `toml:"routes"`
	Case          Case          `toml:"case"`
	DB            Database      `toml:"db"`
	Observability Observability `toml:"observability"`
	Watch         Watch         `toml:"watch"`
}

type Project struct {
	Root           string   `toml:"root"`
	RenameMap      string   `toml:"rename_map"`
	ExcludeDirs    []string `toml:"exclude_dirs"`
	ExcludeFiles   []string `toml:"exclude_files"`
	DirectoryIndex []string `toml:"directory_index"`
	Workers        int      `toml:"workers"`
}

// Formats maps each content format to base-name globs.
type Formats struct {
	HTML []string `toml:"html"`
	CSS  []string `toml:"css"`
	JS   []string `toml:"js"`
	JSON []string `toml:"json"`
}

type Scan struct {
	IgnorePrefixes []string `toml:"ignore_prefixes"`
	HTML           HTMLScan `toml:"html"`
	CSS            CSSScan  `toml:"css"`
	JS             JSScan   `toml:"js"`
	JSON           JSONScan `toml:"json"`
}

type HTMLScan struct {
	Attributes       []string `toml:"attributes"`
	SrcsetAttributes []string `toml:"srcset_attributes"`
	Patterns         []string `toml:"patterns"`
}

type CSSScan struct {
	Patterns []string `toml:"patterns"`
}

type JSScan struct {
	AssetPattern string `toml:"asset_pattern"`
}

type JSONScan struct {
	PathPattern string `toml:"path_pattern"`
}

type Routes struct {
	Files       []string    `toml:"files"`
	Passthrough []string    `toml:"passthrough"`
	MaxDepth    int         `toml:"max_depth"`
	Directives  []Directive `toml:"directives"`
}

type Directive struct {
	Name    string `toml:"name"`
	Pattern string `toml:"pattern"`
	Kind    string `toml:"kind"`
	Source  string `toml:"source"`
}

type Case struct {
	Resolve string `toml:"resolve"`
	Check   string `toml:"check"`
}

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

const (
	CaseFix    = "fix"
	CaseStrict = "strict"
	CaseFold   = "fold"

	KindAlias    = "alias"
	KindRedirect = "redirect"
)

const DefaultMaxDepth = 8

// DefaultConfig returns a fully defaulted configuration for use without a file.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}

var defaultCSSPatterns = []string{
	`url\(\s*"(?P<link>[^"]*)"\s*\)`,
	`url\(\s*'(?P<link>[^']*)'\s*\)`,
	`url\(\s*(?P<link>[^'")\s][^)\s]*)\s*\)`,
	`@import\s+"(?P<link>[^"]+)"`,
	`@import\s+'(?P<link>[^']+)'`,
}

const defaultAssetPattern = `(?i)^[^\s<>"'{}]+\.(?:png|jpe?g|gif|svg|webp|avif|ico|bmp|css|js|mjs|json|html?|xml|txt|woff2?|ttf|otf|eot|mp4|webm|ogg|mp3|wav|pdf|webmanifest)(?:[?#][^\s"']*)?$`

var defaultDirectives = []Directive{
	{
		Name:    "rewrite_rule",
		Pattern: `(?i)^\s*RewriteRule\s+\^/?(?P<source>[a-z0-9\-_/.]+)\??\$?\s+(?P<target>\S+)`,
		Kind:    KindAlias,
	},
	{
		Name:    "redirect",
		Pattern: `(?i)^\s*Redirect(?:Permanent|\s+(?:permanent|temp|seeother|3\d{2}))?\s+(?P<source>/\S*)\s+(?P<target>\S+)`,
		Kind:    KindRedirect,
	},
	{
		Name:    "directory_index",
		Pattern: `(?i)^\s*DirectoryIndex\s+(?P<target>\S+\.html?)`,
		Kind:    KindAlias,
		Source:  "/",
	},
}

var defaultPassthrough = []string{
	"RewriteEngine", "RewriteCond", "RewriteBase", "RewriteOptions", "Options",
	"ErrorDocument", "Header", "AddType", "AddHandler", "AddCharset",
	"AddDefaultCharset", "AddOutputFilterByType", "SetEnv", "SetEnvIf",
	"ExpiresActive", "ExpiresByType", "ExpiresDefault", "FileETag",
	"<IfModule", "</IfModule>", "<Files", "</Files>", "<FilesMatch", "</FilesMatch>",
	"Order", "Allow", "Deny", "Require", "DefaultType",
}
