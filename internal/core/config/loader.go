package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes, defaults, normalizes and validates TOML config data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	normalizeProject(&cfg)
	normalizeRoutes(&cfg)
	normalizeCase(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate runs every section validator and returns the first failure.
func Validate(cfg *Config) error {
	validators := []func(*Config) error{
		validateVersion,
		validateProject,
		validateFormats,
		validateScan,
		validateRoutes,
		validateCase,
		validateDatabase,
	}
	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			return err
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Project.Root) == "" {
		cfg.Project.Root = "."
	}
	if cfg.Project.ExcludeDirs == nil {
		cfg.Project.ExcludeDirs = []string{".git", ".svn", ".hg", "node_modules"}
	}
	if len(cfg.Project.DirectoryIndex) == 0 {
		cfg.Project.DirectoryIndex = []string{"index.html", "index.htm"}
	}
	if cfg.Project.Workers <= 0 {
		cfg.Project.Workers = defaultWorkers()
	}

	if len(cfg.Formats.HTML) == 0 {
		cfg.Formats.HTML = []string{"*.html", "*.htm"}
	}
	if len(cfg.Formats.CSS) == 0 {
		cfg.Formats.CSS = []string{"*.css"}
	}
	if len(cfg.Formats.JS) == 0 {
		cfg.Formats.JS = []string{"*.js", "*.mjs"}
	}
	if len(cfg.Formats.JSON) == 0 {
		cfg.Formats.JSON = []string{"*.json", "*.webmanifest"}
	}

	if cfg.Scan.IgnorePrefixes == nil {
		cfg.Scan.IgnorePrefixes = []string{"mailto:", "tel:", "sms:", "javascript:", "about:", "{{", "${"}
	}
	if len(cfg.Scan.HTML.Attributes) == 0 {
		cfg.Scan.HTML.Attributes = []string{"href", "src", "action", "formaction", "poster", "background", "data", "xlink:href", "data-src", "data-href", "data-bg*"}
	}
	if len(cfg.Scan.HTML.SrcsetAttributes) == 0 {
		cfg.Scan.HTML.SrcsetAttributes = []string{"srcset", "imagesrcset", "data-srcset"}
	}
	if len(cfg.Scan.CSS.Patterns) == 0 {
		cfg.Scan.CSS.Patterns = append([]string(nil), defaultCSSPatterns...)
	}
	if strings.TrimSpace(cfg.Scan.JS.AssetPattern) == "" {
		cfg.Scan.JS.AssetPattern = defaultAssetPattern
	}
	if strings.TrimSpace(cfg.Scan.JSON.PathPattern) == "" {
		cfg.Scan.JSON.PathPattern = defaultAssetPattern
	}

	if cfg.Routes.Files == nil {
		cfg.Routes.Files = []string{".htaccess", "htaccess"}
	}
	if cfg.Routes.Passthrough == nil {
		cfg.Routes.Passthrough = append([]string(nil), defaultPassthrough...)
	}
	if cfg.Routes.MaxDepth <= 0 {
		cfg.Routes.MaxDepth = DefaultMaxDepth
	}
	if len(cfg.Routes.Directives) == 0 {
		cfg.Routes.Directives = append([]Directive(nil), defaultDirectives...)
	}

	if strings.TrimSpace(cfg.Case.Resolve) == "" {
		cfg.Case.Resolve = CaseFix
	}
	if strings.TrimSpace(cfg.Case.Check) == "" {
		cfg.Case.Check = CaseStrict
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = ".relink/history.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 5 * time.Second
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}

func normalizeProject(cfg *Config) {
	cfg.Project.Root = strings.TrimSpace(cfg.Project.Root)
	cfg.Project.RenameMap = strings.TrimSpace(cfg.Project.RenameMap)
	cfg.Project.ExcludeDirs = trimAll(cfg.Project.ExcludeDirs)
	cfg.Project.ExcludeFiles = trimAll(cfg.Project.ExcludeFiles)
	cfg.Project.DirectoryIndex = trimAll(cfg.Project.DirectoryIndex)
}

func normalizeRoutes(cfg *Config) {
	cfg.Routes.Files = trimAll(cfg.Routes.Files)
	cfg.Routes.Passthrough = trimAll(cfg.Routes.Passthrough)
	for i := range cfg.Routes.Directives {
		d := &cfg.Routes.Directives[i]
		d.Name = strings.TrimSpace(d.Name)
		d.Kind = strings.ToLower(strings.TrimSpace(d.Kind))
		if d.Kind == "" {
			d.Kind = KindAlias
		}
		d.Source = strings.TrimSpace(d.Source)
	}
}

func normalizeCase(cfg *Config) {
	cfg.Case.Resolve = strings.ToLower(strings.TrimSpace(cfg.Case.Resolve))
	cfg.Case.Check = strings.ToLower(strings.TrimSpace(cfg.Case.Check))
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
