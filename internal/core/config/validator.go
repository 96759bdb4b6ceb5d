package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateProject(cfg *Config) error {
	if cfg.Project.Root == "" {
		return fmt.Errorf("project.root must not be empty")
	}
	if cfg.Project.Workers < 1 || cfg.Project.Workers > 1024 {
		return fmt.Errorf("project.workers must be between 1 and 1024, got %d", cfg.Project.Workers)
	}
	for i, name := range cfg.Project.DirectoryIndex {
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("project.directory_index[%d] %q must be a bare file name", i, name)
		}
	}
	if err := validateGlobs("project.exclude_dirs", cfg.Project.ExcludeDirs); err != nil {
		return err
	}
	return validateGlobs("project.exclude_files", cfg.Project.ExcludeFiles)
}

func validateFormats(cfg *Config) error {
	groups := []struct {
		name  string
		globs []string
	}{
		{"formats.html", cfg.Formats.HTML},
		{"formats.css", cfg.Formats.CSS},
		{"formats.js", cfg.Formats.JS},
		{"formats.json", cfg.Formats.JSON},
	}
	seen := make(map[string]string)
	for _, group := range groups {
		if err := validateGlobs(group.name, group.globs); err != nil {
			return err
		}
		for _, g := range group.globs {
			key := strings.ToLower(g)
			if prev, ok := seen[key]; ok {
				return fmt.Errorf("format conflict: %s and %s share the pattern %q", prev, group.name, g)
			}
			seen[key] = group.name
		}
	}
	return nil
}

func validateScan(cfg *Config) error {
	if err := validateGlobs("scan.html.attributes", cfg.Scan.HTML.Attributes); err != nil {
		return err
	}
	if err := validateGlobs("scan.html.srcset_attributes", cfg.Scan.HTML.SrcsetAttributes); err != nil {
		return err
	}
	if err := validateLinkPatterns("scan.html.patterns", cfg.Scan.HTML.Patterns); err != nil {
		return err
	}
	if err := validateLinkPatterns("scan.css.patterns", cfg.Scan.CSS.Patterns); err != nil {
		return err
	}
	if _, err := regexp.Compile(cfg.Scan.JS.AssetPattern); err != nil {
		return fmt.Errorf("scan.js.asset_pattern is invalid: %w", err)
	}
	if _, err := regexp.Compile(cfg.Scan.JSON.PathPattern); err != nil {
		return fmt.Errorf("scan.json.path_pattern is invalid: %w", err)
	}
	return nil
}

func validateRoutes(cfg *Config) error {
	if cfg.Routes.MaxDepth < 1 || cfg.Routes.MaxDepth > 64 {
		return fmt.Errorf("routes.max_depth must be between 1 and 64, got %d", cfg.Routes.MaxDepth)
	}
	for i, name := range cfg.Routes.Files {
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("routes.files[%d] %q must be a file name in the project root", i, name)
		}
	}
	seen := make(map[string]bool, len(cfg.Routes.Directives))
	for i, d := range cfg.Routes.Directives {
		ref := fmt.Sprintf("routes.directives[%d]", i)
		if d.Name == "" {
			return fmt.Errorf("%s.name must not be empty", ref)
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate directive name %q", d.Name)
		}
		seen[d.Name] = true
		if d.Kind != KindAlias && d.Kind != KindRedirect {
			return fmt.Errorf("%s.kind must be one of: alias, redirect", ref)
		}
		re, err := regexp.Compile(d.Pattern)
		if err != nil {
			return fmt.Errorf("%s.pattern is invalid: %w", ref, err)
		}
		if re.SubexpIndex("target") < 0 {
			return fmt.Errorf("%s.pattern must define a (?P<target>...) group", ref)
		}
		if re.SubexpIndex("source") < 0 && d.Source == "" {
			return fmt.Errorf("%s needs either a (?P<source>...) group or a literal source", ref)
		}
	}
	return nil
}

func validateCase(cfg *Config) error {
	switch cfg.Case.Resolve {
	case CaseFix, CaseStrict:
	default:
		return fmt.Errorf("case.resolve must be one of: fix, strict")
	}
	switch cfg.Case.Check {
	case CaseStrict, CaseFold:
	default:
		return fmt.Errorf("case.check must be one of: strict, fold")
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if cfg.DB.Enabled && strings.TrimSpace(cfg.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty when db.enabled=true")
	}
	return nil
}

func validateGlobs(field string, patterns []string) error {
	for i, p := range patterns {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("%s[%d] %q is not a valid glob: %w", field, i, p, err)
		}
	}
	return nil
}

func validateLinkPatterns(field string, patterns []string) error {
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("%s[%d] is invalid: %w", field, i, err)
		}
		if re.SubexpIndex("link") < 0 {
			return fmt.Errorf("%s[%d] must define a (?P<link>...) group", field, i)
		}
	}
	return nil
}
