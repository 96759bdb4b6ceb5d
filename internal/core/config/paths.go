package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	ProjectRoot   string
	RenameMapPath string
	DBPath        string
}

// ResolvePaths makes every configured path absolute. The project root is
// relative to cwd; the rename map and history database are relative to the
// project root.
func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, fmt.Errorf("cwd must not be empty")
	}

	projectRoot := ResolveRelative(cwd, cfg.Project.Root)
	resolved := ResolvedPaths{
		ProjectRoot: projectRoot,
		DBPath:      ResolveRelative(projectRoot, cfg.DB.Path),
	}
	if strings.TrimSpace(cfg.Project.RenameMap) != "" {
		resolved.RenameMapPath = ResolveRelative(projectRoot, cfg.Project.RenameMap)
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}
