package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/runforge-labs/actiond/internal/domain"
	"github.com/runforge-labs/actiond/internal/repo"
)

// Loader registers pack content from a directory tree:
//
//	<root>/runnertypes/<name>.yaml
//	<root>/packs/<pack>/actions/<name>.yaml
//
// This is the administrative registration step; the execution core only
// ever reads what the loader wrote.
type Loader struct {
	actions repo.ActionRepository
	runners repo.RunnerTypeRepository
}

func NewLoader(actionRepo repo.ActionRepository, runnerRepo repo.RunnerTypeRepository) *Loader {
	if actionRepo == nil || runnerRepo == nil {
		return nil
	}
	return &Loader{actions: actionRepo, runners: runnerRepo}
}

type runnerTypeFile struct {
	Name             string                 `yaml:"name"`
	Description      string                 `yaml:"description"`
	Enabled          *bool                  `yaml:"enabled"`
	RunnerParameters domain.ParameterSchema `yaml:"runner_parameters"`
	RunnerModule     string                 `yaml:"runner_module"`
}

type actionFile struct {
	Name        string                  `yaml:"name"`
	Pack        string                  `yaml:"pack"`
	Description string                  `yaml:"description"`
	Enabled     *bool                   `yaml:"enabled"`
	EntryPoint  string                  `yaml:"entry_point"`
	RunnerType  string                  `yaml:"runner_type"`
	Parameters  domain.ParameterSchema  `yaml:"parameters"`
	Notify      domain.NotificationSpec `yaml:"notify"`
}

// LoadDir walks the content root and upserts every runner type and action
// it finds. Runner types load first so action validation can rely on them.
func (l *Loader) LoadDir(ctx context.Context, root string) (int, error) {
	if l == nil {
		return 0, fmt.Errorf("loader not initialized")
	}
	loaded := 0

	runnerFiles, err := listYAML(filepath.Join(root, "runnertypes"))
	if err != nil {
		return 0, err
	}
	for _, path := range runnerFiles {
		rt, err := parseRunnerTypeFile(path)
		if err != nil {
			return loaded, err
		}
		if err := l.runners.Upsert(ctx, rt); err != nil {
			return loaded, fmt.Errorf("register runner type %s: %w", rt.Name, err)
		}
		loaded++
	}

	packsDir := filepath.Join(root, "packs")
	packs, err := os.ReadDir(packsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return loaded, nil
		}
		return loaded, fmt.Errorf("read packs dir: %w", err)
	}
	for _, pack := range packs {
		if !pack.IsDir() {
			continue
		}
		actionFiles, err := listYAML(filepath.Join(packsDir, pack.Name(), "actions"))
		if err != nil {
			return loaded, err
		}
		for _, path := range actionFiles {
			action, err := parseActionFile(path, pack.Name())
			if err != nil {
				return loaded, err
			}
			if _, err := l.runners.Get(ctx, action.RunnerType); err != nil {
				return loaded, fmt.Errorf("action %s references runner type %q: %w", action.Ref(), action.RunnerType, err)
			}
			if err := l.actions.Upsert(ctx, action); err != nil {
				return loaded, fmt.Errorf("register action %s: %w", action.Ref(), err)
			}
			loaded++
		}
	}
	return loaded, nil
}

func parseRunnerTypeFile(path string) (domain.RunnerType, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.RunnerType{}, fmt.Errorf("read %s: %w", path, err)
	}
	var file runnerTypeFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return domain.RunnerType{}, fmt.Errorf("decode %s: %w", path, err)
	}
	rt := domain.RunnerType{
		Name:             strings.TrimSpace(file.Name),
		Description:      file.Description,
		Enabled:          file.Enabled == nil || *file.Enabled,
		RunnerParameters: file.RunnerParameters,
		RunnerModule:     strings.TrimSpace(file.RunnerModule),
	}
	if err := rt.Validate(); err != nil {
		return domain.RunnerType{}, fmt.Errorf("%s: %w", path, err)
	}
	return rt, nil
}

func parseActionFile(path string, pack string) (domain.Action, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Action{}, fmt.Errorf("read %s: %w", path, err)
	}
	var file actionFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return domain.Action{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if strings.TrimSpace(file.Pack) != "" {
		pack = strings.TrimSpace(file.Pack)
	}
	action := domain.Action{
		Pack:        pack,
		Name:        strings.TrimSpace(file.Name),
		Description: file.Description,
		Enabled:     file.Enabled == nil || *file.Enabled,
		EntryPoint:  strings.TrimSpace(file.EntryPoint),
		RunnerType:  strings.TrimSpace(file.RunnerType),
		Parameters:  file.Parameters,
		Notify:      file.Notify,
	}
	if err := action.Validate(); err != nil {
		return domain.Action{}, fmt.Errorf("%s: %w", path, err)
	}
	return action, nil
}

func listYAML(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if ext := filepath.Ext(name); ext != ".yaml" && ext != ".yml" {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}
