package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yourorg/hrstage/internal/domain"
	"github.com/yourorg/hrstage/pkg/cache"
)

const configFileSuffix = "_config.json"

// ConfigRepository implements domain.ConfigStore on local disk: one
// directory per subsystem, one JSON file per category, named
// "<category>_config.json". Documents are replaced wholesale on save via a
// temp-file rename so readers never observe a torn write. Concurrent saves
// on the same key are last-writer-wins.
type ConfigRepository struct {
	dataDir  string
	cache    *cache.Cache[any]
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewConfigRepository creates a config repository rooted at dataDir
func NewConfigRepository(dataDir string, cacheTTL time.Duration, logger *slog.Logger) *ConfigRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigRepository{
		dataDir:  dataDir,
		cache:    cache.New[any](),
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Save serializes data and replaces the document for (subsystem, configType)
func (r *ConfigRepository) Save(ctx context.Context, subsystem domain.SubsystemID, configType string, data any) error {
	path, err := r.documentPath(subsystem, configType)
	if err != nil {
		return err
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize %s config %q: %w", subsystem, configType, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, configType+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to write %s config %q: %w", subsystem, configType, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s config %q: %w", subsystem, configType, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s config %q: %w", subsystem, configType, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s config %q: %w", subsystem, configType, err)
	}

	r.cache.InvalidatePrefix(cacheKey(subsystem, ""))
	r.logger.Debug("config saved",
		slog.String("subsystem", string(subsystem)),
		slog.String("category", configType),
	)
	return nil
}

// Load returns the stored document; found is false for a never-saved category
func (r *ConfigRepository) Load(ctx context.Context, subsystem domain.SubsystemID, configType string) (any, bool, error) {
	path, err := r.documentPath(subsystem, configType)
	if err != nil {
		return nil, false, err
	}

	if doc, ok := r.cache.Get(cacheKey(subsystem, configType)); ok {
		return doc, true, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s config %q: %w", subsystem, configType, err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, fmt.Errorf("%s config %q: %w: %v", subsystem, configType, domain.ErrCorruptDocument, err)
	}

	r.cache.Set(cacheKey(subsystem, configType), doc, r.cacheTTL)
	return doc, true, nil
}

// ListCategories enumerates the categories stored for a subsystem
func (r *ConfigRepository) ListCategories(ctx context.Context, subsystem domain.SubsystemID) ([]string, error) {
	if !subsystem.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSubsystem, subsystem)
	}

	entries, err := os.ReadDir(r.subsystemDir(subsystem))
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s configs: %w", subsystem, err)
	}

	categories := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, configFileSuffix) {
			continue
		}
		categories = append(categories, strings.TrimSuffix(name, configFileSuffix))
	}
	sort.Strings(categories)
	return categories, nil
}

// DeleteAll removes every document for the subsystem
func (r *ConfigRepository) DeleteAll(ctx context.Context, subsystem domain.SubsystemID) error {
	categories, err := r.ListCategories(ctx, subsystem)
	if err != nil {
		return err
	}

	for _, category := range categories {
		path := filepath.Join(r.subsystemDir(subsystem), category+configFileSuffix)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete %s config %q: %w", subsystem, category, err)
		}
	}

	r.cache.InvalidatePrefix(cacheKey(subsystem, ""))
	r.logger.Info("all configs deleted",
		slog.String("subsystem", string(subsystem)),
		slog.Int("count", len(categories)),
	)
	return nil
}

// Backup collects every category's document plus a timestamp into a bundle
func (r *ConfigRepository) Backup(ctx context.Context, subsystem domain.SubsystemID) (domain.Bundle, error) {
	categories, err := r.ListCategories(ctx, subsystem)
	if err != nil {
		return nil, err
	}

	bundle := domain.Bundle{
		domain.BundleTimestampKey: time.Now().Format(time.RFC3339),
		domain.BundleSystemKey:    string(subsystem),
	}
	for _, category := range categories {
		doc, found, err := r.Load(ctx, subsystem, category)
		if err != nil {
			// An unreadable document cannot be exported; the rest of the
			// bundle is still useful.
			r.logger.Warn("skipping unreadable config in backup",
				slog.String("subsystem", string(subsystem)),
				slog.String("category", category),
				slog.String("error", err.Error()),
			)
			continue
		}
		if found {
			bundle[category] = doc
		}
	}
	return bundle, nil
}

// Restore saves each non-empty bundle entry, best effort. Reserved keys are
// skipped; unknown categories are accepted. Returns *domain.PartialRestoreError
// when some entries failed while the rest committed.
func (r *ConfigRepository) Restore(ctx context.Context, subsystem domain.SubsystemID, bundle domain.Bundle) error {
	if !subsystem.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownSubsystem, subsystem)
	}

	if source, ok := bundle.System(); ok && source != subsystem {
		// Warning only: cross-subsystem restores are unusual but allowed.
		r.logger.Warn("restoring bundle exported from a different subsystem",
			slog.String("subsystem", string(subsystem)),
			slog.String("bundle_system", string(source)),
		)
	}

	entries := bundle.Categories()
	categories := make([]string, 0, len(entries))
	for category := range entries {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	failed := map[string]error{}
	for _, category := range categories {
		if err := r.Save(ctx, subsystem, category, entries[category]); err != nil {
			r.logger.Error("failed to restore config entry",
				slog.String("subsystem", string(subsystem)),
				slog.String("category", category),
				slog.String("error", err.Error()),
			)
			failed[category] = err
		}
	}

	if len(failed) > 0 {
		return &domain.PartialRestoreError{Failed: failed}
	}
	return nil
}

func (r *ConfigRepository) subsystemDir(subsystem domain.SubsystemID) string {
	return filepath.Join(r.dataDir, subsystem.ConfigDirName())
}

func (r *ConfigRepository) documentPath(subsystem domain.SubsystemID, configType string) (string, error) {
	if !subsystem.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownSubsystem, subsystem)
	}
	if err := validateCategory(configType); err != nil {
		return "", err
	}
	return filepath.Join(r.subsystemDir(subsystem), configType+configFileSuffix), nil
}

// validateCategory rejects names that cannot form a safe file name. Any
// other string is accepted; the store does not enforce a category schema.
func validateCategory(name string) error {
	if name == "" ||
		strings.ContainsAny(name, `/\`) ||
		strings.Contains(name, "..") ||
		name != strings.TrimSpace(name) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidCategory, name)
	}
	return nil
}

func cacheKey(subsystem domain.SubsystemID, configType string) string {
	return string(subsystem) + "/" + configType
}
