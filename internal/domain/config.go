package domain

import "context"

// Reserved bundle keys. Everything else in a bundle is a category name.
const (
	BundleTimestampKey = "backup_timestamp"
	BundleSystemKey    = "system"
)

// Bundle is an exportable snapshot of every configuration document a
// subsystem carries, plus the reserved backup_timestamp and system keys.
type Bundle map[string]any

// Categories returns the non-reserved, non-empty entries of the bundle.
func (b Bundle) Categories() map[string]any {
	out := make(map[string]any, len(b))
	for key, value := range b {
		if key == BundleTimestampKey || key == BundleSystemKey {
			continue
		}
		if value == nil {
			continue
		}
		out[key] = value
	}
	return out
}

// System returns the bundle's source subsystem tag, if present.
func (b Bundle) System() (SubsystemID, bool) {
	v, ok := b[BundleSystemKey].(string)
	if !ok || v == "" {
		return "", false
	}
	return SubsystemID(v), true
}

// ConfigStore is durable read/write of named JSON documents scoped by
// subsystem and category. Documents are replaced wholesale on save; there is
// no merge and no versioning.
type ConfigStore interface {
	// Save serializes data and replaces the document for (subsystem, configType).
	Save(ctx context.Context, subsystem SubsystemID, configType string, data any) error

	// Load returns the stored document. found is false for a category that
	// was never saved; a stored but unreadable document returns
	// ErrCorruptDocument instead.
	Load(ctx context.Context, subsystem SubsystemID, configType string) (doc any, found bool, err error)

	// ListCategories enumerates the categories currently stored for a subsystem.
	ListCategories(ctx context.Context, subsystem SubsystemID) ([]string, error)

	// DeleteAll removes every document for the subsystem. Irreversible.
	DeleteAll(ctx context.Context, subsystem SubsystemID) error

	// Backup collects every category's document plus a timestamp into a bundle.
	Backup(ctx context.Context, subsystem SubsystemID) (Bundle, error)

	// Restore saves each non-empty bundle entry, best effort. A
	// *PartialRestoreError reports entries that failed while the rest committed.
	Restore(ctx context.Context, subsystem SubsystemID, bundle Bundle) error
}
