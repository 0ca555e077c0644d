package auth

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/yourorg/hrstage/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the fixed fallback used when no secret source carries a
// password for the subsystem. Documented operability choice: an admin is
// never hard-locked out of a freshly deployed suite.
const DefaultPassword = "admin123"

// MasterPasswordKey is the secret-source key of the master credential that
// authenticates against any subsystem's gate.
const MasterPasswordKey = "master_admin_password"

// SecretSource looks up a named secret. Sources never return errors; any
// lookup failure reads as "not present" and the resolver falls through.
type SecretSource interface {
	Lookup(key string) (value string, ok bool)
}

// EnvSource reads secrets from environment variables. Keys are upper-cased,
// so "payroll_admin_password" reads PAYROLL_ADMIN_PASSWORD.
type EnvSource struct{}

func (EnvSource) Lookup(key string) (string, bool) {
	value := os.Getenv(strings.ToUpper(key))
	return value, value != ""
}

// FileSource reads secrets from a flat JSON object on disk. The file is
// re-read on every lookup so password changes apply without a restart.
// Missing or unreadable files read as "not present".
type FileSource struct {
	Path string
}

func (s FileSource) Lookup(key string) (string, bool) {
	if s.Path == "" {
		return "", false
	}
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return "", false
	}
	var secrets map[string]string
	if err := json.Unmarshal(raw, &secrets); err != nil {
		return "", false
	}
	value, ok := secrets[key]
	return value, ok && value != ""
}

// CredentialResolver resolves the admin secret for a subsystem. Resolution
// order per source list: subsystem-specific key, then the master key,
// terminating at DefaultPassword. Resolve never fails.
type CredentialResolver struct {
	sources []SecretSource
}

// NewCredentialResolver creates a resolver over the given sources, consulted
// in order.
func NewCredentialResolver(sources ...SecretSource) *CredentialResolver {
	return &CredentialResolver{sources: sources}
}

// Resolve returns the credential the subsystem's gate compares against.
func (r *CredentialResolver) Resolve(subsystem domain.SubsystemID) string {
	for _, src := range r.sources {
		if value, ok := src.Lookup(subsystem.PasswordKey()); ok {
			return value
		}
	}
	for _, src := range r.sources {
		if value, ok := src.Lookup(MasterPasswordKey); ok {
			return value
		}
	}
	return DefaultPassword
}

// Verify compares an attempted secret against a resolved credential. Plain
// credentials use direct equality, matching the store-and-compare contract of
// the admin panels. Credentials stored as bcrypt hashes (the usual $2a$ /
// $2b$ / $2y$ prefixes) are compared with bcrypt so production deployments
// need not keep plaintext in the secret source.
func Verify(resolved, attempted string) bool {
	if isBcryptHash(resolved) {
		return bcrypt.CompareHashAndPassword([]byte(resolved), []byte(attempted)) == nil
	}
	return resolved == attempted
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") ||
		strings.HasPrefix(s, "$2b$") ||
		strings.HasPrefix(s, "$2y$")
}
