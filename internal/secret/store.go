package secret

import (
	"os"
	"strings"
	"unicode"
)

// SecretStore provides a pluggable interface for storing sensitive data
// such as export target passwords.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// TargetKey is the secret key holding the password of an export target.
func TargetKey(target string) string {
	return "target." + target + ".password"
}

// ── Environment ────────────────────────────────────────────

// EnvStore reads secrets from environment variables. The key
// "target.warehouse.password" maps to FORESTNAV_TARGET_WAREHOUSE_PASSWORD.
type EnvStore struct {
	Prefix string
}

// NewEnvStore creates an EnvStore with the FORESTNAV_ prefix.
func NewEnvStore() *EnvStore {
	return &EnvStore{Prefix: "FORESTNAV_"}
}

// Var returns the environment variable name for key.
func (e *EnvStore) Var(key string) string {
	name := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return unicode.ToUpper(r)
		}
		return '_'
	}, key)
	return e.Prefix + name
}

// Set only affects the current process.
func (e *EnvStore) Set(key string, value []byte) error {
	return os.Setenv(e.Var(key), string(value))
}

func (e *EnvStore) Get(key string) ([]byte, error) {
	v, ok := os.LookupEnv(e.Var(key))
	if !ok || v == "" {
		return nil, nil
	}
	return []byte(v), nil
}

func (e *EnvStore) Delete(key string) error {
	return os.Unsetenv(e.Var(key))
}

// ── Chain ──────────────────────────────────────────────────

// Chain reads from the first store holding the key and writes to the first
// store only.
type Chain []SecretStore

func (c Chain) Set(key string, value []byte) error {
	if len(c) == 0 {
		return nil
	}
	return c[0].Set(key, value)
}

func (c Chain) Get(key string) ([]byte, error) {
	for _, s := range c {
		v, err := s.Get(key)
		if err != nil {
			return nil, err
		}
		if len(v) > 0 {
			return v, nil
		}
	}
	return nil, nil
}

func (c Chain) Delete(key string) error {
	for _, s := range c {
		if err := s.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// Default is the environment followed by the OS credential store when its
// tool is installed.
func Default() SecretStore {
	chain := Chain{NewEnvStore()}
	if kc := NewKeychainStore(); kc != nil {
		chain = append(chain, kc)
	}
	return chain
}

// Password returns the password for an export target. A password written in
// the configuration wins over the store.
func Password(store SecretStore, target, configured string) (string, error) {
	if configured != "" || store == nil {
		return configured, nil
	}
	v, err := store.Get(TargetKey(target))
	if err != nil {
		return "", err
	}
	return string(v), nil
}
