package secret

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

const keychainService = "forestnav"

// runFunc executes name with args, feeding stdin, and returns stdout.
type runFunc func(stdin []byte, name string, args ...string) ([]byte, error)

func runCommand(stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		err = fmt.Errorf("%s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return out, err
}

// keychainTool describes how one OS credential CLI stores generic
// passwords for the forestnav service.
type keychainTool struct {
	bin      string
	set      func(key string, value []byte) (args []string, stdin []byte)
	get      func(key string) []string
	del      func(key string) []string
	notFound func(err error) bool
}

// macOS `security`; exit status 44 means no such item.
var securityTool = keychainTool{
	bin: "security",
	set: func(key string, value []byte) ([]string, []byte) {
		return []string{"add-generic-password", "-U", "-a", key, "-s", keychainService, "-w", string(value)}, nil
	},
	get: func(key string) []string {
		return []string{"find-generic-password", "-a", key, "-s", keychainService, "-w"}
	},
	del: func(key string) []string {
		return []string{"delete-generic-password", "-a", key, "-s", keychainService}
	},
	notFound: exitCode(44),
}

// libsecret `secret-tool`; lookup exits 1 with no output when absent.
var secretTool = keychainTool{
	bin: "secret-tool",
	set: func(key string, value []byte) ([]string, []byte) {
		return []string{"store", "--label", keychainService + " " + key, "service", keychainService, "account", key}, value
	},
	get: func(key string) []string {
		return []string{"lookup", "service", keychainService, "account", key}
	},
	del: func(key string) []string {
		return []string{"clear", "service", keychainService, "account", key}
	},
	notFound: exitCode(1),
}

func exitCode(code int) func(error) bool {
	return func(err error) bool {
		var exitErr *exec.ExitError
		return errors.As(err, &exitErr) && exitErr.ExitCode() == code
	}
}

// KeychainStore keeps secrets in the OS credential store: the macOS
// Keychain or the freedesktop Secret Service.
type KeychainStore struct {
	tool keychainTool
	run  runFunc
}

// NewKeychainStore returns the store for the running OS, or nil when its
// credential tool is not installed.
func NewKeychainStore() *KeychainStore {
	tool, ok := platformTool()
	if !ok {
		return nil
	}
	if _, err := exec.LookPath(tool.bin); err != nil {
		return nil
	}
	return &KeychainStore{tool: tool, run: runCommand}
}

// KeychainAvailable reports whether NewKeychainStore would succeed.
func KeychainAvailable() bool { return NewKeychainStore() != nil }

func platformTool() (keychainTool, bool) {
	switch runtime.GOOS {
	case "darwin":
		return securityTool, true
	case "linux", "freebsd":
		return secretTool, true
	}
	return keychainTool{}, false
}

// Set overwrites any existing value for key.
func (k *KeychainStore) Set(key string, value []byte) error {
	args, stdin := k.tool.set(key, value)
	if _, err := k.run(stdin, k.tool.bin, args...); err != nil {
		return fmt.Errorf("keychain set %s: %w", key, err)
	}
	return nil
}

// Get returns nil, nil when key is not stored.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	out, err := k.run(nil, k.tool.bin, k.tool.get(key)...)
	if err != nil {
		if k.tool.notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("keychain get %s: %w", key, err)
	}
	return bytes.TrimRight(out, "\r\n"), nil
}

// Delete ignores keys that were never stored.
func (k *KeychainStore) Delete(key string) error {
	if _, err := k.run(nil, k.tool.bin, k.tool.del(key)...); err != nil && !k.tool.notFound(err) {
		return fmt.Errorf("keychain delete %s: %w", key, err)
	}
	return nil
}
