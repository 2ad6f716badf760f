package credentials

import (
	"context"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
)

// CargoFileStore reads tokens from Cargo's own credentials.toml, the
// filesystem fallback spec §4.7 reserves for Cargo alone: no other
// ecosystem's router consults the filesystem.
type CargoFileStore struct {
	path string
}

// cargoCredentialsFile mirrors the shape Cargo writes to
// ~/.cargo/credentials.toml: a [registries.<name>] table per registry plus
// a legacy top-level [registry] table for crates.io itself.
type cargoCredentialsFile struct {
	Registry struct {
		Token string `toml:"token"`
	} `toml:"registry"`
	Registries map[string]struct {
		Token string `toml:"token"`
	} `toml:"registries"`
}

// DefaultCargoCredentialsPath returns ~/.cargo/credentials.toml.
func DefaultCargoCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cargo", "credentials.toml"), nil
}

// NewCargoFileStore builds a store reading the given credentials.toml path.
func NewCargoFileStore(path string) *CargoFileStore {
	return &CargoFileStore{path: path}
}

// Get resolves a token by registry name; key "crates-io" (or empty) reads
// the legacy top-level [registry] table, any other key reads
// [registries.<key>].
func (s *CargoFileStore) Get(ctx context.Context, key string) (*Credential, error) {
	var file cargoCredentialsFile
	if _, err := toml.DecodeFile(s.path, &file); err != nil {
		return nil, ErrCredentialNotFound
	}

	var token string
	if key == "" || key == "crates-io" {
		token = file.Registry.Token
	} else if reg, ok := file.Registries[key]; ok {
		token = reg.Token
	}
	if token == "" {
		return nil, ErrCredentialNotFound
	}
	return &Credential{Key: key, Type: CredentialTypeToken, Value: cleanToken(token)}, nil
}

func (s *CargoFileStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	return err == nil, nil
}

// cleanToken strips the "Bearer "/"Token " prefix Cargo itself tolerates in
// the stored value.
var tokenPrefixRe = regexp.MustCompile(`(?i)^(bearer|token)\s+`)

func cleanToken(v string) string {
	return tokenPrefixRe.ReplaceAllString(v, "")
}
