package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvStoreGetAndExists(t *testing.T) {
	ctx := context.Background()
	store := NewEnvStore()

	os.Setenv("PACKRADAR_TEST_TOKEN", "secret-value")
	defer os.Unsetenv("PACKRADAR_TEST_TOKEN")

	cred, err := store.Get(ctx, "PACKRADAR_TEST_TOKEN")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cred.Value != "secret-value" {
		t.Errorf("Value = %v, want secret-value", cred.Value)
	}

	if exists, _ := store.Exists(ctx, "PACKRADAR_TEST_TOKEN"); !exists {
		t.Error("Exists should return true for set env var")
	}

	_, err = store.Get(ctx, "PACKRADAR_DOES_NOT_EXIST")
	if err != ErrCredentialNotFound {
		t.Errorf("Get non-existent = %v, want ErrCredentialNotFound", err)
	}
}

func TestChainedStoreFallsThrough(t *testing.T) {
	ctx := context.Background()
	os.Setenv("PACKRADAR_CHAIN_KEY", "env-value")
	defer os.Unsetenv("PACKRADAR_CHAIN_KEY")

	tmpDir := t.TempDir()
	credPath := filepath.Join(tmpDir, "credentials.toml")
	os.WriteFile(credPath, []byte("[registries.internal]\ntoken = \"Bearer file-value\"\n"), 0600)

	chain := NewChainedStore(NewEnvStore(), NewCargoFileStore(credPath))

	cred, err := chain.Get(ctx, "PACKRADAR_CHAIN_KEY")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cred.Value != "env-value" {
		t.Errorf("expected the env store's value for a key only it holds, got %v", cred.Value)
	}

	cred, err = chain.Get(ctx, "internal")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cred.Value != "file-value" {
		t.Errorf("expected fallback to file store with Bearer prefix stripped, got %q", cred.Value)
	}

	_, err = chain.Get(ctx, "nonexistent")
	if err != ErrCredentialNotFound {
		t.Errorf("Get non-existent = %v, want ErrCredentialNotFound", err)
	}
}

func TestCargoFileStoreLegacyRegistryTable(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	credPath := filepath.Join(tmpDir, "credentials.toml")
	os.WriteFile(credPath, []byte("[registry]\ntoken = \"cio-token\"\n"), 0600)

	store := NewCargoFileStore(credPath)
	cred, err := store.Get(ctx, "crates-io")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cred.Value != "cio-token" {
		t.Errorf("Value = %v, want cio-token", cred.Value)
	}
}

func TestCargoFileStoreMissingFileDegradesToNotFound(t *testing.T) {
	store := NewCargoFileStore(filepath.Join(t.TempDir(), "missing.toml"))
	_, err := store.Get(context.Background(), "crates-io")
	if err != ErrCredentialNotFound {
		t.Errorf("expected ErrCredentialNotFound for a missing file, got %v", err)
	}
}

func TestValidateKeyRejectsPathTraversal(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"api-key", false},
		{"GITHUB_TOKEN", false},
		{"", true},
		{"../etc/passwd", true},
		{"foo/bar", true},
		{"key@#$", true},
	}
	for _, tt := range tests {
		if err := ValidateKey(tt.key); (err != nil) != tt.wantErr {
			t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
		}
	}
}
