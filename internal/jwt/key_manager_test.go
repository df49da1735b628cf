package jwt

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateKeyPair(t *testing.T) {
	privateKey, publicKey, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if privateKey == nil {
		t.Fatal("expected private key, got nil")
	}

	if publicKey == nil {
		t.Fatal("expected public key, got nil")
	}

	if !privateKey.PublicKey.Equal(publicKey) {
		t.Error("expected returned public key to match the private key")
	}
}

func TestSaveAndLoadKeyPair(t *testing.T) {
	privateKey, _, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	if err := SaveKeyPair(privateKey, privPath, pubPath); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	loadedPriv, err := LoadPrivateKeyFromFile(privPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !loadedPriv.Equal(privateKey) {
		t.Error("loaded private key does not match saved key")
	}

	loadedPub, err := LoadPublicKeyFromFile(pubPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !loadedPub.Equal(&privateKey.PublicKey) {
		t.Error("loaded public key does not match saved key")
	}
}

func TestLoadPrivateKeyFromFile_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name: "should fail when file does not exist",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.pem")
			},
		},
		{
			name: "should fail on invalid PEM data",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "garbage.pem")
				if err := os.WriteFile(path, []byte("not a key"), 0600); err != nil {
					t.Fatalf("failed to write test file: %v", err)
				}
				return path
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			if _, err := LoadPrivateKeyFromFile(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadKeysFromEnv(t *testing.T) {
	privateKey, _, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	if err := SaveKeyPair(privateKey, privPath, pubPath); err != nil {
		t.Fatalf("failed to save key pair: %v", err)
	}

	privPEM, err := os.ReadFile(privPath)
	if err != nil {
		t.Fatalf("failed to read private key file: %v", err)
	}

	t.Setenv("TEST_SIGNING_KEY", string(privPEM))

	loaded, err := LoadPrivateKeyFromEnv("TEST_SIGNING_KEY")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !loaded.Equal(privateKey) {
		t.Error("loaded private key does not match saved key")
	}

	if _, err := LoadPrivateKeyFromEnv("TEST_SIGNING_KEY_UNSET"); err == nil {
		t.Error("expected error for unset variable, got nil")
	}
}
