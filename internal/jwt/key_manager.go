package jwt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// GenerateKeyPair generates a P-256 ECDSA key pair for ES256 signing.
func GenerateKeyPair() (*ecdsa.PrivateKey, *ecdsa.PublicKey, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	return privateKey, &privateKey.PublicKey, nil
}

// SaveKeyPair saves the ECDSA key pair to PEM files.
func SaveKeyPair(privateKey *ecdsa.PrivateKey, privateKeyPath, publicKeyPath string) error {
	privBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	privPEM := &pem.Block{
		Type:  "EC PRIVATE KEY",
		Bytes: privBytes,
	}

	privFile, err := os.OpenFile(privateKeyPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create private key file: %w", err)
	}
	defer privFile.Close()

	if err := pem.Encode(privFile, privPEM); err != nil {
		return fmt.Errorf("failed to encode private key: %w", err)
	}

	pubBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to marshal public key: %w", err)
	}

	pubPEM := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubBytes,
	}

	pubFile, err := os.OpenFile(publicKeyPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create public key file: %w", err)
	}
	defer pubFile.Close()

	if err := pem.Encode(pubFile, pubPEM); err != nil {
		return fmt.Errorf("failed to encode public key: %w", err)
	}

	return nil
}

// LoadPrivateKeyFromFile loads an ECDSA private key from a PEM file.
func LoadPrivateKeyFromFile(path string) (*ecdsa.PrivateKey, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.New("file does not exist")
	}

	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	return parsePrivateKey(keyData)
}

// LoadPublicKeyFromFile loads an ECDSA public key from a PEM file.
func LoadPublicKeyFromFile(path string) (*ecdsa.PublicKey, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.New("file does not exist")
	}

	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}

	return parsePublicKey(keyData)
}

// LoadPrivateKeyFromEnv loads an ECDSA private key from an environment variable.
func LoadPrivateKeyFromEnv(varName string) (*ecdsa.PrivateKey, error) {
	keyData := os.Getenv(varName)
	if keyData == "" {
		return nil, fmt.Errorf("environment variable %s is not set", varName)
	}

	return parsePrivateKey([]byte(keyData))
}

// LoadPublicKeyFromEnv loads an ECDSA public key from an environment variable.
func LoadPublicKeyFromEnv(varName string) (*ecdsa.PublicKey, error) {
	keyData := os.Getenv(varName)
	if keyData == "" {
		return nil, fmt.Errorf("environment variable %s is not set", varName)
	}

	return parsePublicKey([]byte(keyData))
}

// parsePrivateKey parses an ECDSA private key from PEM-encoded data
func parsePrivateKey(keyData []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, errors.New("invalid PEM format")
	}

	if block.Type != "EC PRIVATE KEY" && block.Type != "PRIVATE KEY" {
		return nil, errors.New("wrong key type")
	}

	// SEC 1 first
	if block.Type == "EC PRIVATE KEY" {
		privateKey, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		return privateKey, nil
	}

	// PKCS8
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	privateKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("not an ECDSA private key")
	}

	return privateKey, nil
}

// parsePublicKey parses an ECDSA public key from PEM-encoded data
func parsePublicKey(keyData []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, errors.New("invalid PEM format")
	}

	if block.Type != "PUBLIC KEY" {
		return nil, errors.New("wrong key type")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	publicKey, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("not an ECDSA public key")
	}

	return publicKey, nil
}
