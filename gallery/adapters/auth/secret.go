package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"morty.dev/characters/gallery/core"
)

// SecretKey is the KV key holding the generated signing secret.
const SecretKey = "session_secret"

// LoadSecret returns configured when set. Otherwise the secret is read from
// store, and generated and saved there on first start.
func LoadSecret(ctx context.Context, store core.KV, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	data, err := store.Get(ctx, SecretKey)
	if err == nil && len(data) > 0 {
		return string(data), nil
	}
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return "", fmt.Errorf("failed to read session secret: %w", err)
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	secret := hex.EncodeToString(key)
	if err := store.Set(ctx, SecretKey, []byte(secret)); err != nil {
		return "", fmt.Errorf("failed to save session secret: %w", err)
	}
	return secret, nil
}
