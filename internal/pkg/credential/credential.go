package credential

import (
	"context"

	"go.uber.org/zap"
)

const (
	// FallbackKey is used when the system configuration carries no secret.
	FallbackKey = "Zgfr56gFe87jJOM"
	// SecretConfigKey names the system-wide secret in the config store.
	SecretConfigKey = "secret"
)

type configLookup interface {
	GetConfigValue(ctx context.Context, key string) (string, bool, error)
}

// Decrypt reverses the XOR stream used to obfuscate stored secrets. The
// transform is its own inverse.
func Decrypt(key, value string) string {
	k := []rune(key)
	if len(k) == 0 {
		return value
	}
	v := []rune(value)
	out := make([]rune, len(v))
	for i, r := range v {
		out[i] = r ^ k[i%len(k)]
	}
	return string(out)
}

// ResolveKey returns the system secret, or FallbackKey when none is
// configured or the lookup fails.
func ResolveKey(ctx context.Context, lookup configLookup, logger *zap.Logger) string {
	if lookup == nil {
		return FallbackKey
	}
	secret, ok, err := lookup.GetConfigValue(ctx, SecretConfigKey)
	if err != nil {
		logger.Warn("failed to read system secret, using fallback key", zap.Error(err))
		return FallbackKey
	}
	if !ok || secret == "" {
		logger.Debug("no system secret configured, using fallback key")
		return FallbackKey
	}
	return secret
}

// Unwrap resolves the key and decrypts value with it.
func Unwrap(ctx context.Context, lookup configLookup, value string, logger *zap.Logger) string {
	plain := Decrypt(ResolveKey(ctx, lookup, logger), value)
	logger.Debug("setup encryption")
	return plain
}
