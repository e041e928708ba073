package credential

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type mockLookup struct {
	GetConfigValueFunc func(ctx context.Context, key string) (string, bool, error)
	calls              int
}

func (m *mockLookup) GetConfigValue(ctx context.Context, key string) (string, bool, error) {
	m.calls++
	return m.GetConfigValueFunc(ctx, key)
}

func TestDecrypt(t *testing.T) {
	tests := map[string]struct {
		key, value, want string
	}{
		"single char key": {key: "A", value: "\x00\x01\x02", want: "A@C"},
		"key wraps":       {key: "ab", value: string([]rune{'a' ^ 'x', 'b' ^ 'y', 'a' ^ 'z'}), want: "xyz"},
		"empty value":     {key: "key", value: "", want: ""},
		"empty key":       {key: "", value: "plain", want: "plain"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decrypt(tt.key, tt.value))
		})
	}
}

func TestDecrypt_IsInvolution(t *testing.T) {
	secret := "hunter2-ünïcode"
	obfuscated := Decrypt(FallbackKey, secret)
	assert.NotEqual(t, secret, obfuscated)
	assert.Equal(t, secret, Decrypt(FallbackKey, obfuscated))
}

func TestResolveKey(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	tests := map[string]struct {
		lookup *mockLookup
		want   string
	}{
		"system secret": {
			lookup: &mockLookup{GetConfigValueFunc: func(_ context.Context, key string) (string, bool, error) {
				assert.Equal(t, SecretConfigKey, key)
				return "s3cret", true, nil
			}},
			want: "s3cret",
		},
		"absent secret": {
			lookup: &mockLookup{GetConfigValueFunc: func(context.Context, string) (string, bool, error) {
				return "", false, nil
			}},
			want: FallbackKey,
		},
		"empty secret": {
			lookup: &mockLookup{GetConfigValueFunc: func(context.Context, string) (string, bool, error) {
				return "", true, nil
			}},
			want: FallbackKey,
		},
		"lookup error": {
			lookup: &mockLookup{GetConfigValueFunc: func(context.Context, string) (string, bool, error) {
				return "", false, errors.New("db down")
			}},
			want: FallbackKey,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveKey(ctx, tt.lookup, logger))
			assert.Equal(t, 1, tt.lookup.calls)
		})
	}

	assert.Equal(t, FallbackKey, ResolveKey(ctx, nil, logger))
}

func TestUnwrap(t *testing.T) {
	lookup := &mockLookup{GetConfigValueFunc: func(context.Context, string) (string, bool, error) {
		return "k3y", true, nil
	}}
	stored := Decrypt("k3y", "password")
	assert.Equal(t, "password", Unwrap(context.Background(), lookup, stored, zaptest.NewLogger(t)))
}
