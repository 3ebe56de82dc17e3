package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"niena/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *errors.Logger {
	logger, _ := errors.New("debug")
	return logger
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64 value", input: int64(42), expected: 42},
		{name: "float64 value", input: float64(42.0), expected: 42},
		{name: "string value", input: "42", expected: 42},
		{name: "json number", input: json.Number("7"), expected: 7},
		{name: "invalid string value", input: "not-a-number", expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/data/niena")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestApplyAIKeyToConfigKeepsStageKeys(t *testing.T) {
	config := &Config{AI: AIConfig{
		Tailor: OperationAIConfig{APIKey: "tailor-only"},
	}}

	applyAIKeyToConfig(config, "vault-key")

	assert.Equal(t, "vault-key", config.AI.APIKey)
	assert.Equal(t, "tailor-only", config.AI.Tailor.APIKey)
	assert.Equal(t, "vault-key", config.AI.Parse.APIKey)
	assert.Equal(t, "vault-key", config.AI.Interview.APIKey)
	assert.Equal(t, "vault-key", config.AI.Embedding.APIKey)
}

type fakeSecrets map[string]string

func (f fakeSecrets) GetStringSecret(path, key string) (string, error) {
	value, ok := f[path+"#"+key]
	if !ok {
		return "", fmt.Errorf("secret not found at path: %s", path)
	}
	return value, nil
}

func TestApplySecrets(t *testing.T) {
	config := &Config{Vault: VaultConfig{Secrets: VaultSecrets{
		APIKeys:   "secret/data/niena/gateway",
		Database:  "secret/data/niena/db",
		JobSearch: "secret/data/niena/jsearch",
	}}}
	src := fakeSecrets{
		"secret/data/niena/gateway#keys":    "a,b",
		"secret/data/niena/db#dsn":          "postgres://u:p@db/niena",
		"secret/data/niena/jsearch#api_key": "",
	}

	require.NoError(t, applySecrets(config, src, newTestLogger()))

	assert.Equal(t, []string{"a", "b"}, config.Server.APIKeys)
	assert.Equal(t, "postgres://u:p@db/niena", config.Database.DSN)
	assert.Empty(t, config.JobSearch.APIKey)
}

func TestApplySecretsMissingPath(t *testing.T) {
	config := &Config{Vault: VaultConfig{Secrets: VaultSecrets{Redis: "secret/data/missing"}}}

	err := applySecrets(config, fakeSecrets{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis password")
}

func TestNewVaultClientDisabled(t *testing.T) {
	client, err := NewVaultClient(VaultConfig{Enabled: false}, newTestLogger())
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestResolveVaultTokenFromFile(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("hvs.test\n"), 0600))

	token, err := resolveVaultToken(VaultConfig{TokenFile: tokenFile})
	require.NoError(t, err)
	assert.Equal(t, "hvs.test", token)

	_, err = resolveVaultToken(VaultConfig{})
	assert.Error(t, err)
}

func newFakeVault(t *testing.T, secrets map[string]map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/v1/sys/health" {
			_ = json.NewEncoder(w).Encode(map[string]any{"initialized": true, "sealed": false, "version": "1.15.0"})
			return
		}
		data, ok := secrets[strings.TrimPrefix(r.URL.Path, "/v1/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     data,
				"metadata": map[string]any{"version": 3},
			},
		})
	}))
}

func TestApplyVaultSecretsAgainstServer(t *testing.T) {
	server := newFakeVault(t, map[string]map[string]any{
		"secret/data/niena/ai": {"api_key": "gemini-from-vault"},
	})
	defer server.Close()

	config := &Config{Vault: VaultConfig{
		Enabled: true,
		Address: server.URL,
		Token:   "root",
		Secrets: VaultSecrets{AIKey: "secret/data/niena/ai"},
	}}

	require.NoError(t, ApplyVaultSecrets(config, newTestLogger()))
	assert.Equal(t, "gemini-from-vault", config.AI.APIKey)
	assert.Equal(t, "gemini-from-vault", config.AI.Extract.APIKey)
}

func TestGetSecretV2NotFound(t *testing.T) {
	server := newFakeVault(t, nil)
	defer server.Close()

	client, err := NewVaultClient(VaultConfig{Enabled: true, Address: server.URL, Token: "root"}, nil)
	require.NoError(t, err)

	_, err = client.GetSecretV2("secret/data/none")
	assert.Error(t, err)
}
