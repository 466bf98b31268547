package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfig = `
listen_addr: ":9000"
session_secret: "super-secret"
session_lifetime_hours: 12
receiving_address: "atoi1qreceiver"
price: 1000000
cms:
  url: "https://blog.example.com/"
  admin_key: "keyid:a1b2c3"
node:
  url: "https://node.example.com/"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "slugpay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "super-secret", cfg.SessionSecret)
	assert.Equal(t, 12*time.Hour, cfg.SessionLifetime())
	assert.Equal(t, "atoi1qreceiver", cfg.ReceivingAddress)
	assert.Equal(t, uint64(1000000), cfg.Price)
	assert.Equal(t, "https://blog.example.com", cfg.CMS.URL, "trailing slash trimmed")
	assert.Equal(t, "https://node.example.com", cfg.Node.URL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SLUGPAY_PRICE", "5")
	t.Setenv("SLUGPAY_RECEIVING_ADDRESS", "atoi1qoverride")

	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	assert.Equal(t, uint64(5), cfg.Price)
	assert.Equal(t, "atoi1qoverride", cfg.ReceivingAddress)
}

func TestLoadFromEnvOnly(t *testing.T) {
	t.Setenv("SLUGPAY_SESSION_SECRET", "env-secret")
	t.Setenv("SLUGPAY_RECEIVING_ADDRESS", "atoi1qenv")
	t.Setenv("SLUGPAY_PRICE", "42")
	t.Setenv("SLUGPAY_CMS_URL", "https://blog.example.com")
	t.Setenv("SLUGPAY_CMS_ADMIN_KEY", "id:abcdef")
	t.Setenv("SLUGPAY_NODE_URL", "https://node.example.com")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultSessionLifetimeHours, cfg.SessionLifetimeHours)
	assert.Equal(t, "env-secret", cfg.SessionSecret)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  string
		wantErr error
	}{
		{"missing secret", "session_secret", ErrMissingSessionSecret},
		{"missing address", "receiving_address", ErrMissingReceivingAddress},
		{"missing price", "price", ErrMissingPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				SessionSecret:    "s",
				ReceivingAddress: "a",
				Price:            1,
				CMS:              CMS{URL: "https://blog.example.com", AdminKey: "id:abc"},
				Node:             Node{URL: "https://node.example.com"},
			}
			switch tt.mutate {
			case "session_secret":
				cfg.SessionSecret = ""
			case "receiving_address":
				cfg.ReceivingAddress = ""
			case "price":
				cfg.Price = 0
			}
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestLoadRejectsBadAdminKey(t *testing.T) {
	cfg := &Config{
		SessionSecret:    "s",
		ReceivingAddress: "a",
		Price:            1,
		CMS:              CMS{URL: "https://blog.example.com", AdminKey: "no-colon"},
		Node:             Node{URL: "https://node.example.com"},
	}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidAdminKey)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "listen_addr: [unclosed"))
	assert.Error(t, err)
}
