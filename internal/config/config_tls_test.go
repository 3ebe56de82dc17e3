package config

import "testing"

func TestValidateTLSConfig(t *testing.T) {
	tests := []struct {
		name        string
		tls         TLSConfig
		expectError bool
	}{
		{name: "disabled", tls: TLSConfig{Mode: "disabled"}},
		{name: "empty mode treated as disabled", tls: TLSConfig{}},
		{name: "server with files", tls: TLSConfig{Mode: "server", CertFile: "c.pem", KeyFile: "k.pem"}},
		{name: "server without key", tls: TLSConfig{Mode: "server", CertFile: "c.pem"}, expectError: true},
		{name: "mutual without ca", tls: TLSConfig{Mode: "mutual", CertFile: "c.pem", KeyFile: "k.pem"}, expectError: true},
		{name: "mutual complete", tls: TLSConfig{Mode: "mutual", CertFile: "c.pem", KeyFile: "k.pem", CAFile: "ca.pem", ClientAuthPolicy: "verify"}},
		{name: "mutual bad policy", tls: TLSConfig{Mode: "mutual", CertFile: "c.pem", KeyFile: "k.pem", CAFile: "ca.pem", ClientAuthPolicy: "maybe"}, expectError: true},
		{name: "unknown mode", tls: TLSConfig{Mode: "auto"}, expectError: true},
		{name: "bad version", tls: TLSConfig{Mode: "server", CertFile: "c.pem", KeyFile: "k.pem", MinVersion: "1.1"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Server: ServerConfig{TLS: tt.tls}}
			err := cfg.ValidateTLSConfig()
			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}
