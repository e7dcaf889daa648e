package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfig_SetDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()

	assert.Equal(t, "klag", cfg.ClientID)
	assert.Equal(t, time.Minute, cfg.MetadataCacheTTL)
	assert.False(t, cfg.TLS.Enabled)
	assert.False(t, cfg.SASL.Enabled)
	assert.Equal(t, SASLMechanismPlain, cfg.SASL.Mechanism)
	assert.True(t, cfg.SASL.GSSAPI.EnableFast)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		var cfg Config
		cfg.SetDefaults()
		cfg.Brokers = []string{"localhost:9092"}
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(cfg *Config)
		wantErr bool
	}{
		{
			name:    "valid defaults with brokers",
			modify:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name:    "no brokers",
			modify:  func(cfg *Config) { cfg.Brokers = nil },
			wantErr: true,
		},
		{
			name:    "zero metadata ttl",
			modify:  func(cfg *Config) { cfg.MetadataCacheTTL = 0 },
			wantErr: true,
		},
		{
			name: "ca given twice",
			modify: func(cfg *Config) {
				cfg.TLS.Enabled = true
				cfg.TLS.Ca = "-----BEGIN CERTIFICATE-----"
				cfg.TLS.CaFilepath = "/etc/ca.pem"
			},
			wantErr: true,
		},
		{
			name: "cert without key",
			modify: func(cfg *Config) {
				cfg.TLS.Enabled = true
				cfg.TLS.CertFilepath = "/etc/cert.pem"
			},
			wantErr: true,
		},
		{
			name: "unknown sasl mechanism",
			modify: func(cfg *Config) {
				cfg.SASL.Enabled = true
				cfg.SASL.Mechanism = "AWS_MSK_IAM"
			},
			wantErr: true,
		},
		{
			name: "scram without username",
			modify: func(cfg *Config) {
				cfg.SASL.Enabled = true
				cfg.SASL.Mechanism = SASLMechanismScramSHA512
			},
			wantErr: true,
		},
		{
			name: "scram with credentials",
			modify: func(cfg *Config) {
				cfg.SASL.Enabled = true
				cfg.SASL.Mechanism = SASLMechanismScramSHA256
				cfg.SASL.Username = "user"
				cfg.SASL.Password = "secret"
			},
			wantErr: false,
		},
		{
			name: "oauth without endpoint",
			modify: func(cfg *Config) {
				cfg.SASL.Enabled = true
				cfg.SASL.Mechanism = SASLMechanismOAuthBearer
				cfg.SASL.OAuthBearer.ClientID = "id"
				cfg.SASL.OAuthBearer.ClientSecret = "secret"
			},
			wantErr: true,
		},
		{
			name: "gssapi with invalid auth type",
			modify: func(cfg *Config) {
				cfg.SASL.Enabled = true
				cfg.SASL.Mechanism = SASLMechanismGSSAPI
				cfg.SASL.GSSAPI.AuthType = "USER_AUTH:"
				cfg.SASL.GSSAPI.KerberosConfigPath = "/etc/krb5.conf"
			},
			wantErr: true,
		},
		{
			name: "gssapi keytab",
			modify: func(cfg *Config) {
				cfg.SASL.Enabled = true
				cfg.SASL.Mechanism = SASLMechanismGSSAPI
				cfg.SASL.GSSAPI.AuthType = GSSAPIAuthTypeKeytab
				cfg.SASL.GSSAPI.KeyTabPath = "/etc/klag.keytab"
				cfg.SASL.GSSAPI.KerberosConfigPath = "/etc/krb5.conf"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewKgoConfig(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	cfg.Brokers = []string{"localhost:9092"}
	cfg.RackID = "eu-west-1a"

	opts, err := NewKgoConfig(cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, opts)

	withSASL := cfg
	withSASL.SASL.Enabled = true
	withSASL.SASL.Mechanism = SASLMechanismScramSHA512
	withSASL.SASL.Username = "user"
	withSASL.SASL.Password = "secret"
	saslOpts, err := NewKgoConfig(withSASL, zap.NewNop())
	require.NoError(t, err)
	// nil hooks are not registered, SASL adds one option
	assert.Len(t, saslOpts, len(opts)+1)
}

func TestNewKgoConfig_MissingTLSFiles(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	cfg.Brokers = []string{"localhost:9092"}
	cfg.TLS.Enabled = true
	cfg.TLS.CaFilepath = "/does/not/exist/ca.pem"

	_, err := NewKgoConfig(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestSASLMechanism(t *testing.T) {
	tables := []struct {
		mechanism string
		want      string
	}{
		{SASLMechanismPlain, "PLAIN"},
		{SASLMechanismScramSHA256, "SCRAM-SHA-256"},
		{SASLMechanismScramSHA512, "SCRAM-SHA-512"},
		{SASLMechanismOAuthBearer, "OAUTHBEARER"},
	}

	for _, table := range tables {
		m, err := saslMechanism(SASLConfig{Mechanism: table.mechanism, Username: "u", Password: "p"})
		require.NoError(t, err)
		assert.Equal(t, table.want, m.Name())
	}

	_, err := saslMechanism(SASLConfig{Mechanism: "NOPE"})
	assert.Error(t, err)
}
