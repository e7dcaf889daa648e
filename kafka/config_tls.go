package kafka

import "fmt"

// TLSConfig to connect to Kafka via TLS. Certificates are either given inline (PEM) or as file paths.
type TLSConfig struct {
	Enabled               bool   `koanf:"enabled"`
	CaFilepath            string `koanf:"caFilepath"`
	CertFilepath          string `koanf:"certFilepath"`
	KeyFilepath           string `koanf:"keyFilepath"`
	Ca                    string `koanf:"ca"`
	Cert                  string `koanf:"cert"`
	Key                   string `koanf:"key"`
	Passphrase            string `koanf:"passphrase"`
	InsecureSkipTLSVerify bool   `koanf:"insecureSkipTlsVerify"`
}

func (c *TLSConfig) SetDefaults() {
	c.Enabled = false
}

func (c *TLSConfig) Validate() error {
	pairs := []struct {
		fileKey, inlineKey string
		file, inline       string
	}{
		{"caFilepath", "ca", c.CaFilepath, c.Ca},
		{"certFilepath", "cert", c.CertFilepath, c.Cert},
		{"keyFilepath", "key", c.KeyFilepath, c.Key},
	}
	for _, p := range pairs {
		if p.file != "" && p.inline != "" {
			return fmt.Errorf("config keys '%v' and '%v' are both set. only one can be used at the same time", p.fileKey, p.inlineKey)
		}
	}

	hasCert := c.CertFilepath != "" || c.Cert != ""
	hasKey := c.KeyFilepath != "" || c.Key != ""
	if hasCert != hasKey {
		return fmt.Errorf("a TLS client certificate and key must be configured together")
	}
	return nil
}
