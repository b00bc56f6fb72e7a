package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSConfig holds TLS settings for a listener or a client connection.
type TLSConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// CertFile and KeyFile are the certificate presented to the peer.
	// Required for servers, optional (mTLS) for clients.
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`

	// CAFile verifies the peer. On a server it turns on client
	// certificate verification.
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`

	// ServerName overrides the verified host name. Clients only.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`

	// SkipVerify disables server certificate verification. Clients only.
	SkipVerify bool `yaml:"skip_verify" mapstructure:"skip_verify"`

	// MinVersion is "1.2" (default) or "1.3".
	MinVersion string `yaml:"min_version" mapstructure:"min_version"`
}

// Validate checks that the configuration is consistent.
func (c *TLSConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}
	if (c.CertFile != "") != (c.KeyFile != "") {
		return fmt.Errorf("tls: cert_file and key_file must be set together")
	}
	if _, err := minVersion(c.MinVersion); err != nil {
		return err
	}
	return nil
}

// ServerConfig builds the listener configuration. It returns nil when TLS
// is disabled.
func (c *TLSConfig) ServerConfig() (*tls.Config, error) {
	if c == nil || !c.Enabled {
		return nil, nil
	}
	if c.CertFile == "" || c.KeyFile == "" {
		return nil, fmt.Errorf("tls: server requires cert_file and key_file")
	}
	cfg, err := c.base()
	if err != nil {
		return nil, err
	}
	if cfg.RootCAs != nil {
		cfg.ClientCAs, cfg.RootCAs = cfg.RootCAs, nil
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg, nil
}

// ClientConfig builds a client configuration. It returns nil when TLS is
// disabled.
func (c *TLSConfig) ClientConfig() (*tls.Config, error) {
	if c == nil || !c.Enabled {
		return nil, nil
	}
	cfg, err := c.base()
	if err != nil {
		return nil, err
	}
	cfg.ServerName = c.ServerName
	cfg.InsecureSkipVerify = c.SkipVerify
	return cfg, nil
}

func (c *TLSConfig) base() (*tls.Config, error) {
	version, err := minVersion(c.MinVersion)
	if err != nil {
		return nil, err
	}
	cfg := &tls.Config{MinVersion: version}

	if c.CertFile != "" && c.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("tls: load key pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if c.CAFile != "" {
		pem, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, fmt.Errorf("tls: read ca_file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("tls: no certificates in ca_file %s", c.CAFile)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

func minVersion(v string) (uint16, error) {
	switch v {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("tls: min_version must be 1.2 or 1.3 (got: %s)", v)
	}
}
