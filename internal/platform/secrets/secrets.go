package secrets

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Credentials is a key/secret pair used to sign requests against one
// library's content API. Values are passed explicitly into the signing
// clients; nothing here is process-global.
type Credentials struct {
	Key    string `yaml:"key"`
	Secret string `yaml:"secret"`
}

// Provider resolves credentials per library identifier from a YAML file:
//
//	chem:
//	  key: abc
//	  secret: def
type Provider struct {
	creds map[string]Credentials
}

func Load(path string) (*Provider, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	var creds map[string]Credentials
	if err := yaml.Unmarshal(b, &creds); err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}
	return &Provider{creds: creds}, nil
}

// NewStatic builds a provider from an in-memory map, used by tests.
func NewStatic(creds map[string]Credentials) *Provider { return &Provider{creds: creds} }

func (p *Provider) For(lib string) (Credentials, error) {
	c, ok := p.creds[lib]
	if !ok || c.Key == "" || c.Secret == "" {
		return Credentials{}, fmt.Errorf("no credentials for library %q", lib)
	}
	return c, nil
}
