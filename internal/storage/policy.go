package storage

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config/policy.yaml
var policyFile embed.FS

// UploadPolicy constrains what the blob store accepts.
type UploadPolicy struct {
	MaxSizeBytes int64    `yaml:"max_size_bytes"`
	MimePrefixes []string `yaml:"mime_prefixes"`
}

// LoadPolicy reads the embedded upload policy.
func LoadPolicy() (*UploadPolicy, error) {
	data, err := policyFile.ReadFile("config/policy.yaml")
	if err != nil {
		return nil, fmt.Errorf("read upload policy: %w", err)
	}

	var policy UploadPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("unmarshal upload policy: %w", err)
	}

	if policy.MaxSizeBytes <= 0 {
		return nil, fmt.Errorf("upload policy: max_size_bytes must be positive")
	}
	if len(policy.MimePrefixes) == 0 {
		return nil, fmt.Errorf("upload policy: no mime prefixes configured")
	}

	return &policy, nil
}

// AllowsMime reports whether the mime type matches a configured prefix.
func (p *UploadPolicy) AllowsMime(mime string) bool {
	for _, prefix := range p.MimePrefixes {
		if strings.HasPrefix(mime, prefix) {
			return true
		}
	}
	return false
}
