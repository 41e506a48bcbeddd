package config

import (
	"fmt"

	"github.com/NomadCrew/climapro-backend/logger"
	"gopkg.in/yaml.v3"
)

const redacted = "********"

// Redacted returns a copy of cfg with credentials masked.
func (c Config) Redacted() Config {
	out := c
	out.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	if out.Database.Password != "" {
		out.Database.Password = redacted
	}
	if out.Redis.Password != "" {
		out.Redis.Password = redacted
	}
	if out.ObjectStore.AccessKeyID != "" {
		out.ObjectStore.AccessKeyID = logger.MaskSensitiveString(out.ObjectStore.AccessKeyID, 4, 0)
	}
	if out.ObjectStore.SecretAccessKey != "" {
		out.ObjectStore.SecretAccessKey = redacted
	}
	if out.Summary.APIKey != "" {
		out.Summary.APIKey = redacted
	}
	if out.Notification.APIKey != "" {
		out.Notification.APIKey = redacted
	}
	return out
}

// DumpYAML renders the redacted configuration as YAML.
func (c Config) DumpYAML() ([]byte, error) {
	out, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}
