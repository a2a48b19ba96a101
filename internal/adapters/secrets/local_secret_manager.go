package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prosblk/paychangu-service/internal/domain/ports"
)

// localSecretManager resolves secrets from environment variables, falling
// back to files under a base path.
// WARNING: development only. Use AWS Secrets Manager or Vault in production.
type localSecretManager struct {
	basePath string
	logger   ports.Logger
}

// NewLocalSecretManager creates a new local secret manager
func NewLocalSecretManager(basePath string, logger ports.Logger) ports.SecretManager {
	return &localSecretManager{
		basePath: basePath,
		logger:   logger,
	}
}

// GetSecret resolves a secret by environment variable first, then filesystem.
// The env var name is the path upper-cased with separators replaced by
// underscores, e.g. "paychangu/webhook-secret" -> "PAYCHANGU_WEBHOOK_SECRET".
func (m *localSecretManager) GetSecret(_ context.Context, secretPath string) (*ports.Secret, error) {
	envKey := envKeyFor(secretPath)
	if value := os.Getenv(envKey); value != "" {
		return &ports.Secret{Value: value, Version: "env"}, nil
	}

	if m.basePath != "" {
		filePath := filepath.Join(m.basePath, secretPath)
		data, err := os.ReadFile(filePath)
		if err == nil {
			return &ports.Secret{Value: strings.TrimSpace(string(data)), Version: "file"}, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read secret file: %w", err)
		}
	}

	return nil, fmt.Errorf("secret not found: %s (checked env %s)", secretPath, envKey)
}

// PutSecret writes a secret file under the base path
func (m *localSecretManager) PutSecret(_ context.Context, secretPath, value string, _ map[string]string) (string, error) {
	if m.basePath == "" {
		return "", fmt.Errorf("local secret manager has no base path configured")
	}

	filePath := filepath.Join(m.basePath, secretPath)
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return "", fmt.Errorf("create secret directory: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(value), 0o600); err != nil {
		return "", fmt.Errorf("write secret file: %w", err)
	}

	m.logger.Info("stored local secret", ports.String("path", secretPath))
	return "file", nil
}

func envKeyFor(secretPath string) string {
	key := strings.ToUpper(secretPath)
	key = strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(key)
	return key
}
