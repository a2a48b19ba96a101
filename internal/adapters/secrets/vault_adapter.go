package secrets

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"

	"github.com/prosblk/paychangu-service/internal/domain/ports"
)

// VaultConfig contains configuration for the HashiCorp Vault adapter
type VaultConfig struct {
	// Vault server address (e.g., "https://vault.example.com:8200")
	Address string

	// Token for token authentication
	Token string

	// KV v2 secrets engine mount path (default: "secret")
	MountPath string
}

// DefaultVaultConfig returns default configuration for the Vault adapter
func DefaultVaultConfig(address, token string) *VaultConfig {
	return &VaultConfig{
		Address:   address,
		Token:     token,
		MountPath: "secret",
	}
}

// vaultAdapter implements the SecretManager port for HashiCorp Vault (KV v2)
type vaultAdapter struct {
	client *vault.Client
	config *VaultConfig
	logger ports.Logger
}

// NewVaultAdapter creates a new HashiCorp Vault adapter
func NewVaultAdapter(cfg *VaultConfig, logger ports.Logger) (ports.SecretManager, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("create Vault client: %w", err)
	}

	if cfg.Token == "" {
		return nil, fmt.Errorf("vault token is required")
	}
	client.SetToken(cfg.Token)

	logger.Info("Vault adapter initialized",
		ports.String("address", cfg.Address),
		ports.String("mount_path", cfg.MountPath))

	return &vaultAdapter{
		client: client,
		config: cfg,
		logger: logger,
	}, nil
}

// GetSecret retrieves the "value" field of a KV v2 secret
func (v *vaultAdapter) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	kv := v.client.KVv2(v.config.MountPath)

	secret, err := kv.Get(ctx, path)
	if err != nil {
		v.logger.Error("failed to retrieve secret from Vault",
			ports.String("path", path),
			ports.Err(err))
		return nil, fmt.Errorf("get secret %s: %w", path, err)
	}

	value, ok := secret.Data["value"].(string)
	if !ok {
		return nil, fmt.Errorf("secret %s has no string field %q", path, "value")
	}

	metadata := make(map[string]string)
	for k, val := range secret.Data {
		if k == "value" {
			continue
		}
		if s, ok := val.(string); ok {
			metadata[k] = s
		}
	}

	return &ports.Secret{
		Value:    value,
		Version:  fmt.Sprintf("%d", secret.VersionMetadata.Version),
		Metadata: metadata,
	}, nil
}

// PutSecret writes the "value" field of a KV v2 secret and returns the version
func (v *vaultAdapter) PutSecret(ctx context.Context, path, value string, metadata map[string]string) (string, error) {
	kv := v.client.KVv2(v.config.MountPath)

	data := map[string]interface{}{"value": value}
	for k, val := range metadata {
		data[k] = val
	}

	written, err := kv.Put(ctx, path, data)
	if err != nil {
		return "", fmt.Errorf("put secret %s: %w", path, err)
	}

	v.logger.Info("secret written to Vault", ports.String("path", path))
	return fmt.Sprintf("%d", written.VersionMetadata.Version), nil
}
