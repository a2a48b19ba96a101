package ports

import "context"

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string
	Version   string
	Metadata  map[string]string
	CreatedAt string
}

// SecretManager defines the port for retrieving secrets from a secret
// management backend. Supported backends: environment/local files, AWS
// Secrets Manager, HashiCorp Vault. Implementations are responsible for
// authenticating with the backend and surfacing a clear error when a secret
// is missing or the backend is unreachable.
type SecretManager interface {
	// GetSecret retrieves a secret by its path/name. Path format depends on
	// the backend:
	//   - local: environment variable name or file under the base path
	//   - AWS:   "paychangu/webhook-secret"
	//   - Vault: "secret/data/paychangu/webhook-secret"
	GetSecret(ctx context.Context, path string) (*Secret, error)

	// PutSecret creates or updates a secret and returns the new version.
	PutSecret(ctx context.Context, path, value string, metadata map[string]string) (string, error)
}
