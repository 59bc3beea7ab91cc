package s3

import (
	"log/slog"
	"os"
)

// Config holds configuration for the S3 store.
type Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string

	// Region is the AWS region (e.g., "us-east-1").
	// If empty, uses AWS_REGION or AWS_DEFAULT_REGION environment variable.
	Region string

	// Endpoint is a custom endpoint URL for S3-compatible services.
	// Leave empty for AWS S3.
	Endpoint string

	// AccessKeyID is the AWS access key ID.
	// If empty, uses AWS_ACCESS_KEY_ID environment variable or IAM role.
	AccessKeyID string

	// SecretAccessKey is the AWS secret access key.
	// If empty, uses AWS_SECRET_ACCESS_KEY environment variable or IAM role.
	SecretAccessKey string

	// SessionToken is an optional session token for temporary credentials.
	SessionToken string

	// RoleARN, when set, assumes this role via STS for all requests.
	RoleARN string

	// ExternalID is an optional external ID for the role assumption.
	ExternalID string

	// UsePathStyle forces path-style addressing instead of
	// virtual-hosted-style. Required for some S3-compatible services.
	UsePathStyle bool

	// Logger is used for listing and retry diagnostics.
	// If nil, a null logger is used.
	Logger *slog.Logger
}

// ConfigFromMap creates a Config from a string map.
// Supported keys:
//   - bucket: bucket name (required)
//   - region: AWS region
//   - endpoint: custom endpoint URL
//   - aws_access_key_id: AWS access key (falls back to environment)
//   - aws_secret_access_key: AWS secret key (falls back to environment)
//   - session_token: session token
//   - role_arn: role to assume via STS
//   - external_id: external ID for the role assumption
//   - use_path_style: "true" for path-style addressing
func ConfigFromMap(m map[string]string) Config {
	var config Config

	if v, ok := m["bucket"]; ok {
		config.Bucket = v
	}
	if v, ok := m["region"]; ok {
		config.Region = v
	}
	if v, ok := m["endpoint"]; ok {
		config.Endpoint = v
	}
	if v, ok := m["aws_access_key_id"]; ok && v != "" {
		config.AccessKeyID = v
	} else {
		config.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	}
	if v, ok := m["aws_secret_access_key"]; ok && v != "" {
		config.SecretAccessKey = v
	} else {
		config.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	if v, ok := m["session_token"]; ok {
		config.SessionToken = v
	}
	if v, ok := m["role_arn"]; ok {
		config.RoleARN = v
	}
	if v, ok := m["external_id"]; ok {
		config.ExternalID = v
	}
	if v, ok := m["use_path_style"]; ok && (v == "true" || v == "1") {
		config.UsePathStyle = true
	}

	return config
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Bucket == "" {
		return ErrBucketRequired
	}
	return nil
}
