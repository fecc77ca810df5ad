// Package config loads tool configuration from defaults, an optional YAML
// file, and HARBOR_* environment variables.
//
// # Precedence
//
// Later sources win: built-in defaults, then the YAML file named by --config
// or $HARBOR_CONFIG, then the environment, then command-line flags (applied by
// pkg/cli). Passwords and secret keys are never read from the file.
//
// # Environment
//
// Harbor connection:
//
//	HARBOR_HOST="https://harbor.example.com"
//	HARBOR_ADMIN_USER="admin"
//	HARBOR_ADMIN_PASS="..."
//	HARBOR_INSECURE="false"
//	HARBOR_TIMEOUT="30s"
//
// Provisioning:
//
//	HARBOR_DEFAULT_PROJECTS="demo,ops"
//	HARBOR_CREATE_PROJECT_IF_MISSING="false"
//	HARBOR_SETTLE_DELAY="200ms"
//	HARBOR_POLL_INTERVAL="200ms"
//	HARBOR_POLL_ATTEMPTS="5"
//
// Observability:
//
//	HARBOR_LOG_LEVEL="info"  # debug, info, warn, error
//	HARBOR_LOG_FORMAT="text" # text, json
//	HARBOR_METRICS_FILE="/var/lib/node_exporter/harbor_usertools.prom"
//	HARBOR_OTEL_ENABLED="true"
//	HARBOR_OTEL_ENDPOINT="otel-collector:4317"
//
// Object storage (for --csv s3://bucket/key):
//
//	HARBOR_S3_ENDPOINT="http://minio:9000"
//	HARBOR_S3_REGION="us-east-1"
//	HARBOR_S3_ACCESS_KEY="..."
//	HARBOR_S3_SECRET_KEY="..."
//	HARBOR_S3_USE_PATH_STYLE="true"
//
// # Example File
//
//	harbor:
//	  host: https://harbor.example.com
//	  user: admin
//	  timeout: 15s
//	provision:
//	  default_projects: [demo]
//	  create_project_if_missing: true
//	observability:
//	  log_format: json
package config
