// Package cli provides the harbor-admin command-line interface for Harbor
// user administration.
//
// # Overview
//
// This package implements the `harbor-admin` tool and the single-purpose
// binaries under cmd/. Every command writes its human-facing output to
// stdout and logs to stderr.
//
// # Commands
//
// create-users: Create users from CSV and add them to projects
//
//	harbor-admin create-users \
//		--csv users.csv \
//		--host https://harbor.example.com \
//		--admin-user admin \
//		--project myproject1,myproject2 \
//		--create-project-if-missing
//
// The CSV may also be read from stdin (--csv -) or S3 (--csv s3://bucket/users.csv).
// Results are printed under a RESULTS: heading; --report additionally writes
// them as CSV.
//
// change-password: Change your own password
//
//	harbor-admin change-password --host https://harbor.example.com --user alice --prompt-pass
//
// Set another user's password as an admin:
//
//	harbor-admin change-password --host https://harbor.example.com --user admin --prompt-pass --target bob
//
// generate-csv / generate-csv-3col: Write sample input
//
//	harbor-admin generate-csv --out test_users.csv --rows 12
//	harbor-admin generate-csv-3col --out harbor_users.csv
//
// # Configuration
//
// Flags override the environment (HARBOR_HOST, HARBOR_ADMIN_USER,
// HARBOR_ADMIN_PASS, ...), which overrides the YAML file given by --config.
// See pkg/config for the full list.
//
// # Exit Codes
//
//	0  success (row-level failures are reported as ERROR results)
//	1  runtime failure, e.g. unreadable CSV or rejected password change
//	2  usage error, e.g. missing --host or no acting user
//
// # Related Packages
//
//   - pkg/provision: CSV provisioning workflow
//   - pkg/password: Interactive password change
//   - pkg/fixtures: Sample CSV data
package cli
