// Package harbor provides a small client for the Harbor v2.0 REST API.
//
// # Overview
//
// Only the endpoints needed for user administration are covered: user search,
// user creation, password updates, project probes and creation, and project
// member creation. Requests use HTTP basic authentication against
// <host>/api/v2.0.
//
// # Usage
//
//	client, err := harbor.NewClient(harbor.Config{
//		Host:     "https://harbor.example.com",
//		Username: "admin",
//		Password: os.Getenv("HARBOR_ADMIN_PASS"),
//	})
//
//	user, err := client.FindUser(ctx, "alice")
//	if errors.Is(err, harbor.ErrUserNotFound) {
//		// create it
//	}
//
// # Errors
//
// Non-2xx responses are returned as *APIError. Use IsNotFound, IsConflict,
// IsBadRequest, IsUnauthorized and IsForbidden to classify them.
//
// # Tracing
//
// Every call runs in its own client span and goes through an otelhttp
// transport, so trace context is propagated to Harbor when tracing is enabled.
//
// # Related Packages
//
//   - pkg/harbor/harbortest: in-memory fake Harbor for tests
//   - pkg/provision: bulk user provisioning built on this client
package harbor
