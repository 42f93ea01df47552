// Package client is the HTTP transport used by the todo-list client.
//
// # Overview
//
// Gateway sends JSON requests to the API server. It attaches the cached
// access token as a bearer credential, keeps the refresh cookie in a
// cookie jar, and on a 401 asks the session.Coordinator for a new access
// token and retries the request once.
//
// # Error Handling
//
// Non-2xx responses become *APIError. errors.Is(err, ErrUnauthorized)
// matches any 401, and transport failures wrap ErrUnavailable.
//
// When renewal fails the cached token is cleared and the OnUnauthorized
// hook runs, so the caller can send the user back to login.
//
// # Concurrency
//
// A Gateway is safe for concurrent use. Concurrent 401s share one refresh
// exchange.
package client
