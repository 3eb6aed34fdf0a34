// Package client talks to the conversion server over its JSON/HTTP contract.
//
// Every request carries the configured session cookie, the client User-Agent
// and the per-run X-Client-Session header. Redirects are not followed so an
// expired login surfaces as a status code instead of an HTML page.
//
// Status codes map to sentinel errors: 401 and 403 to ErrSessionExpired, 404
// to ErrJobNotFound, 500 to ErrServerError. Any other non-2xx reply is a
// *StatusError.
package client
