// Package middleware exposes net/http adapters for authcore: a bearer-token
// guard and a per-route rate limiter.
//
//   - [Guard] — validates the Authorization bearer token and injects the
//     authenticated [authcore.Identity] into the request context.
//   - [RateLimit] — charges each request against its (client host, path)
//     budget and answers 429 once the window's allowance is spent.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Service calls. It makes no
// authentication or admission decisions itself; both guards delegate to the
// Service and only map its answers onto status codes.
package middleware
