// Package server provides HTTP routing, the OAuth callback and an in-memory TaskMaster API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [BasicRouter] keeps a method table per path on top of [http.ServeMux],
// so GET and POST on the same path can have different handlers.
//
// [LoggingMiddleware] logs each request with its status and X-Request-ID.
//
// # OAuth Callback Handler
//
// [OAuthHandler] serves /callback for the Google sign-in flow. It checks the state parameter,
// exchanges the code (passing the PKCE verifier through its exchange options) and reports
// the token on a channel. Only the first callback is processed.
//
// # Mock Backend
//
// [MockAPI] implements the auth, task and subtask endpoints in memory:
//   - access and refresh tokens are HS256 JWTs with expiry; refresh tokens can be rotated and blacklisted
//   - list endpoints paginate with a {count, next, previous, results} envelope
//   - validation failures use the Django REST framework error shape
//
// `taskmaster mock serve` exposes it over HTTP via [NewMockServer]. With use_mock enabled the
// CLI skips the network entirely and routes requests through [Transport].
package server
