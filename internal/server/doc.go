// Package server provides HTTP routing, middleware, the GitHub webhook endpoint and the GitHub
// OAuth sign-in flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("GET /issues/{id}"), so method
// filtering and path parameters come from the standard mux.
//
// [MethodOverride] is the exception: HTML forms can only POST, so it wraps the router itself and
// rewrites the method before the mux matches.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// # Webhooks
//
// [WebhookHandler] serves POST /api/v1/github. The X-Hub-Signature-256 header must equal
// "sha256=" followed by the hex HMAC-SHA256 of the raw body. A missing secret or header answers 403,
// a mismatch answers 401 and anything else answers 200.
//
// # OAuth
//
// [OAuthHandler] implements the authorization code flow with a per-browser state cookie. The token is
// handed to a [TokenFunc] supplied by the web package, which links the GitHub account and signs the user in.
//
// # Serving
//
// [Server] wraps [http.Server] and drains in-flight requests when its context is cancelled.
package server
