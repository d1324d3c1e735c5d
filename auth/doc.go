// Package auth implements the client side of the finance tracker's
// authentication: validating bearer tokens, persisting the session,
// authorizing outbound requests and refreshing expired credentials.
//
// The pieces compose in this order:
//   - Valid decides whether a credential token is still usable.
//   - Store owns the persisted Session (token, refresh token, display name).
//   - Transport is an http.RoundTripper that attaches the bearer token and,
//     on a 401, refreshes the credential once (single-flight) and replays
//     the request.
//   - Guard is the synchronous precondition checked before any
//     authenticated operation.
//
// None of these perform navigation. A dead session is reported through
// ErrSessionExpired (or a 401 response reaching the caller) and the UI
// decides what to do with it.
package auth
