// Package services talks to the TaskMaster REST API.
//
// # Authenticated Fetch
//
// Every call goes through [APIService.Do], which attaches the stored access token.
// When the API answers 401 the service refreshes the token and retries the request once.
// Refreshes are single-flight: concurrent 401s wait on the same refresh request,
// and a caller that finds the token already replaced retries without refreshing again.
//
// A refresh that fails for any reason clears the [TokenStore] and returns [shared.ErrSessionExpired].
//
// # Resource Clients
//
// [AuthService], [TaskService] and [SubtaskService] wrap the endpoints with typed methods.
// Non-2xx responses become an [*APIError] whose Kind is one of:
//   - [shared.ErrAuthRejected] : 401 or 403 that survived a refresh
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrValidationFailed] : any other 4xx, with DRF field errors in Fields
//   - [shared.ErrServerError] : 5xx
//
// Transport failures wrap [shared.ErrNetworkUnavailable] and unreadable bodies wrap [shared.ErrDecode].
//
// # Google Sign-In
//
// [GoogleFlow] runs the authorization-code flow with PKCE and hands the resulting
// credential to [AuthService.GoogleLogin].
package services
