// Package accounts provides user account primitives (credential
// verification, paired JWT issuance, refresh rotation, Bun backed
// repositories, HTTP helpers) for products that need a self contained
// session lifecycle.
//
// Session lifecycle:
//   - Login verifies credentials through an IdentityProvider, issues an
//     access and refresh token pair, and binds the refresh token to the
//     user row. A user holds at most one live refresh token; issuing a
//     new pair invalidates the previous one.
//   - Refresh validates the presented refresh token, compares it against
//     the stored slot, and rotates the pair. A token that no longer
//     matches the slot is treated as expired or already used.
//   - Logout clears the stored refresh token so no presented token can
//     rotate again.
//
// Media:
//   - Registration and profile updates accept staged local files and
//     push them through an Uploader. The storage subpackage ships an S3
//     backed implementation.
//
// HTTP:
//   - RegisterAccountRoutes mounts JSON endpoints for every flow on a
//     go-router application. RouteAuthenticator guards protected routes
//     with the access token middleware and manages the token cookies.
package accounts
