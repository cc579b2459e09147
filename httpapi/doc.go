// Package httpapi serves the authentication endpoints of the marketplace:
// registration, login, refresh, logout, password change, the current-identity
// lookup and the admin account mutations that exercise identity invalidation.
//
// Every route sits behind a middleware.Gate; responses never carry internal
// error detail.
package httpapi
