// Package envconfig builds the server settings from, in increasing precedence,
// built-in defaults, an optional .env file, EDUAUTH_* environment variables and
// command-line flags.
package envconfig
