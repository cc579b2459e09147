// Package accounts is the authoritative store of marketplace accounts that the
// identity cache reads through.
//
// Every mutation increments the account's version in the same statement that
// changes the row, so callers can tell a pre-mutation snapshot from a
// post-mutation one. Emails are stored normalized (see [NormalizeEmail]).
//
// Two implementations exist: [Postgres] (pgx stdlib driver, goose migrations
// embedded in the binary) and [Memory] (tests and local development).
package accounts
