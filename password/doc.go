// Package password hashes and verifies account passwords.
//
// # Output format
//
// New hashes are argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Accounts migrated from the previous marketplace carry bcrypt hashes ($2a$, $2b$,
// $2y$). [Hasher.Verify] accepts both and reports needsRehash for bcrypt hashes and
// for argon2id hashes produced with weaker parameters, so the caller can upgrade
// the stored hash after a successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Log plaintext passwords.
package password
