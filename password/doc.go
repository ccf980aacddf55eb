// Package password implements password hashing and verification with Argon2id defaults
// and an application-wide pepper.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The [Hasher] also verifies bcrypt hashes written by the previous user
// table. [Hasher.NeedsRehash] returns true for those and for argon2id hashes
// produced with weaker parameters, so the caller can re-hash on the next
// successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy is enforced by
// the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords: callers supply plaintext and receive hashes.
//   - Import any other loginGuard package.
//   - Log plaintext passwords, the pepper, or hash parameters at runtime.
package password
