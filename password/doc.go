// Package password implements password hashing, verification and the
// composite strength policy applied to new passwords.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher] also verifies legacy bcrypt hashes and reports them through
// [Hasher.NeedsRehash], as it does argon2id hashes produced with weaker
// parameters, so the caller can re-hash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing, verification and [Policy] checks. Deciding when a
// policy applies (registration, reset) is the Engine's job.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other authcore package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
