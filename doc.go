// Package auth provides the HungerLink account lifecycle: registration with
// an email or phone identity, password login with lockout, JWT issuance and
// verification, and the HTTP handlers that expose them.
//
// Accounts:
//   - An Account is identified by exactly one of Email or Phone. Identities
//     are normalized before they are stored or looked up, and uniqueness is
//     enforced by the store so concurrent registrations cannot both succeed.
//   - Roles are donor, recipient and ngo. NGO accounts carry an
//     optional registration id and certificate path.
//
// Lockout:
//   - LockoutPolicy counts consecutive failed logins with an atomic store
//     increment. Reaching the threshold opens a lock window; the first read
//     after the window closes resets the counter.
//
// Activity sinks:
//   - ActivitySink receives register, login, lock and profile events. Sinks
//     run best-effort (errors are logged) so a broker outage never blocks
//     authentication.
package auth
