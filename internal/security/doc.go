// Package security holds the client-side token and input helpers used by
// the authentication screens.
//
// Nothing here verifies signatures. The JWT helpers inspect structure and
// claims only, so that the client can decide whether a stored session is
// worth sending to the server; authorization decisions belong to the API.
//
// Capability-dependent behavior (random source, digest provider) is chosen
// once when a Toolkit is built:
//
//	kit := security.New()
//	if !kit.RandomIsStrong() {
//	    logger.Warn("random strings are not cryptographically strong")
//	}
//	nonce := kit.GenerateSecureRandomString(32)
//
// Validation helpers never return errors. Malformed input yields the
// fail-closed answer: invalid, not decodable, or expired.
package security
