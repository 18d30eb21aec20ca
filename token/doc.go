// Package token issues and verifies the stateless session credential handed
// out after a successful code redemption.
//
// Tokens are compact JWTs signed with a symmetric key (HS256 by default).
// Claims carry subject=email, iat, exp and a random jti. Verification is a
// pure function of the token string and the signing key: no store lookup,
// ever. That statelessness is an invariant the engine relies on.
package token
