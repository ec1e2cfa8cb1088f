/*
Package access builds and sends access-manager (PAM) grant requests
(spec.md §4's out-of-scope access-manager builders, specified at their
interface boundary in §6/§8 scenario 6): permission bitmasks, a
GrantRequest builder covering channels/groups/users/spaces and their
read/write/pattern variants, and the v2 request-signing scheme the
grant/revoke endpoints require.

It is a thin request/response wrapper: issued tokens are returned to
the caller and no token state is kept locally. The signing scheme is
grounded on spec.md §6's literal
description of the v2 signature for the signing scheme itself — no
example repo or original_source file carries a concrete PAM-signing
algorithm to ground against (original_source/src/pubnub.rs only leaves
a `// - signature` TODO at the equivalent call site), so Sign
implements the well-known HMAC-SHA256 canonical-request scheme
described in the spec text directly.
*/
package access

// Permission is a single bit in a resource's permission bitmask,
// spec.md §3.
type Permission uint8

const (
	PermissionRead   Permission = 0x01
	PermissionWrite  Permission = 0x02
	PermissionManage Permission = 0x04
	PermissionDelete Permission = 0x08
	PermissionGet    Permission = 0x20
	PermissionUpdate Permission = 0x40
	PermissionJoin   Permission = 0x80
)

// Mask ORs a set of permissions together into the bitmask the wire
// format expects.
func Mask(perms ...Permission) uint8 {
	var m uint8
	for _, p := range perms {
		m |= uint8(p)
	}
	return m
}

// Has reports whether mask grants every permission in perms.
func Has(mask uint8, perms ...Permission) bool {
	for _, p := range perms {
		if mask&uint8(p) == 0 {
			return false
		}
	}
	return true
}
