package authz

// HasCapability reports whether the required capability name appears in
// the permission claims baked into a token. The check is a plain
// membership test so any capability name can be enforced at evaluation
// time; no policy has to be registered ahead of a route using it.
func HasCapability(claims []string, required string) bool {
	for _, p := range claims {
		if p == required {
			return true
		}
	}
	return false
}
