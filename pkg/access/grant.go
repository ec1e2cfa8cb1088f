package access

import "github.com/wavecast/wavecast-go/pkg/wire"

// GrantRequest accumulates permissions for a token-grant call before
// it is built into a wire.GrantTokenRequest. Zero value is usable;
// call the Channel*/Group*/User*/Space* setters to populate it.
type GrantRequest struct {
	TTL              int
	AuthorizedUserID string
	Meta             map[string]any

	resources grantTargets
	patterns  grantTargets
}

type grantTargets struct {
	channels map[string]uint8
	groups   map[string]uint8
	users    map[string]uint8
	spaces   map[string]uint8
}

func (t *grantTargets) set(m *map[string]uint8, name string, mask uint8) {
	if *m == nil {
		*m = make(map[string]uint8)
	}
	(*m)[name] = mask
}

// NewGrantRequest builds a GrantRequest with the given ttl (minutes).
func NewGrantRequest(ttlMinutes int) *GrantRequest {
	return &GrantRequest{TTL: ttlMinutes}
}

// Channel grants mask on the named channel resource.
func (g *GrantRequest) Channel(name string, mask uint8) *GrantRequest {
	g.resources.set(&g.resources.channels, name, mask)
	return g
}

// ChannelPattern grants mask on every channel matching the regular
// expression pattern.
func (g *GrantRequest) ChannelPattern(pattern string, mask uint8) *GrantRequest {
	g.patterns.set(&g.patterns.channels, pattern, mask)
	return g
}

// Group grants mask on the named channel-group resource.
func (g *GrantRequest) Group(name string, mask uint8) *GrantRequest {
	g.resources.set(&g.resources.groups, name, mask)
	return g
}

// GroupPattern grants mask on every channel group matching pattern.
func (g *GrantRequest) GroupPattern(pattern string, mask uint8) *GrantRequest {
	g.patterns.set(&g.patterns.groups, pattern, mask)
	return g
}

// User grants mask on the named user-metadata resource.
func (g *GrantRequest) User(id string, mask uint8) *GrantRequest {
	g.resources.set(&g.resources.users, id, mask)
	return g
}

// UserPattern grants mask on every user-metadata id matching pattern.
func (g *GrantRequest) UserPattern(pattern string, mask uint8) *GrantRequest {
	g.patterns.set(&g.patterns.users, pattern, mask)
	return g
}

// Space grants mask on the named channel-metadata resource.
func (g *GrantRequest) Space(id string, mask uint8) *GrantRequest {
	g.resources.set(&g.resources.spaces, id, mask)
	return g
}

// SpacePattern grants mask on every channel-metadata id matching
// pattern.
func (g *GrantRequest) SpacePattern(pattern string, mask uint8) *GrantRequest {
	g.patterns.set(&g.patterns.spaces, pattern, mask)
	return g
}

// Build assembles the wire.GrantTokenRequest body, spec.md §3's
// access-token request payload.
func (g *GrantRequest) Build() wire.GrantTokenRequest {
	return wire.GrantTokenRequest{
		TTL:              g.TTL,
		AuthorizedUserID: g.AuthorizedUserID,
		Meta:             g.Meta,
		Permissions: wire.GrantPermissions{
			Resources: wire.GrantResourceSet{
				Channels: g.resources.channels,
				Groups:   g.resources.groups,
				Users:    g.resources.users,
				Spaces:   g.resources.spaces,
			},
			Patterns: wire.GrantResourceSet{
				Channels: g.patterns.channels,
				Groups:   g.patterns.groups,
				Users:    g.patterns.users,
				Spaces:   g.patterns.spaces,
			},
		},
	}
}
