package shaping

import "strings"

// PathMapper rewrites server-side (container) workbook paths back to the
// host paths a client originally supplied, purely additive per spec.md
// §4.7 — responses never require it, but a configured mapper lets path
// fields round-trip correctly across a container boundary.
type PathMapper struct {
	HostToContainer map[string]string
}

// Remap finds the host prefix whose mapped container path prefixes
// serverPath and rewrites serverPath back to the corresponding host path.
// ok is false when no configured mapping applies, in which case callers
// should leave serverPath untouched.
func (m PathMapper) Remap(serverPath string) (clientPath string, ok bool) {
	var bestHost, bestContainer string
	for host, container := range m.HostToContainer {
		if container == "" || !strings.HasPrefix(serverPath, container) {
			continue
		}
		if len(container) > len(bestContainer) {
			bestHost, bestContainer = host, container
		}
	}
	if bestContainer == "" {
		return serverPath, false
	}
	return bestHost + strings.TrimPrefix(serverPath, bestContainer), true
}
