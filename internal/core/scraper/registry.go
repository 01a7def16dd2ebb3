package scraper

import "sort"

// Registry maps exact host names to site extractors. It is built once and never modified, so it
// can be shared freely between goroutines.
type Registry struct {
	sites    map[string]Factory
	fallback Factory
}

// NewRegistry creates the registry of supported sites with the generic extractor as fallback.
func NewRegistry() *Registry {
	return &Registry{
		sites: map[string]Factory{
			tineNoHost:        newTineNo,
			theWoksOfLifeHost: newTheWoksOfLife,
		},
		fallback: NewGenericExtractor,
	}
}

// Resolve returns the factory registered for host, or the generic fallback. Matching is exact.
func (r *Registry) Resolve(host string) Factory {
	if f, ok := r.sites[host]; ok {
		return f
	}
	return r.fallback
}

// Specialized reports whether host has its own extractor.
func (r *Registry) Specialized(host string) bool {
	_, ok := r.sites[host]
	return ok
}

// Hosts lists the hosts with a specialized extractor.
func (r *Registry) Hosts() []string {
	hosts := make([]string, 0, len(r.sites))
	for h := range r.sites {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}
