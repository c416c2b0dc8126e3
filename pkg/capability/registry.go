// Package capability implements the capability registry and resolver: the
// static mapping of tool identity to permitted domains, and the per-request
// intersection of client-advertised tool names with a domain's permitted set.
//
// The resolver is a security boundary, not a convenience filter: a tool is
// never exposed to a domain outside its affinity, regardless of what the
// client advertises.
package capability

import (
	"fmt"
	"sort"

	"concierge/pkg/logx"
	"concierge/pkg/proto"
	"concierge/pkg/tools"
)

// Descriptor is a registered tool identity plus its domain affinity.
// Immutable once the registry is built.
type Descriptor struct {
	tools.Definition

	// Domains is the set of domain tags allowed to use this tool.
	Domains map[proto.Domain]bool
}

// AffineTo reports whether the descriptor permits the given domain.
func (d *Descriptor) AffineTo(domain proto.Domain) bool {
	return d.Domains[domain]
}

// Gated reports whether invoking this tool requires an approval interrupt.
func (d *Descriptor) Gated() bool {
	return d.Mode == proto.ModeGated
}

// Registry is the immutable mapping from tool identity to domain affinity,
// loaded once at startup. Runtime negotiation only ever reads it.
type Registry struct {
	descriptors map[string]Descriptor
	domains     []proto.Domain
	logger      *logx.Logger
}

// NewRegistry builds the registry from the configured per-domain tool name
// lists and the registered tool definitions. A domain naming an
// unregistered tool is a startup error: the mapping and the tool set must
// agree before any request is served.
func NewRegistry(domainTools map[string][]string, defs []tools.Definition) (*Registry, error) {
	byName := make(map[string]tools.Definition, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}

	descriptors := make(map[string]Descriptor, len(defs))
	domains := make([]proto.Domain, 0, len(domainTools))

	for domainName, toolNames := range domainTools {
		domain := proto.Domain(domainName)
		domains = append(domains, domain)

		for _, name := range toolNames {
			def, exists := byName[name]
			if !exists {
				return nil, fmt.Errorf("domain %q permits unregistered tool %q", domainName, name)
			}

			desc, exists := descriptors[name]
			if !exists {
				desc = Descriptor{Definition: def, Domains: make(map[proto.Domain]bool)}
			}
			desc.Domains[domain] = true
			descriptors[name] = desc
		}
	}

	sort.Slice(domains, func(i, j int) bool { return domains[i] < domains[j] })

	return &Registry{
		descriptors: descriptors,
		domains:     domains,
		logger:      logx.NewLogger("capability"),
	}, nil
}

// Descriptor returns the registered descriptor for a tool name.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	desc, ok := r.descriptors[name]
	return desc, ok
}

// Domains returns the registered domain tags, sorted.
func (r *Registry) Domains() []proto.Domain {
	return r.domains
}

// DomainTools returns the descriptors permitted to the given domain, sorted
// by name.
func (r *Registry) DomainTools(domain proto.Domain) []Descriptor {
	var result []Descriptor
	for _, desc := range r.descriptors {
		if desc.AffineTo(domain) {
			result = append(result, desc)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Resolve intersects the client's advertised tool names with the domain's
// permitted set. Advertised names unknown to the registry are silently
// dropped: old and new client versions must both work with no server change.
// Resolving the same inputs twice yields the same set.
func (r *Registry) Resolve(advertised []string, domain proto.Domain) *EffectiveToolSet {
	seen := make(map[string]bool, len(advertised))
	byName := make(map[string]Descriptor)

	for _, name := range advertised {
		if seen[name] {
			continue
		}
		seen[name] = true

		desc, exists := r.descriptors[name]
		if !exists {
			r.logger.Debug("dropping unknown advertised tool %q", name)
			continue
		}
		if !desc.AffineTo(domain) {
			r.logger.Debug("dropping tool %q: not affine to domain %q", name, domain)
			continue
		}
		byName[name] = desc
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	set := &EffectiveToolSet{domain: domain, byName: byName, names: names}
	set.verify()
	return set
}

// EffectiveToolSet is the per-invocation result of capability negotiation.
// Computed fresh per request, never persisted; recomputed identically on
// resume given the same inputs.
type EffectiveToolSet struct {
	domain proto.Domain
	byName map[string]Descriptor
	names  []string
}

// Domain returns the domain this set was resolved for.
func (s *EffectiveToolSet) Domain() proto.Domain {
	return s.domain
}

// Has reports whether the named tool is in the effective set.
func (s *EffectiveToolSet) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Get returns the descriptor for the named tool.
func (s *EffectiveToolSet) Get(name string) (Descriptor, bool) {
	desc, ok := s.byName[name]
	return desc, ok
}

// Names returns the tool names in the set, sorted.
func (s *EffectiveToolSet) Names() []string {
	return s.names
}

// Descriptors returns the descriptors in the set, sorted by name.
func (s *EffectiveToolSet) Descriptors() []Descriptor {
	result := make([]Descriptor, 0, len(s.names))
	for _, name := range s.names {
		result = append(result, s.byName[name])
	}
	return result
}

// Len returns the number of tools in the set.
func (s *EffectiveToolSet) Len() int {
	return len(s.names)
}

// verify asserts the affinity invariant over the resolved set. A violation
// means the security boundary failed; it is never recovered.
func (s *EffectiveToolSet) verify() {
	for name, desc := range s.byName {
		if !desc.AffineTo(s.domain) {
			panic(&proto.CapabilityViolationError{Domain: s.domain, Tool: name})
		}
	}
}
