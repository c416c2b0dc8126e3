package supervisor

import (
	"sort"
	"strings"

	"concierge/pkg/config"
	"concierge/pkg/proto"
)

// Classifier assigns each request exactly one domain label from the
// configured vocabularies. Deterministic: the same text always yields the
// same label, with alphabetical tie-breaking on equal scores.
type Classifier struct {
	domains []proto.Domain
	vocab   map[proto.Domain][]string
}

// NewClassifier builds a classifier from the configured domains.
func NewClassifier(domains map[string]config.DomainCfg) *Classifier {
	c := &Classifier{vocab: make(map[proto.Domain][]string, len(domains))}
	for name, domainCfg := range domains {
		domain := proto.Domain(name)
		c.domains = append(c.domains, domain)
		keywords := make([]string, len(domainCfg.Keywords))
		for i, kw := range domainCfg.Keywords {
			keywords[i] = strings.ToLower(kw)
		}
		c.vocab[domain] = keywords
	}
	sort.Slice(c.domains, func(i, j int) bool { return c.domains[i] < c.domains[j] })
	return c
}

// Classify returns the best-matching domain for the request text. The second
// return is false when no domain vocabulary matches at all.
func (c *Classifier) Classify(text string) (proto.Domain, bool) {
	lower := strings.ToLower(text)

	var best proto.Domain
	bestScore := 0
	for _, domain := range c.domains {
		score := 0
		for _, keyword := range c.vocab[domain] {
			if strings.Contains(lower, keyword) {
				score++
			}
		}
		if score > bestScore {
			best = domain
			bestScore = score
		}
	}

	if bestScore == 0 {
		return "", false
	}
	return best, true
}
