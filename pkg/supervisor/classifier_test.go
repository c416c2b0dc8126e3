package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"concierge/pkg/config"
	"concierge/pkg/proto"
)

func newTestClassifier() *Classifier {
	return NewClassifier(config.Default().Domains)
}

func TestClassifyWifi(t *testing.T) {
	c := newTestClassifier()

	domain, ok := c.Classify("my internet connection is really slow")
	assert.True(t, ok)
	assert.Equal(t, proto.Domain("wifi"), domain)
}

func TestClassifyVideo(t *testing.T) {
	c := newTestClassifier()

	domain, ok := c.Classify("I want to watch a movie tonight")
	assert.True(t, ok)
	assert.Equal(t, proto.Domain("video"), domain)
}

func TestClassifyUnknown(t *testing.T) {
	c := newTestClassifier()

	_, ok := c.Classify("what's the weather like tomorrow")
	assert.False(t, ok)
}

func TestClassifyDeterministic(t *testing.T) {
	c := newTestClassifier()

	text := "stream a nature documentary"
	first, _ := c.Classify(text)
	for i := 0; i < 10; i++ {
		domain, _ := c.Classify(text)
		if domain != first {
			t.Fatalf("classification changed between runs: %s then %s", first, domain)
		}
	}
}

func TestClassifyTieBreaksAlphabetically(t *testing.T) {
	c := NewClassifier(map[string]config.DomainCfg{
		"bravo": {Keywords: []string{"shared"}},
		"alpha": {Keywords: []string{"shared"}},
	})

	domain, ok := c.Classify("a request with the shared keyword")
	assert.True(t, ok)
	assert.Equal(t, proto.Domain("alpha"), domain)
}

func TestClassifyPicksHigherScore(t *testing.T) {
	c := newTestClassifier()

	// "play" and "stream" both hit video; a single wifi hit loses.
	domain, ok := c.Classify("play and stream shows over my connection")
	assert.True(t, ok)
	assert.Equal(t, proto.Domain("video"), domain)
}
