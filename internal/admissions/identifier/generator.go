// Package identifier produces human-readable application numbers.
package identifier

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

const (
	DefaultPrefix = "ADM"

	suffixMin = 1000
	suffixMax = 9999
)

// Generator builds numbers of the form PREFIX-YEAR-NNNN. NNNN is uniform in
// [1000, 9999]. Uniqueness is not guaranteed; the store's unique index decides.
type Generator struct {
	prefix string
	now    func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

type Option func(*Generator)

// WithClock overrides the year source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRand overrides the random source.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rnd = r }
}

// New returns a generator for prefix. The prefix is upper-cased because
// numbers are matched upper-cased on lookup.
func New(prefix string, opts ...Option) *Generator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultPrefix
	}
	g := &Generator{
		prefix: prefix,
		now:    time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a fresh candidate application number.
func (g *Generator) Generate() string {
	g.mu.Lock()
	suffix := suffixMin + g.rnd.Intn(suffixMax-suffixMin+1)
	g.mu.Unlock()
	return fmt.Sprintf("%s-%d-%d", g.prefix, g.now().Year(), suffix)
}
