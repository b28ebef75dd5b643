package develop

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/graph"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/validate"
)

// ErrExhausted is returned by a Generator that has no further candidate
// for a contract. The driver fails the node instead of retrying.
var ErrExhausted = errors.New("no more candidates")

// Generator produces candidate source text for a contract. Feedback holds
// the aggregated errors of the previous attempt, empty on the first.
type Generator interface {
	Generate(ctx context.Context, c graph.Contract, feedback []string) (validate.Candidate, error)
}

// StaticGenerator serves canned candidates by function name, in order.
// It is safe for concurrent use.
type StaticGenerator struct {
	mu         sync.Mutex
	candidates map[string][]validate.Candidate
	served     map[string]int
	feedback   map[string][][]string
}

// NewStaticGenerator creates a generator over candidates.
func NewStaticGenerator(candidates map[string][]validate.Candidate) *StaticGenerator {
	return &StaticGenerator{
		candidates: candidates,
		served:     make(map[string]int),
		feedback:   make(map[string][][]string),
	}
}

// Generate returns the next unserved candidate for c.
func (g *StaticGenerator) Generate(_ context.Context, c graph.Contract, feedback []string) (validate.Candidate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.feedback[c.Name] = append(g.feedback[c.Name], slices.Clone(feedback))
	list := g.candidates[c.Name]
	i := g.served[c.Name]
	if i >= len(list) {
		return validate.Candidate{}, fmt.Errorf("function %q: %w", c.Name, ErrExhausted)
	}
	g.served[c.Name] = i + 1
	return list[i], nil
}

// Feedback returns the feedback passed with each request for name.
func (g *StaticGenerator) Feedback(name string) [][]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.feedback[name])
}
