package graph

import (
	"context"
	"fmt"
	"sort"
)

// RankOptions configures PageRank over the module graph.
type RankOptions struct {
	// Damping is the probability of following an edge vs teleporting (default: 0.85)
	Damping float64

	// MaxIterations is the maximum number of power iterations (default: 20)
	MaxIterations int

	// Tolerance for convergence detection (default: 1e-6)
	Tolerance float64

	// TopK is the number of related modules to return (default: 10)
	TopK int
}

// DefaultRankOptions returns sensible defaults for PageRank.
func DefaultRankOptions() RankOptions {
	return RankOptions{
		Damping:       0.85,
		MaxIterations: 20,
		Tolerance:     1e-6,
		TopK:          10,
	}
}

func (o *RankOptions) applyDefaults() {
	d := DefaultRankOptions()
	if o.Damping <= 0 || o.Damping >= 1 {
		o.Damping = d.Damping
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.TopK <= 0 {
		o.TopK = d.TopK
	}
}

// Related is a module reached from a seed module, with the strongest
// dependency path from the seed.
type Related struct {
	Module string   `json:"module"`
	Score  float64  `json:"score"`
	Path   []string `json:"path,omitempty"`
}

// sparse is a weighted adjacency list over module indices. Edge weight is
// the number of imports on the edge.
type sparse struct {
	nodes    []string
	nodeIdx  map[string]int
	outEdges [][]edgeEntry
	inEdges  [][]edgeEntry
}

type edgeEntry struct {
	target int
	weight float64
}

func (g *Graph) sparse() *sparse {
	s := &sparse{nodeIdx: make(map[string]int, len(g.Modules))}
	for _, m := range g.Modules {
		s.nodeIdx[m.ID] = len(s.nodes)
		s.nodes = append(s.nodes, m.ID)
	}
	s.outEdges = make([][]edgeEntry, len(s.nodes))
	s.inEdges = make([][]edgeEntry, len(s.nodes))
	for _, e := range g.Edges {
		from, okFrom := s.nodeIdx[e.From]
		to, okTo := s.nodeIdx[e.To]
		if !okFrom || !okTo {
			continue
		}
		w := float64(len(e.Imports))
		s.outEdges[from] = append(s.outEdges[from], edgeEntry{target: to, weight: w})
		s.inEdges[to] = append(s.inEdges[to], edgeEntry{target: from, weight: w})
	}
	return s
}

// iterate runs power iteration with the given teleport vector.
func (s *sparse) iterate(teleport []float64, opts RankOptions) []float64 {
	n := len(s.nodes)
	scores := make([]float64, n)
	copy(scores, teleport)

	outDegree := make([]float64, n)
	for i, edges := range s.outEdges {
		for _, e := range edges {
			outDegree[i] += e.weight
		}
	}

	next := make([]float64, n)
	for iter := 0; iter < opts.MaxIterations; iter++ {
		for i := range next {
			next[i] = 0
		}
		for i, edges := range s.outEdges {
			if outDegree[i] == 0 {
				continue
			}
			contrib := scores[i] / outDegree[i]
			for _, e := range edges {
				next[e.target] += contrib * e.weight
			}
		}

		maxDiff := 0.0
		for i := range next {
			next[i] = opts.Damping*next[i] + (1-opts.Damping)*teleport[i]
			if d := abs(next[i] - scores[i]); d > maxDiff {
				maxDiff = d
			}
		}
		scores, next = next, scores
		if maxDiff < opts.Tolerance {
			break
		}
	}
	return scores
}

// Rank sets Module.Rank to each module's PageRank. Heavily depended-on
// modules rank highest.
func (g *Graph) Rank(opts RankOptions) {
	opts.applyDefaults()
	s := g.sparse()
	if len(s.nodes) == 0 {
		return
	}
	teleport := make([]float64, len(s.nodes))
	for i := range teleport {
		teleport[i] = 1 / float64(len(s.nodes))
	}
	for i, score := range s.iterate(teleport, opts) {
		g.Modules[i].Rank = score
	}
}

// Related runs personalized PageRank seeded at one module and returns the
// modules it most depends on, directly or transitively.
func (g *Graph) Related(_ context.Context, seed string, opts RankOptions) ([]Related, error) {
	opts.applyDefaults()
	s := g.sparse()
	seedIdx, ok := s.nodeIdx[seed]
	if !ok {
		return nil, fmt.Errorf("unknown module %q", seed)
	}

	teleport := make([]float64, len(s.nodes))
	teleport[seedIdx] = 1
	scores := s.iterate(teleport, opts)

	var out []Related
	for i, score := range scores {
		if i == seedIdx || score <= 0 {
			continue
		}
		out = append(out, Related{Module: s.nodes[i], Score: score, Path: s.backtrackPath(i, seedIdx, 5)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Module < out[j].Module
	})
	if len(out) > opts.TopK {
		out = out[:opts.TopK]
	}
	return out, nil
}

// backtrackPath follows the heaviest incoming edges from target back to
// seed and returns the path seed first.
func (s *sparse) backtrackPath(target, seed, maxDepth int) []string {
	path := []string{s.nodes[target]}
	visited := map[int]bool{target: true}
	current := target

	for depth := 0; depth < maxDepth && current != seed; depth++ {
		bestPrev, bestWeight := -1, 0.0
		for _, e := range s.inEdges[current] {
			if visited[e.target] {
				continue
			}
			if e.target == seed {
				bestPrev = seed
				break
			}
			if e.weight > bestWeight {
				bestPrev, bestWeight = e.target, e.weight
			}
		}
		if bestPrev < 0 {
			break
		}
		path = append(path, s.nodes[bestPrev])
		visited[bestPrev] = true
		current = bestPrev
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
