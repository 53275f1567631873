package similarity

import (
	"github.com/m-mizutani/goerr/v2"
)

// Strategy selects how clusters are grown from pairwise similarities
type Strategy string

const (
	// StrategyStar grows each cluster around a seed: items are visited in input
	// order, the first unvisited item becomes the seed and every later unvisited
	// item more similar than the threshold to the seed joins it. Members are
	// never compared with each other, so B and C can share a cluster through
	// seed A even when sim(B, C) is below the threshold.
	StrategyStar Strategy = "star"

	// StrategyTransitive builds connected components: two items share a cluster
	// when any chain of above-threshold pairs links them.
	StrategyTransitive Strategy = "transitive"
)

// Validate checks that s is a known strategy
func (s Strategy) Validate() error {
	switch s {
	case StrategyStar, StrategyTransitive:
		return nil
	default:
		return goerr.New("unknown cluster strategy", goerr.V("strategy", string(s)))
	}
}

// Item is a corpus member with a resolved vector
type Item struct {
	ID     string
	Vector []float32
}

// Cluster is a group of at least two item IDs, ordered as in the input
type Cluster struct {
	MemberIDs []string
}

// BuildClusters partitions items into clusters of similarity strictly above
// threshold and drops singletons. The result depends on input order, so callers
// must supply a stable ordering. Cost is O(n²) comparisons; this is meant for
// corpora of a few hundred items, not unbounded ones.
func BuildClusters(items []Item, threshold float64, strategy Strategy) []Cluster {
	switch strategy {
	case StrategyTransitive:
		return buildTransitive(items, threshold)
	default:
		return buildStar(items, threshold)
	}
}

func buildStar(items []Item, threshold float64) []Cluster {
	visited := make([]bool, len(items))
	var clusters []Cluster

	for i := range items {
		if visited[i] {
			continue
		}
		visited[i] = true
		members := []string{items[i].ID}

		for j := i + 1; j < len(items); j++ {
			if visited[j] {
				continue
			}
			if Cosine(items[i].Vector, items[j].Vector) > threshold {
				members = append(members, items[j].ID)
				visited[j] = true
			}
		}

		if len(members) >= 2 {
			clusters = append(clusters, Cluster{MemberIDs: members})
		}
	}

	return clusters
}

func buildTransitive(items []Item, threshold float64) []Cluster {
	uf := newUnionFind(len(items))
	for i := range items {
		for j := i + 1; j < len(items); j++ {
			if Cosine(items[i].Vector, items[j].Vector) > threshold {
				uf.union(i, j)
			}
		}
	}

	// Groups are emitted in order of their first member in the input.
	order := make([]int, 0)
	groups := make(map[int][]string)
	for i := range items {
		root := uf.find(i)
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}
		groups[root] = append(groups[root], items[i].ID)
	}

	var clusters []Cluster
	for _, root := range order {
		if members := groups[root]; len(members) >= 2 {
			clusters = append(clusters, Cluster{MemberIDs: members})
		}
	}
	return clusters
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}
