package intelligence

import (
	"github.com/joseairosa/recall-sub001/pkg/embedder"
	"github.com/joseairosa/recall-sub001/pkg/memory"
)

// buildClusters groups candidates by greedy single-pass clustering.
//
// Candidates are visited in order; each unvisited memory seeds a new
// cluster, then every remaining unvisited candidate joins it when its
// scope matches the seed's and its cosine similarity to the seed is at
// least threshold. Membership is seed-similarity only (single-link
// approximation), not pairwise: members are guaranteed similar to the
// seed, not to each other. Clusters smaller than minSize are discarded.
//
// Every candidate must carry an embedding; callers partition out
// embedding-less memories beforehand.
func buildClusters(candidates []*memory.Memory, threshold float64, minSize int) [][]*memory.Memory {
	visited := make([]bool, len(candidates))
	var clusters [][]*memory.Memory

	for i, seed := range candidates {
		if visited[i] {
			continue
		}
		visited[i] = true

		group := []*memory.Memory{seed}
		for j := i + 1; j < len(candidates); j++ {
			if visited[j] {
				continue
			}
			other := candidates[j]
			if other.IsGlobal != seed.IsGlobal {
				continue
			}
			if embedder.CosineSimilarity(seed.Embedding, other.Embedding) >= threshold {
				visited[j] = true
				group = append(group, other)
			}
		}

		if len(group) >= minSize {
			clusters = append(clusters, group)
		}
	}
	return clusters
}
