package grouping

// unionFind is a disjoint-set over candidate indices with path compression
// and union by size. It guarantees the transitive closure the incremental
// bucket-append approach cannot: A~B and B~C always end up in one set.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	size := make([]int, n)

	for i := range parent {
		parent[i] = i
		size[i] = 1
	}

	return &unionFind{parent: parent, size: size}
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

	// Attach the smaller tree under the larger; on ties the lower root wins
	// so group roots stay deterministic.
	if u.size[ra] < u.size[rb] || (u.size[ra] == u.size[rb] && rb < ra) {
		ra, rb = rb, ra
	}

	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
}
