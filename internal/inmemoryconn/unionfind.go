package inmemoryconn

import "github.com/vk/circuitgrid/internal/geom"

type unionFind struct {
	parent map[geom.Location]geom.Location
	rank   map[geom.Location]int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[geom.Location]geom.Location),
		rank:   make(map[geom.Location]int),
	}
}

func (u *unionFind) add(l geom.Location) {
	if _, ok := u.parent[l]; !ok {
		u.parent[l] = l
	}
}

func (u *unionFind) find(l geom.Location) geom.Location {
	u.add(l)
	for u.parent[l] != l {
		u.parent[l] = u.parent[u.parent[l]]
		l = u.parent[l]
	}
	return l
}

func (u *unionFind) union(a, b geom.Location) {
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
