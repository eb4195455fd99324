package graph

import "github.com/lib/pq"

func pqStrings(vals []string) interface{} {
	return pq.Array(vals)
}
