package regions

// Noise is the label DBSCAN gives to points outside every cluster.
const Noise = -1

// DBSCAN labels n items with cluster ids 0..k-1, or Noise.
// The neighbourhood of i is every j (i included) with dist(i, j) <= eps,
// and i is a core point when it has at least minSamples neighbours.
// Items are visited in index order, so labels are deterministic.
func DBSCAN(n int, eps float64, minSamples int, dist func(i, j int) float64) []int {
	const unvisited = -2

	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}

	neighbours := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if i == j || dist(i, j) <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	cluster := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}
		seeds := neighbours(i)
		if len(seeds) < minSamples {
			labels[i] = Noise
			continue
		}

		labels[i] = cluster
		queue := append([]int(nil), seeds...)
		for k := 0; k < len(queue); k++ {
			j := queue[k]
			if labels[j] == Noise {
				// border point reached from a core point
				labels[j] = cluster
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster
			if more := neighbours(j); len(more) >= minSamples {
				queue = append(queue, more...)
			}
		}
		cluster++
	}

	return labels
}
