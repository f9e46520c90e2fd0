package query

import "sort"

// counter tallies ids. Equal counts rank the lower id first.
type counter struct {
	counts map[int64]int
}

func newCounter() *counter {
	return &counter{counts: map[int64]int{}}
}

func (c *counter) add(id int64) {
	c.counts[id]++
}

func (c *counter) top() (int64, int) {
	var (
		bestID    int64
		bestCount int
	)
	for id, n := range c.counts {
		if n > bestCount || (n == bestCount && id < bestID) {
			bestID, bestCount = id, n
		}
	}
	return bestID, bestCount
}

func (c *counter) ranked() []ServerCount {
	out := make([]ServerCount, 0, len(c.counts))
	for id, n := range c.counts {
		out = append(out, ServerCount{ServerID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ServerID < out[j].ServerID
	})
	return out
}
