package batchload

// SetOption changes how SetAll walks the layers of a repository
type SetOption interface {
	apply(plan *setPlan)
}

// setPlan is the resolved form of the set options
type setPlan struct {
	sequential bool
	ascending  bool
	cacheOnly  bool
}

func newSetPlan(options []SetOption) setPlan {
	var plan setPlan
	for _, option := range options {
		option.apply(&plan)
	}
	return plan
}

// layers lists the layer indexes to write in the order they are written
func (p setPlan) layers(count int) []int {
	if p.cacheOnly {
		count--
	}
	if count <= 0 {
		return nil
	}
	indexes := make([]int, count)
	for i := range indexes {
		if p.sequential && !p.ascending {
			indexes[i] = count - 1 - i
		} else {
			indexes[i] = i
		}
	}
	return indexes
}

// Sequential writes one layer after the other, from the last layer to the first
// unless Ascending is also given. Without it every layer is written concurrently.
type Sequential struct{}

func (Sequential) apply(plan *setPlan) { plan.sequential = true }

// Ascending writes sequentially from the first layer to the last
type Ascending struct{}

func (Ascending) apply(plan *setPlan) { plan.ascending = true }

// CacheOnly leaves the last layer, the source of truth, untouched
type CacheOnly struct{}

func (CacheOnly) apply(plan *setPlan) { plan.cacheOnly = true }
