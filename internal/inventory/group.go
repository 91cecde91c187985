package inventory

import (
	"github.com/CZERTAINLY/azsnap/internal/model"
)

// Group is the set of work items sharing one subscription.
type Group struct {
	ScopeID string
	Items   []model.WorkItem
}

// GroupByScope partitions items by ScopeID. Groups are returned in the order their
// scope first appears in items and every group keeps the relative order of its items.
func GroupByScope(items []model.WorkItem) []Group {
	var ret []Group
	index := make(map[string]int)
	for _, item := range items {
		idx, ok := index[item.ScopeID]
		if !ok {
			idx = len(ret)
			index[item.ScopeID] = idx
			ret = append(ret, Group{ScopeID: item.ScopeID})
		}
		ret[idx].Items = append(ret[idx].Items, item)
	}
	return ret
}
