package deferred

import "github.com/bft-labs/omnisustain/pkg/work"

// Operation returns a work.Operation of type work.TypeDeferred backed by
// factory. Each Work call is expected to start fresh work.
func Operation(factory func() *Deferred) work.Operation {
	return work.Func(work.TypeDeferred, func() any { return factory() })
}

// Handle calls op.Work and returns the resulting *Deferred.
func Handle(op work.Operation) (*Deferred, error) {
	h := op.Work()
	d, ok := h.(*Deferred)
	if !ok || d == nil {
		return nil, &work.HandleError{Want: work.TypeDeferred, Got: h}
	}
	return d, nil
}
