package lifecycle

import "github.com/bft-labs/omnisustain/pkg/work"

// Operation returns a work.Operation of type work.TypeStartStop backed by factory.
func Operation(factory func() *StartStop) work.Operation {
	return work.Func(work.TypeStartStop, func() any { return factory() })
}

// Of returns an operation that always yields s.
func Of(s *StartStop) work.Operation {
	return Operation(func() *StartStop { return s })
}

// Handle calls op.Work and returns the resulting *StartStop.
func Handle(op work.Operation) (*StartStop, error) {
	h := op.Work()
	s, ok := h.(*StartStop)
	if !ok || s == nil {
		return nil, &work.HandleError{Want: work.TypeStartStop, Got: h}
	}
	return s, nil
}
