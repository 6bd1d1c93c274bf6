package job

import "github.com/bft-labs/omnisustain/pkg/work"

// Operation returns a work.Operation of type work.TypeJob backed by factory.
func Operation(factory func() *Job) work.Operation {
	return work.Func(work.TypeJob, func() any { return factory() })
}

// Of returns an operation that always yields j.
func Of(j *Job) work.Operation {
	return Operation(func() *Job { return j })
}

// Handle calls op.Work and returns the resulting *Job.
func Handle(op work.Operation) (*Job, error) {
	h := op.Work()
	j, ok := h.(*Job)
	if !ok || j == nil {
		return nil, &work.HandleError{Want: work.TypeJob, Got: h}
	}
	return j, nil
}
