// Package omnisustain keeps heterogeneous units of asynchronous work alive
// behind one controllable handle.
//
// Work comes in three native shapes: a start/stop pivot, a cancellable job
// and a deferred result. Converters translate between them so a sustainer
// can admit any of them and expose itself as any of them.
//
// Example usage:
//
//	s, err := omnisustain.New(omnisustain.TypeJob)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	root, _ := job.Handle(s.Operation())
//	root.Start()
//	_ = s.Sustain(omnisustain.Sustain("heartbeat", tickOp))
//	...
//	root.Cancel()
//	<-s.Done()
package omnisustain

import (
	"fmt"

	"github.com/bft-labs/omnisustain/pkg/convert"
	"github.com/bft-labs/omnisustain/pkg/deferred"
	"github.com/bft-labs/omnisustain/pkg/executor"
	"github.com/bft-labs/omnisustain/pkg/job"
	"github.com/bft-labs/omnisustain/pkg/lifecycle"
	"github.com/bft-labs/omnisustain/pkg/log"
	"github.com/bft-labs/omnisustain/pkg/sustainer"
	"github.com/bft-labs/omnisustain/pkg/work"
)

// Type identifies a native representation.
type Type = work.Type

// Operation is a unit of work in some representation.
type Operation = work.Operation

// Sustainable is a unit admitted into a Sustainer.
type Sustainable = work.Sustainable

// Sustainer keeps a set of units alive.
type Sustainer = sustainer.Sustainer

// Option configures a Sustainer.
type Option = sustainer.Option

// Built-in representations.
const (
	TypeStartStop = work.TypeStartStop
	TypeJob       = work.TypeJob
	TypeDeferred  = work.TypeDeferred
)

// Sustainer options.
var (
	WithConverter = sustainer.WithConverter
	WithExecutor  = sustainer.WithExecutor
	WithLogger    = sustainer.WithLogger
	WithMetrics   = sustainer.WithMetrics
	WithName      = sustainer.WithName
)

// New creates a Sustainer exposing itself in the target representation.
// It fails if the linked modules are incompatible or the target has no
// converter from the pivot.
func New(target Type, opts ...Option) (*Sustainer, error) {
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}
	return sustainer.New(target, opts...)
}

// Sustain wraps op as a named unit.
func Sustain(name string, op Operation) *work.Unit {
	return work.Sustain(name, op)
}

// validateModuleVersions checks that all module versions are compatible.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"work":      {work.Version, work.MinCompatibleVersion},
		"lifecycle": {lifecycle.Version, lifecycle.MinCompatibleVersion},
		"job":       {job.Version, job.MinCompatibleVersion},
		"deferred":  {deferred.Version, deferred.MinCompatibleVersion},
		"executor":  {executor.Version, executor.MinCompatibleVersion},
		"convert":   {convert.Version, convert.MinCompatibleVersion},
		"sustainer": {sustainer.Version, sustainer.MinCompatibleVersion},
		"log":       {log.Version, log.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}

	return nil
}

// isVersionCompatible checks if version >= minVersion using semantic versioning.
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
