// Package status tracks the phase an operation is in.
package status

import (
	"sync/atomic"
)

//nolint:recvcheck // String() uses value receiver (called on State values), Get/Set use pointer receivers (atomic ops)
type State int32

// Dump and load phases, in the order they run. The schema phases are
// skipped when no table is selected for structure only.
const (
	Initial State = iota
	ValidateOptions
	ResolveTableSelection
	BuildExcludeFile
	RunDataDump
	ParseDataMetadata
	RunSchemaDump
	ParseSchemaMetadata
	MergeMetadata
	WriteMetadata
	VerifySchema
	DropExistingSchema
	RunLoad
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Initial:
		return "initial"
	case ValidateOptions:
		return "validateOptions"
	case ResolveTableSelection:
		return "resolveTableSelection"
	case BuildExcludeFile:
		return "buildExcludeFile"
	case RunDataDump:
		return "runDataDump"
	case ParseDataMetadata:
		return "parseDataMetadata"
	case RunSchemaDump:
		return "runSchemaDump"
	case ParseSchemaMetadata:
		return "parseSchemaMetadata"
	case MergeMetadata:
		return "mergeMetadata"
	case WriteMetadata:
		return "writeMetadata"
	case VerifySchema:
		return "verifySchema"
	case DropExistingSchema:
		return "dropExistingSchema"
	case RunLoad:
		return "runLoad"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}

func (s *State) Get() State {
	return State(atomic.LoadInt32((*int32)(s)))
}

func (s *State) Set(newState State) {
	atomic.StoreInt32((*int32)(s), int32(newState))
}
