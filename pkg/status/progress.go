package status

// Progress is returned as a struct because we may add more to it later.
type Progress struct {
	CurrentState State  // current state, i.e. RunDataDump
	Summary      string // text based representation, i.e. "runDataDump (omitting 3 tables)"
}
