package metadata

// sessionGroups are authoritative only in the first metadata passed to Merge.
var sessionGroups = []string{ConfigGroup, SessionVariablesGroup}

// Merge combines the metadata of several mydumper runs into one.
//
// The session groups ([config] and [myloader_session_variables]) are kept
// from primary only and dropped from every other input. All other groups are
// unioned: lines of a group present in several inputs are concatenated in
// input order, primary first. Inputs are not modified.
func Merge(primary *Metadata, others ...*Metadata) *Metadata {
	merged := primary.Clone()
	for _, other := range others {
		if other == nil {
			continue
		}
		other = other.Clone()
		for _, group := range sessionGroups {
			other.Delete(group)
		}
		for _, group := range other.order {
			merged.Append(group, other.lines[group]...)
		}
	}
	return merged
}
