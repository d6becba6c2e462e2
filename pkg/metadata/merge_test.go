package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeSessionGroupsFromPrimaryOnly(t *testing.T) {
	primary := New()
	primary.Append("[config]", "a")
	primary.Append("[foo]", "x")

	other := New()
	other.Append("[config]", "z")
	other.Append("[foo]", "y")

	merged := Merge(primary, other)
	assert.Equal(t, []string{"[config]", "[foo]"}, merged.Groups())
	assert.Equal(t, []string{"a"}, merged.Lines("[config]"))
	assert.Equal(t, []string{"x", "y"}, merged.Lines("[foo]"))
}

func TestMergeSessionVariablesNotInPrimary(t *testing.T) {
	primary := New()
	primary.Append("[config]", "a")

	other := New()
	other.Append("[myloader_session_variables]", "SQL_MODE=''")
	other.Append("[`app`.`sessions`]", "real_table_name=sessions")

	merged := Merge(primary, other)
	assert.False(t, merged.Has(SessionVariablesGroup))
	assert.Equal(t, []string{"[config]", "[`app`.`sessions`]"}, merged.Groups())
	assert.Equal(t, []string{"real_table_name=sessions"}, merged.Lines("[`app`.`sessions`]"))
}

func TestMergeSeveralOthers(t *testing.T) {
	primary := New()
	primary.Append("[myloader_session_variables]", "p")
	primary.Append("[t1]", "1")

	o1 := New()
	o1.Append("[t2]", "2")
	o1.Append("[t1]", "1b")
	o2 := New()
	o2.Append("[t2]", "2b")
	o2.Append("[myloader_session_variables]", "o2")

	merged := Merge(primary, o1, nil, o2)
	assert.Equal(t, []string{"[myloader_session_variables]", "[t1]", "[t2]"}, merged.Groups())
	assert.Equal(t, []string{"p"}, merged.Lines("[myloader_session_variables]"))
	assert.Equal(t, []string{"1", "1b"}, merged.Lines("[t1]"))
	assert.Equal(t, []string{"2", "2b"}, merged.Lines("[t2]"))
}

func TestMergeDoesNotModifyInputs(t *testing.T) {
	primary := New()
	primary.Append("[foo]", "x")
	other := New()
	other.Append("[config]", "z")
	other.Append("[foo]", "y")

	_ = Merge(primary, other)
	assert.Equal(t, []string{"x"}, primary.Lines("[foo]"))
	assert.Equal(t, []string{"[config]", "[foo]"}, other.Groups())
	assert.Equal(t, []string{"z"}, other.Lines("[config]"))
}

func TestMergePrimaryOnly(t *testing.T) {
	primary := New()
	primary.Append("[config]", "a")
	merged := Merge(primary)
	assert.Equal(t, primary, merged)
	assert.NotSame(t, primary, merged)
}
