package dump

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySchemaFiles(t *testing.T) {
	dir := t.TempDir()
	n, err := VerifySchemaFiles(dir)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "db.t1-schema.sql"), []byte("CREATE TABLE `t1` (`id` int NOT NULL AUTO_INCREMENT, PRIMARY KEY (`id`));\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db.v1-schema.sql"), []byte("CREATE VIEW `v1` AS SELECT 1 AS `one`;\n"), 0o644))
	// data files are not checked
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db.t1.00000.sql"), []byte("not sql at all"), 0o644))
	n, err = VerifySchemaFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "db.t2-schema.sql"), []byte("SET NAMES utf8mb4;\n"), 0o644))
	_, err = VerifySchemaFiles(dir)
	assert.ErrorContains(t, err, "db.t2-schema.sql does not contain a CREATE TABLE statement")
}
