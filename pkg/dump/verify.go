package dump

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
)

// schemaFilePattern matches the per-table DDL files mydumper writes.
const schemaFilePattern = "*-schema.sql"

// VerifySchemaFiles parses every table schema file in dir and checks that
// each one holds at least one CREATE TABLE or CREATE VIEW. It returns the
// number of files checked.
func VerifySchemaFiles(dir string) (int, error) {
	files, err := filepath.Glob(filepath.Join(dir, schemaFilePattern))
	if err != nil {
		return 0, err
	}
	p := parser.New()
	for _, file := range files {
		if err := verifySchemaFile(p, file); err != nil {
			return 0, err
		}
	}
	return len(files), nil
}

func verifySchemaFile(p *parser.Parser, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	stmtNodes, _, err := p.Parse(string(data), "", "")
	if err != nil {
		return fmt.Errorf("could not parse %s: %w", filepath.Base(file), err)
	}
	for _, node := range stmtNodes {
		switch node.(type) {
		case *ast.CreateTableStmt, *ast.CreateViewStmt:
			return nil
		}
	}
	return fmt.Errorf("%s does not contain a CREATE TABLE statement", filepath.Base(file))
}
