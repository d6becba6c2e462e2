// Package table resolves which tables a dump skips entirely and which it
// dumps as structure only.
package table

import (
	"regexp"
	"strings"

	"github.com/block/mydump/pkg/config"
	"github.com/block/mydump/pkg/utils"
)

// Options are the table selection flags shared by commands that dump.
type Options struct {
	SkipTablesKey       string `name:"skip-tables-key" help:"A key in the tables.skip section of the config. Tables listed there are not dumped at all." optional:""`
	StructureTablesKey  string `name:"structure-tables-key" help:"A key in the tables.structure section of the config. Tables listed there are dumped without data." optional:""`
	SkipTablesList      string `name:"skip-tables-list" help:"Comma separated list of tables to skip. Overrides --skip-tables-key. Supports * wildcards." optional:""`
	StructureTablesList string `name:"structure-tables-list" help:"Comma separated list of tables to dump without data. Overrides --structure-tables-key. Supports * wildcards." optional:""`

	// Accepted only to be rejected: mydumper would dump the full list
	// anyway and silently ignoring them hides the mistake.
	TablesKey  string `name:"tables-key" help:"Not supported." optional:"" hidden:""`
	TablesList string `name:"tables-list" help:"Not supported." optional:"" hidden:""`
}

// Validate rejects options that are declared but not supported.
func (o Options) Validate() error {
	if o.TablesKey != "" {
		return config.Usagef("--tables-key option is not supported.")
	}
	if o.TablesList != "" {
		return config.Usagef("--tables-list option is not supported.")
	}
	return nil
}

// IsEmpty is true when no table would be skipped or dumped as structure,
// in which case the live table list is not needed.
func (o Options) IsEmpty() bool {
	return o.SkipTablesKey == "" && o.StructureTablesKey == "" &&
		o.SkipTablesList == "" && o.StructureTablesList == ""
}

// Selection is the resolved partition of a schema's tables. Tables in
// neither list are dumped with structure and data.
type Selection struct {
	Skip      []string
	Structure []string
}

// Exclude is the union of Skip and Structure without duplicates: every table
// the data run must leave out.
func (s Selection) Exclude() []string {
	return utils.Unique(append(append([]string(nil), s.Skip...), s.Structure...))
}

// Expand resolves opts against the named lists and the tables that exist.
func Expand(opts Options, lists config.TableLists, tables []string) (Selection, error) {
	if err := opts.Validate(); err != nil {
		return Selection{}, err
	}
	skip, err := patterns(opts.SkipTablesList, opts.SkipTablesKey, "skip", lists.Skip)
	if err != nil {
		return Selection{}, err
	}
	structure, err := patterns(opts.StructureTablesList, opts.StructureTablesKey, "structure", lists.Structure)
	if err != nil {
		return Selection{}, err
	}
	return Selection{
		Skip:      Match(skip, tables),
		Structure: Match(structure, tables),
	}, nil
}

// patterns picks the explicit list when given, otherwise the named one.
func patterns(list, key, section string, named map[string][]string) ([]string, error) {
	if list != "" {
		return SplitList(list), nil
	}
	if key == "" {
		return nil, nil
	}
	p, ok := named[key]
	if !ok {
		return nil, config.Usagef("unknown %s tables key %q", section, key)
	}
	return p, nil
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(list string) []string {
	var out []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Match returns the tables matched by patterns, in pattern order and then
// table order, without duplicates. '*' matches any run of characters.
// Names that do not exist are dropped.
func Match(patterns, tables []string) []string {
	var out []string
	for _, p := range patterns {
		re := wildcard(p)
		for _, t := range tables {
			if re.MatchString(t) {
				out = append(out, t)
			}
		}
	}
	return utils.Unique(out)
}

func wildcard(pattern string) *regexp.Regexp {
	return regexp.MustCompile("^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$")
}

// Qualify prefixes every table with the schema name, as mydumper expects in
// --tables-list and --omit-from-file.
func Qualify(schema string, tables []string) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = schema + "." + t
	}
	return out
}
