package verbs

// FillArgs writes a constant into a column.
type FillArgs struct {
	To    string `json:"to"`
	Value any    `json:"value"`
}

// EraseArgs clears cells equal to Value.
type EraseArgs struct {
	Column string `json:"column"`
	Value  any    `json:"value"`
}

// ImputeArgs replaces empty cells with Value.
type ImputeArgs struct {
	Column string `json:"column"`
	Value  any    `json:"value"`
}

// DeriveArgs combines two columns with an arithmetic or text operator.
type DeriveArgs struct {
	Column1  string `json:"column1"`
	Column2  string `json:"column2"`
	Operator string `json:"operator"`
	To       string `json:"to"`
}

// RecodeArgs maps cell values to replacements. Keys are matched against the
// text form of the cell.
type RecodeArgs struct {
	Column string         `json:"column"`
	To     string         `json:"to"`
	Map    map[string]any `json:"map"`
}

// RenameArgs maps old column names to new ones.
type RenameArgs struct {
	Columns map[string]string `json:"columns"`
}

// ColumnListArgs is shared by verbs that take a list of columns.
type ColumnListArgs struct {
	Columns []string `json:"columns"`
}

// MergeArgs collapses several columns into one.
type MergeArgs struct {
	Columns   []string `json:"columns"`
	Strategy  string   `json:"strategy"`
	To        string   `json:"to"`
	Delimiter string   `json:"delimiter"`
}

// Criterion is one comparison of a filter.
type Criterion struct {
	Value any `json:"value"`
	// Type is "value" to compare against Value or "column" to compare
	// against the column named by Value.
	Type     string `json:"type"`
	Operator string `json:"operator"`
}

// FilterArgs keeps rows where the criteria hold for Column.
type FilterArgs struct {
	Column   string      `json:"column"`
	Criteria []Criterion `json:"criteria"`
	// Logical combines the criteria: or, and, nor, nand or xor.
	Logical string `json:"logical"`
}

// Order is one sort key.
type Order struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

// OrderbyArgs sorts by several keys.
type OrderbyArgs struct {
	Orders []Order `json:"orders"`
}

// SampleArgs keeps a random subset of rows.
type SampleArgs struct {
	Size       int     `json:"size"`
	Proportion float64 `json:"proportion"`
	Seed       int64   `json:"seed"`
}

// RollupArgs reduces a column to a single value.
type RollupArgs struct {
	Column    string `json:"column"`
	Operation string `json:"operation"`
	To        string `json:"to"`
}

// AggregateArgs reduces a column per group.
type AggregateArgs struct {
	Groupby   string `json:"groupby"`
	Column    string `json:"column"`
	Operation string `json:"operation"`
	To        string `json:"to"`
}

// UnrollArgs expands an array column to one row per element.
type UnrollArgs struct {
	Column string `json:"column"`
}

// FoldArgs turns columns into key/value rows.
type FoldArgs struct {
	Columns []string  `json:"columns"`
	To      [2]string `json:"to"`
}

// JoinArgs joins source with other on key columns. On holds one name
// shared by both sides or a left and a right name.
type JoinArgs struct {
	On       []string `json:"on"`
	Strategy string   `json:"strategy"`
}

// LookupArgs copies Columns from other into source on key match.
type LookupArgs struct {
	On      []string `json:"on"`
	Columns []string `json:"columns"`
}

// SetOperationArgs has no options; the tables come from the bindings.
type SetOperationArgs struct{}

// FetchArgs downloads a table.
type FetchArgs struct {
	URL       string `json:"url"`
	Delimiter string `json:"delimiter"`
	AutoMax   int    `json:"autoMax"`
}

// SpreadArgs splits an array column into one column per element. To names
// the new columns; when empty they are named column_1, column_2 and so on.
type SpreadArgs struct {
	Column string   `json:"column"`
	To     []string `json:"to"`
}

// PivotArgs turns the distinct values of Key into columns holding Value
// reduced with Operation.
type PivotArgs struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Operation string `json:"operation"`
}

// OnehotArgs adds one indicator column per distinct value of Column.
type OnehotArgs struct {
	Column string `json:"column"`
	Prefix string `json:"prefix"`
}

// ConvertArgs parses the text of Columns into Type. Radix applies to
// integers.
type ConvertArgs struct {
	Columns []string `json:"columns"`
	Type    string   `json:"type"`
	Radix   int      `json:"radix"`
}

// BinArgs buckets a numeric column. Min and Max default to the column's
// extent.
type BinArgs struct {
	Column     string   `json:"column"`
	To         string   `json:"to"`
	Strategy   string   `json:"strategy"`
	Fixedcount int      `json:"fixedcount"`
	Fixedwidth float64  `json:"fixedwidth"`
	Min        *float64 `json:"min"`
	Max        *float64 `json:"max"`
	Clamped    bool     `json:"clamped"`
}

// BinarizeArgs writes whether each row passes the filter criteria.
type BinarizeArgs struct {
	FilterArgs
	To string `json:"to"`
}

// ChainStep is one verb run inside a chain.
type ChainStep struct {
	Verb Verb `json:"verb"`
	Args any  `json:"args"`
}

// ChainArgs runs Steps in order, each one reading the previous result as
// its source.
type ChainArgs struct {
	Steps []ChainStep `json:"steps"`
}
