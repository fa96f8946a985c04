package sqlcheck

var keywords = toSet(
	"select", "from", "where", "join", "inner", "left", "right", "full", "outer", "cross",
	"natural", "lateral", "on", "using", "group", "by", "order", "having", "limit", "offset",
	"fetch", "next", "rows", "row", "only", "as", "and", "or", "not", "in", "is", "null",
	"like", "ilike", "similar", "escape", "between", "exists", "case", "when", "then", "else",
	"end", "distinct", "all", "any", "some", "union", "intersect", "except", "with",
	"recursive", "materialized", "asc", "desc", "nulls", "first", "last", "true", "false",
	"interval", "cast", "extract", "current_date", "current_time", "current_timestamp",
	"over", "partition", "filter", "within", "window", "values", "for", "share",
	"drop", "delete", "update", "insert", "alter", "create", "truncate", "grant", "revoke",
	"merge", "attach", "detach", "copy", "call", "exec", "execute", "pragma", "vacuum",
	"into", "set", "returning", "both", "leading", "trailing",
)

// disallowedKeywords mark statements that write, change structure or escape
// the read-only boundary.
var disallowedKeywords = toSet(
	"drop", "delete", "update", "insert", "alter", "create", "truncate", "grant", "revoke",
	"merge", "attach", "detach", "copy", "call", "exec", "execute", "pragma", "vacuum",
	"into",
)

// calleeKeywords open a parenthesised argument list rather than a subquery.
var calleeKeywords = toSet("cast", "extract", "over", "filter", "within", "left", "right")

// danglingKeywords cannot end a statement.
var danglingKeywords = toSet(
	"select", "from", "where", "join", "inner", "left", "right", "full", "outer", "cross",
	"on", "using", "group", "by", "order", "having", "limit", "offset", "as", "and", "or",
	"not", "in", "is", "like", "ilike", "between", "union", "intersect", "except", "with",
	"case", "when", "then", "else", "distinct", "exists",
)

// knownFunctions is the callable surface accepted in generated SQL: standard
// aggregates plus scalar helpers common to PostgreSQL, MySQL, SQLite and DuckDB.
var knownFunctions = toSet(
	"count", "sum", "avg", "min", "max", "stddev", "stddev_pop", "stddev_samp", "variance",
	"median", "mode", "percentile_cont", "percentile_disc", "string_agg", "group_concat",
	"array_agg", "bool_and", "bool_or", "every",
	"coalesce", "nullif", "ifnull", "if", "greatest", "least",
	"lower", "upper", "length", "char_length", "character_length", "trim", "ltrim", "rtrim",
	"substring", "substr", "replace", "concat", "concat_ws", "position", "strpos", "instr",
	"initcap", "lpad", "rpad", "reverse",
	"round", "floor", "ceil", "ceiling", "abs", "mod", "power", "sqrt", "sign", "trunc",
	"date", "date_part", "date_trunc", "strftime", "now", "year", "month", "day", "to_char",
	"row_number", "rank", "dense_rank", "ntile", "lag", "lead", "first_value", "last_value",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}

func inSet(set map[string]struct{}, word string) bool {
	_, ok := set[word]
	return ok
}
