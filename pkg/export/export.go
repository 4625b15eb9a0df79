package export

// Dataset defines tabular export content. Row values are keyed by header
// name so renderers can lay columns out independently.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}
