package catalog

// NameIndex resolves a product name to its row. When several rows share a name
// the first one wins and the others can only be reached by row index.
type NameIndex struct {
	rows       map[string]int
	duplicates []string
}

// NewNameIndex builds the index in row order
func NewNameIndex(items []Item) *NameIndex {
	idx := &NameIndex{
		rows: make(map[string]int, len(items)),
	}

	reported := make(map[string]bool)
	for _, item := range items {
		if _, exists := idx.rows[item.ProductName]; exists {
			if !reported[item.ProductName] {
				idx.duplicates = append(idx.duplicates, item.ProductName)
				reported[item.ProductName] = true
			}
			continue
		}
		idx.rows[item.ProductName] = item.RowIndex
	}

	return idx
}

// Lookup returns the row of the first item carrying name
func (n *NameIndex) Lookup(name string) (int, bool) {
	row, ok := n.rows[name]
	return row, ok
}

// Len is the number of distinct names
func (n *NameIndex) Len() int {
	return len(n.rows)
}

// Duplicates lists names that appeared on more than one row, in order of first repetition
func (n *NameIndex) Duplicates() []string {
	out := make([]string, len(n.duplicates))
	copy(out, n.duplicates)
	return out
}
