package graph

// IndexMap is a bijection between company names and dense ids in [0, N).
// Ids are assigned in first-seen order over the input records.
type IndexMap struct {
	byName map[string]int
	names  []string
}

// NewIndexMap assigns ids to every distinct company in records order
func NewIndexMap(records []Record) *IndexMap {
	m := &IndexMap{
		byName: make(map[string]int),
		names:  make([]string, 0),
	}
	for _, r := range records {
		m.add(r.Company)
	}
	return m
}

func (m *IndexMap) add(name string) int {
	if i, ok := m.byName[name]; ok {
		return i
	}
	i := len(m.names)
	m.byName[name] = i
	m.names = append(m.names, name)
	return i
}

// Index returns the id of name
func (m *IndexMap) Index(name string) (int, bool) {
	i, ok := m.byName[name]
	return i, ok
}

// Name returns the company at id i
func (m *IndexMap) Name(i int) (string, bool) {
	if i < 0 || i >= len(m.names) {
		return "", false
	}
	return m.names[i], true
}

// Len is the number of distinct companies
func (m *IndexMap) Len() int {
	return len(m.names)
}

// Names returns a copy of the id -> name table
func (m *IndexMap) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Lookup returns a copy of the name -> id table
func (m *IndexMap) Lookup() map[string]int {
	out := make(map[string]int, len(m.byName))
	for k, v := range m.byName {
		out[k] = v
	}
	return out
}
