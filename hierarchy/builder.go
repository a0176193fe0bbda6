package hierarchy

import "fmt"

// Builder assembles a hierarchy from labelled generalization paths and
// assigns codes as labels appear. Level-0 labels get codes 0..n-1 in
// insertion order, so codes produced by Encode match the hierarchy.
//
//	b := hierarchy.NewBuilder()
//	b.Add("34", "<50", "*")
//	b.Add("66", ">=50", "*")
//	h, _ := b.Build()
type Builder struct {
	height int
	leaves []string
	paths  [][]string
	codes  map[string]int32
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{codes: make(map[string]int32)}
}

// Add registers the generalization path of one value, from the value itself
// to the most general label. Re-adding a value is an error.
func (b *Builder) Add(path ...string) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: empty path", ErrInvalidHierarchy)
	}
	if b.height == 0 {
		b.height = len(path)
	}
	if len(path) != b.height {
		return fmt.Errorf("%w: path for %q has height %d, expected %d", ErrInvalidHierarchy, path[0], len(path), b.height)
	}
	if _, dup := b.codes[path[0]]; dup {
		return fmt.Errorf("%w: duplicate value %q", ErrInvalidHierarchy, path[0])
	}
	b.codes[path[0]] = int32(len(b.leaves))
	b.leaves = append(b.leaves, path[0])
	b.paths = append(b.paths, append([]string(nil), path...))
	return nil
}

// Encode returns the level-0 code of value.
func (b *Builder) Encode(value string) (int32, bool) {
	c, ok := b.codes[value]
	return c, ok
}

// Build produces the hierarchy and the labels for every generated code.
// Labels above level 0 that are not also leaves get fresh codes.
func (b *Builder) Build() (*Hierarchy, []string, error) {
	labels := append([]string(nil), b.leaves...)
	codes := make(map[string]int32, len(b.codes))
	for k, v := range b.codes {
		codes[k] = v
	}

	rows := make([][]int32, len(b.paths))
	for i, path := range b.paths {
		row := make([]int32, len(path))
		for lvl, label := range path {
			c, ok := codes[label]
			if !ok {
				c = int32(len(labels))
				codes[label] = c
				labels = append(labels, label)
			}
			row[lvl] = c
		}
		rows[i] = row
	}

	h, err := New(rows)
	if err != nil {
		return nil, nil, err
	}
	return h, labels, nil
}
