package testutil

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"sync"

	"github.com/saetre/arx/groupify"
	"github.com/saetre/arx/hierarchy"
	"github.com/saetre/arx/model"
	"github.com/saetre/arx/subset"
)

// RNG wraps math/rand with a mutex so fixtures can be built concurrently.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG with the given seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Reset rewinds the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Intn returns a pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Fixture bundles the inputs of a transformation run.
type Fixture struct {
	Rows        []model.Tuple
	Sensitive   []int32
	Subset      *subset.Subset
	Hierarchies *hierarchy.Set
	// Labels[dim][code] names every code of a dimension, when known.
	Labels [][]string
}

// Adult returns the 7-row age/gender/zipcode dataset. The subset selects
// rows with age 70 or 34 and the sensitive attribute is the gender code.
//
// Hierarchies:
//
//	age      34,45 -> <50 ; 66,70 -> >=50 ; -> *
//	gender   male,female -> *
//	zipcode  81667 -> 8166* -> 816** -> 81*** -> 8**** -> *****
func Adult() *Fixture {
	raw := [][3]string{
		{"34", "male", "81667"},
		{"45", "female", "81675"},
		{"66", "male", "81925"},
		{"70", "female", "81931"},
		{"34", "female", "81931"},
		{"70", "male", "81931"},
		{"45", "male", "81931"},
	}

	age := hierarchy.NewBuilder()
	must(age.Add("34", "<50", "*"))
	must(age.Add("45", "<50", "*"))
	must(age.Add("66", ">=50", "*"))
	must(age.Add("70", ">=50", "*"))

	gender := hierarchy.NewBuilder()
	must(gender.Add("male", "*"))
	must(gender.Add("female", "*"))

	zip := hierarchy.NewBuilder()
	for _, z := range []string{"81667", "81675", "81925", "81931"} {
		must(zip.Add(z, z[:4]+"*", z[:3]+"**", z[:2]+"***", z[:1]+"****", "*****"))
	}

	builders := []*hierarchy.Builder{age, gender, zip}
	dims := make([]*hierarchy.Hierarchy, len(builders))
	labels := make([][]string, len(builders))
	for i, b := range builders {
		h, l, err := b.Build()
		must(err)
		dims[i], labels[i] = h, l
	}
	set, err := hierarchy.NewSet(dims...)
	must(err)

	f := &Fixture{Hierarchies: set, Labels: labels, Subset: subset.New()}
	for i, r := range raw {
		row := make(model.Tuple, len(r))
		for d, v := range r {
			c, ok := builders[d].Encode(v)
			if !ok {
				panic("unknown value " + v)
			}
			row[d] = c
		}
		f.Rows = append(f.Rows, row)
		f.Sensitive = append(f.Sensitive, row[1])
		if r[0] == "70" || r[0] == "34" {
			f.Subset.Add(i)
		}
	}
	return f
}

// Random builds rows over dims dimensions whose hierarchies have the given
// height and a branching factor of 2. Every dimension has 1<<(height-1)
// leaf codes. Sensitive values are drawn from [0,4) and roughly a third of
// the rows are selected into the subset.
func Random(rng *RNG, rows, dims, height int) *Fixture {
	codes := 1 << (height - 1)
	hs := make([]*hierarchy.Hierarchy, dims)
	for d := range hs {
		table := make([][]int32, codes)
		for c := range table {
			path := make([]int32, height)
			for l := range path {
				path[l] = int32(c >> l)
			}
			table[c] = path
		}
		h, err := hierarchy.New(table)
		must(err)
		hs[d] = h
	}
	set, err := hierarchy.NewSet(hs...)
	must(err)

	f := &Fixture{Hierarchies: set, Subset: subset.New()}
	for i := 0; i < rows; i++ {
		row := make(model.Tuple, dims)
		for d := range row {
			row[d] = int32(rng.Intn(codes))
		}
		f.Rows = append(f.Rows, row)
		f.Sensitive = append(f.Sensitive, int32(rng.Intn(4)))
		if rng.Intn(3) == 0 {
			f.Subset.Add(i)
		}
	}
	return f
}

// Canonical renders every entry of t as "key|count|secondary|distribution"
// and returns them sorted. Representatives are left out: they legitimately
// differ between modes.
func Canonical(t *groupify.Table) []string {
	out := make([]string, 0, t.Len())
	for e := range t.Entries() {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%v|%d|%d|", e.Key, e.Count, e.SecondaryCount)
		if e.Distribution != nil {
			v, f := e.Distribution.Pack()
			fmt.Fprintf(&sb, "%v:%v", v, f)
		}
		out = append(out, sb.String())
	}
	slices.Sort(out)
	return out
}

// Label returns the label of code in dimension dim, or the code itself.
func (f *Fixture) Label(dim int, code int32) string {
	if dim < len(f.Labels) && int(code) < len(f.Labels[dim]) {
		return f.Labels[dim][code]
	}
	return fmt.Sprint(code)
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
