package fiscal

import "sort"

// Registry holds the known dialects in detection order. Registration
// is explicit: a dialect is probed only if it was handed to the
// constructor, there is no package-level side-effect registration.
type Registry struct {
	dialects []Dialect
}

// NewRegistry builds a registry over the given dialects, ordered by
// descending priority. Order among equal priorities follows the
// argument order.
func NewRegistry(dialects ...Dialect) *Registry {
	sorted := make([]Dialect, len(dialects))
	copy(sorted, dialects)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() > sorted[j].Priority()
	})
	return &Registry{dialects: sorted}
}

// DefaultRegistry returns a registry with every dialect this package
// implements.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewDatecsPC(),
		NewDatecsX(),
		NewDatecsFMPv2(),
		NewDatecsFPv1(),
		NewDaisy(),
		NewEltrade(),
		NewIncotex(),
		NewIslIcp(),
	)
}

// Sorted returns the dialects in probing order, highest priority first.
func (r *Registry) Sorted() []Dialect {
	out := make([]Dialect, len(r.dialects))
	copy(out, r.dialects)
	return out
}

// ByName looks a dialect up by its protocol identifier.
func (r *Registry) ByName(name string) (Dialect, bool) {
	for _, d := range r.dialects {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}

// BaudRates returns the union of all candidate baud rates, preferred
// first if nonzero, preserving each dialect's own ordering.
func (r *Registry) BaudRates(preferred int) []int {
	seen := make(map[int]bool)
	var out []int
	if preferred > 0 {
		seen[preferred] = true
		out = append(out, preferred)
	}
	for _, d := range r.dialects {
		for _, baud := range d.BaudRates() {
			if !seen[baud] {
				seen[baud] = true
				out = append(out, baud)
			}
		}
	}
	return out
}
