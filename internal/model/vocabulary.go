package model

// Vocabulary maps achievement api-names onto the 1-based internal indices
// the model understands. Index 0 is reserved as padding, so a zero value
// can never be mistaken for a real item. Achievements outside the
// vocabulary are unscoreable.
type Vocabulary struct {
	// Index maps api-name -> 1-based index. Exported for gob encoding.
	Index map[string]int

	// Items maps index-1 -> api-name, in first-seen order.
	Items []string
}

// NewVocabulary builds a vocabulary from the sampled population's
// sequences, assigning indices in first-appearance order. Sequences are
// deterministic (see the sequence package), so the assignment is too.
func NewVocabulary(sequences [][]string) *Vocabulary {
	v := &Vocabulary{Index: make(map[string]int)}
	for _, seq := range sequences {
		for _, name := range seq {
			if _, ok := v.Index[name]; !ok {
				v.Items = append(v.Items, name)
				v.Index[name] = len(v.Items) // 1-based
			}
		}
	}
	return v
}

// Size returns the number of real items (padding excluded).
func (v *Vocabulary) Size() int {
	return len(v.Items)
}

// Lookup returns the 1-based index for an api-name.
func (v *Vocabulary) Lookup(name string) (int, bool) {
	idx, ok := v.Index[name]
	return idx, ok
}

// Name returns the api-name for a 1-based index, or "" when out of range.
func (v *Vocabulary) Name(idx int) string {
	if idx < 1 || idx > len(v.Items) {
		return ""
	}
	return v.Items[idx-1]
}

// Encode maps a sequence of api-names onto internal indices, dropping any
// item outside the vocabulary.
func (v *Vocabulary) Encode(seq []string) []int {
	out := make([]int, 0, len(seq))
	for _, name := range seq {
		if idx, ok := v.Index[name]; ok {
			out = append(out, idx)
		}
	}
	return out
}
