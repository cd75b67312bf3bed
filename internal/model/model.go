// Package model implements the sequence-recommendation model behind a
// narrow adapter surface: a Trainer fits interaction sequences, the
// resulting Model scores every vocabulary item conditioned on a sequence.
// Nothing outside this package depends on the model's internals, so the
// implementation can be swapped without touching the pipeline.
//
// The implementation is a factorized personalized Markov chain: an item
// popularity bias plus factorized last-item -> next-item transition
// matrices, fitted with BPR-style updates over adjacent sequence pairs.
// Training is fully deterministic (fixed seed, positional initialization)
// so retraining on identical data reproduces identical scores.
package model

import (
	"context"
	"math"
	"math/rand"
)

// Default training configuration constants.
const (
	defaultEmbeddingDim    = 32
	defaultIterations      = 10
	defaultLearningRate    = 0.01
	defaultRegularization  = 0.001
	defaultNegativeSamples = 3
	defaultSeed            = 42
)

// ItemScore is one achievement's relevance score for a player.
type ItemScore struct {
	APIName string
	Score   float64
}

// Trainer fits a Model from a collection of interaction sequences.
type Trainer interface {
	// Fit trains a model. Sequences must be time-ordered per player.
	Fit(ctx context.Context, sequences [][]string) (*Model, error)
}

// Model is a trained sequence model. Fields are exported for gob encoding;
// treat them as read-only outside this package.
type Model struct {
	// Vocab maps achievement api-names onto internal indices.
	Vocab *Vocabulary

	// Bias is the per-item popularity prior, indexed 1-based (0 unused).
	Bias []float64

	// LastFactors and NextFactors factorize the item-to-item transition
	// matrix: score(next | last) = dot(LastFactors[last], NextFactors[next]).
	LastFactors [][]float64
	NextFactors [][]float64
}

// SequenceTrainer implements Trainer.
type SequenceTrainer struct {
	embeddingDim    int
	iterations      int
	learningRate    float64
	regularization  float64
	negativeSamples int
	seed            int64
}

// Option applies a configuration option to the SequenceTrainer.
type Option func(*SequenceTrainer)

// WithEmbeddingDim sets the latent factor dimension.
func WithEmbeddingDim(dim int) Option {
	return func(t *SequenceTrainer) {
		if dim > 0 {
			t.embeddingDim = dim
		}
	}
}

// WithIterations sets the number of training epochs.
func WithIterations(n int) Option {
	return func(t *SequenceTrainer) {
		if n > 0 {
			t.iterations = n
		}
	}
}

// WithLearningRate sets the SGD learning rate.
func WithLearningRate(lr float64) Option {
	return func(t *SequenceTrainer) {
		if lr > 0 {
			t.learningRate = lr
		}
	}
}

// WithRegularization sets the L2 regularization term.
func WithRegularization(reg float64) Option {
	return func(t *SequenceTrainer) {
		if reg >= 0 {
			t.regularization = reg
		}
	}
}

// WithNegativeSamples sets the number of negative samples per positive.
func WithNegativeSamples(n int) Option {
	return func(t *SequenceTrainer) {
		if n > 0 {
			t.negativeSamples = n
		}
	}
}

// WithSeed sets the random seed used for negative sampling.
func WithSeed(seed int64) Option {
	return func(t *SequenceTrainer) {
		t.seed = seed
	}
}

// NewSequenceTrainer creates a trainer with configuration options.
func NewSequenceTrainer(opts ...Option) *SequenceTrainer {
	t := &SequenceTrainer{
		embeddingDim:    defaultEmbeddingDim,
		iterations:      defaultIterations,
		learningRate:    defaultLearningRate,
		regularization:  defaultRegularization,
		negativeSamples: defaultNegativeSamples,
		seed:            defaultSeed,
	}

	// Apply all options
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// transition is one (last item, next item) training pair.
type transition struct {
	lastIdx int
	nextIdx int
}

// Fit trains a model from the given sequences.
//
// Degenerate inputs are rejected before any training work: an empty
// dataset, a vocabulary with fewer than 2 achievements, or a dataset where
// every sequence has length <= 1 (no order signal to learn from).
func (t *SequenceTrainer) Fit(ctx context.Context, sequences [][]string) (*Model, error) {
	if len(sequences) == 0 {
		return nil, ErrEmptyDataset
	}

	vocab := NewVocabulary(sequences)
	if vocab.Size() < 2 {
		return nil, ErrDegenerateVocabulary
	}

	// Encode and collect transitions + popularity counts.
	counts := make([]float64, vocab.Size()+1)
	var transitions []transition
	var total float64
	for _, seq := range sequences {
		encoded := vocab.Encode(seq)
		for i, idx := range encoded {
			counts[idx]++
			total++
			if i > 0 {
				transitions = append(transitions, transition{lastIdx: encoded[i-1], nextIdx: idx})
			}
		}
	}
	if len(transitions) == 0 {
		return nil, ErrDegenerateDataset
	}

	m := &Model{
		Vocab:       vocab,
		Bias:        make([]float64, vocab.Size()+1),
		LastFactors: initMatrix(vocab.Size()+1, t.embeddingDim),
		NextFactors: initMatrix(vocab.Size()+1, t.embeddingDim),
	}

	// Popularity prior: log-scaled unlock frequency. This is what an empty
	// sequence falls back to at scoring time.
	for idx := 1; idx <= vocab.Size(); idx++ {
		m.Bias[idx] = math.Log1p(counts[idx]) / math.Log1p(total)
	}

	rng := rand.New(rand.NewSource(t.seed)) //nolint:gosec // deterministic seed for reproducible training

	for iter := 0; iter < t.iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Deterministic shuffle per epoch.
		rng.Shuffle(len(transitions), func(i, j int) {
			transitions[i], transitions[j] = transitions[j], transitions[i]
		})

		for _, tr := range transitions {
			for n := 0; n < t.negativeSamples; n++ {
				// Sample a negative next-item distinct from the positive.
				neg := rng.Intn(vocab.Size()) + 1
				if neg == tr.nextIdx {
					continue
				}
				t.updateBPR(m, tr.lastIdx, tr.nextIdx, neg)
			}
		}
	}

	return m, nil
}

// updateBPR performs one BPR update step: raise the positive transition
// score above the sampled negative one.
func (t *SequenceTrainer) updateBPR(m *Model, lastIdx, posIdx, negIdx int) {
	lr := t.learningRate
	reg := t.regularization

	diff := m.transitionScore(lastIdx, posIdx) - m.transitionScore(lastIdx, negIdx)
	// d/dx -ln(sigmoid(x)) = sigmoid(-x)
	grad := 1.0 / (1.0 + math.Exp(diff))

	last := m.LastFactors[lastIdx]
	pos := m.NextFactors[posIdx]
	neg := m.NextFactors[negIdx]

	for k := range last {
		lastGrad := grad * (pos[k] - neg[k])
		posGrad := grad * last[k]
		negGrad := -grad * last[k]

		last[k] += lr * (lastGrad - reg*last[k])
		pos[k] += lr * (posGrad - reg*pos[k])
		neg[k] += lr * (negGrad - reg*neg[k])
	}
}

// transitionScore computes dot(LastFactors[last], NextFactors[next]).
func (m *Model) transitionScore(lastIdx, nextIdx int) float64 {
	var score float64
	for k := range m.LastFactors[lastIdx] {
		score += m.LastFactors[lastIdx][k] * m.NextFactors[nextIdx][k]
	}
	return score
}

// Score computes a relevance score for every achievement in the vocabulary
// conditioned on the player's sequence. Items in the sequence that were
// never seen during training are ignored. An empty (or fully unseen)
// sequence falls back to the popularity prior, so cold-start players still
// get a full ranked table.
//
// Results are returned in vocabulary order; callers sort as needed.
func (m *Model) Score(ctx context.Context, seq []string) ([]ItemScore, error) {
	if m.Vocab == nil || len(m.NextFactors) == 0 {
		return nil, ErrNotTrained
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	encoded := m.Vocab.Encode(seq)
	lastIdx := 0
	if len(encoded) > 0 {
		lastIdx = encoded[len(encoded)-1]
	}

	out := make([]ItemScore, 0, m.Vocab.Size())
	for idx := 1; idx <= m.Vocab.Size(); idx++ {
		score := m.Bias[idx]
		if lastIdx != 0 {
			score += m.transitionScore(lastIdx, idx)
		}
		out = append(out, ItemScore{APIName: m.Vocab.Name(idx), Score: score})
	}
	return out, nil
}

// initMatrix initializes a matrix with small position-derived values.
// Deterministic by construction, mirroring the fixed-seed requirement.
func initMatrix(rows, cols int) [][]float64 {
	matrix := make([][]float64, rows)
	for i := range matrix {
		matrix[i] = make([]float64, cols)
		for j := range matrix[i] {
			matrix[i][j] = 0.1 * (float64((i*cols+j)%1000)/1000.0 - 0.5)
		}
	}
	return matrix
}

// Ensure interface compliance.
var _ Trainer = (*SequenceTrainer)(nil)
