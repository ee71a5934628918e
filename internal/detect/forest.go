package detect

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/Veraticus/mileage-audit/internal/common"
	"github.com/Veraticus/mileage-audit/internal/model"
)

const (
	maxSampleSize = 256
	eulerGamma    = 0.5772156649015329
)

// Forest is an extended isolation forest. Each tree splits its sample with
// random hyperplanes; points isolated after few splits are outliers.
type Forest struct {
	cfg Config
}

// NewForest returns a forest detector for cfg.
func NewForest(cfg Config) (*Forest, error) {
	if cfg.Contamination <= 0 || cfg.Contamination > 0.5 {
		return nil, fmt.Errorf("%w: contamination must be in (0, 0.5], got %g", common.ErrInvalidConfig, cfg.Contamination)
	}
	if cfg.Trees < 1 {
		return nil, fmt.Errorf("%w: trees must be positive, got %d", common.ErrInvalidConfig, cfg.Trees)
	}
	if cfg.SampleSize < 0 {
		return nil, fmt.Errorf("%w: sample size must not be negative, got %d", common.ErrInvalidConfig, cfg.SampleSize)
	}
	if cfg.ExtensionLevel < -1 {
		return nil, fmt.Errorf("%w: extension level must be -1 or more, got %d", common.ErrInvalidConfig, cfg.ExtensionLevel)
	}
	return &Forest{cfg: cfg}, nil
}

// Fit implements Detector. The fit is deterministic for a given seed and
// input.
func (f *Forest) Fit(ctx context.Context, data [][]float64) (Model, error) {
	n := len(data)
	if n < MinRows {
		return nil, &common.InsufficientDataError{Stage: Stage, Rows: n, Min: MinRows}
	}
	dims, err := dimensions(data)
	if err != nil {
		return nil, err
	}

	ext := f.cfg.ExtensionLevel
	if ext == -1 {
		ext = dims - 1
	}
	if ext > dims-1 {
		return nil, fmt.Errorf("%w: extension level %d exceeds %d for %d features",
			common.ErrInvalidConfig, ext, dims-1, dims)
	}

	psi := f.cfg.SampleSize
	if psi == 0 {
		psi = min(maxSampleSize, n)
	}
	psi = min(psi, n)

	rng := rand.New(rand.NewSource(f.cfg.Seed)) //nolint:gosec // seeded for reproducible fits
	b := &builder{
		rng:      rng,
		dims:     dims,
		ext:      ext,
		maxDepth: int(math.Ceil(math.Log2(float64(psi)))),
	}

	trees := make([]*node, f.cfg.Trees)
	for i := range trees {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx := rng.Perm(n)[:psi]
		sample := make([][]float64, psi)
		for j, k := range idx {
			sample[j] = data[k]
		}
		trees[i] = b.build(sample, 0)
	}

	fitted := &forestModel{
		trees: trees,
		dims:  dims,
		norm:  averagePathLength(psi),
	}
	fitted.offset = percentile(fitted.scoreSamples(data), 100*f.cfg.Contamination)

	return fitted, nil
}

type node struct {
	left      *node
	right     *node
	normal    []float64
	intercept []float64
	size      int
}

func (n *node) leaf() bool {
	return n.left == nil
}

type builder struct {
	rng      *rand.Rand
	dims     int
	ext      int
	maxDepth int
}

func (b *builder) build(points [][]float64, depth int) *node {
	if depth >= b.maxDepth || len(points) <= 1 || identical(points) {
		return &node{size: len(points)}
	}

	normal := make([]float64, b.dims)
	for d := range normal {
		normal[d] = b.rng.NormFloat64()
	}
	for _, d := range b.rng.Perm(b.dims)[:b.dims-b.ext-1] {
		normal[d] = 0
	}

	intercept := make([]float64, b.dims)
	for d := range intercept {
		lo, hi := points[0][d], points[0][d]
		for _, p := range points[1:] {
			lo = math.Min(lo, p[d])
			hi = math.Max(hi, p[d])
		}
		intercept[d] = lo + b.rng.Float64()*(hi-lo)
	}

	var left, right [][]float64
	for _, p := range points {
		if side(p, normal, intercept) <= 0 {
			left = append(left, p)
		} else {
			right = append(right, p)
		}
	}

	return &node{
		left:      b.build(left, depth+1),
		right:     b.build(right, depth+1),
		normal:    normal,
		intercept: intercept,
		size:      len(points),
	}
}

type forestModel struct {
	trees  []*node
	dims   int
	norm   float64
	offset float64
}

// Score implements Model.
func (m *forestModel) Score(data [][]float64) ([]float64, []model.Label, error) {
	if len(data) > 0 {
		dims, err := dimensions(data)
		if err != nil {
			return nil, nil, err
		}
		if dims != m.dims {
			return nil, nil, fmt.Errorf("model fitted on %d features, got %d", m.dims, dims)
		}
	}

	scores := m.scoreSamples(data)
	labels := make([]model.Label, len(scores))
	for i := range scores {
		scores[i] -= m.offset
		labels[i] = model.LabelNormal
		if scores[i] < 0 {
			labels[i] = model.LabelAnomalous
		}
	}
	return scores, labels, nil
}

// scoreSamples returns the negated anomaly score of each point, in [-1, 0).
func (m *forestModel) scoreSamples(data [][]float64) []float64 {
	out := make([]float64, len(data))
	for i, x := range data {
		if m.norm == 0 {
			out[i] = -0.5
			continue
		}
		var total float64
		for _, tree := range m.trees {
			total += pathLength(tree, x)
		}
		mean := total / float64(len(m.trees))
		out[i] = -math.Pow(2, -mean/m.norm)
	}
	return out
}

func pathLength(n *node, x []float64) float64 {
	depth := 0
	for !n.leaf() {
		if side(x, n.normal, n.intercept) <= 0 {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(n.size)
}

// averagePathLength is the mean depth of an unsuccessful search in a binary
// search tree of n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
	}
}

func side(x, normal, intercept []float64) float64 {
	var dot float64
	for d := range x {
		dot += (x[d] - intercept[d]) * normal[d]
	}
	return dot
}

func identical(points [][]float64) bool {
	for _, p := range points[1:] {
		for d := range p {
			if p[d] != points[0][d] {
				return false
			}
		}
	}
	return true
}

func dimensions(data [][]float64) (int, error) {
	dims := len(data[0])
	if dims == 0 {
		return 0, errors.New("samples have no features")
	}
	for i, row := range data {
		if len(row) != dims {
			return 0, fmt.Errorf("sample %d has %d features, want %d", i, len(row), dims)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("sample %d has non-finite value", i)
			}
		}
	}
	return dims, nil
}
