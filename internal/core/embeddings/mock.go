package embeddings

import (
	"context"
	"hash/fnv"
)

// LCG constants for deterministic pseudo-random generation.
const (
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407

	seedShift      = 33
	floatScale     = 0x40000000
	sqrtDivisor    = 2
	sqrtIterations = 10
)

// MockProvider generates deterministic embeddings from the text hash: the
// same summary always maps to the same unit vector, so similarity behavior is
// reproducible in tests and key-less local runs.
type MockProvider struct {
	dimensions int
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		dimensions: DefaultDimensions,
	}
}

func NewMockProviderWithDimensions(dims int) *MockProvider {
	return &MockProvider{
		dimensions: dims,
	}
}

func (p *MockProvider) Name() ProviderName {
	return ProviderMock
}

func (p *MockProvider) Model() string {
	return string(ProviderMock)
}

func (p *MockProvider) Priority() int {
	return PriorityMock
}

func (p *MockProvider) Dimensions() int {
	return p.dimensions
}

func (p *MockProvider) IsAvailable() bool {
	return true
}

// GetEmbedding seeds an LCG with the FNV-1a hash of the text and fills a
// normalized vector from it.
func (p *MockProvider) GetEmbedding(_ context.Context, text string) (EmbeddingResult, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text)) // fnv.Write never returns an error
	seed := h.Sum64()

	vec := make([]float32, p.dimensions)
	for i := range vec {
		seed = seed*lcgMultiplier + lcgIncrement
		//nolint:gosec // intentional uint64->int64 conversion for pseudo-random generation
		vec[i] = float32(int64(seed>>seedShift)-floatScale) / float32(floatScale)
	}

	vec = normalizeVector(vec)

	return EmbeddingResult{
		Vector:     vec,
		Dimensions: p.dimensions,
		Provider:   ProviderMock,
	}, nil
}

func normalizeVector(vec []float32) []float32 {
	var sum float32
	for _, v := range vec {
		sum += v * v
	}

	if sum == 0 {
		return vec
	}

	norm := sqrt32(sum)
	for i := range vec {
		vec[i] /= norm
	}

	return vec
}

// sqrt32 is Newton's method square root for float32.
func sqrt32(x float32) float32 {
	if x <= 0 {
		return 0
	}

	z := x
	for i := 0; i < sqrtIterations; i++ {
		z = (z + x/z) / sqrtDivisor
	}

	return z
}
