package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// MockProvider is a deterministic embedding and generation backend used when
// no real provider is configured and throughout the tests.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 384
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	_ = ctx
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	vectors := make([][]float32, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		vectors = append(vectors, deterministicVector(input, dim))
	}
	return vectors, ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim), Key: "mock"}, nil
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	info := ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}
	text := "Based on the course materials, here is a deterministic answer."
	return GenerateResponse{Text: text}, info, nil
}

// GenerateStream emits the mock answer one word at a time so callers can
// exercise fragment accumulation and cancellation.
func (m *MockProvider) GenerateStream(ctx context.Context, req GenerateRequest, emit func(string) error) (GenerateResponse, ProviderInfo, error) {
	resp, info, err := m.Generate(ctx, req)
	if err != nil {
		return GenerateResponse{}, info, err
	}
	words := strings.Fields(resp.Text)
	for i, w := range words {
		if err := ctx.Err(); err != nil {
			return GenerateResponse{}, info, err
		}
		frag := w
		if i < len(words)-1 {
			frag += " "
		}
		if err := emit(frag); err != nil {
			return GenerateResponse{}, info, err
		}
	}
	return resp, info, nil
}

func deterministicVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := []byte(input)
	if len(seed) == 0 {
		seed = []byte("empty")
	}
	for i := 0; i < dim; i++ {
		h := sha256.Sum256(append(seed, byte(i%251)))
		u := binary.BigEndian.Uint32(h[:4])
		v := float32(u%2000)/1000.0 - 1.0
		vec[i] = v
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)+1e-9))
	for i := range v {
		v[i] *= inv
	}
	return v
}
