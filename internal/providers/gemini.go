package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// GeminiProvider generates answers via the Google Generative Language API.
// Streaming uses the streamGenerateContent endpoint with SSE framing.
type GeminiProvider struct {
	keyName string
	apiKey  string
	model   string
	client  *http.Client
}

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

func NewGeminiProvider(keyName string) *GeminiProvider {
	model := strings.TrimSpace(os.Getenv("RAGBOT_GEMINI_MODEL"))
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiProvider{
		keyName: keyName,
		apiKey:  resolveGeminiKey(keyName),
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
	Config   *geminiGenCfg   `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenCfg struct {
	Temperature float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "gemini", Model: g.model, Key: g.keyName}
	if g.apiKey == "" {
		return GenerateResponse{}, info, fmt.Errorf("gemini api key missing for alias %q", g.keyName)
	}
	body, err := g.post(ctx, g.model+":generateContent", req)
	if err != nil {
		return GenerateResponse{}, info, err
	}
	defer body.Close()
	raw, _ := io.ReadAll(body)
	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return GenerateResponse{}, info, fmt.Errorf("decode gemini response: %w", err)
	}
	text := joinCandidateText(parsed)
	if text == "" {
		return GenerateResponse{}, info, fmt.Errorf("gemini returned no candidates")
	}
	return GenerateResponse{Text: text}, info, nil
}

func (g *GeminiProvider) GenerateStream(ctx context.Context, req GenerateRequest, emit func(string) error) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "gemini", Model: g.model, Key: g.keyName}
	if g.apiKey == "" {
		return GenerateResponse{}, info, fmt.Errorf("gemini api key missing for alias %q", g.keyName)
	}
	body, err := g.post(ctx, g.model+":streamGenerateContent?alt=sse", req)
	if err != nil {
		return GenerateResponse{}, info, err
	}
	defer body.Close()

	var full strings.Builder
	err = scanSSE(body, func(data string) error {
		var parsed geminiResponse
		if err := json.Unmarshal([]byte(data), &parsed); err != nil {
			return fmt.Errorf("decode gemini stream chunk: %w", err)
		}
		frag := joinCandidateText(parsed)
		if frag == "" {
			return nil
		}
		full.WriteString(frag)
		return emit(frag)
	})
	if err != nil {
		return GenerateResponse{}, info, err
	}
	return GenerateResponse{Text: full.String()}, info, nil
}

func (g *GeminiProvider) post(ctx context.Context, endpoint string, req GenerateRequest) (io.ReadCloser, error) {
	prompt := req.Prompt
	if len(req.Context) > 0 {
		prompt = prompt + "\n\nContext:\n" + strings.Join(req.Context, "\n\n")
	}
	payload, _ := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		Config:   &geminiGenCfg{Temperature: req.Temperature},
	})
	url := geminiBaseURL + "/" + endpoint
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("gemini error %d: %s", resp.StatusCode, string(raw))
	}
	return resp.Body, nil
}

func joinCandidateText(r geminiResponse) string {
	var b strings.Builder
	for _, c := range r.Candidates {
		for _, p := range c.Content.Parts {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func resolveGeminiKey(alias string) string {
	if alias != "" {
		if v := os.Getenv("RAGBOT_GEMINI_KEY_" + strings.ToUpper(alias)); v != "" {
			return v
		}
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		return v
	}
	return os.Getenv("GEMINI_API_KEY")
}
