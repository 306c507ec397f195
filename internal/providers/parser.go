package providers

import "strings"

// ProviderRef is one entry of a RAGBOT_LLM_PROVIDERS / RAGBOT_EMBED_PROVIDERS
// list, e.g. "gemini" or "openai:course" where the suffix picks a key alias.
type ProviderRef struct {
	Raw      string
	Name     string
	KeyAlias string
}

// ParseProviderList splits a pipe-separated provider list. An empty list
// falls back to the mock provider.
func ParseProviderList(raw string) []ProviderRef {
	out := make([]ProviderRef, 0, 2)
	for _, p := range strings.Split(raw, "|") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		name, alias, hasAlias := strings.Cut(p, ":")
		ref := ProviderRef{Raw: p, Name: strings.TrimSpace(name)}
		if hasAlias {
			ref.KeyAlias = strings.TrimSpace(alias)
		}
		out = append(out, ref)
	}
	if len(out) == 0 {
		out = append(out, ProviderRef{Raw: "mock", Name: "mock"})
	}
	return out
}
