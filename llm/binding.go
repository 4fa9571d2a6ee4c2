package llm

import "strings"

const (
	DefaultOpenAIModel = "gpt-3.5-turbo"
	DefaultOllamaModel = "llama3"
)

// Binding describes how to talk to one provider: where to send the prompt,
// what body to send, and where the answer text may sit in the response.
// Rules are gjson paths tried in order.
type Binding struct {
	Name  Provider
	URL   func(endpoint string) string
	Body  func(cfg Config, prompt string, maxTokens int) any
	Rules []string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

var bindings = map[Provider]Binding{
	ProviderOpenAI: {
		Name: ProviderOpenAI,
		URL: func(endpoint string) string {
			return strings.TrimRight(endpoint, "/") + "/chat/completions"
		},
		Body: func(cfg Config, prompt string, maxTokens int) any {
			model := cfg.Model
			if model == "" {
				model = DefaultOpenAIModel
			}

			return map[string]any{
				"model": model,
				"messages": []message{
					{Role: "system", Content: "You are a helpful assistant."},
					{Role: "user", Content: prompt},
				},
				"max_tokens":  maxTokens,
				"temperature": cfg.Temperature,
			}
		},
		Rules: []string{
			"choices.0.message.content",
		},
	},
	ProviderGroq: {
		Name: ProviderGroq,
		URL: func(endpoint string) string {
			return strings.TrimRight(endpoint, "/")
		},
		Body: func(cfg Config, prompt string, maxTokens int) any {
			return map[string]any{
				"input":             prompt,
				"temperature":       cfg.Temperature,
				"max_output_tokens": maxTokens,
			}
		},
		Rules: []string{
			"output",
			"text",
			"result",
			"outputs.0.content",
			"outputs.0",
		},
	},
	ProviderKlangoo: {
		Name: ProviderKlangoo,
		URL: func(endpoint string) string {
			return strings.TrimRight(endpoint, "/")
		},
		Body: func(cfg Config, prompt string, maxTokens int) any {
			return map[string]any{
				"text": prompt,
			}
		},
		Rules: []string{
			"analysis", "analysis.text",
			"result", "result.text",
			"text", "text.text",
			"output", "output.text",
			"data", "data.text",
			"outputs.0",
			"outputs.0.text",
			"outputs.0.content",
			"outputs.0.result",
		},
	},
	ProviderOllama: {
		Name: ProviderOllama,
		URL: func(endpoint string) string {
			return strings.TrimRight(endpoint, "/") + "/api/generate"
		},
		Body: func(cfg Config, prompt string, maxTokens int) any {
			model := cfg.Model
			if model == "" {
				model = DefaultOllamaModel
			}

			return map[string]any{
				"model":  model,
				"prompt": prompt,
				"stream": false,
				"options": map[string]any{
					"temperature": cfg.Temperature,
					"num_predict": maxTokens,
				},
			}
		},
		Rules: []string{
			"response",
		},
	},
	ProviderGeneric: {
		Name: ProviderGeneric,
		URL: func(endpoint string) string {
			return endpoint
		},
		Body: func(cfg Config, prompt string, maxTokens int) any {
			return map[string]any{
				"prompt":     prompt,
				"max_tokens": maxTokens,
			}
		},
		Rules: []string{
			"text",
			"result",
		},
	},
}
