package config

// DefaultFallbackModel is the single retry target when a requested model fails.
const DefaultFallbackModel = "mistral-small"

const defaultMaxOutputTokens = 4096

func temp(v float64) *float64 { return &v }

func defaultProviders() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"aws": {
			Kind:        "bedrock",
			Region:      "${AWS_REGION}",
			APIKey:      "${AWS_BEARER_TOKEN_BEDROCK}",
			MaxAttempts: 3,
		},
		"azure": {
			Kind:        "azure",
			BaseURL:     "${AZURE_OPENAI_ENDPOINT}",
			APIKey:      "${AZURE_OPENAI_API_KEY}",
			APIVersion:  "2024-10-21",
			MaxAttempts: 3,
		},
	}
}

func defaultModels() map[string]ModelConfig {
	aws := func(native string, t float64) ModelConfig {
		return ModelConfig{Provider: "aws", Model: native, MaxOutputTokens: defaultMaxOutputTokens, DefaultTemperature: temp(t)}
	}
	const (
		sonnet = "us.anthropic.claude-3-5-sonnet-20241022-v2:0"
		haiku  = "us.anthropic.claude-3-5-haiku-20241022-v1:0"
		llama3 = "us.meta.llama3-2-3b-instruct-v1:0"
		llama7 = "us.meta.llama3-3-70b-instruct-v1:0"
		titan  = "amazon.titan-text-premier-v1:0"
		small  = "mistral.mistral-small-2402-v1:0"
		mixtr  = "mistral.mixtral-8x7b-instruct-v0:1"
	)
	return map[string]ModelConfig{
		"llama-3-2-3b":     aws(llama3, 0.9),
		"llama-3-3-70b":    aws(llama7, 0.9),
		"llama-3-1-70b":    aws("us.meta.llama3-1-70b-instruct-v1:0", 0.9),
		"mixtral-8x7b":     aws(mixtr, 0.7),
		"amazon-premier":   aws(titan, 0.9),
		"mistral-large":    aws("mistral.mistral-large-2402-v1:0", 0.9),
		"mistral-small":    aws(small, 0.9),
		"anthropic-sonnet": aws(sonnet, 0.9),
		"anthropic-haiku":  aws(haiku, 0.9),
		"deepseek":         aws("us.deepseek.r1-v1:0", 0.9),

		// Legacy Bedrock ids kept for backward compatibility.
		"anthropic.claude-3-sonnet-20240229-v1:0": aws(sonnet, 0.9),
		"anthropic.claude-3-haiku-20240307-v1:0":  aws(haiku, 0.9),
		"anthropic.claude-3-opus-20240229-v1:0":   aws(sonnet, 0.9),
		"amazon.titan-text-express-v1":            aws(titan, 0.9),
		"amazon.titan-text-lite-v1":               aws(titan, 0.9),
		"meta.llama3-8b-instruct-v1:0":            aws(llama3, 0.9),
		"meta.llama3-70b-instruct-v1:0":           aws(llama7, 0.9),
		"mistral.mistral-7b-instruct-v0:2":        aws(small, 0.9),
		"mistral.mixtral-8x7b-instruct-v0:1":      aws(mixtr, 0.7),
		"cohere.command-r-v1:0":                   aws("cohere.command-r-v1:0", 0.7),
		"cohere.command-r-plus-v1:0":              aws("cohere.command-r-plus-v1:0", 0.7),

		"gpt-4.1-mini": {Provider: "azure", Model: "gpt-4.1-mini", MaxOutputTokens: defaultMaxOutputTokens, DefaultTemperature: temp(0.7)},
	}
}

func defaultFamilies() []FamilyConfig {
	return []FamilyConfig{
		{Match: "anthropic.claude", Provider: "aws"},
		{Match: "amazon.titan", Provider: "aws"},
		{Match: "meta.llama", Provider: "aws"},
		{Match: "mistral", Provider: "aws"},
		{Match: "cohere.command", Provider: "aws"},
		{Match: "gpt-", Provider: "azure"},
		{Match: "claude-", Provider: "azure"},
	}
}
