package utils

import (
	"time"
)

// Audit pacing constants
const (
	// PromptPacingDelay is the minimum delay between consecutive scoring calls in a full run
	PromptPacingDelay = 400 * time.Millisecond

	// CampaignPacingDelay is the minimum delay between consecutive scoring calls in a campaign run
	CampaignPacingDelay = 1 * time.Second

	// ScoringCallTimeout is the default per-prompt timeout for scoring service calls
	ScoringCallTimeout = 90 * time.Second
)

// Share-of-voice insight thresholds (whole percent)
const (
	SOVHighThreshold   = 50
	SOVMediumThreshold = 20
)

// Niche classification constants
const (
	// SuperNicheWordCount is the word count above which a prompt is classified super-niche
	SuperNicheWordCount = 10
)

// Cache key fragments, composed with the configured prefix
const (
	ResultsCacheKey = "results"
	PromptsCacheKey = "prompts"
)

// Provider identifiers supported by the scoring service
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
	ProviderPerplexity = "perplexity"
)
