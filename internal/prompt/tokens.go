package prompt

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// fallbackCharsPerToken approximates token counts when no codec is
// available. Four characters per token is close enough for budgeting.
const fallbackCharsPerToken = 4

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

func getCodec() tokenizer.Codec {
	codecOnce.Do(func() {
		c, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			return
		}
		codec = c
	})
	return codec
}

// EstimateTokens returns the token count of text under the cl100k_base
// encoding, falling back to a character heuristic if encoding fails.
// Used for logging prompt sizes, not for hard budget enforcement.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	c := getCodec()
	if c == nil {
		return len(text) / fallbackCharsPerToken
	}
	ids, _, err := c.Encode(text)
	if err != nil {
		return len(text) / fallbackCharsPerToken
	}
	return len(ids)
}
