package param_parser

import (
	"strconv"
	"strings"

	"diffusion_session_bot/entities"
)

const negativePromptMarker = "Negative prompt:"

// ParseGrammar parses the line-oriented comment convention used by the wider
// ecosystem, so recovered parameters stay interchangeable with it:
//
//	a cat
//	Negative prompt: blurry
//	Steps: 20, Sampler: ddim, CFG scale: 7, Seed: 42, Size: 512x768
//
// Line 0 is the prompt, taken verbatim. Line 1 is consumed as the negative
// prompt only when it begins with the literal marker; otherwise it stays
// part of the trailer. The remaining lines are joined and split on commas
// into key:value tokens. Unrecognized keys are silently ignored so unknown
// future fields never break parsing, and a numeric value that fails to
// convert simply leaves its field absent from the patch.
func ParseGrammar(text string) entities.ParamsPatch {
	var patch entities.ParamsPatch

	if LooksLikeJSON(text) {
		// Shouldn't happen through the router, but keep pasted JSON out of
		// the prompt field when called directly.
		if jsonPatch, err := ParseDocument(text); err == nil {
			return jsonPatch
		}
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	prompt := lines[0]
	patch.Prompt = &prompt

	rest := lines[1:]

	if len(rest) > 0 {
		if after, found := strings.CutPrefix(rest[0], negativePromptMarker); found {
			negative := strings.TrimSpace(after)
			patch.NegativePrompt = &negative

			rest = rest[1:]
		}
	}

	trailer := strings.Join(rest, " ")

	for _, token := range strings.Split(trailer, ",") {
		key, value, found := strings.Cut(token, ":")
		if !found {
			continue
		}

		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "steps":
			if steps, err := strconv.Atoi(value); err == nil {
				patch.Steps = &steps
			}
		case "sampler":
			scheduler := value
			patch.Scheduler = &scheduler
		case "cfg scale":
			// Fractional CFG values truncate to the integer part. Documented
			// existing behavior, kept for interchange fidelity.
			if cfg, err := strconv.ParseFloat(value, 64); err == nil {
				truncated := float64(int64(cfg))
				patch.CfgScale = &truncated
			}
		case "seed":
			if seed, err := strconv.ParseInt(value, 10, 64); err == nil {
				patch.Seed = &seed
			}
		case "size":
			widthText, heightText, ok := strings.Cut(value, "x")
			if !ok {
				continue
			}

			width, widthErr := strconv.Atoi(strings.TrimSpace(widthText))
			height, heightErr := strconv.Atoi(strings.TrimSpace(heightText))

			if widthErr == nil && heightErr == nil {
				patch.Width = &width
				patch.Height = &height
			}
		}
	}

	return patch
}
