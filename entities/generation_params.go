package entities

// GenerationParams is the full parameter set behind a generated image. Every
// field is always populated inside a session slice; partial updates go
// through ParamsPatch.
type GenerationParams struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negativePrompt,omitempty"`
	Steps          int     `json:"steps"`
	CfgScale       float64 `json:"cfg"`
	Seed           int64   `json:"seed"`
	Scheduler      string  `json:"scheduler"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	BatchSize      int     `json:"batchSize"`
	Eta            float64 `json:"eta"`
}

// ParamsPatch carries only the parameters actually recovered from a source.
// A nil field means "not present"; failed numeric conversions stay nil, so a
// parse failure can never be mistaken for a real value downstream.
type ParamsPatch struct {
	Prompt         *string  `json:"prompt,omitempty"`
	NegativePrompt *string  `json:"negativePrompt,omitempty"`
	Steps          *int     `json:"steps,omitempty"`
	CfgScale       *float64 `json:"cfg,omitempty"`
	Seed           *int64   `json:"seed,omitempty"`
	Scheduler      *string  `json:"scheduler,omitempty"`
	Width          *int     `json:"width,omitempty"`
	Height         *int     `json:"height,omitempty"`
	BatchSize      *int     `json:"batchSize,omitempty"`
	Eta            *float64 `json:"eta,omitempty"`
}

// Apply merges the patch into full, overwriting exactly the present fields
// and preserving the rest. It is total: any patch applied to any full set
// yields a full set.
func (p ParamsPatch) Apply(full GenerationParams) GenerationParams {
	if p.Prompt != nil {
		full.Prompt = *p.Prompt
	}

	if p.NegativePrompt != nil {
		full.NegativePrompt = *p.NegativePrompt
	}

	if p.Steps != nil {
		full.Steps = *p.Steps
	}

	if p.CfgScale != nil {
		full.CfgScale = *p.CfgScale
	}

	if p.Seed != nil {
		full.Seed = *p.Seed
	}

	if p.Scheduler != nil {
		full.Scheduler = *p.Scheduler
	}

	if p.Width != nil {
		full.Width = *p.Width
	}

	if p.Height != nil {
		full.Height = *p.Height
	}

	if p.BatchSize != nil {
		full.BatchSize = *p.BatchSize
	}

	if p.Eta != nil {
		full.Eta = *p.Eta
	}

	return full
}

// IsEmpty reports whether the patch carries no recovered fields at all.
// Recovering nothing from an unmarked input is a valid outcome, not an error.
func (p ParamsPatch) IsEmpty() bool {
	return p == ParamsPatch{}
}

// PatchOf turns a full parameter set into a patch with every field present.
func PatchOf(full GenerationParams) ParamsPatch {
	return ParamsPatch{
		Prompt:         &full.Prompt,
		NegativePrompt: &full.NegativePrompt,
		Steps:          &full.Steps,
		CfgScale:       &full.CfgScale,
		Seed:           &full.Seed,
		Scheduler:      &full.Scheduler,
		Width:          &full.Width,
		Height:         &full.Height,
		BatchSize:      &full.BatchSize,
		Eta:            &full.Eta,
	}
}
