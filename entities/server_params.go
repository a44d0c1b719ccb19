package entities

// IntRange is a server-supplied bound for an integer parameter.
type IntRange struct {
	Default int `json:"default" yaml:"default"`
	Min     int `json:"min" yaml:"min"`
	Max     int `json:"max" yaml:"max"`
}

// FloatRange is a server-supplied bound for a numeric parameter.
type FloatRange struct {
	Default float64 `json:"default" yaml:"default"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
}

// StringParam is a server-supplied default with its accepted identifiers.
type StringParam struct {
	Default string   `json:"default" yaml:"default"`
	Keys    []string `json:"keys,omitempty" yaml:"keys,omitempty"`
}

// SeedParam only carries a default; ranges make no sense for seeds.
type SeedParam struct {
	Default int64 `json:"default" yaml:"default"`
}

// ServerParams is the default/range configuration the generation server
// supplies. It is an input to the session: slice defaults are derived from
// it at store construction time, never computed here.
type ServerParams struct {
	Steps     IntRange    `json:"steps" yaml:"steps"`
	CfgScale  FloatRange  `json:"cfg" yaml:"cfg"`
	Seed      SeedParam   `json:"seed" yaml:"seed"`
	Scheduler StringParam `json:"scheduler" yaml:"scheduler"`
	Width     IntRange    `json:"width" yaml:"width"`
	Height    IntRange    `json:"height" yaml:"height"`
	BatchSize IntRange    `json:"batchSize" yaml:"batchSize"`
	Eta       FloatRange  `json:"eta" yaml:"eta"`
	Strength  FloatRange  `json:"strength" yaml:"strength"`
	Model     StringParam `json:"model" yaml:"model"`
	Platform  StringParam `json:"platform" yaml:"platform"`
}

// DefaultParams builds the fully-populated parameter set a fresh slice
// starts from.
func (sp ServerParams) DefaultParams() GenerationParams {
	return GenerationParams{
		Prompt:         "",
		NegativePrompt: "",
		Steps:          sp.Steps.Default,
		CfgScale:       sp.CfgScale.Default,
		Seed:           sp.Seed.Default,
		Scheduler:      sp.Scheduler.Default,
		Width:          sp.Width.Default,
		Height:         sp.Height.Default,
		BatchSize:      sp.BatchSize.Default,
		Eta:            sp.Eta.Default,
	}
}
