package entities

// Profile is a named parameter preset. Names are unique within a registry;
// saving under an existing name replaces the stored profile.
type Profile struct {
	Name    string           `json:"name"`
	Params  GenerationParams `json:"params"`
	Highres *HighresParams   `json:"highres,omitempty"`
	Upscale *UpscaleParams   `json:"upscale,omitempty"`
}

// HighresParams is the optional second-pass bundle attached to a profile.
type HighresParams struct {
	Enabled  bool    `json:"enabled"`
	Scale    int     `json:"scale"`
	Steps    int     `json:"steps"`
	Strength float64 `json:"strength"`
	Method   string  `json:"method"`
}

// UpscaleParams is the optional post-process upscale bundle.
type UpscaleParams struct {
	Enabled  bool    `json:"enabled"`
	Scale    int     `json:"scale"`
	Outscale int     `json:"outscale"`
	Upscaler string  `json:"upscaler"`
	Denoise  float64 `json:"denoise"`
}
