package entities

// SnapshotVersion is the schema version stamped into persisted session
// snapshots. Bump it whenever the snapshot shape changes; migration of old
// blobs happens in the persistence middleware, not here.
const SnapshotVersion = 3

// Txt2ImgSlice is the text-to-image tab's parameter state.
type Txt2ImgSlice struct {
	Params GenerationParams `json:"params"`
}

// Img2ImgSlice adds the source image and denoising strength to the base
// parameter set.
type Img2ImgSlice struct {
	Params   GenerationParams `json:"params"`
	Source   string           `json:"source,omitempty"`
	Strength float64          `json:"strength"`
}

// InpaintSlice carries the masked-region generation state.
type InpaintSlice struct {
	Params      GenerationParams `json:"params"`
	Source      string           `json:"source,omitempty"`
	Mask        string           `json:"mask,omitempty"`
	MaskFilter  string           `json:"maskFilter"`
	NoiseSource string           `json:"noiseSource"`
}

// UpscaleSlice carries the standalone upscale tab's state.
type UpscaleSlice struct {
	Params  GenerationParams `json:"params"`
	Source  string           `json:"source,omitempty"`
	Upscale UpscaleParams    `json:"upscale"`
}

// BlendSlice mixes several source images under a mask.
type BlendSlice struct {
	Sources []string `json:"sources,omitempty"`
	Mask    string   `json:"mask,omitempty"`
}

// ModelSlice is the model/pipeline selection shared by every tab.
type ModelSlice struct {
	Model      string `json:"model"`
	Platform   string `json:"platform"`
	Upscaling  string `json:"upscaling,omitempty"`
	Correction string `json:"correction,omitempty"`
}

// Brush is the shared mask-painting tool state.
type Brush struct {
	Color    string  `json:"color"`
	Size     int     `json:"size"`
	Strength float64 `json:"strength"`
}

// SessionSnapshot is the full session state at one instant. Mutations in
// the session store replace whole snapshots; observers never see a
// half-applied change.
type SessionSnapshot struct {
	Version int `json:"version"`

	Txt2Img Txt2ImgSlice `json:"txt2img"`
	Img2Img Img2ImgSlice `json:"img2img"`
	Inpaint InpaintSlice `json:"inpaint"`
	Upscale UpscaleSlice `json:"upscale"`
	Blend   BlendSlice   `json:"blend"`

	Model ModelSlice `json:"model"`
	Brush Brush      `json:"brush"`

	History []HistoryEntry `json:"history"`
	Loading []LoadingItem  `json:"loading"`
	Limit   int            `json:"limit"`
}
