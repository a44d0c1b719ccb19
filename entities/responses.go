package entities

import "time"

// Size is a plain width/height pair as the generation server reports it.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Output is a single output descriptor returned by the generation server.
// The key is the server-assigned name of the output file and doubles as the
// job's stable identity.
type Output struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// ImageResponse is the server's answer to a submitted generation job: the
// output descriptors plus an echo of the parameters and size it actually ran
// with.
type ImageResponse struct {
	Outputs []Output         `json:"outputs"`
	Params  GenerationParams `json:"params"`
	Size    Size             `json:"size"`
}

// Key is the job's identity, derived from its first output descriptor. A
// response with no outputs has no identity and an empty key.
func (r ImageResponse) Key() string {
	if len(r.Outputs) == 0 {
		return ""
	}

	return r.Outputs[0].Key
}

// Equal reports whether two responses carry the same full descriptor set,
// not just the same key. Removal from history matches on this.
func (r ImageResponse) Equal(other ImageResponse) bool {
	if len(r.Outputs) != len(other.Outputs) {
		return false
	}

	for i := range r.Outputs {
		if r.Outputs[i] != other.Outputs[i] {
			return false
		}
	}

	return r.Params == other.Params && r.Size == other.Size
}

// ReadyStatus is the server's readiness report for one submitted job.
type ReadyStatus struct {
	Progress float64 `json:"progress"`
	Ready    bool    `json:"ready"`
}

// LoadingItem is a submitted job that has not been confirmed complete. A nil
// Status means no readiness report has arrived yet.
type LoadingItem struct {
	Response ImageResponse `json:"response"`
	Status   *ReadyStatus  `json:"status,omitempty"`
}

// HistoryEntry is a completed job retained for display and reuse.
type HistoryEntry struct {
	Response    ImageResponse `json:"response"`
	RetrievedAt time.Time     `json:"retrievedAt"`
}
