package session_store

import "diffusion_session_bot/entities"

// Slice defaults are derived from the server-supplied configuration once,
// at store construction. A reset restores these, never a partially-updated
// value.

func defaultSnapshot(serverParams entities.ServerParams, limit int) entities.SessionSnapshot {
	return entities.SessionSnapshot{
		Version: entities.SnapshotVersion,
		Txt2Img: defaultTxt2Img(serverParams),
		Img2Img: defaultImg2Img(serverParams),
		Inpaint: defaultInpaint(serverParams),
		Upscale: defaultUpscale(serverParams),
		Blend:   defaultBlend(),
		Model:   defaultModel(serverParams),
		Brush:   defaultBrush(),
		Limit:   limit,
	}
}

func defaultTxt2Img(serverParams entities.ServerParams) entities.Txt2ImgSlice {
	return entities.Txt2ImgSlice{
		Params: serverParams.DefaultParams(),
	}
}

func defaultImg2Img(serverParams entities.ServerParams) entities.Img2ImgSlice {
	return entities.Img2ImgSlice{
		Params:   serverParams.DefaultParams(),
		Strength: serverParams.Strength.Default,
	}
}

func defaultInpaint(serverParams entities.ServerParams) entities.InpaintSlice {
	return entities.InpaintSlice{
		Params:      serverParams.DefaultParams(),
		MaskFilter:  "none",
		NoiseSource: "histogram",
	}
}

func defaultUpscale(serverParams entities.ServerParams) entities.UpscaleSlice {
	return entities.UpscaleSlice{
		Params: serverParams.DefaultParams(),
		Upscale: entities.UpscaleParams{
			Scale:    4,
			Outscale: 1,
			Denoise:  0.5,
		},
	}
}

func defaultBlend() entities.BlendSlice {
	return entities.BlendSlice{}
}

func defaultModel(serverParams entities.ServerParams) entities.ModelSlice {
	return entities.ModelSlice{
		Model:    serverParams.Model.Default,
		Platform: serverParams.Platform.Default,
	}
}

func defaultBrush() entities.Brush {
	return entities.Brush{
		Color:    "#ffffff",
		Size:     8,
		Strength: 0.5,
	}
}
