package session_store

import "diffusion_session_bot/entities"

type Store interface {
	// Job lifecycle.
	PushLoading(item entities.LoadingItem)
	SetReady(key string, status entities.ReadyStatus) error
	PushHistory(entry entities.HistoryEntry)
	RemoveHistory(entry entities.HistoryEntry)
	RemoveLoading(key string)
	SetLimit(limit int)

	// Mode slices.
	SetTxt2Img(patch entities.ParamsPatch)
	SetImg2Img(patch entities.ParamsPatch)
	SetImg2ImgSource(source string)
	SetImg2ImgStrength(strength float64)
	SetInpaint(patch entities.ParamsPatch)
	SetInpaintSource(source string, mask string)
	SetUpscale(patch entities.ParamsPatch)
	SetUpscaleSource(source string)
	SetBlend(sources []string, mask string)
	SetModel(model entities.ModelSlice)
	SetBrush(brush entities.Brush)

	ResetTxt2Img()
	ResetImg2Img()
	ResetInpaint()
	ResetUpscale()
	ResetBlend()
	ResetAll()

	Snapshot() entities.SessionSnapshot
	Restore(snapshot entities.SessionSnapshot) error
}
