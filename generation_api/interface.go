package generation_api

import "diffusion_session_bot/entities"

type GenerationAPI interface {
	Txt2Img(req *Txt2ImgRequest) (*entities.ImageResponse, error)
	Img2Img(req *Img2ImgRequest) (*entities.ImageResponse, error)
	Upscale(req *UpscaleRequest) (*entities.ImageResponse, error)
	Ready(outputKey string) (*entities.ReadyStatus, error)
	Params() (*entities.ServerParams, error)
	GetOutput(outputKey string) ([]byte, error)
}
