package format_router

import "diffusion_session_bot/entities"

type Router interface {
	RecoverFromFile(filename string, data []byte) (entities.ParamsPatch, error)
	RecoverFromString(text string) (entities.ParamsPatch, error)
}
