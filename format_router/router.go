package format_router

import (
	"path/filepath"
	"strings"

	"diffusion_session_bot/entities"
	"diffusion_session_bot/image_info_extractor"
	"diffusion_session_bot/param_parser"
)

type routerImpl struct{}

type Config struct{}

func New(cfg Config) (Router, error) {
	return &routerImpl{}, nil
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// RecoverFromFile picks a recovery strategy by file extension: images go
// through metadata extraction first, .json straight to the document parser,
// and everything else through string-shape auto-detection.
func (r *routerImpl) RecoverFromFile(filename string, data []byte) (entities.ParamsPatch, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case imageExtensions[ext]:
		return r.recoverFromImage(data)
	case ext == ".json":
		return param_parser.ParseDocument(string(data))
	default:
		return r.RecoverFromString(string(data))
	}
}

// RecoverFromString classifies pasted text by shape and parses accordingly.
func (r *routerImpl) RecoverFromString(text string) (entities.ParamsPatch, error) {
	return param_parser.ParseComment(text)
}

// recoverFromImage reads the embedded metadata tags in precedence order: a
// JSON-shaped maker note wins; a maker note holding anything else falls
// through to the secondary free-text tags, parsed as grammar text. An image
// with no recognizable tags yields an empty patch, not an error.
func (r *routerImpl) recoverFromImage(data []byte) (entities.ParamsPatch, error) {
	extractor, err := image_info_extractor.New(image_info_extractor.Config{
		ImageData: data,
	})
	if err != nil {
		return entities.ParamsPatch{}, err
	}

	info, err := extractor.ExtractGenerationInfo()
	if err != nil {
		return entities.ParamsPatch{}, err
	}

	if info.MakerNote != "" && param_parser.LooksLikeJSON(info.MakerNote) {
		return param_parser.ParseDocument(info.MakerNote)
	}

	if info.UserComment != "" {
		return param_parser.ParseGrammar(info.UserComment), nil
	}

	if info.Parameters != "" {
		return param_parser.ParseGrammar(info.Parameters), nil
	}

	return entities.ParamsPatch{}, nil
}
