// chunk walking adapted from https://github.com/parsiya/Go-Security/blob/master/png-tests/png-chunk-extraction.go

package image_info_extractor

import (
	"bytes"
	"errors"
	"log"
)

// 89 50 4E 47 0D 0A 1A 0A
var pngHeader = "\x89\x50\x4E\x47\x0D\x0A\x1A\x0A"

var jpegHeader = "\xFF\xD8"

// GenerationInfo holds the raw embedded metadata values a generated image
// may carry. The maker note is preferred; UserComment and the
// Parameters/parameters free-text tag are the historical fallbacks. All
// fields empty is a valid result for an untagged image, not an error.
type GenerationInfo struct {
	MakerNote   string
	UserComment string
	Parameters  string
}

func (i *GenerationInfo) Empty() bool {
	return i.MakerNote == "" && i.UserComment == "" && i.Parameters == ""
}

type imageFormat int

const (
	formatPNG imageFormat = iota
	formatJPEG
	formatWEBP
)

type extractorImpl struct {
	format imageFormat
	data   []byte
}

type Config struct {
	ImageData []byte
}

func New(cfg Config) (Extractor, error) {
	if cfg.ImageData == nil {
		return nil, errors.New("image data is nil")
	}

	format, err := sniffFormat(cfg.ImageData)
	if err != nil {
		log.Printf("Unrecognized image data: %v", err)

		return nil, err
	}

	return &extractorImpl{
		format: format,
		data:   cfg.ImageData,
	}, nil
}

func sniffFormat(data []byte) (imageFormat, error) {
	switch {
	case bytes.HasPrefix(data, []byte(pngHeader)):
		return formatPNG, nil
	case bytes.HasPrefix(data, []byte(jpegHeader)):
		return formatJPEG, nil
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return formatWEBP, nil
	default:
		return 0, errors.New("not a PNG, JPEG or WEBP image")
	}
}

func (e *extractorImpl) ExtractGenerationInfo() (*GenerationInfo, error) {
	switch e.format {
	case formatPNG:
		return e.extractPNGInfo()
	case formatJPEG:
		return e.extractJPEGInfo()
	case formatWEBP:
		return e.extractWEBPInfo()
	}

	return nil, errors.New("unknown image format")
}

// assignTag routes one metadata key/value pair into the info struct. Both
// historical spellings of the parameters tag are accepted; the first
// occurrence of each tag wins.
func assignTag(info *GenerationInfo, key, value string) {
	switch key {
	case "MakerNote":
		if info.MakerNote == "" {
			info.MakerNote = value
		}
	case "UserComment":
		if info.UserComment == "" {
			info.UserComment = value
		}
	case "Parameters", "parameters":
		if info.Parameters == "" {
			info.Parameters = value
		}
	}
}
