package image_info_extractor

type Extractor interface {
	ExtractGenerationInfo() (*GenerationInfo, error)
}
