package image_info_extractor

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildPNG assembles a minimal PNG from text chunks. The walker never
// verifies CRCs, so the fixtures don't bother computing them.
func buildPNG(textChunks map[string]string) []byte {
	var buf bytes.Buffer

	buf.WriteString(pngHeader)

	writeChunk := func(ctype string, data []byte) {
		length := make([]byte, 4)
		binary.BigEndian.PutUint32(length, uint32(len(data)))

		buf.Write(length)
		buf.WriteString(ctype)
		buf.Write(data)
		buf.Write([]byte{0, 0, 0, 0}) // crc, unchecked
	}

	for keyword, text := range textChunks {
		writeChunk("tEXt", append(append([]byte(keyword), 0), []byte(text)...))
	}

	writeChunk("IEND", nil)

	return buf.Bytes()
}

// buildTIFF lays out a single IFD0 with MakerNote and UserComment entries.
func buildTIFF(makerNote, userComment string) []byte {
	comment := append([]byte("ASCII\x00\x00\x00"), []byte(userComment)...)

	const ifdOffset = 8
	entryCount := 2
	valueStart := ifdOffset + 2 + entryCount*12 + 4

	var buf bytes.Buffer

	buf.WriteString("II")
	le16 := func(v uint16) {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, v)
		buf.Write(b)
	}
	le32 := func(v uint32) {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, v)
		buf.Write(b)
	}

	le16(42)
	le32(ifdOffset)

	le16(uint16(entryCount))

	// MakerNote
	le16(tagMakerNote)
	le16(7) // UNDEFINED
	le32(uint32(len(makerNote)))
	le32(uint32(valueStart))

	// UserComment
	le16(tagUserComment)
	le16(7)
	le32(uint32(len(comment)))
	le32(uint32(valueStart + len(makerNote)))

	le32(0) // next IFD

	buf.WriteString(makerNote)
	buf.Write(comment)

	return buf.Bytes()
}

func buildJPEG(tiff []byte) []byte {
	payload := append([]byte("Exif\x00\x00"), tiff...)

	var buf bytes.Buffer

	buf.WriteString(jpegHeader)
	buf.Write([]byte{0xFF, 0xE1})

	length := make([]byte, 2)
	binary.BigEndian.PutUint16(length, uint16(len(payload)+2))
	buf.Write(length)

	buf.Write(payload)
	buf.Write([]byte{0xFF, 0xD9})

	return buf.Bytes()
}

func buildWEBP(tiff []byte) []byte {
	var buf bytes.Buffer

	buf.WriteString("RIFF")
	buf.Write([]byte{0, 0, 0, 0}) // riff size, unread by the walker
	buf.WriteString("WEBP")
	buf.WriteString("EXIF")

	size := make([]byte, 4)
	binary.LittleEndian.PutUint32(size, uint32(len(tiff)))
	buf.Write(size)

	buf.Write(tiff)

	if len(tiff)%2 == 1 {
		buf.WriteByte(0)
	}

	return buf.Bytes()
}

func TestExtractPNGTextChunks(t *testing.T) {
	data := buildPNG(map[string]string{
		"MakerNote":  `{"params": {"steps": 30}}`,
		"parameters": "a cat\nSteps: 20",
	})

	extractor, err := New(Config{ImageData: data})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	info, err := extractor.ExtractGenerationInfo()
	if err != nil {
		t.Fatalf("ExtractGenerationInfo() error: %v", err)
	}

	if info.MakerNote != `{"params": {"steps": 30}}` {
		t.Errorf("MakerNote = %q", info.MakerNote)
	}

	if info.Parameters != "a cat\nSteps: 20" {
		t.Errorf("Parameters = %q", info.Parameters)
	}
}

func TestExtractPNGCaseVariantParametersKey(t *testing.T) {
	data := buildPNG(map[string]string{
		"Parameters": "a dog\nSteps: 10",
	})

	extractor, err := New(Config{ImageData: data})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	info, err := extractor.ExtractGenerationInfo()
	if err != nil {
		t.Fatalf("ExtractGenerationInfo() error: %v", err)
	}

	if info.Parameters != "a dog\nSteps: 10" {
		t.Errorf("Parameters = %q", info.Parameters)
	}
}

func TestExtractPNGWithoutTagsIsEmptyNotError(t *testing.T) {
	data := buildPNG(map[string]string{
		"Software": "somepainter 1.0",
	})

	extractor, err := New(Config{ImageData: data})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	info, err := extractor.ExtractGenerationInfo()
	if err != nil {
		t.Fatalf("ExtractGenerationInfo() error: %v", err)
	}

	if !info.Empty() {
		t.Errorf("info = %+v, want empty", info)
	}
}

func TestExtractJPEGExifTags(t *testing.T) {
	data := buildJPEG(buildTIFF(`{"params": {"seed": 7}}`, "a cat\nSteps: 20"))

	extractor, err := New(Config{ImageData: data})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	info, err := extractor.ExtractGenerationInfo()
	if err != nil {
		t.Fatalf("ExtractGenerationInfo() error: %v", err)
	}

	if info.MakerNote != `{"params": {"seed": 7}}` {
		t.Errorf("MakerNote = %q", info.MakerNote)
	}

	if info.UserComment != "a cat\nSteps: 20" {
		t.Errorf("UserComment = %q", info.UserComment)
	}
}

func TestExtractWEBPExifTags(t *testing.T) {
	data := buildWEBP(buildTIFF("maker note text", "user comment text"))

	extractor, err := New(Config{ImageData: data})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	info, err := extractor.ExtractGenerationInfo()
	if err != nil {
		t.Fatalf("ExtractGenerationInfo() error: %v", err)
	}

	if info.MakerNote != "maker note text" {
		t.Errorf("MakerNote = %q", info.MakerNote)
	}

	if info.UserComment != "user comment text" {
		t.Errorf("UserComment = %q", info.UserComment)
	}
}

func TestNewRejectsUnknownData(t *testing.T) {
	if _, err := New(Config{ImageData: []byte("definitely not an image")}); err == nil {
		t.Error("New() should reject unrecognized data")
	}

	if _, err := New(Config{ImageData: nil}); err == nil {
		t.Error("New() should reject nil data")
	}
}
