package image_info_extractor

import (
	"bytes"
	"encoding/binary"
	"strings"
)

const (
	tagExifIFDPointer = 0x8769
	tagMakerNote      = 0x927C
	tagUserComment    = 0x9286
)

var exifPrefix = []byte("Exif\x00\x00")

// extractJPEGInfo scans the JPEG segment stream for the APP1 Exif payload.
// Metadata can only appear before the scan data, so the walk stops at SOS.
func (e *extractorImpl) extractJPEGInfo() (*GenerationInfo, error) {
	info := &GenerationInfo{}

	data := e.data
	pos := len(jpegHeader)

	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			break
		}

		marker := data[pos+1]

		// Standalone markers carry no length field.
		if marker == 0xD8 || marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			pos += 2

			continue
		}

		if marker == 0xDA {
			break
		}

		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if length < 2 || pos+2+length > len(data) {
			break
		}

		segment := data[pos+4 : pos+2+length]

		if marker == 0xE1 && bytes.HasPrefix(segment, exifPrefix) {
			makerNote, userComment := parseTIFF(segment[len(exifPrefix):])

			assignTag(info, "MakerNote", makerNote)
			assignTag(info, "UserComment", userComment)

			break
		}

		pos += 2 + length
	}

	return info, nil
}

// extractWEBPInfo walks the RIFF chunk list looking for the EXIF chunk.
// Chunk sizes are little endian and odd-sized chunks are padded by one byte.
func (e *extractorImpl) extractWEBPInfo() (*GenerationInfo, error) {
	info := &GenerationInfo{}

	data := e.data
	pos := 12

	for pos+8 <= len(data) {
		fourCC := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))

		end := pos + 8 + size
		if end > len(data) {
			break
		}

		if fourCC == "EXIF" {
			// Some writers keep the JPEG-style prefix inside the chunk.
			payload := bytes.TrimPrefix(data[pos+8:end], exifPrefix)

			makerNote, userComment := parseTIFF(payload)

			assignTag(info, "MakerNote", makerNote)
			assignTag(info, "UserComment", userComment)

			break
		}

		pos = end + size%2
	}

	return info, nil
}

// parseTIFF pulls the MakerNote and UserComment tags out of a TIFF blob.
// The tags normally live in the Exif sub-IFD pointed to from IFD0, but some
// producers write them straight into IFD0, so both are walked.
func parseTIFF(tiff []byte) (string, string) {
	if len(tiff) < 8 {
		return "", ""
	}

	var byteOrder binary.ByteOrder

	switch string(tiff[:2]) {
	case "II":
		byteOrder = binary.LittleEndian
	case "MM":
		byteOrder = binary.BigEndian
	default:
		return "", ""
	}

	if byteOrder.Uint16(tiff[2:4]) != 42 {
		return "", ""
	}

	var makerNote, userComment string

	walkIFD(tiff, byteOrder, byteOrder.Uint32(tiff[4:8]), func(tag uint16, value []byte) {
		switch tag {
		case tagMakerNote:
			makerNote = trimTagText(value)
		case tagUserComment:
			userComment = trimTagText(stripUserCommentPrefix(value))
		case tagExifIFDPointer:
			if len(value) == 4 {
				walkIFD(tiff, byteOrder, byteOrder.Uint32(value), func(tag uint16, value []byte) {
					switch tag {
					case tagMakerNote:
						makerNote = trimTagText(value)
					case tagUserComment:
						userComment = trimTagText(stripUserCommentPrefix(value))
					}
				})
			}
		}
	})

	return makerNote, userComment
}

// typeSizes maps the TIFF field types that can carry the tags we read.
var typeSizes = map[uint16]int{
	1: 1, // BYTE
	2: 1, // ASCII
	3: 2, // SHORT
	4: 4, // LONG
	7: 1, // UNDEFINED
}

func walkIFD(tiff []byte, byteOrder binary.ByteOrder, offset uint32, visit func(tag uint16, value []byte)) {
	pos := int(offset)
	if pos < 0 || pos+2 > len(tiff) {
		return
	}

	count := int(byteOrder.Uint16(tiff[pos : pos+2]))
	pos += 2

	for i := 0; i < count; i++ {
		if pos+12 > len(tiff) {
			return
		}

		entry := tiff[pos : pos+12]
		pos += 12

		tag := byteOrder.Uint16(entry[0:2])
		fieldType := byteOrder.Uint16(entry[2:4])
		valueCount := int(byteOrder.Uint32(entry[4:8]))

		size, ok := typeSizes[fieldType]
		if !ok {
			continue
		}

		total := size * valueCount

		var value []byte

		if total <= 4 {
			value = entry[8 : 8+total]
		} else {
			start := int(byteOrder.Uint32(entry[8:12]))
			if start < 0 || start+total > len(tiff) {
				continue
			}

			value = tiff[start : start+total]
		}

		// Pointer tags keep their raw 4 byte value.
		if tag == tagExifIFDPointer {
			value = entry[8:12]
		}

		visit(tag, value)
	}
}

// stripUserCommentPrefix drops the 8 byte character-code header EXIF puts in
// front of UserComment when it marks plain text.
func stripUserCommentPrefix(value []byte) []byte {
	if len(value) < 8 {
		return value
	}

	prefix := value[:8]

	if bytes.HasPrefix(prefix, []byte("ASCII")) || bytes.Equal(prefix, make([]byte, 8)) {
		return value[8:]
	}

	return value
}

func trimTagText(value []byte) string {
	return strings.Trim(string(value), "\x00 ")
}
