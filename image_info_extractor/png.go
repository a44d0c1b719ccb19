package image_info_extractor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
)

// Each chunk starts with a uint32 length (big endian), then 4 byte name,
// then data and finally the CRC32 of the chunk data.
type chunk struct {
	Length int    // chunk data length
	CType  string // chunk type
	Data   []byte // chunk data
	Crc32  []byte // CRC32 of chunk data
}

// uInt32ToInt converts a 4 byte big-endian buffer to int.
func uInt32ToInt(buf []byte) (int, error) {
	if len(buf) == 0 || len(buf) > 4 {
		return 0, errors.New("invalid buffer")
	}

	return int(binary.BigEndian.Uint32(buf)), nil
}

// populate will read bytes from the reader and populate a chunk.
func (c *chunk) populate(r io.Reader) error {
	// Four byte buffer.
	buf := make([]byte, 4)

	// Read first four bytes == chunk length.
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}

	var err error

	c.Length, err = uInt32ToInt(buf)
	if err != nil {
		return errors.New("cannot convert length to int")
	}

	// Read second four bytes == chunk type.
	if _, err = io.ReadFull(r, buf); err != nil {
		return err
	}

	c.CType = string(buf)

	// Read chunk data.
	tmp := make([]byte, c.Length)

	if _, err = io.ReadFull(r, tmp); err != nil {
		return err
	}

	c.Data = tmp

	// Read CRC32 hash. We don't really care about checking it.
	if _, err = io.ReadFull(r, buf); err != nil {
		return err
	}

	c.Crc32 = buf

	return nil
}

// extractPNGInfo walks the text chunks of a PNG and collects the generation
// metadata tags. tEXt carries keyword\0text; iTXt carries keyword\0 plus
// compression flags and language fields before the text. The eXIf chunk is
// a whole TIFF blob and shares the JPEG tag walk.
func (e *extractorImpl) extractPNGInfo() (*GenerationInfo, error) {
	info := &GenerationInfo{}

	r := bytes.NewReader(e.data[len(pngHeader):])

	for {
		var c chunk

		if err := (&c).populate(r); err != nil {
			// Truncated trailing data ends the walk; whatever text chunks
			// were seen before it still count.
			break
		}

		switch c.CType {
		case "tEXt":
			keyword, text, found := strings.Cut(string(c.Data), "\x00")
			if found {
				assignTag(info, keyword, text)
			}
		case "iTXt":
			keyword, text, ok := parseITXt(c.Data)
			if ok {
				assignTag(info, keyword, text)
			}
		case "eXIf":
			makerNote, userComment := parseTIFF(c.Data)
			assignTag(info, "MakerNote", makerNote)
			assignTag(info, "UserComment", userComment)
		case "IEND":
			return info, nil
		}
	}

	return info, nil
}

// parseITXt splits an iTXt chunk into keyword and text. Compressed chunks
// are skipped; the generation tags are always written uncompressed.
func parseITXt(data []byte) (string, string, bool) {
	keyword, rest, found := bytes.Cut(data, []byte{0})
	if !found || len(rest) < 2 {
		return "", "", false
	}

	compressionFlag := rest[0]
	if compressionFlag != 0 {
		return "", "", false
	}

	// Skip compression method, language tag and translated keyword.
	rest = rest[2:]

	_, rest, found = bytes.Cut(rest, []byte{0})
	if !found {
		return "", "", false
	}

	_, text, found := bytes.Cut(rest, []byte{0})
	if !found {
		return "", "", false
	}

	return string(keyword), string(text), true
}
