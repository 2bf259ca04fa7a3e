package link

import (
	"errors"
	"fmt"
)

// IdentifyChunk is how many dictionary bytes one identify asks for
const IdentifyChunk = 40

// maxDictionarySize stops a firmware that never ends its dictionary
const maxDictionarySize = 1 << 20

// FetchFunc requests count dictionary bytes at offset and returns the
// offset and data of the identify_response
type FetchFunc func(offset uint32, count uint8) (uint32, []byte, error)

var ErrDictionaryTooLarge = errors.New("dictionary exceeds size limit")

// FetchDictionary downloads the compressed dictionary chunk by chunk until
// the firmware returns a short chunk, then parses it
func FetchDictionary(fetch FetchFunc) (*Dictionary, error) {
	var raw []byte
	for {
		offset := uint32(len(raw))
		got, chunk, err := fetch(offset, IdentifyChunk)
		if err != nil {
			return nil, fmt.Errorf("identify at %d: %w", offset, err)
		}
		if got != offset {
			return nil, fmt.Errorf("identify at %d: response for offset %d", offset, got)
		}
		raw = append(raw, chunk...)
		if len(chunk) < IdentifyChunk {
			break
		}
		if len(raw) > maxDictionarySize {
			return nil, ErrDictionaryTooLarge
		}
	}
	return ParseDictionary(raw)
}
