package tlv

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/rezonia/zatca-qr/internal/model"
)

var (
	ErrShortHeader   = errors.New("tlv: short tag header")
	ErrShortValue    = errors.New("tlv: short tag value")
	ErrInvalidBase64 = errors.New("tlv: invalid base64 payload")
)

// Decode splits raw TLV bytes into tags. Identifiers 1..5 get their standard
// kind; the field formatting rules are not re-applied.
func Decode(payload []byte) ([]Tag, error) {
	tags := make([]Tag, 0, 5)
	i := 0
	for i < len(payload) {
		if len(payload)-i < 2 {
			return nil, ErrShortHeader
		}
		id := payload[i]
		l := int(payload[i+1])
		i += 2
		if len(payload)-i < l {
			return nil, ErrShortValue
		}
		tag, err := newTag(KindOf(id), id, string(payload[i:i+l]))
		if err != nil {
			return nil, err
		}
		i += l
		tags = append(tags, tag)
	}
	return tags, nil
}

// DecodeBase64 decodes a base64 payload into a Document
func DecodeBase64(payload string) (*Document, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, errors.Join(ErrInvalidBase64, err)
	}

	tags, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, model.NewMalformedDocumentError(0, "empty payload")
	}
	return &Document{tags: tags}, nil
}
