package imaging

import (
	"encoding/base64"
	"strings"

	"github.com/zhouzirui/medvoice/backend/pkg/apperr"
)

var allowedMediaTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/jpg":  {},
	"image/webp": {},
	"image/gif":  {},
}

// Image is a decoded data URL.
type Image struct {
	MediaType string
	Data      []byte
}

// parseDataURL accepts data:image/<type>;base64,<payload> and enforces
// maxBytes on the decoded payload.
func parseDataURL(raw string, maxBytes int) (Image, error) {
	const op = "imaging.parse"

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Image{}, apperr.Invalid(op, "image is required")
	}

	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return Image{}, apperr.Invalid(op, "image must be a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, apperr.Invalid(op, "image must be a data URL")
	}

	mediaType, encoding, ok := strings.Cut(meta, ";")
	if !ok || !strings.EqualFold(encoding, "base64") {
		return Image{}, apperr.Invalid(op, "image must be base64 encoded")
	}
	mediaType = strings.ToLower(mediaType)
	if _, allowed := allowedMediaTypes[mediaType]; !allowed {
		return Image{}, apperr.Invalid(op, "unsupported image type")
	}

	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+2 {
		return Image{}, apperr.New(apperr.KindTooLarge, op, "image exceeds size limit")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, apperr.Wrap(apperr.KindInvalid, op, "image is not valid base64", err)
	}
	if len(data) == 0 {
		return Image{}, apperr.Invalid(op, "image is empty")
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return Image{}, apperr.New(apperr.KindTooLarge, op, "image exceeds size limit")
	}

	return Image{MediaType: mediaType, Data: data}, nil
}
