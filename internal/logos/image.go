package logos

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
)

// DefaultMaxDimension bounds the longest side of a stored logo.
const DefaultMaxDimension = 512

// maxUploadBytes bounds the decoded upload.
const maxUploadBytes = 4 << 20

// maxPixels bounds the declared canvas so a small compressed file cannot
// expand into a huge bitmap.
const maxPixels = 16 << 20

var formats = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
}

// decodePayload accepts raw base64 or a data URL and returns the bytes.
func decodePayload(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: image data is required", ErrInvalidInput)
	}
	if strings.HasPrefix(raw, "data:") {
		comma := strings.IndexByte(raw, ',')
		if comma < 0 || !strings.HasSuffix(raw[:comma], ";base64") {
			return nil, fmt.Errorf("%w: malformed data url", ErrInvalidInput)
		}
		raw = raw[comma+1:]
	}
	if base64.StdEncoding.DecodedLen(len(raw)) > maxUploadBytes {
		return nil, fmt.Errorf("%w: image larger than %d bytes", ErrInvalidInput, maxUploadBytes)
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(raw, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 image", ErrInvalidInput)
	}
	return data, nil
}

// normalizeImage decodes a PNG, JPEG or GIF, scales it so the longest side
// is at most maxDim and re-encodes it as PNG.
func normalizeImage(data []byte, maxDim int) ([]byte, int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: unsupported image", ErrInvalidInput)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, 0, 0, fmt.Errorf("%w: empty image", ErrInvalidInput)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, 0, 0, fmt.Errorf("%w: image of %dx%d exceeds %d pixels", ErrInvalidInput, cfg.Width, cfg.Height, maxPixels)
	}
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: unsupported image", ErrInvalidInput)
	}
	if _, ok := formats[format]; !ok {
		return nil, 0, 0, fmt.Errorf("%w: unsupported image format %s", ErrInvalidInput, format)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, 0, 0, fmt.Errorf("%w: empty image", ErrInvalidInput)
	}
	out := src
	if maxDim > 0 && (w > maxDim || h > maxDim) {
		nw, nh := fit(w, h, maxDim)
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		out, w, h = dst, nw, nh
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, out); err != nil {
		return nil, 0, 0, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), w, h, nil
}

// fit scales (w, h) down so the longest side equals maxDim, keeping the ratio.
func fit(w, h, maxDim int) (int, int) {
	if w >= h {
		nh := max(1, h*maxDim/w)
		return maxDim, nh
	}
	nw := max(1, w*maxDim/h)
	return nw, maxDim
}
