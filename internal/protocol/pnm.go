package protocol

import (
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"

	"github.com/zeebo/blake3"
)

// SnapshotImage is one decoded frame. Pixels holds Width*Height*Channels bytes,
// row-major, without padding.
type SnapshotImage struct {
	Width    uint   `json:"width"`
	Height   uint   `json:"height"`
	Channels uint   `json:"channels"`
	Pixels   []byte `json:"-"`
}

// Size returns the byte length of the pixel body.
func (s SnapshotImage) Size() int {
	return int(s.Width * s.Height * s.Channels)
}

// Image converts the snapshot to a standard library image.
// Single-channel frames become *image.Gray, RGB frames become *image.RGBA.
func (s SnapshotImage) Image() image.Image {
	w, h := int(s.Width), int(s.Height)
	rect := image.Rect(0, 0, w, h)

	if s.Channels == 1 {
		img := image.NewGray(rect)
		copy(img.Pix, s.Pixels)
		return img
	}

	img := image.NewRGBA(rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			img.SetRGBA(x, y, color.RGBA{R: s.Pixels[i], G: s.Pixels[i+1], B: s.Pixels[i+2], A: 0xff})
		}
	}
	return img
}

// Digest returns the BLAKE3-256 hex digest of the frame (dimensions and pixels).
// Identical frames share a digest.
func (s SnapshotImage) Digest() string {
	h := blake3.New()
	fmt.Fprintf(h, "%d %d %d\n", s.Width, s.Height, s.Channels)
	_, _ = h.Write(s.Pixels)
	return hex.EncodeToString(h.Sum(nil))
}

// WritePNM writes s as a binary PNM record (P5 or P6, maxval 255).
func (s SnapshotImage) WritePNM(w io.Writer) error {
	magic := '6'
	if s.Channels == 1 {
		magic = '5'
	}
	if _, err := fmt.Fprintf(w, "P%c\n%d %d\n255\n", magic, s.Width, s.Height); err != nil {
		return fmt.Errorf("write pnm header: %w", err)
	}
	if _, err := w.Write(s.Pixels); err != nil {
		return fmt.Errorf("write pnm pixels: %w", err)
	}
	return nil
}

// DecodePNM decodes one PNM record from the start of buf and returns it with the
// number of bytes consumed.
//
// The header is a magic token (P5 = 1 channel, P6 = 3 channels), width, height and
// a max sample value, separated by whitespace; "#" comments may appear between
// tokens. One whitespace byte ends the header and the raw pixel body follows.
// Any problem, including a body shorter than the declared size, yields
// ErrMalformedHeader and zero bytes consumed.
func DecodePNM(buf []byte) (SnapshotImage, int, error) {
	if len(buf) < 2 || buf[0] != 'P' {
		return SnapshotImage{}, 0, malformed("missing magic")
	}

	var channels uint
	switch buf[1] {
	case '5':
		channels = 1
	case '6':
		channels = 3
	default:
		return SnapshotImage{}, 0, malformed("unrecognized magic %q", buf[:2])
	}

	pos := 2
	if pos >= len(buf) || !isSpace(buf[pos]) {
		return SnapshotImage{}, 0, malformed("unrecognized magic")
	}

	var fields [3]uint64
	names := [3]string{"width", "height", "max value"}
	for i := range fields {
		pos = skipSpaceAndComments(buf, pos)
		start := pos
		for pos < len(buf) && isDigit(buf[pos]) {
			pos++
		}
		if start == pos {
			return SnapshotImage{}, 0, malformed("missing or non-numeric %s", names[i])
		}
		v, err := strconv.ParseUint(string(buf[start:pos]), 10, 32)
		if err != nil {
			return SnapshotImage{}, 0, malformed("%s out of range", names[i])
		}
		fields[i] = v
	}

	width, height, maxVal := fields[0], fields[1], fields[2]
	if width == 0 || height == 0 {
		return SnapshotImage{}, 0, malformed("zero dimension %dx%d", width, height)
	}
	if maxVal == 0 || maxVal > 255 {
		return SnapshotImage{}, 0, malformed("unsupported max value %d", maxVal)
	}

	if pos >= len(buf) || !isSpace(buf[pos]) {
		return SnapshotImage{}, 0, malformed("header not terminated")
	}
	pos++

	rowBytes := width * uint64(channels)
	remaining := uint64(len(buf) - pos)
	if height > remaining/rowBytes {
		return SnapshotImage{}, 0, malformed("truncated pixel data: need %d bytes, have %d",
			rowBytes*height, remaining)
	}
	size := int(rowBytes * height)

	pixels := make([]byte, size)
	copy(pixels, buf[pos:pos+size])

	img := SnapshotImage{
		Width:    uint(width),
		Height:   uint(height),
		Channels: channels,
		Pixels:   pixels,
	}
	return img, pos + size, nil
}

// DecodeSnapshots decodes back-to-back PNM records until buf is exhausted.
// On a malformed record it stops and returns the images decoded so far together
// with the error.
func DecodeSnapshots(buf []byte) ([]SnapshotImage, error) {
	var snaps []SnapshotImage
	offset := 0
	for offset < len(buf) {
		img, n, err := DecodePNM(buf[offset:])
		if err != nil {
			return snaps, fmt.Errorf("snapshot %d at offset %d: %w", len(snaps), offset, err)
		}
		snaps = append(snaps, img)
		offset += n
	}
	return snaps, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedHeader, fmt.Sprintf(format, args...))
}

func skipSpaceAndComments(buf []byte, pos int) int {
	for pos < len(buf) {
		switch {
		case isSpace(buf[pos]):
			pos++
		case buf[pos] == '#':
			for pos < len(buf) && buf[pos] != '\n' {
				pos++
			}
		default:
			return pos
		}
	}
	return pos
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
