package convert

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"

	"scenefx/internal/utils"

	"github.com/mauserzjeh/dxt"
	"github.com/pierrec/lz4/v4"
)

const (
	texMagic = "TEXV0005"

	texFormatDXT5 = 4
	texFormatDXT1 = 7
	texFormatRG88 = 8
	texFormatR8   = 9
)

var ErrNoImage = errors.New("no image found in texture")

// texReader reads little-endian fields and keeps the first error.
type texReader struct {
	r   io.ReadSeeker
	err error
}

func (t *texReader) u32() uint32 {
	var v uint32
	if t.err == nil {
		t.err = binary.Read(t.r, binary.LittleEndian, &v)
	}
	return v
}

func (t *texReader) str(n int) string {
	b := make([]byte, n)
	if t.err == nil {
		_, t.err = io.ReadFull(t.r, b)
	}
	return string(bytes.Trim(b, "\x00"))
}

func (t *texReader) skip(n int64) {
	if t.err == nil {
		_, t.err = t.r.Seek(n, io.SeekCurrent)
	}
}

// DecodeTex decodes the first mip of the first image in a TEXV0005 container.
// Pixel payloads may be LZ4 compressed and RGBA, DXT1, DXT5, RG88 or R8.
func DecodeTex(data []byte) (image.Image, error) {
	t := &texReader{r: bytes.NewReader(data)}

	magic := t.str(8)
	t.skip(1)
	_ = t.str(8)
	t.skip(1)
	if t.err != nil {
		return nil, t.err
	}
	if magic != texMagic {
		return nil, fmt.Errorf("invalid magic: %s", magic)
	}

	format := t.u32()
	t.skip(4)
	_ = t.u32()
	_ = t.u32()
	imgW := t.u32()
	imgH := t.u32()
	_ = t.u32()

	containerMagic := t.str(8)
	t.skip(1)
	imageCount := t.u32()
	if containerMagic == "TEXB0003" {
		_ = t.u32()
	}
	if t.err != nil {
		return nil, t.err
	}
	utils.Debug("Texture: Format %d, size %dx%d, container %s", format, imgW, imgH, containerMagic)

	if imageCount == 0 {
		return nil, ErrNoImage
	}

	mipmapCount := t.u32()
	if mipmapCount == 0 {
		return nil, ErrNoImage
	}
	mW := t.u32()
	mH := t.u32()
	var compressed bool
	var decompressedSize uint32
	if containerMagic != "TEXB0001" {
		compressed = t.u32() == 1
		decompressedSize = t.u32()
	}
	dataSize := t.u32()
	if t.err != nil {
		return nil, t.err
	}
	payload := make([]byte, dataSize)
	if _, err := io.ReadFull(t.r, payload); err != nil {
		return nil, err
	}

	if compressed {
		utils.Debug("Texture: Decompressing LZ4 %d -> %d", dataSize, decompressedSize)
		out := make([]byte, decompressedSize)
		if _, err := lz4.UncompressBlock(payload, out); err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		payload = out
	}

	pix, err := decodeTexPixels(format, payload, mW, mH)
	if err != nil {
		return nil, err
	}

	rgba := &image.RGBA{
		Pix:    pix,
		Stride: int(mW * 4),
		Rect:   image.Rect(0, 0, int(mW), int(mH)),
	}
	if imgW == 0 || imgH == 0 || (imgW == mW && imgH == mH) {
		return rgba, nil
	}
	return rgba.SubImage(image.Rect(0, 0, int(imgW), int(imgH))), nil
}

func decodeTexPixels(format uint32, data []byte, w, h uint32) ([]byte, error) {
	blocks := ((w + 3) / 4) * ((h + 3) / 4)
	size := uint32(len(data))

	switch {
	case size == w*h*4:
		pix := make([]byte, len(data))
		copy(pix, data)
		return pix, nil
	case format == texFormatR8 && size == w*h:
		pix := make([]byte, w*h*4)
		for i, v := range data {
			pix[i*4], pix[i*4+1], pix[i*4+2], pix[i*4+3] = v, v, v, 255
		}
		return pix, nil
	case format == texFormatRG88 && size == w*h*2:
		pix := make([]byte, w*h*4)
		for i := 0; i < int(w*h); i++ {
			lum, alpha := data[i*2], data[i*2+1]
			pix[i*4], pix[i*4+1], pix[i*4+2], pix[i*4+3] = lum, lum, lum, alpha
		}
		return pix, nil
	case format == texFormatDXT5 || size == blocks*16:
		return dxt.DecodeDXT5(data, uint(w), uint(h))
	case format == texFormatDXT1 || size == blocks*8:
		return dxt.DecodeDXT1(data, uint(w), uint(h))
	}
	return nil, fmt.Errorf("unsupported format %d with size %d", format, size)
}
