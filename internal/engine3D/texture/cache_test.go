package texture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"scenefx/internal/gpu/gputest"
	"scenefx/internal/utils"
)

func encodePNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAcquireUploadsOnce(t *testing.T) {
	dev := gputest.New()
	c := NewCache(dev, utils.MapSource{
		"textures/dither.png": encodePNG(t, 4, 4, color.RGBA{R: 255, A: 255}),
	})

	h1, err := c.Acquire("textures/dither.png")
	require.NoError(t, err)
	h2, err := c.Acquire("textures/dither.png")
	require.NoError(t, err)

	img := h1.Get()
	assert.Equal(t, img, h2.Get())
	assert.Equal(t, 4, img.Width)
	assert.Equal(t, 4, img.Height)
	assert.Len(t, dev.CallsWithPrefix("CreateTexture"), 1)
	assert.Equal(t, uint8(255), dev.Textures[img.ID].Pix[0])

	c.Release(h1)
	c.Release(h2)
	assert.Equal(t, 0, c.Len())
	assert.Len(t, dev.DeletedTextures, 1)
}

func TestAcquireResolvesExtension(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))))

	dev := gputest.New()
	c := NewCache(dev, utils.MapSource{"textures/noise.bmp": buf.Bytes()})

	h, err := c.Acquire("textures/noise")
	require.NoError(t, err)
	assert.Equal(t, "textures/noise.bmp", h.Get().Name)
	assert.Equal(t, 3, h.Get().Width)
}

func TestAcquireErrors(t *testing.T) {
	dev := gputest.New()
	c := NewCache(dev, utils.MapSource{"textures/bad.png": []byte("not an image")})

	_, err := c.Acquire("textures/absent.png")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = c.Acquire("textures/bad.png")
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, dev.CallsWithPrefix("CreateTexture"))
}

func TestClearInvalidatesHandles(t *testing.T) {
	dev := gputest.New()
	c := NewCache(dev, utils.MapSource{
		"textures/dither.png": encodePNG(t, 2, 2, color.RGBA{A: 255}),
	})

	old, err := c.Acquire("textures/dither.png")
	require.NoError(t, err)
	oldID := old.Get().ID

	c.Clear()
	assert.False(t, old.Valid())

	fresh, err := c.Acquire("textures/dither.png")
	require.NoError(t, err)
	assert.NotEqual(t, oldID, fresh.Get().ID)
}

func TestToRGBA(t *testing.T) {
	gray := image.NewGray(image.Rect(2, 2, 5, 4))
	gray.SetGray(2, 2, color.Gray{Y: 80})

	rgba := ToRGBA(gray)
	assert.Equal(t, image.Rect(0, 0, 3, 2), rgba.Bounds())
	assert.Equal(t, color.RGBA{80, 80, 80, 255}, rgba.RGBAAt(0, 0))

	same := image.NewRGBA(image.Rect(0, 0, 2, 2))
	assert.Same(t, same, ToRGBA(same))
}
