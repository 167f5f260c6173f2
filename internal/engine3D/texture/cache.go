// Package texture loads images from the asset source and keeps them on the
// GPU, shared by name.
package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"scenefx/internal/cache"
	"scenefx/internal/convert"
	"scenefx/internal/gpu"
	"scenefx/internal/utils"
)

// Image is an uploaded texture.
type Image struct {
	Name   string
	ID     gpu.TextureID
	Width  int
	Height int
}

type Cache struct {
	device gpu.Device
	assets utils.Source
	images *cache.Cache[*Image]
}

func NewCache(device gpu.Device, assets utils.Source) *Cache {
	c := &Cache{device: device, assets: assets}
	c.images = cache.New(c.load, func(name string, img *Image) {
		utils.Debug("Texture: Deleting %s (ID: %d)", name, img.ID)
		c.device.DeleteTexture(img.ID)
	})
	return c
}

// Acquire returns the texture for name, decoding and uploading it on first
// use. Names without an extension are looked up with each supported one.
func (c *Cache) Acquire(name string) (cache.Handle[*Image], error) {
	return c.images.Acquire(utils.CleanName(name))
}

func (c *Cache) Release(h cache.Handle[*Image]) { c.images.Release(h) }

// Clear deletes every texture. Handles obtained earlier become stale.
func (c *Cache) Clear() { c.images.Clear() }

func (c *Cache) Len() int { return c.images.Len() }

func (c *Cache) load(name string) (*Image, error) {
	resolved, data, err := utils.FindImage(c.assets, name)
	if err != nil {
		return nil, err
	}

	img, err := Decode(resolved, data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", resolved, err)
	}

	rgba := ToRGBA(img)
	b := rgba.Bounds()
	id := c.device.CreateTexture(rgba)
	utils.Info("Texture: %s - Uploaded %dx%d (ID: %d)", resolved, b.Dx(), b.Dy(), id)
	return &Image{Name: resolved, ID: id, Width: b.Dx(), Height: b.Dy()}, nil
}

// Decode dispatches on the file extension: .tex containers go through the
// TEX reader, everything else through the registered image decoders.
func Decode(name string, data []byte) (image.Image, error) {
	if strings.EqualFold(path.Ext(name), ".tex") {
		return convert.DecodeTex(data)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	utils.Debug("Texture: Decoded %s as %s", name, format)
	return img, nil
}

// ToRGBA returns img as a tightly packed RGBA image anchored at the origin.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == rgba.Rect.Dx()*4 {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
