package filter

import (
	"image"
	"math/rand/v2"
)

const noiseSize = 128

// generateNoise fills a noiseSize square with random RGBA bytes. The content
// is a function of seed alone.
func generateNoise(seed uint64) *image.RGBA {
	rng := rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15))
	img := image.NewRGBA(image.Rect(0, 0, noiseSize, noiseSize))
	for i := 0; i+8 <= len(img.Pix); i += 8 {
		v := rng.Uint64()
		for j := 0; j < 8; j++ {
			img.Pix[i+j] = byte(v >> (8 * j))
		}
	}
	return img
}
