package gifseq_test

import (
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigie-covid/vigie/gifseq"
	"github.com/vigie-covid/vigie/schema"
)

// solidArtifact writes a small single-color PNG so frame order can be
// asserted by pixel color.
func solidArtifact(t *testing.T, dir, name string, c color.RGBA) *schema.Artifact {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.SetRGBA(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.Nil(t, err)
	defer f.Close()
	require.Nil(t, png.Encode(f, img))
	return &schema.Artifact{Path: path, AsOfLabel: name}
}

func TestAggregateOrder(t *testing.T) {
	dir := t.TempDir()
	arts := []*schema.Artifact{
		solidArtifact(t, dir, "a.png", color.RGBA{R: 255, A: 255}),
		solidArtifact(t, dir, "b.png", color.RGBA{G: 255, A: 255}),
		solidArtifact(t, dir, "c.png", color.RGBA{B: 255, A: 255}),
	}

	out := filepath.Join(dir, "images", "Vaccination.gif")
	composite, err := gifseq.Aggregate(arts, 7*time.Second, out)
	require.Nil(t, err, "wrong Aggregate")
	assert.Equal(t, out, composite.Path)
	assert.Equal(t, "c.png", composite.AsOfLabel, "composite carries the last frame's facts")

	f, err := os.Open(out)
	require.Nil(t, err, "output directory not created")
	defer f.Close()

	anim, err := gif.DecodeAll(f)
	require.Nil(t, err)
	require.Len(t, anim.Image, 3, "frame count")

	// Frame order == input order: red, green, blue dominate in turn.
	wants := []color.RGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
	}
	for i, frame := range anim.Image {
		r, g, b, _ := frame.At(4, 4).RGBA()
		wr, wg, wb, _ := wants[i].RGBA()
		assert.InDelta(t, float64(wr), float64(r), 8000, "frame %d red", i)
		assert.InDelta(t, float64(wg), float64(g), 8000, "frame %d green", i)
		assert.InDelta(t, float64(wb), float64(b), 8000, "frame %d blue", i)
	}

	for _, d := range anim.Delay {
		assert.Equal(t, 700, d, "per-frame delay in 1/100s")
	}
}

func TestAggregateOverwrites(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.gif")

	one := []*schema.Artifact{solidArtifact(t, dir, "a.png", color.RGBA{R: 255, A: 255})}
	_, err := gifseq.Aggregate(one, time.Second, out)
	require.Nil(t, err)

	two := []*schema.Artifact{
		solidArtifact(t, dir, "b.png", color.RGBA{G: 255, A: 255}),
		solidArtifact(t, dir, "c.png", color.RGBA{B: 255, A: 255}),
	}
	_, err = gifseq.Aggregate(two, time.Second, out)
	require.Nil(t, err)

	f, err := os.Open(out)
	require.Nil(t, err)
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	require.Nil(t, err)
	assert.Len(t, anim.Image, 2, "previous composite fully replaced")
}

func TestAggregateEmpty(t *testing.T) {
	_, err := gifseq.Aggregate(nil, time.Second, filepath.Join(t.TempDir(), "out.gif"))
	assert.Equal(t, schema.ErrEmptySequence, err)
}

func TestAggregateMissingFrame(t *testing.T) {
	arts := []*schema.Artifact{{Path: filepath.Join(t.TempDir(), "absent.png")}}
	_, err := gifseq.Aggregate(arts, time.Second, filepath.Join(t.TempDir(), "out.gif"))
	assert.NotNil(t, err)
}
