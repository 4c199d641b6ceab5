package gifseq

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vigie-covid/vigie/schema"
)

const logPrefix = "gifseq"

// Aggregate reads the image bytes of each artifact in order and writes
// one animated composite to outPath, overwriting any previous one.
// Frame order is exactly the input order; every frame is shown for
// frameDuration. The output directory is created when absent so every
// environment starts clean.
func Aggregate(artifacts []*schema.Artifact, frameDuration time.Duration, outPath string) (*schema.Artifact, error) {
	if len(artifacts) == 0 {
		return nil, schema.ErrEmptySequence
	}

	delay := int(frameDuration / (10 * time.Millisecond))

	anim := gif.GIF{}
	for _, a := range artifacts {
		frame, err := loadFrame(a.Path)
		if err != nil {
			return nil, fmt.Errorf("reading frame %s: %w", a.Path, err)
		}
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, delay)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return nil, err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := gif.EncodeAll(f, &anim); err != nil {
		return nil, fmt.Errorf("encoding composite: %w", err)
	}

	log.WithFields(log.Fields{
		"prefix": logPrefix,
		"frames": len(anim.Image),
		"path":   outPath,
	}).Info("composite assembled")

	// The composite carries the facts and as-of date of the last frame,
	// the most recently rendered zone.
	last := artifacts[len(artifacts)-1]
	return &schema.Artifact{
		Path:      outPath,
		AsOf:      last.AsOf,
		AsOfLabel: last.AsOfLabel,
		Facts:     last.Facts,
	}, nil
}

func loadFrame(path string) (*image.Paletted, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, err
	}

	frame := image.NewPaletted(img.Bounds(), palette.Plan9)
	draw.FloydSteinberg.Draw(frame, img.Bounds(), img, img.Bounds().Min)
	return frame, nil
}
