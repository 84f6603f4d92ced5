package browser

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/go-rod/rod/lib/proto"
	"github.com/nfnt/resize"
)

// maxScreenshotWidth bounds captures attached to step results.
const maxScreenshotWidth = 800

// Screenshot captures the viewport as a PNG, downscaled to at most
// maxScreenshotWidth pixels wide.
func (p *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	quality := 90
	data, err := p.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatPng,
		Quality: &quality,
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return downscalePNG(data, maxScreenshotWidth)
}

// downscalePNG shrinks a PNG to the given max width, preserving aspect
// ratio. Images already narrow enough pass through untouched.
func downscalePNG(data []byte, maxWidth int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	if img.Bounds().Dx() <= maxWidth {
		return data, nil
	}

	scaled := resize.Resize(uint(maxWidth), 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}
