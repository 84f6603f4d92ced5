package browser

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"
)

func TestDecodeSnapshot(t *testing.T) {
	payload := gson.New(map[string]any{
		"url":      "https://example.com/login",
		"title":    "Sign in",
		"language": "en",
		"elements": []any{
			map[string]any{
				"selector": `input[name="username"]`,
				"tag":      "input",
				"type":     "text",
				"name":     "username",
				"visible":  true,
				"x":        40, "y": 120, "width": 240, "height": 32,
			},
			map[string]any{
				"selector": `[type="submit"]`,
				"tag":      "button",
				"type":     "button",
				"text":     "Sign in",
				"visible":  true,
			},
		},
		"counts": map[string]any{
			"forms": 1, "buttons": 1, "inputs": 2, "links": 0, "interactive": 4,
			"has_login": true, "has_search": false, "has_contact": false,
			"has_cart": false, "has_nav": true,
		},
	})

	snap := decodeSnapshot(payload)

	assert.Equal(t, "https://example.com/login", snap.URL)
	assert.Equal(t, "Sign in", snap.Title)
	assert.Equal(t, "en", snap.Language)
	require.Len(t, snap.Elements, 2)
	assert.Equal(t, "username", snap.Elements[0].Name)
	assert.Equal(t, 240, snap.Elements[0].Width)
	assert.Equal(t, "Sign in", snap.Elements[1].Text)
	assert.True(t, snap.Counts.HasLogin)
	assert.True(t, snap.Counts.HasNav)
	assert.Equal(t, 4, snap.Counts.Interactive)
}

func TestElementLabel(t *testing.T) {
	tests := []struct {
		name string
		el   Element
		want string
	}{
		{"text wins", Element{Type: "button", Text: "Sign in", AriaLabel: "ignored"}, `button "Sign in"`},
		{"aria label", Element{Type: "button", AriaLabel: "Search"}, `button "Search"`},
		{"placeholder", Element{Type: "search", Placeholder: "Email"}, `search "Email"`},
		{"name attr", Element{Type: "text", Name: "q"}, "text [q]"},
		{"id", Element{Type: "button", ID: "go"}, "button #go"},
		{"bare type", Element{Type: "form"}, "form"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.el.Label())
		})
	}
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestDownscalePNGPassthrough(t *testing.T) {
	data := encodePNG(t, 400, 300)
	out, err := downscalePNG(data, 800)
	require.NoError(t, err)
	assert.Equal(t, data, out, "narrow images pass through untouched")
}

func TestDownscalePNGShrinks(t *testing.T) {
	data := encodePNG(t, 1600, 900)
	out, err := downscalePNG(data, 800)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 450, img.Bounds().Dy())
}

func TestDownscalePNGRejectsGarbage(t *testing.T) {
	_, err := downscalePNG([]byte("not a png"), 800)
	assert.Error(t, err)
}
