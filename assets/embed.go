package assets

import (
	"bytes"
	_ "embed"
	"fmt"
	"image"
	"image/png"
)

// TrayIconPNG contains the raw PNG bytes of the tray icon.
//
//go:embed icon.png
var TrayIconPNG []byte

// SprintOnPNG and SprintOffPNG are placeholder templates used when the
// configured template paths do not exist yet. Real deployments replace
// them with crops of the game's own sprint icon.
//
//go:embed templates/sprint_on.png
var SprintOnPNG []byte

//go:embed templates/sprint_off.png
var SprintOffPNG []byte

// TrayIconImage decodes the embedded PNG into an image.Image.
func TrayIconImage() (image.Image, error) {
	if len(TrayIconPNG) == 0 {
		return nil, fmt.Errorf("embedded icon.png is empty")
	}
	img, err := png.Decode(bytes.NewReader(TrayIconPNG))
	if err != nil {
		return nil, err
	}
	return img, nil
}
