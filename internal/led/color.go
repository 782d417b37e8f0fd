package led

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB is a color on the wire: a [r, g, b] byte triple.
type RGB [3]uint8

// MarshalJSON emits the triple as a plain JSON array.
func (c RGB) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]uint8(c))
}

// ParseColor converts a scene color value ("#rrggbb", "#rgb" or
// "rgb(r, g, b)") into its RGB wire form.
func ParseColor(value string) (RGB, error) {
	s := strings.TrimSpace(value)
	if strings.HasPrefix(s, "rgb(") || strings.HasPrefix(s, "rgba(") {
		return parseRGBFunc(s)
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) == 4 { // #rgb shorthand
		s = fmt.Sprintf("#%c%c%c%c%c%c", s[1], s[1], s[2], s[2], s[3], s[3])
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid color %q: %w", value, err)
	}
	r, g, b := c.RGB255()
	return RGB{r, g, b}, nil
}

func parseRGBFunc(s string) (RGB, error) {
	open := strings.IndexByte(s, '(')
	end := strings.IndexByte(s, ')')
	if open < 0 || end < open {
		return RGB{}, fmt.Errorf("invalid color %q", s)
	}
	parts := strings.Split(s[open+1:end], ",")
	if len(parts) < 3 {
		return RGB{}, fmt.Errorf("invalid color %q", s)
	}
	var out RGB
	for i := 0; i < 3; i++ {
		var v int
		if _, err := fmt.Sscanf(strings.TrimSpace(parts[i]), "%d", &v); err != nil {
			return RGB{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
		if v < 0 || v > 255 {
			return RGB{}, fmt.Errorf("color channel %d out of range in %q", v, s)
		}
		out[i] = uint8(v)
	}
	return out, nil
}

// wireSolidScene and wireGradientScene mirror the scene variants with colors
// replaced by RGB triples, the format the backend expects on set_scene.
type wireSolidScene struct {
	Name   string    `json:"name"`
	AutoOn bool      `json:"autoOn"`
	Type   SceneType `json:"type"`
	Color  RGB       `json:"color"`
}

type wireColorDuration struct {
	Color    RGB     `json:"color"`
	Duration float64 `json:"duration"`
}

type wireGradientScene struct {
	Name   string              `json:"name"`
	AutoOn bool                `json:"autoOn"`
	Type   SceneType           `json:"type"`
	Colors []wireColorDuration `json:"colors"`
	Linear bool                `json:"linear"`
}

// WireScene converts the scene into the backend wire format, rewriting each
// color value as an RGB triple (per stop for gradients). The conversion is a
// pure wire-format adaptation; the stored scene keeps its string colors.
func WireScene(s Scene) (json.RawMessage, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	switch s.Type {
	case SceneSolid:
		rgb, err := ParseColor(s.Color)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireSolidScene{Name: s.Name, AutoOn: s.AutoOn, Type: s.Type, Color: rgb})
	default:
		stops := make([]wireColorDuration, len(s.Colors))
		for i, stop := range s.Colors {
			rgb, err := ParseColor(stop.Color)
			if err != nil {
				return nil, err
			}
			stops[i] = wireColorDuration{Color: rgb, Duration: stop.Duration}
		}
		return json.Marshal(wireGradientScene{Name: s.Name, AutoOn: s.AutoOn, Type: s.Type, Colors: stops, Linear: s.Linear})
	}
}
