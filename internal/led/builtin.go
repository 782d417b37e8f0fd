package led

// BuiltinScenes returns the preset scenes installed on first start. They
// are marked built-in by the scene store and cannot be deleted.
func BuiltinScenes() []Scene {
	warm := NewSolidScene("Warm White", "#ffd9a0", true)
	warm.Description = "Soft warm white for everyday use"

	cool := NewSolidScene("Cool White", "#e8f1ff", false)
	cool.Description = "Bright cool white"

	rainbow := NewGradientScene("Rainbow", []ColorDuration{
		{Color: "#ff0000", Duration: 2},
		{Color: "#ffa500", Duration: 2},
		{Color: "#ffff00", Duration: 2},
		{Color: "#00ff00", Duration: 2},
		{Color: "#0000ff", Duration: 2},
		{Color: "#8b00ff", Duration: 2},
	}, true, false)
	rainbow.Description = "Slow rainbow cycle"

	sunset := NewGradientScene("Sunset", []ColorDuration{
		{Color: "#ff7e5f", Duration: 4},
		{Color: "#feb47b", Duration: 4},
		{Color: "#6b2d5c", Duration: 6},
	}, true, false)
	sunset.Description = "Fading sunset tones"

	return []Scene{warm, cool, rainbow, sunset}
}
