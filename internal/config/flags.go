package config

import "flag"

var (
	flagConfig        = flag.String("config", "", "Path to config file")
	flagDebug         = flag.Bool("debug", false, "Enable debug logging")
	flagWidth         = flag.Int("width", 0, "Window width")
	flagHeight        = flag.Int("height", 0, "Window height")
	flagTextureSize   = flag.Int("texture-size", 0, "Render target edge length")
	flagZoom          = flag.Float64("zoom", 0, "Initial zoom (screen spans 200/zoom map units)")
	flagTilt          = flag.Float64("tilt", 0, "Initial tilt in degrees")
	flagRotate        = flag.Float64("rotate", 0, "Initial rotation in degrees")
	flagPrecision     = flag.String("precision", "", "Height encoding: rounded or split16")
	flagScreenshotDir = flag.String("screenshot-dir", "", "Directory for saved height maps")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config. Zero values leave the
// configured setting alone.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWidth > 0 {
		cfg.Graphics.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Graphics.Height = *flagHeight
	}
	if *flagTextureSize > 0 {
		cfg.Graphics.TextureSize = *flagTextureSize
	}
	if *flagZoom > 0 {
		cfg.Render.Zoom = float32(*flagZoom)
	}
	if *flagTilt != 0 {
		cfg.Render.TiltDeg = float32(*flagTilt)
	}
	if *flagRotate != 0 {
		cfg.Render.RotateDeg = float32(*flagRotate)
	}
	if *flagPrecision != "" {
		cfg.Graphics.Precision = *flagPrecision
	}
	if *flagScreenshotDir != "" {
		cfg.Output.ScreenshotDir = *flagScreenshotDir
	}
}
