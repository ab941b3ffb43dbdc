// Package config handles map generator and renderer configuration.
package config

// Config holds all settings.
type Config struct {
	Mesh      MeshConfig      `yaml:"mesh"`
	Elevation ElevationConfig `yaml:"elevation"`
	Biomes    BiomeConfig     `yaml:"biomes"`
	Rivers    RiverConfig     `yaml:"rivers"`
	Render    RenderConfig    `yaml:"render"`
	Graphics  GraphicsConfig  `yaml:"graphics"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// MeshConfig holds point placement settings for the dual mesh.
type MeshConfig struct {
	Seed            int     `yaml:"seed"`
	Spacing         float32 `yaml:"spacing"`          // Distance between regions
	MountainSpacing float32 `yaml:"mountain_spacing"` // Distance between mountain peaks
}

// ElevationConfig shapes the elevation field.
type ElevationConfig struct {
	Seed              int     `yaml:"seed"`
	Island            float32 `yaml:"island"`
	NoisyCoastlines   float32 `yaml:"noisy_coastlines"`
	HillHeight        float32 `yaml:"hill_height"`
	MountainJagged    float32 `yaml:"mountain_jagged"`
	MountainSharpness float32 `yaml:"mountain_sharpness"`
	OceanDepth        float32 `yaml:"ocean_depth"`
}

// BiomeConfig holds wind and rainfall settings.
type BiomeConfig struct {
	WindAngleDeg float32 `yaml:"wind_angle_deg"`
	Raininess    float32 `yaml:"raininess"`
	RainShadow   float32 `yaml:"rain_shadow"`
	Evaporation  float32 `yaml:"evaporation"`
}

// RiverConfig holds flow and river width settings.
type RiverConfig struct {
	LgMinFlow    float32 `yaml:"lg_min_flow"`
	LgRiverWidth float32 `yaml:"lg_river_width"`
	Flow         float32 `yaml:"flow"`
}

// RenderConfig holds view and shading parameters. The view fields and
// outline_water drive the height map renderer; the shading fields are
// consumed by the preview viewer.
type RenderConfig struct {
	Zoom             float32 `yaml:"zoom"` // Screen spans 200/zoom mesh units
	X                float32 `yaml:"x"`
	Y                float32 `yaml:"y"`
	LightAngleDeg    float32 `yaml:"light_angle_deg"`
	Slope            float32 `yaml:"slope"`
	Flat             float32 `yaml:"flat"`
	Ambient          float32 `yaml:"ambient"`
	Overhead         float32 `yaml:"overhead"`
	TiltDeg          float32 `yaml:"tilt_deg"`
	RotateDeg        float32 `yaml:"rotate_deg"`
	MountainHeight   float32 `yaml:"mountain_height"`
	OutlineDepth     float32 `yaml:"outline_depth"`
	OutlineStrength  float32 `yaml:"outline_strength"`
	OutlineThreshold float32 `yaml:"outline_threshold"`
	OutlineCoast     float32 `yaml:"outline_coast"`
	OutlineWater     float32 `yaml:"outline_water"`
	BiomeColors      float32 `yaml:"biome_colors"`
}

// GraphicsConfig holds display and render target settings.
type GraphicsConfig struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Fullscreen  bool   `yaml:"fullscreen"`
	VSync       bool   `yaml:"vsync"`
	TextureSize int    `yaml:"texture_size"` // Edge length of off-screen targets
	Precision   string `yaml:"precision"`    // rounded or split16
}

// OutputConfig holds screenshot export settings.
type OutputConfig struct {
	ScreenshotDir string `yaml:"screenshot_dir"`
	ExportSize    int    `yaml:"export_size"` // 0 keeps the texture size
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Mesh: MeshConfig{
			Seed:            12345,
			Spacing:         5.5,
			MountainSpacing: 35,
		},
		Elevation: ElevationConfig{
			Seed:              187,
			Island:            0.8,
			NoisyCoastlines:   0.01,
			HillHeight:        0.1,
			MountainJagged:    0,
			MountainSharpness: 12.5,
			OceanDepth:        1.5,
		},
		Biomes: BiomeConfig{
			WindAngleDeg: 0,
			Raininess:    0.9,
			RainShadow:   0.5,
			Evaporation:  0.5,
		},
		Rivers: RiverConfig{
			LgMinFlow:    2.7,
			LgRiverWidth: -2.7,
			Flow:         0.2,
		},
		Render: RenderConfig{
			Zoom:             100.0 / 480,
			X:                500,
			Y:                500,
			LightAngleDeg:    80,
			Slope:            2,
			Flat:             2.5,
			Ambient:          0.25,
			Overhead:         30,
			TiltDeg:          0,
			RotateDeg:        0,
			MountainHeight:   50,
			OutlineDepth:     1,
			OutlineStrength:  15,
			OutlineThreshold: 0,
			OutlineCoast:     0,
			OutlineWater:     10,
			BiomeColors:      1,
		},
		Graphics: GraphicsConfig{
			Width:       1024,
			Height:      1024,
			Fullscreen:  false,
			VSync:       true,
			TextureSize: 2048,
			Precision:   "rounded",
		},
		Output: OutputConfig{
			ScreenshotDir: "screenshots",
			ExportSize:    0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// GridSize returns the number of grid cells per axis for a map of the given
// extent at the configured spacing.
func (m MeshConfig) GridSize(extent float32) int {
	if m.Spacing <= 0 {
		return 1
	}
	return max(1, int(extent/m.Spacing))
}
