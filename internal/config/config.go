package config

// Config holds app configuration
type Config struct {
	InputFile string `mapstructure:"input"`
	OutputDir string `mapstructure:"output"`

	// PreviewDir, if set, receives a PNG of the largest mip of every texture
	// whose pixel format has a preview decoder
	PreviewDir string `mapstructure:"preview_dir"`

	// Workers bounds parallel extraction; 0 means GOMAXPROCS
	Workers int `mapstructure:"workers"`

	// StrictFormats makes textures with unsupported pixel formats an error
	// instead of skipping them with a warning
	StrictFormats bool `mapstructure:"strict_formats"`

	DryRun       bool   `mapstructure:"dry_run"`
	LogLevel     string `mapstructure:"log_level"`
	LogOutputDir string `mapstructure:"log_output_dir"`
}
