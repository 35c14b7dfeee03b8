package config

type Config struct {
	General `mapstructure:"general"`
	Xorg    `mapstructure:"xorg"`
	Daemon  `mapstructure:"daemon"`
	GPU     `mapstructure:"gpu"`
}

type General struct {
	Debug bool `mapstructure:"debug"`
}

type Xorg struct {
	WrapperConfig string `mapstructure:"wrapper_config"`
	DeviceConfig  string `mapstructure:"device_config"`
}

type Daemon struct {
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
	ActionInterval int `mapstructure:"action_interval_s"` // in seconds
}

type GPU struct {
	// Profiles extends (or overrides) the built-in per-model clock table.
	// Keyed by the exact model name reported by the query utility.
	Profiles map[string]Profile `mapstructure:"profiles"`
}

type Profile struct {
	Core      int `mapstructure:"core"`      // base core clock, MHz
	Boost     int `mapstructure:"boost"`     // boost clock, MHz
	Offset    int `mapstructure:"offset"`    // undervolt offset, MHz
	Threshold int `mapstructure:"threshold"` // idle power threshold, W
}
