package gpu

import "gitlab.com/nvctl/gpu-undervolt/internal/config"

// Profile holds the per-model clock constants driving the undervolt.
// Core and Boost come from the vendor spec sheets, Offset is the
// undervolt intensity in MHz and Threshold the idle power draw in watts
// used by daemon mode. Larger offsets save more energy but destabilize
// the system at some point; settings should be verified with a GPU
// intense benchmark.
type Profile struct {
	Core      int
	Boost     int
	Offset    int
	Threshold int
}

// LockRange returns the locked clock window applied while the undervolt
// is active.
func (p Profile) LockRange() (min, max int) {
	return p.Core - p.Offset, p.Boost - p.Offset
}

// builtinProfiles is keyed by the exact model name reported by the query
// utility. Unsupported cards must be added here or through the
// gpu.profiles config section.
var builtinProfiles = map[string]Profile{
	"NVIDIA GeForce RTX 3090":       {Core: 1395, Boost: 1695, Offset: 200, Threshold: 120},
	"NVIDIA GeForce RTX 3080":       {Core: 1440, Boost: 1710, Offset: 200, Threshold: 110},
	"NVIDIA GeForce RTX 3070":       {Core: 1500, Boost: 1725, Offset: 190, Threshold: 90},
	"NVIDIA GeForce RTX 2070 SUPER": {Core: 1605, Boost: 1770, Offset: 100, Threshold: 70},
}

// Profiles returns the built-in model table merged with entries from the
// configuration file. Config entries win on name collision.
func Profiles() map[string]Profile {
	profiles := make(map[string]Profile, len(builtinProfiles))
	for name, profile := range builtinProfiles {
		profiles[name] = profile
	}

	for name, profile := range config.GetConfig().GPU.Profiles {
		profiles[name] = Profile{
			Core:      profile.Core,
			Boost:     profile.Boost,
			Offset:    profile.Offset,
			Threshold: profile.Threshold,
		}
	}

	return profiles
}
