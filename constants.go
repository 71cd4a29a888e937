package paulstretch

// Default configuration values
const (
	// DefaultWindowSeconds is the analysis window length used when the
	// config leaves it zero. A quarter second works well for most music.
	DefaultWindowSeconds = 0.25

	// DefaultStretchFactor is the factor used by the one-shot helpers
	// when the caller passes zero.
	DefaultStretchFactor = 8.0
)

// Typical configuration ranges. These are guidance for callers building
// user interfaces; Validate only requires finite positive values.
const (
	// TypicalMinStretch and TypicalMaxStretch bound the factor range the
	// algorithm was designed for.
	TypicalMinStretch = 2.0
	TypicalMaxStretch = 50.0

	// TypicalMaxWindowSeconds is the largest window length that still
	// resembles the input rather than a pure texture.
	TypicalMaxWindowSeconds = 0.5
)

// Channel constants
const (
	stereoChannels = 2 // Stereo channel count (used by interleave functions)
)
