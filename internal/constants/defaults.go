package constants

import "time"

// Default retry configuration values
const (
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultMaxAttempts           = 2
	DefaultDatabaseRetryAttempts = 3
	DefaultRetentionDays         = 30
	DefaultServerPort            = 8082
)

// Default media configuration values
const (
	DefaultMaxImageSizeMB    = 5
	DefaultMaxVideoSizeMB    = 100
	DefaultMaxDocumentSizeMB = 100
	DefaultMaxVoiceSizeMB    = 16
)

// Sticker normalization: destination requires a square raster image.
const (
	StickerSideLength = 512
)

// Video notes must be square and no longer than this.
const (
	MaxVideoNoteDuration = 60 * time.Second
)

// Call and status events repeating within this window are suppressed.
const (
	DedupWindow = 30 * time.Second
	// DedupSweepThreshold triggers an opportunistic sweep of expired
	// entries once the table grows past it.
	DedupSweepThreshold = 128
)

// Presence debounce: a composing signal is followed by a paused signal
// after this long unless another composing event restarts the timer.
const (
	DefaultPresencePause = 5 * time.Second
)

// Message pair retention bounds.
const (
	MaxTrackedPairs = 4096
	PairTTL         = 7 * 24 * time.Hour
)

// Default timeout values
const (
	DefaultHTTPTimeoutSec         = 30
	DefaultGracefulShutdownSec    = 30
	DefaultServerReadTimeoutSec   = 15
	DefaultServerWriteTimeoutSec  = 15
	DefaultServerIdleTimeoutSec   = 60
	DefaultContactCacheHours      = 24
	CleanupSchedulerIntervalHours = 24
)

// Privacy settings
const (
	DefaultPhoneMaskLength = 4
	DefaultMessageIDLength = 8
)

// Input validation bounds
const (
	MinPhoneNumberLength = 7
	MaxPhoneNumberLength = 20
	MaxMessageIDLength   = 128
	MaxTextLength        = 4096
)
