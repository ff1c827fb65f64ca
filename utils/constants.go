// File: utils/constants.go
package utils

import "time"

// StagedFilePrefix is the prefix used for Redis staged-file keys.
const StagedFilePrefix = "staged:"

// StagedFileTTL is how long staged file bytes survive before expiring.
const StagedFileTTL = 24 * time.Hour

// MaxUploadBytes is the size ceiling for a single document upload (10 MiB).
const MaxUploadBytes = 10 << 20
