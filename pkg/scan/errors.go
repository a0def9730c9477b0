package scan

import "errors"

// Sentinel errors for common conditions.
var (
	// ErrNotInitialized is returned when Scan is called before a frame
	// source and detector have been bound.
	ErrNotInitialized = errors.New("scan: frame source and detector required")

	// ErrScanInProgress is returned when Scan is called while another
	// scan is running on the same engine. New scans are rejected; the
	// running one is neither queued behind nor aborted.
	ErrScanInProgress = errors.New("scan: scan already in progress")

	// ErrSeekTimeout is returned by sources when a seek does not complete
	// within the bounded wait. Recoverable per frame.
	ErrSeekTimeout = errors.New("scan: seek timed out")

	// ErrAcquisitionTimeout is returned when the frame source never
	// produces a first frame within the startup timeout. Fatal: the scan
	// aborts before the loop starts.
	ErrAcquisitionTimeout = errors.New("scan: frame source never became ready")
)
