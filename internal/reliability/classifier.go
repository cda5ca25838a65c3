package reliability

// IsRetryableHTTPStatus classifies HTTP status codes a caller could safely
// retry. Turns are never retried automatically; the flag is carried on
// service errors so the shells can tell the user whether trying again is
// worthwhile.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
