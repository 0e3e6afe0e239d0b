package asr

import "errors"

var (
	ErrProviderUnavailable = errors.New("asr provider unavailable")
	ErrTimeout             = errors.New("asr request timeout")
	ErrRequestFailed       = errors.New("asr request failed")
	ErrInvalidResponse     = errors.New("asr provider returned invalid response")
	ErrUnsupported         = errors.New("operation not supported by asr provider")
)
