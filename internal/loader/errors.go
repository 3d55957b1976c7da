package loader

import "fmt"

// FetchError reports a network or HTTP failure downloading a URL source.
type FetchError struct {
	Source     string
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NotFoundError reports a local source path that does not exist.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("local pdf not found: %s", e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// ConversionError reports a PDF that could not be converted to page text.
type ConversionError struct {
	Source string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s: %v", e.Source, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }
