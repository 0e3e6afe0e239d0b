package asr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// maxErrorBody caps how much of a failed response is copied into the error.
const maxErrorBody = 1024

// uploadRequest is a multipart POST carrying one audio file plus form fields.
type uploadRequest struct {
	url       string
	headers   map[string]string
	fields    map[string]string
	fileField string
	filePath  string
}

// postAudio streams the audio file to the backend and decodes a JSON reply
// into out. The file is never buffered in memory.
func postAudio(ctx context.Context, client *http.Client, up uploadRequest, out any) error {
	f, err := os.Open(up.filePath)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, up.url, pr)
	if err != nil {
		pr.Close()
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range up.headers {
		httpReq.Header.Set(k, v)
	}

	go func() {
		pw.CloseWithError(writeForm(mw, up, f))
	}()

	resp, err := client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, errorMessage(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func writeForm(mw *multipart.Writer, up uploadRequest, audio io.Reader) error {
	for _, k := range slices.Sorted(maps.Keys(up.fields)) {
		if err := mw.WriteField(k, up.fields[k]); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile(up.fileField, filepath.Base(up.filePath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return err
	}
	return mw.Close()
}

// errorMessage extracts {"error": "..."} or {"error": {"message": "..."}}
// from a failed response, falling back to the raw body.
func errorMessage(body []byte) string {
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		return flat.Error
	}
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	return strings.TrimSpace(string(body))
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
