// Package whisper provides local whisper.cpp-backed STT providers.
//
// Two implementations are available:
//
//   - Provider connects to a running whisper-server binary (which exposes a
//     REST API at POST /inference) and submits the audio file as a multipart
//     upload. This keeps the heavy model out of the application process and
//     lets several applications share one server.
//   - NativeProvider (see native.go) loads the model in-process through the
//     whisper.cpp CGO bindings, eliminating HTTP overhead entirely.
//
// Usage:
//
//	p, err := whisper.New("http://localhost:8080",
//	    whisper.WithLanguage("zh"),
//	    whisper.WithInitialPrompt("請用繁體中文"),
//	)
//	segments, err := p.Transcribe(ctx, "episode01.wav")
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hantube/hantube/pkg/provider/stt"
)

const (
	defaultLanguage = "zh"

	// defaultInitialPrompt biases whisper toward Traditional script output for
	// Chinese audio. The pass-1 script normalisation downstream still runs, so
	// this is a hint rather than a guarantee.
	defaultInitialPrompt = "請用繁體中文"
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the whisper-server
// (e.g., "base", "small", "large-v3"). When empty the server uses whichever
// model it was started with — this is the default.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the language code sent to the whisper-server
// (e.g., "zh", "en", "auto"). Defaults to "zh".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithInitialPrompt sets the initial prompt that conditions the decoder before
// the first audio token. Defaults to a Traditional-Chinese hint; pass an empty
// string to disable.
func WithInitialPrompt(prompt string) Option {
	return func(p *Provider) {
		p.initialPrompt = prompt
	}
}

// WithTimeout sets the per-request HTTP timeout. Long audio needs a generous
// value; the default is 10 minutes.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// Provider implements stt.Provider backed by a whisper-server HTTP instance.
// It is safe for concurrent use; each Transcribe call is an independent
// request.
type Provider struct {
	serverURL     string
	model         string
	language      string
	initialPrompt string
	httpClient    *http.Client
}

// New creates a new Provider that connects to the whisper-server at serverURL
// (e.g., "http://localhost:8080"). serverURL must be non-empty. Functional
// options may be provided to override defaults.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:     strings.TrimRight(serverURL, "/"),
		language:      defaultLanguage,
		initialPrompt: defaultInitialPrompt,
		httpClient:    &http.Client{Timeout: 10 * time.Minute},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// inferenceSegment mirrors one element of the "segments" array in the
// whisper-server verbose_json response. Offsets are in seconds.
type inferenceSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// inferenceResponse is the verbose_json response body of POST /inference.
type inferenceResponse struct {
	Text     string             `json:"text"`
	Segments []inferenceSegment `json:"segments"`
}

// Transcribe implements stt.Provider by uploading the audio file to the
// whisper-server /inference endpoint and decoding the timed segments from
// its verbose_json response.
func (p *Provider) Transcribe(ctx context.Context, audioPath string) ([]stt.Segment, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: open audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, fmt.Errorf("whisper: read audio file: %w", err)
	}

	fields := map[string]string{
		"response_format": "verbose_json",
	}
	if p.language != "" {
		fields["language"] = p.language
	}
	if p.initialPrompt != "" {
		fields["prompt"] = p.initialPrompt
	}
	if p.model != "" {
		fields["model"] = p.model
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("whisper: write field %s: %w", k, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/inference", &body)
	if err != nil {
		return nil, fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whisper: read response body: %w", err)
	}

	var result inferenceResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	segments := make([]stt.Segment, 0, len(result.Segments))
	for _, s := range result.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		segments = append(segments, stt.Segment{
			Start: time.Duration(s.Start * float64(time.Second)),
			End:   time.Duration(s.End * float64(time.Second)),
			Text:  text,
		})
	}
	return segments, nil
}
