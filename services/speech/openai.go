package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const defaultSpeechURL = "https://api.openai.com/v1/audio/speech"

// OpenAISynthesizer implements Synthesizer against an OpenAI-compatible
// audio/speech endpoint. Each text unit becomes one request; the response
// bodies are exposed to the caller as a single continuous stream, fetched
// lazily as the caller reads.
type OpenAISynthesizer struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewOpenAISynthesizer(apiKey string) *OpenAISynthesizer {
	return &OpenAISynthesizer{
		apiKey:     apiKey,
		baseURL:    defaultSpeechURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (o *OpenAISynthesizer) StreamSynthesize(ctx context.Context, units []string, voice, model string) (io.ReadCloser, error) {
	if len(units) == 0 {
		return nil, errors.New("no text units to synthesize")
	}
	return &unitStream{ctx: ctx, synth: o, units: units, voice: voice, model: model}, nil
}

func (o *OpenAISynthesizer) request(ctx context.Context, input, voice, model string) (io.ReadCloser, error) {
	payload, err := json.Marshal(map[string]string{
		"model": model,
		"voice": voice,
		"input": input,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode speech request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build speech request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "speech request failed")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("speech API returned status %d: %s", resp.StatusCode, body)
	}
	return resp.Body, nil
}

// unitStream walks the unit list, issuing the next request only once the
// previous response is exhausted.
type unitStream struct {
	ctx   context.Context
	synth *OpenAISynthesizer
	units []string
	voice string
	model string

	idx     int
	current io.ReadCloser
}

func (u *unitStream) Read(p []byte) (int, error) {
	for {
		if u.current == nil {
			if u.idx >= len(u.units) {
				return 0, io.EOF
			}
			rc, err := u.synth.request(u.ctx, u.units[u.idx], u.voice, u.model)
			if err != nil {
				return 0, err
			}
			u.current = rc
			u.idx++
		}

		n, err := u.current.Read(p)
		if err == io.EOF {
			u.current.Close()
			u.current = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (u *unitStream) Close() error {
	if u.current != nil {
		err := u.current.Close()
		u.current = nil
		return err
	}
	return nil
}
