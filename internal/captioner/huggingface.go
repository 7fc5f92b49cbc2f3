package captioner

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxReplyBytes = 64 << 10

type HuggingFace struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHuggingFace builds a client for an image-to-text inference endpoint.
// A nil client uses http.DefaultClient; deadlines come from the context.
func NewHuggingFace(url, apiKey string, client *http.Client) *HuggingFace {
	if client == nil {
		client = http.DefaultClient
	}

	return &HuggingFace{url: url, apiKey: apiKey, client: client}
}

type hfRequest struct {
	Inputs string `json:"inputs"`
}

type hfResult struct {
	GeneratedText string `json:"generated_text"`
}

func (h *HuggingFace) Caption(ctx context.Context, image []byte) (string, error) {
	payload, err := json.Marshal(hfRequest{Inputs: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return "", fmt.Errorf("encode caption request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build caption request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read reply: %w", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	text, err := parseReply(body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	return text, nil
}

// parseReply accepts the list form the pipeline returns and the single
// object some deployments return.
func parseReply(body []byte) (string, error) {
	var list []hfResult
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) == 0 {
			return "", errors.New("empty caption reply")
		}
		return nonEmpty(list[0].GeneratedText)
	}

	var one hfResult
	if err := json.Unmarshal(body, &one); err != nil {
		return "", fmt.Errorf("decode caption reply: %w", err)
	}

	return nonEmpty(one.GeneratedText)
}

func nonEmpty(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("caption reply has no generated_text")
	}
	return text, nil
}
