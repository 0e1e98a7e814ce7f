// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// maxBodyBytes bounds POST bodies; chat messages are short.
const maxBodyBytes = 16 << 10

// MessageRequest is the body of POST /api/messages.
type MessageRequest struct {
	MessageID string `json:"message_id"`
	AuthorID  string `json:"author_id"`
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
}

// ParseMessageRequest reads a JSON or form-encoded message body.
func ParseMessageRequest(r *http.Request) (MessageRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return MessageRequest{}, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return MessageRequest{}, errors.New("request body too large")
	}

	var req MessageRequest
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(body, &req); err != nil {
			return MessageRequest{}, fmt.Errorf("invalid JSON body: %w", err)
		}
	} else {
		form, err := url.ParseQuery(trimmed)
		if err != nil {
			return MessageRequest{}, fmt.Errorf("invalid form body: %w", err)
		}
		req = MessageRequest{
			MessageID: form.Get("message_id"),
			AuthorID:  form.Get("author_id"),
			ChannelID: form.Get("channel_id"),
			Text:      form.Get("text"),
		}
	}

	req.MessageID = sanitizeInput(req.MessageID)
	req.AuthorID = sanitizeInput(req.AuthorID)
	req.ChannelID = sanitizeInput(req.ChannelID)
	// Text keeps its inner spacing; the parser keeps descriptions verbatim.
	req.Text = stripControl(req.Text)
	if req.AuthorID == "" {
		return MessageRequest{}, errors.New("author_id is required")
	}
	return req, nil
}

// ParseRecentCount reads ?n=, falling back to def. Values outside 1..max
// are rejected.
func ParseRecentCount(query url.Values, def, max int) (int, error) {
	v := strings.TrimSpace(query.Get("n"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > max {
		return 0, fmt.Errorf("n must be an integer between 1 and %d", max)
	}
	return n, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(stripControl(s))
}

// stripControl removes control characters except tab, newline and carriage return.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
