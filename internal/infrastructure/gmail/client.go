// Package gmail reads mailbox messages and attachments from the Gmail v1
// REST API.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/veralend/loandocs/internal/core/ports"
	"github.com/veralend/loandocs/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, token string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

type messageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

type messageList struct {
	Messages      []messageRef `json:"messages"`
	NextPageToken string       `json:"nextPageToken"`
}

type header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type bodyPart struct {
	AttachmentID string `json:"attachmentId"`
	Size         int64  `json:"size"`
	Data         string `json:"data"`
}

type messagePart struct {
	MimeType string        `json:"mimeType"`
	Filename string        `json:"filename"`
	Headers  []header      `json:"headers"`
	Body     bodyPart      `json:"body"`
	Parts    []messagePart `json:"parts"`
}

type message struct {
	ID           string      `json:"id"`
	ThreadID     string      `json:"threadId"`
	Snippet      string      `json:"snippet"`
	InternalDate string      `json:"internalDate"`
	Payload      messagePart `json:"payload"`
}

type thread struct {
	ID       string    `json:"id"`
	Messages []message `json:"messages"`
}

type attachmentBody struct {
	Size int64  `json:"size"`
	Data string `json:"data"`
}

func (c *Client) ListMessages(ctx context.Context, query string, max int) ([]ports.MessageRef, error) {
	var out []ports.MessageRef
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("q", query)
		remaining := max - len(out)
		if remaining > 500 {
			remaining = 500
		}
		params.Set("maxResults", strconv.Itoa(remaining))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page messageList
		err := c.executor.Execute(ctx, "gmail.list", func(ctx context.Context) error {
			page = messageList{}
			return c.getJSON(ctx, "/messages?"+params.Encode(), "gmail.list", &page)
		}, resilience.ClassifyUpstream)
		if err != nil {
			return nil, err
		}

		for _, m := range page.Messages {
			out = append(out, ports.MessageRef{ID: m.ID, ThreadID: m.ThreadID})
		}
		if page.NextPageToken == "" || len(out) >= max {
			if len(out) > max {
				out = out[:max]
			}
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *Client) GetThread(ctx context.Context, threadID string) ([]ports.Message, error) {
	var raw thread
	err := c.executor.Execute(ctx, "gmail.thread", func(ctx context.Context) error {
		raw = thread{}
		return c.getJSON(ctx, "/threads/"+url.PathEscape(threadID)+"?format=full", "gmail.thread", &raw)
	}, resilience.ClassifyUpstream)
	if err != nil {
		return nil, err
	}

	out := make([]ports.Message, 0, len(raw.Messages))
	for _, m := range raw.Messages {
		out = append(out, toMessage(m))
	}
	return out, nil
}

func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	path := "/messages/" + url.PathEscape(messageID) + "/attachments/" + url.PathEscape(attachmentID)

	var raw attachmentBody
	err := c.executor.Execute(ctx, "gmail.attachment", func(ctx context.Context) error {
		raw = attachmentBody{}
		return c.getJSON(ctx, path, "gmail.attachment", &raw)
	}, resilience.ClassifyUpstream)
	if err != nil {
		return nil, err
	}

	data, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(raw.Data, "="))
	if err != nil {
		return nil, fmt.Errorf("decode attachment data: %w", err)
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, path, operation string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &resilience.StatusError{Operation: operation, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func toMessage(m message) ports.Message {
	out := ports.Message{
		ID:       m.ID,
		ThreadID: m.ThreadID,
		Snippet:  m.Snippet,
	}
	for _, h := range m.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "subject":
			out.Subject = h.Value
		case "from":
			out.From = h.Value
		case "to":
			out.To = h.Value
		case "cc":
			out.Cc = h.Value
		}
	}
	if ms, err := strconv.ParseInt(m.InternalDate, 10, 64); err == nil {
		out.Received = time.UnixMilli(ms).UTC()
	}
	collectAttachments(m.Payload, &out.Attachments)
	return out
}

// collectAttachments walks the MIME part tree. A part counts as an attachment
// when it carries both a filename and an attachment id.
func collectAttachments(part messagePart, out *[]ports.Attachment) {
	if part.Filename != "" && part.Body.AttachmentID != "" {
		*out = append(*out, ports.Attachment{
			ID:        part.Body.AttachmentID,
			Filename:  part.Filename,
			MimeType:  part.MimeType,
			SizeBytes: part.Body.Size,
		})
	}
	for _, child := range part.Parts {
		collectAttachments(child, out)
	}
}
