// Package drive reads loan folders from the Google Drive v3 REST API.
package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/veralend/loandocs/internal/core/ports"
	"github.com/veralend/loandocs/internal/infrastructure/resilience"
)

const folderMimeType = "application/vnd.google-apps.folder"

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

type fileResource struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	Size         string `json:"size"`
	ModifiedTime string `json:"modifiedTime"`
}

type fileList struct {
	Files         []fileResource `json:"files"`
	NextPageToken string         `json:"nextPageToken"`
}

func (c *Client) ListFolder(ctx context.Context, folderID string) ([]ports.DriveEntry, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", folderID)

	var out []ports.DriveEntry
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("q", query)
		params.Set("fields", "nextPageToken, files(id, name, mimeType, size, modifiedTime)")
		params.Set("pageSize", "1000")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page fileList
		err := c.executor.Execute(ctx, "drive.list", func(ctx context.Context) error {
			page = fileList{}
			return c.getJSON(ctx, "/files?"+params.Encode(), "drive.list", &page)
		}, resilience.ClassifyUpstream)
		if err != nil {
			return nil, err
		}

		for _, f := range page.Files {
			out = append(out, toEntry(f))
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *Client) DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	path := "/files/" + url.PathEscape(fileID) + "?alt=media"

	var body io.ReadCloser
	err := c.executor.Execute(ctx, "drive.download", func(ctx context.Context) error {
		resp, err := c.get(ctx, path, "drive.download")
		if err != nil {
			return err
		}
		body = resp.Body
		return nil
	}, resilience.ClassifyUpstream)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, path, operation string, out any) error {
	resp, err := c.get(ctx, path, operation)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path, operation string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", operation, err)
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &resilience.StatusError{Operation: operation, Status: resp.StatusCode}
	}
	return resp, nil
}

func toEntry(f fileResource) ports.DriveEntry {
	entry := ports.DriveEntry{
		ID:       f.ID,
		Name:     f.Name,
		MimeType: f.MimeType,
		IsFolder: f.MimeType == folderMimeType,
	}
	// Drive serializes size as a string and omits it for folders.
	if f.Size != "" {
		if size, err := strconv.ParseInt(f.Size, 10, 64); err == nil {
			entry.SizeBytes = size
		}
	}
	if f.ModifiedTime != "" {
		if mod, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			entry.ModifiedTime = mod
		}
	}
	return entry
}
