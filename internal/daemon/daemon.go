// Package daemon is a thin HTTP client for the remote node daemon that
// actually runs servers, moves files, and takes backups on the panel's
// behalf. Ordinary remote failures (non-2xx, timeouts) are encoded in the
// Response; only transport faults surface as errors.
package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/perch-panel/perch/internal/store"
)

// Per-operation timeouts. Status polling is cheap, mutations get longer, and
// archive compression can run for minutes on multi-gigabyte payloads.
const (
	StatusTimeout   = 10 * time.Second
	DefaultTimeout  = 30 * time.Second
	ArchiveTimeout  = 15 * time.Minute
	maxResponseBody = 10 << 20 // 10 MiB
)

// Response is the uniform result of one daemon call. Successful is false for
// any non-2xx status; Err carries the remote error message when one was
// decodable, RawBody the unparsed payload otherwise.
type Response struct {
	StatusCode int
	Successful bool
	Data       map[string]any
	RawBody    []byte
	Err        string
}

// Error returns the remote error message, or a generic one derived from the
// status code.
func (r *Response) Error() string {
	if r.Err != "" {
		return r.Err
	}
	if !r.Successful {
		return fmt.Sprintf("daemon returned HTTP %d", r.StatusCode)
	}
	return ""
}

// Client talks to one node's daemon. Clients are constructed per call from
// the node row; they hold no connection state beyond the http.Client.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a client for the given node. timeout bounds each request
// unless a method overrides it; zero means DefaultTimeout.
func NewClient(node store.Node, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: fmt.Sprintf("%s://%s:%d", node.Scheme, node.FQDN, node.Port),
		token:   node.Token,
		timeout: timeout,
		http:    &http.Client{},
	}
}

// ServerStatus fetches the runtime state of a server.
func (c *Client) ServerStatus(ctx context.Context, serverUUID string) (*Response, error) {
	return c.do(ctx, http.MethodGet, "/api/servers/"+serverUUID, nil, StatusTimeout)
}

// PowerAction sends a power signal (start, stop, restart, kill).
func (c *Client) PowerAction(ctx context.Context, serverUUID, action string) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/api/servers/"+serverUUID+"/power",
		map[string]any{"action": action}, c.timeout)
}

// SyncServer tells the daemon to re-read the server's configuration from the
// panel, picking up allocation and limit changes.
func (c *Client) SyncServer(ctx context.Context, serverUUID string) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/api/servers/"+serverUUID+"/sync", nil, c.timeout)
}

// CreateBackup asks the daemon to start a backup. The daemon accepts the job
// and runs it in the background; completion is reported out of band.
func (c *Client) CreateBackup(ctx context.Context, serverUUID, adapter, backupUUID, ignore string) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/api/servers/"+serverUUID+"/backup",
		map[string]any{"adapter": adapter, "uuid": backupUUID, "ignore": ignore}, c.timeout)
}

// DeleteBackup removes a backup's archive from the node.
func (c *Client) DeleteBackup(ctx context.Context, serverUUID, backupUUID string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, "/api/servers/"+serverUUID+"/backup/"+backupUUID, nil, c.timeout)
}

// CompressFiles archives the given files under root into name.extension.
// Uses the long archive timeout: large archives can take minutes.
func (c *Client) CompressFiles(ctx context.Context, serverUUID, root string, files []string, name, extension string) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/api/servers/"+serverUUID+"/files/compress",
		map[string]any{"root": root, "files": files, "name": name, "extension": extension},
		ArchiveTimeout)
}

// DecompressArchive extracts an archive file into root.
func (c *Client) DecompressArchive(ctx context.Context, serverUUID, file, root string) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/api/servers/"+serverUUID+"/files/decompress",
		map[string]any{"file": file, "root": root}, ArchiveTimeout)
}

// WriteFile writes content to a file path inside the server's data volume.
// The path rides in the query string and must be encoded: spaces and
// metacharacters are legal in file names.
func (c *Client) WriteFile(ctx context.Context, serverUUID, path string, content []byte) (*Response, error) {
	query := url.Values{"file": {path}}
	return c.do(ctx, http.MethodPost, "/api/servers/"+serverUUID+"/files/write?"+query.Encode(),
		json.RawMessage(mustJSON(string(content))), c.timeout)
}

// DeleteFiles removes the given files under root.
func (c *Client) DeleteFiles(ctx context.Context, serverUUID, root string, files []string) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/api/servers/"+serverUUID+"/files/delete",
		map[string]any{"root": root, "files": files}, c.timeout)
}

// PullFile asks the daemon to download a remote URL into root. The daemon
// accepts the job and downloads in the background unless foreground is set.
func (c *Client) PullFile(ctx context.Context, serverUUID, url, root, fileName string, foreground bool) (*Response, error) {
	payload := map[string]any{"url": url, "root": root, "foreground": foreground}
	if fileName != "" {
		payload["file_name"] = fileName
	}
	return c.do(ctx, http.MethodPost, "/api/servers/"+serverUUID+"/files/pull", payload, c.timeout)
}

// do sends one authenticated JSON request and normalizes the response.
// Transport faults (DNS, refused connections) are returned as errors; HTTP
// error statuses become unsuccessful Responses.
func (c *Client) do(ctx context.Context, method, path string, payload any, timeout time.Duration) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("daemon: marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("daemon: create %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// A deadline hit is an ordinary remote failure, not a transport fault.
		if errors.Is(err, context.DeadlineExceeded) {
			return &Response{
				StatusCode: 0,
				Successful: false,
				Err:        fmt.Sprintf("request timed out after %s", timeout),
			}, nil
		}
		return nil, fmt.Errorf("daemon: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("daemon: read %s %s response: %w", method, path, err)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Successful: resp.StatusCode >= 200 && resp.StatusCode < 300,
		RawBody:    raw,
	}

	if len(raw) > 0 {
		var data map[string]any
		if err := json.Unmarshal(raw, &data); err == nil {
			out.Data = data
			if !out.Successful {
				if msg, ok := data["error"].(string); ok && msg != "" {
					out.Err = msg
				}
			}
		}
	}

	return out, nil
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err) // strings always marshal
	}
	return data
}
