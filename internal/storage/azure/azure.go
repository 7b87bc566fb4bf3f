// Package azure implements objstore.Client on an Azure Blob Storage container.
package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"dualfm/internal/fault"
	"dualfm/internal/logging"
	"dualfm/internal/storage/objstore"
)

// Domain is the error domain of Azure failures.
const Domain = "Azure Blob"

// Config selects the container and how to authenticate. A connection string
// wins over an account URL; the URL may carry a SAS token.
type Config struct {
	Container        string
	ConnectionString string
	AccountURL       string
}

// API is the subset of *azblob.Client the store uses.
type API interface {
	NewListBlobsFlatPager(containerName string, o *azblob.ListBlobsFlatOptions) *runtime.Pager[azblob.ListBlobsFlatResponse]
	DownloadStream(ctx context.Context, containerName, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
	UploadStream(ctx context.Context, containerName, blobName string, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error)
	DeleteBlob(ctx context.Context, containerName, blobName string, o *azblob.DeleteBlobOptions) (azblob.DeleteBlobResponse, error)
}

// Client is an objstore.Client bound to one container.
type Client struct {
	api       API
	container string
}

var _ objstore.Client = (*Client)(nil)

// New connects to the container described by cfg.
func New(cfg Config) (*Client, error) {
	if cfg.Container == "" {
		return nil, fmt.Errorf("azure: container name is required")
	}
	var (
		c   *azblob.Client
		err error
	)
	switch {
	case cfg.ConnectionString != "":
		c, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	case cfg.AccountURL != "":
		c, err = azblob.NewClientWithNoCredential(cfg.AccountURL, nil)
	default:
		return nil, fmt.Errorf("azure: a connection string or account URL is required")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}
	logging.L().Debug().Str("container", cfg.Container).Msg("azure client configured")
	return NewWithAPI(c, cfg.Container), nil
}

// NewWithAPI wraps an existing API implementation.
func NewWithAPI(api API, container string) *Client {
	return &Client{api: api, container: container}
}

// List pages through every blob under prefix.
func (c *Client) List(ctx context.Context, prefix string) ([]objstore.Object, error) {
	opts := &azblob.ListBlobsFlatOptions{}
	if prefix != "" {
		opts.Prefix = &prefix
	}
	var out []objstore.Object
	pager := c.api.NewListBlobsFlatPager(c.container, opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, classify(err)
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			o := objstore.Object{Key: *item.Name}
			if p := item.Properties; p != nil {
				if p.ContentLength != nil {
					o.Size = *p.ContentLength
				}
				if p.LastModified != nil {
					o.LastModified = *p.LastModified
				}
			}
			out = append(out, o)
		}
	}
	return out, nil
}

// Get opens the blob for reading.
func (c *Client) Get(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	resp, err := c.api.DownloadStream(ctx, c.container, key, nil)
	if err != nil {
		return nil, 0, classify(err)
	}
	size := int64(-1)
	if resp.ContentLength != nil {
		size = *resp.ContentLength
	}
	return resp.Body, size, nil
}

// Put uploads r as a block blob. A source that ends before size bytes fails
// the upload; a blob whose length still differs from size is removed again.
func (c *Client) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	cr := &countingReader{r: r, want: size}
	if _, err := c.api.UploadStream(ctx, c.container, key, cr, nil); err != nil {
		if cr.short {
			c.discard(ctx, key)
			return c.incomplete(cr.n, size)
		}
		return classify(err)
	}
	if size >= 0 && cr.n != size {
		c.discard(ctx, key)
		return c.incomplete(cr.n, size)
	}
	return nil
}

func (c *Client) incomplete(n, size int64) error {
	return fault.New(Domain, fault.IncompleteTransfer, fmt.Sprintf("uploaded %d of %d bytes", n, size))
}

// discard removes a blob left behind by a broken upload.
func (c *Client) discard(ctx context.Context, key string) {
	if _, err := c.api.DeleteBlob(ctx, c.container, key, nil); err != nil {
		logging.L().Debug().Str("blob", key).Err(err).Msg("discard partial blob")
	}
}

// Delete removes the blob.
func (c *Client) Delete(ctx context.Context, key string) error {
	if _, err := c.api.DeleteBlob(ctx, c.container, key, nil); err != nil {
		return classify(err)
	}
	return nil
}

// Container is the container name.
func (c *Client) Container() string { return c.container }

// Provider is "Azure".
func (c *Client) Provider() string { return "Azure" }

// Domain is "Azure Blob".
func (c *Client) Domain() string { return Domain }

// countingReader counts what it reads and turns an early EOF into
// io.ErrUnexpectedEOF when want bytes were announced.
type countingReader struct {
	r     io.Reader
	want  int64
	n     int64
	short bool
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if errors.Is(err, io.EOF) && c.want >= 0 && c.n < c.want {
		c.short = true
		return n, io.ErrUnexpectedEOF
	}
	return n, err
}

// classify maps azcore response errors to fault records keyed by the
// storage error code.
func classify(err error) error {
	if _, ok := fault.As(err); ok {
		return err
	}
	var re *azcore.ResponseError
	if !errors.As(err, &re) {
		return fault.Wrap(Domain, fault.Service, "Request Error", err)
	}
	kind := fault.Service
	switch re.StatusCode {
	case http.StatusNotFound:
		kind = fault.NotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		kind = fault.PermissionDenied
	case http.StatusConflict:
		kind = fault.AlreadyExists
	case http.StatusBadRequest:
		kind = fault.InvalidData
	}
	code := re.ErrorCode
	if code == "" {
		code = http.StatusText(re.StatusCode)
	}
	msg := http.StatusText(re.StatusCode)
	if re.RawResponse != nil && re.RawResponse.Request != nil && re.RawResponse.Request.URL != nil {
		msg = fmt.Sprintf("%s %s: %s", re.RawResponse.Request.Method, re.RawResponse.Request.URL.Path, msg)
	}
	return &fault.Error{Domain: Domain, Code: code, Message: msg, Kind: kind, Err: err}
}
