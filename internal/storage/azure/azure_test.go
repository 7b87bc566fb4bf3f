package azure

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"dualfm/internal/fault"
	"dualfm/internal/storage/objstore"
)

// fakeAPI returns its blobs one per page.
type fakeAPI struct {
	blobs     []string
	uploaded  map[string]string
	deleted   []string
	deleteErr error
}

func (f *fakeAPI) NewListBlobsFlatPager(_ string, o *azblob.ListBlobsFlatOptions) *runtime.Pager[azblob.ListBlobsFlatResponse] {
	prefix := ""
	if o != nil && o.Prefix != nil {
		prefix = *o.Prefix
	}
	var matching []string
	for _, b := range f.blobs {
		if strings.HasPrefix(b, prefix) {
			matching = append(matching, b)
		}
	}
	i := 0
	return runtime.NewPager(runtime.PagingHandler[azblob.ListBlobsFlatResponse]{
		More: func(azblob.ListBlobsFlatResponse) bool { return i < len(matching) },
		Fetcher: func(context.Context, *azblob.ListBlobsFlatResponse) (azblob.ListBlobsFlatResponse, error) {
			var resp azblob.ListBlobsFlatResponse
			seg := &container.BlobFlatListSegment{}
			if i < len(matching) {
				name := matching[i]
				size := int64(len(name))
				seg.BlobItems = []*container.BlobItem{{
					Name:       &name,
					Properties: &container.BlobProperties{ContentLength: &size},
				}}
				i++
			}
			resp.Segment = seg
			return resp, nil
		},
	})
}

func (f *fakeAPI) DownloadStream(context.Context, string, string, *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error) {
	return azblob.DownloadStreamResponse{}, &azcore.ResponseError{ErrorCode: "BlobNotFound", StatusCode: http.StatusNotFound}
}

func (f *fakeAPI) UploadStream(_ context.Context, _ string, blob string, body io.Reader, _ *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return azblob.UploadStreamResponse{}, err
	}
	if f.uploaded == nil {
		f.uploaded = map[string]string{}
	}
	f.uploaded[blob] = string(data)
	return azblob.UploadStreamResponse{}, nil
}

func (f *fakeAPI) DeleteBlob(_ context.Context, _ string, blob string, _ *azblob.DeleteBlobOptions) (azblob.DeleteBlobResponse, error) {
	if f.deleteErr != nil {
		return azblob.DeleteBlobResponse{}, f.deleteErr
	}
	f.deleted = append(f.deleted, blob)
	delete(f.uploaded, blob)
	return azblob.DeleteBlobResponse{}, nil
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

func TestListPagesThroughBlobs(t *testing.T) {
	api := &fakeAPI{blobs: []string{"a/b.txt", "a/c/d.txt", "a/e.txt", "z"}}
	objs, err := NewWithAPI(api, "box").List(context.Background(), "a/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(objs) != 3 {
		t.Fatalf("objs = %+v", objs)
	}
	if objs[0].Size != int64(len("a/b.txt")) {
		t.Errorf("size = %d", objs[0].Size)
	}

	entries := objstore.TopLevel("a/", []string{objs[0].Key, objs[1].Key, objs[2].Key})
	if len(entries) != 3 || entries[1].Name != "c/" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestGetMissingBlob(t *testing.T) {
	_, _, err := NewWithAPI(&fakeAPI{}, "box").Get(context.Background(), "nope")
	fe, ok := fault.As(err)
	if !ok || fe.Kind != fault.NotFound || fe.Code != "BlobNotFound" || fe.Domain != Domain {
		t.Errorf("got %v", err)
	}
}

func TestPutCountsBytes(t *testing.T) {
	api := &fakeAPI{}
	c := NewWithAPI(api, "box")
	if err := c.Put(context.Background(), "k", strings.NewReader("abc"), 3); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if api.uploaded["k"] != "abc" {
		t.Errorf("uploaded = %v", api.uploaded)
	}
	err := c.Put(context.Background(), "short", strings.NewReader("ab"), 3)
	if fault.KindOf(err) != fault.IncompleteTransfer {
		t.Errorf("kind = %v", fault.KindOf(err))
	}
}

func TestPutShortSourceLeavesNoBlob(t *testing.T) {
	api := &fakeAPI{}
	err := NewWithAPI(api, "box").Put(context.Background(), "short", strings.NewReader("ab"), 3)
	fe, ok := fault.As(err)
	if !ok || fe.Kind != fault.IncompleteTransfer || fe.Domain != Domain {
		t.Fatalf("got %v", err)
	}
	if _, ok := api.uploaded["short"]; ok {
		t.Error("a truncated blob was left in the container")
	}
	if len(api.deleted) != 1 || api.deleted[0] != "short" {
		t.Errorf("deleted = %v", api.deleted)
	}
}

func TestPutLongSourceIsRemoved(t *testing.T) {
	api := &fakeAPI{}
	err := NewWithAPI(api, "box").Put(context.Background(), "long", strings.NewReader("abcd"), 2)
	if fault.KindOf(err) != fault.IncompleteTransfer {
		t.Fatalf("kind = %v", fault.KindOf(err))
	}
	if _, ok := api.uploaded["long"]; ok {
		t.Error("an oversized blob was left in the container")
	}
}

func TestPutUnknownSizeAccepted(t *testing.T) {
	api := &fakeAPI{}
	if err := NewWithAPI(api, "box").Put(context.Background(), "k", strings.NewReader("xyz"), -1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if api.uploaded["k"] != "xyz" || len(api.deleted) != 0 {
		t.Errorf("uploaded = %v deleted = %v", api.uploaded, api.deleted)
	}
}

func TestDeleteForbidden(t *testing.T) {
	api := &fakeAPI{deleteErr: &azcore.ResponseError{ErrorCode: "AuthorizationFailure", StatusCode: http.StatusForbidden}}
	err := NewWithAPI(api, "box").Delete(context.Background(), "k")
	if fault.KindOf(err) != fault.PermissionDenied {
		t.Errorf("kind = %v", fault.KindOf(err))
	}
}

func TestClassifyNonResponseError(t *testing.T) {
	fe, _ := fault.As(classify(errors.New("dial tcp: timeout")))
	if fe.Code != "Request Error" || fe.Kind != fault.Service {
		t.Errorf("got %+v", fe)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without container")
	}
	if _, err := New(Config{Container: "c"}); err == nil {
		t.Error("expected error without credentials")
	}
}

func TestLabels(t *testing.T) {
	c := NewWithAPI(&fakeAPI{}, "box")
	if c.Container() != "box" || c.Provider() != "Azure" || c.Domain() != "Azure Blob" {
		t.Errorf("labels = %q %q %q", c.Container(), c.Provider(), c.Domain())
	}
}
