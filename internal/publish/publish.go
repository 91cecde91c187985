// Package publish uploads run reports to an Azure Blob Storage container.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/CZERTAINLY/azsnap/internal/model"
)

var ErrConnectionString = errors.New("invalid connection string")

// Publisher uploads files into one container using a shared key credential.
// Plain http endpoints are accepted so a local Azurite works.
type Publisher struct {
	client     *azblob.Client
	serviceURL string
	container  string

	mx            sync.Mutex
	containerInit bool
}

func New(cfg model.Publish) (*Publisher, error) {
	if cfg.Container == "" {
		return nil, fmt.Errorf("container name is required")
	}
	params := ParseConnectionString(cfg.ConnectionString)
	account := params["AccountName"]
	key := params["AccountKey"]
	serviceURL := params["BlobEndpoint"]
	if account == "" || key == "" {
		return nil, fmt.Errorf("%w: AccountName and AccountKey are required", ErrConnectionString)
	}
	if serviceURL == "" {
		protocol := params["DefaultEndpointsProtocol"]
		if protocol == "" {
			protocol = "https"
		}
		suffix := params["EndpointSuffix"]
		if suffix == "" {
			suffix = "core.windows.net"
		}
		serviceURL = fmt.Sprintf("%s://%s.blob.%s", protocol, account, suffix)
	}

	cred, err := azblob.NewSharedKeyCredential(account, key)
	if err != nil {
		return nil, fmt.Errorf("creating shared key credential: %w", err)
	}
	var opts *azblob.ClientOptions
	if strings.HasPrefix(strings.ToLower(serviceURL), "http://") {
		opts = &azblob.ClientOptions{
			ClientOptions: azcore.ClientOptions{
				InsecureAllowCredentialWithHTTP: true,
			},
		}
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("creating blob client: %w", err)
	}
	return &Publisher{
		client:     client,
		serviceURL: strings.TrimRight(serviceURL, "/"),
		container:  cfg.Container,
	}, nil
}

// Upload stores data as blob name and returns its URL.
func (p *Publisher) Upload(ctx context.Context, name string, data []byte, metadata map[string]string) (string, error) {
	if err := p.ensureContainer(ctx); err != nil {
		return "", err
	}
	md := make(map[string]*string, len(metadata))
	for k, v := range metadata {
		md[k] = to.Ptr(v)
	}

	client := p.client.ServiceClient().NewContainerClient(p.container).NewBlockBlobClient(name)
	_, err := client.UploadBuffer(ctx, data, &azblob.UploadBufferOptions{
		Metadata: md,
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: to.Ptr("text/plain; charset=utf-8"),
		},
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	slog.DebugContext(ctx, "blob uploaded", "blob", name, "size", len(data))
	return client.URL(), nil
}

// Download returns the content of blob name.
func (p *Publisher) Download(ctx context.Context, name string) ([]byte, error) {
	resp, err := p.client.DownloadStream(ctx, p.container, name, nil)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	return io.ReadAll(resp.Body)
}

// PublishRun uploads files under `<action>/<run id>/<file name>` and tags them
// with the run metadata. Files which don't exist are skipped.
func (p *Publisher) PublishRun(ctx context.Context, run model.RunConfig, files ...string) ([]string, error) {
	metadata := map[string]string{
		"run_id": run.ID,
		"action": run.Action,
		"user":   model.SanitizeName(run.User),
	}
	if run.Tag != "" {
		metadata["tag"] = model.SanitizeName(run.Tag)
	}

	var urls []string
	var errs []error
	for _, f := range files {
		data, err := os.ReadFile(f)
		if errors.Is(err, os.ErrNotExist) {
			slog.DebugContext(ctx, "skipping missing report", "path", f)
			continue
		} else if err != nil {
			errs = append(errs, err)
			continue
		}
		url, err := p.Upload(ctx, path.Join(run.Action, run.ID, filepath.Base(f)), data, metadata)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		urls = append(urls, url)
	}
	return urls, errors.Join(errs...)
}

func (p *Publisher) ensureContainer(ctx context.Context) error {
	p.mx.Lock()
	defer p.mx.Unlock()
	if p.containerInit {
		return nil
	}
	_, err := p.client.CreateContainer(ctx, p.container, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if !errors.As(err, &respErr) || respErr.ErrorCode != "ContainerAlreadyExists" {
			return fmt.Errorf("creating container %s: %w", p.container, err)
		}
	}
	p.containerInit = true
	return nil
}

// ParseConnectionString splits `Key=Value;Key=Value` pairs. Values may contain '='.
func ParseConnectionString(s string) map[string]string {
	ret := make(map[string]string)
	for part := range strings.SplitSeq(s, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || key == "" {
			continue
		}
		ret[key] = value
	}
	return ret
}
