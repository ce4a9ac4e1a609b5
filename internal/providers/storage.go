package providers

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/hisaab/internal/config"
)

var ErrInvalidObjectName = errors.New("invalid_object_name")

// Uploader stores objects and serves them by public URL.
type Uploader interface {
	// Upload stores an object and returns its public URL.
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
	// Delete removes the object a previous Upload returned the URL for. A URL
	// outside this uploader's base is rejected; a missing object is not an
	// error.
	Delete(ctx context.Context, url string) error
}

// LocalUploader writes objects under a root directory on the local disk.
type LocalUploader struct {
	root    string
	baseURL string
	log     *zap.Logger
}

type UploaderParams struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

func NewLocalUploader(p UploaderParams) Uploader {
	return &LocalUploader{
		root:    p.Cfg.StorageRoot,
		baseURL: strings.TrimRight(p.Cfg.StorageBaseURL, "/"),
		log:     p.Log.Named("providers.storage"),
	}
}

func (u *LocalUploader) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	clean := path.Clean("/" + name)
	if clean == "/" || strings.Contains(clean, "..") {
		return "", ErrInvalidObjectName
	}

	dst := filepath.Join(u.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}

	url := u.baseURL + clean
	u.log.Debug("object stored", zap.String("name", clean), zap.String("url", url))
	return url, nil
}

func (u *LocalUploader) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, u.baseURL+"/") {
		return ErrInvalidObjectName
	}
	clean := path.Clean("/" + strings.TrimPrefix(url, u.baseURL+"/"))
	if clean == "/" || strings.Contains(clean, "..") {
		return ErrInvalidObjectName
	}

	dst := filepath.Join(u.root, filepath.FromSlash(clean))
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	u.log.Debug("object removed", zap.String("name", clean))
	return nil
}
