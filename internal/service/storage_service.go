package service

import (
	"context"
	"fmt"
	"io"
	"learning_platform_backend/internal/config"
	"learning_platform_backend/internal/util"
	"learning_platform_backend/pkg/logger"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageProvider is an object store for uploaded files.
type StorageProvider interface {
	Upload(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (string, error)
	UploadFile(ctx context.Context, name string, localPath string, contentType string) (string, error)
	Delete(ctx context.Context, name string) error
	URL(name string) string
}

type LocalStorageProvider struct {
	Root string
}

func (p *LocalStorageProvider) path(name string) (string, error) {
	dst := filepath.Join(p.Root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	return dst, nil
}

func (p *LocalStorageProvider) Upload(_ context.Context, name string, reader io.Reader, _ int64, _ string) (string, error) {
	dst, err := p.path(name)
	if err != nil {
		return "", err
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", err
	}
	return p.URL(name), nil
}

func (p *LocalStorageProvider) UploadFile(ctx context.Context, name string, localPath string, contentType string) (string, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer src.Close()
	return p.Upload(ctx, name, src, -1, contentType)
}

func (p *LocalStorageProvider) Delete(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(p.Root, filepath.FromSlash(name)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (p *LocalStorageProvider) URL(name string) string {
	return "/uploads/" + name
}

type MinioStorageProvider struct {
	bucket string
	client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{bucket: cfg.MinioBucket, client: client}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.client.PutObject(ctx, p.bucket, name, reader, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return p.URL(name), nil
}

func (p *MinioStorageProvider) UploadFile(ctx context.Context, name string, localPath string, contentType string) (string, error) {
	_, err := p.client.FPutObject(ctx, p.bucket, name, localPath, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return p.URL(name), nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, name string) error {
	return p.client.RemoveObject(ctx, p.bucket, name, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) URL(name string) string {
	return "/" + p.bucket + "/" + name
}

type OSSStorageProvider struct {
	endpoint string
	bucket   *oss.Bucket
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, err
	}
	return &OSSStorageProvider{endpoint: cfg.OSSEndpoint, bucket: bucket}, nil
}

func (p *OSSStorageProvider) Upload(_ context.Context, name string, reader io.Reader, _ int64, contentType string) (string, error) {
	if err := p.bucket.PutObject(name, reader, oss.ContentType(contentType)); err != nil {
		return "", err
	}
	return p.URL(name), nil
}

func (p *OSSStorageProvider) UploadFile(_ context.Context, name string, localPath string, contentType string) (string, error) {
	if err := p.bucket.PutObjectFromFile(name, localPath, oss.ContentType(contentType)); err != nil {
		return "", err
	}
	return p.URL(name), nil
}

func (p *OSSStorageProvider) Delete(_ context.Context, name string) error {
	return p.bucket.DeleteObject(name)
}

func (p *OSSStorageProvider) URL(name string) string {
	return fmt.Sprintf("https://%s.%s/%s", p.bucket.BucketName, p.endpoint, name)
}

// StoredFile describes an uploaded object.
type StoredFile struct {
	URL         string          `json:"url"`
	Name        string          `json:"name"`
	ContentType string          `json:"contentType"`
	Size        int64           `json:"size"`
	Media       *util.MediaInfo `json:"media,omitempty"`
}

type StorageService struct {
	Provider StorageProvider
}

// NewStorageService picks the configured provider and falls back to local
// disk when the remote one cannot be built.
func NewStorageService(cfg *config.Config) *StorageService {
	var provider StorageProvider
	switch cfg.Storage.Type {
	case util.StorageMinio:
		p, err := NewMinioStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Error("minio storage unavailable, using local disk", zap.Error(err))
		} else {
			provider = p
		}
	case util.StorageOSS:
		p, err := NewOSSStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Error("oss storage unavailable, using local disk", zap.Error(err))
		} else {
			provider = p
		}
	}
	if provider == nil {
		provider = &LocalStorageProvider{Root: cfg.Storage.LocalPath}
	}
	return &StorageService{Provider: provider}
}

// Store uploads a multipart file under folder after sniffing its content
// type against allowed.
func (s *StorageService) Store(ctx context.Context, folder string, fh *multipart.FileHeader, allowed []string) (*StoredFile, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	contentType, err := util.ValidateMimeType(f, allowed)
	if err != nil {
		return nil, util.NewError(util.ErrValidation, err.Error())
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	name := util.ObjectName(folder, fh.Filename)
	if util.IsVideo(contentType) {
		return s.storeVideo(ctx, name, f, fh.Size, contentType)
	}

	url, err := s.Provider.Upload(ctx, name, f, fh.Size, contentType)
	if err != nil {
		return nil, err
	}
	return &StoredFile{URL: url, Name: name, ContentType: contentType, Size: fh.Size}, nil
}

// storeVideo spools the upload to a temp file so ffmpeg can read it. When the
// metadata cannot be read the file is stored without media info.
func (s *StorageService) storeVideo(ctx context.Context, name string, r io.Reader, size int64, contentType string) (*StoredFile, error) {
	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(name))
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	stored := &StoredFile{Name: name, ContentType: contentType, Size: size}
	if info, err := util.ReadMediaInfo(tmp.Name()); err != nil {
		logger.Log.Warn("video metadata unreadable", zap.String("object", name), zap.Error(err))
	} else {
		stored.Media = info
	}

	url, err := s.Provider.UploadFile(ctx, name, tmp.Name(), contentType)
	if err != nil {
		return nil, err
	}
	stored.URL = url
	return stored, nil
}

// Remove deletes the object behind a URL produced by this service.
func (s *StorageService) Remove(ctx context.Context, url string) {
	if url == "" {
		return
	}
	name := objectFromURL(url)
	if err := s.Provider.Delete(ctx, name); err != nil {
		logger.Log.Warn("failed to delete stored object", zap.String("object", name), zap.Error(err))
	}
}

// objectFromURL recovers the folder/name key, which always has exactly two
// path segments.
func objectFromURL(url string) string {
	parts := strings.Split(strings.TrimRight(url, "/"), "/")
	if len(parts) < 2 {
		return url
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1]
}
