package plugins

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/breeew/otterly-api/internal/core"
	"github.com/breeew/otterly-api/pkg/object-storage/s3"
)

type ObjectStorageDriver struct {
	StaticDomain string    `toml:"static_domain"`
	Driver       string    `toml:"driver"` // default: none
	LocalRoot    string    `toml:"local_root"`
	S3           *S3Config `toml:"s3"`
}

type S3Config struct {
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

var ErrStorageUnsupported = fmt.Errorf("Unsupported")

func SetupObjectStorage(cfg ObjectStorageDriver) core.FileStorage {
	switch strings.ToLower(cfg.Driver) {
	case "s3":
		if cfg.S3 == nil {
			return &NoneFileStorage{}
		}
		s3Cfg := cfg.S3
		return &S3FileStorage{
			StaticDomain: cfg.StaticDomain,
			S3:           s3.NewS3Client(s3Cfg.Endpoint, s3Cfg.Region, s3Cfg.Bucket, s3Cfg.AccessKey, s3Cfg.SecretKey),
		}
	case "local":
		root := cfg.LocalRoot
		if root == "" {
			root = "./data"
		}
		return &LocalFileStorage{
			StaticDomain: cfg.StaticDomain,
			Root:         root,
		}
	default:
		return &NoneFileStorage{}
	}
}

type NoneFileStorage struct{}

func (*NoneFileStorage) GetStaticDomain() string {
	return ""
}

func (*NoneFileStorage) GenGetObjectPreSignURL(string) (string, error) {
	return "", ErrStorageUnsupported
}

func (*NoneFileStorage) SaveFile(string, string, []byte) error {
	return ErrStorageUnsupported
}

func (*NoneFileStorage) DeleteFile(string) error {
	return ErrStorageUnsupported
}

// LocalFileStorage writes below Root, the relative path doubles as the public path.
type LocalFileStorage struct {
	StaticDomain string
	Root         string
}

func (lfs *LocalFileStorage) GetStaticDomain() string {
	return lfs.StaticDomain
}

func (lfs *LocalFileStorage) SaveFile(filePath, fileName string, content []byte) error {
	dir := filepath.Join(lfs.Root, filepath.Clean("/"+filePath))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, fileName), content, 0644); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func (lfs *LocalFileStorage) DeleteFile(fullFilePath string) error {
	if err := os.Remove(filepath.Join(lfs.Root, filepath.Clean("/"+fullFilePath))); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (lfs *LocalFileStorage) GenGetObjectPreSignURL(fullFilePath string) (string, error) {
	if lfs.StaticDomain == "" {
		return fullFilePath, nil
	}
	return url.JoinPath(lfs.StaticDomain, fullFilePath)
}

type S3FileStorage struct {
	StaticDomain string
	*s3.S3
}

func (fs *S3FileStorage) GetStaticDomain() string {
	return fs.StaticDomain
}

func (fs *S3FileStorage) SaveFile(filePath, fileName string, content []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return fs.Upload(ctx, filePath, fileName, contentTypeOf(fileName), bytes.NewReader(content))
}

func (fs *S3FileStorage) DeleteFile(fullFilePath string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	return fs.Delete(ctx, fullFilePath)
}

func (fs *S3FileStorage) GenGetObjectPreSignURL(fullFilePath string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	return fs.S3.GenGetObjectPreSignURL(ctx, strings.TrimPrefix(fullFilePath, fs.GetStaticDomain()), time.Minute*10)
}

func contentTypeOf(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".json":
		return "application/json"
	default:
		return ""
	}
}
