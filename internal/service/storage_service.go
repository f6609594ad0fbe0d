package service

import (
	"context"
	"memeup_backend/internal/config"
	"memeup_backend/internal/util"
	"memeup_backend/pkg/logger"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageProvider 把题目中保存的对象路径转换为客户端可访问的 URL
type StorageProvider interface {
	GetURL(ctx context.Context, object string) (string, error)
}

// LocalStorageProvider 本地存储，由 /uploads 静态路由提供
type LocalStorageProvider struct {
	Config *config.StorageConfig
}

func (p *LocalStorageProvider) GetURL(ctx context.Context, object string) (string, error) {
	return "/uploads/" + object, nil
}

// MinioStorageProvider MinIO 预签名下载地址
type MinioStorageProvider struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioSecure,
		// 指定 region 后签名不需要再请求 bucket location
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Config: cfg, Client: client}, nil
}

func (p *MinioStorageProvider) GetURL(ctx context.Context, object string) (string, error) {
	u, err := p.Client.PresignedGetObject(ctx, p.Config.MinioBucket, object, urlExpiry(p.Config), nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// OSSStorageProvider 阿里云OSS签名地址
type OSSStorageProvider struct {
	Config *config.StorageConfig
	Client *oss.Client
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSStorageProvider{Config: cfg, Client: client}, nil
}

func (p *OSSStorageProvider) GetURL(ctx context.Context, object string) (string, error) {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return "", err
	}
	return bucket.SignURL(object, oss.HTTPGet, int64(urlExpiry(p.Config).Seconds()))
}

func urlExpiry(cfg *config.StorageConfig) time.Duration {
	if cfg.URLExpiryMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(cfg.URLExpiryMinutes) * time.Minute
}

// StorageService 媒体地址解析
type StorageService struct {
	Provider StorageProvider
}

func NewStorageService(cfg *config.Config) *StorageService {
	var provider StorageProvider
	switch cfg.Storage.Type {
	case util.StorageMinio:
		p, err := NewMinioStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Warn("Failed to init minio provider, falling back to local", zap.Error(err))
		} else {
			provider = p
		}
	case util.StorageOSS:
		p, err := NewOSSStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Warn("Failed to init oss provider, falling back to local", zap.Error(err))
		} else {
			provider = p
		}
	}

	if provider == nil {
		provider = &LocalStorageProvider{Config: &cfg.Storage}
	}

	return &StorageService{Provider: provider}
}

// ResolveURL 空值原样返回，绝对地址直接透传；签名失败只记录日志并返回空地址
func (s *StorageService) ResolveURL(ctx context.Context, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "/uploads/") {
		return ref
	}
	if s == nil || s.Provider == nil {
		return "/uploads/" + strings.TrimPrefix(ref, "/")
	}
	u, err := s.Provider.GetURL(ctx, strings.TrimPrefix(ref, "/"))
	if err != nil {
		logger.Log.Warn("Failed to resolve media url", zap.String("object", ref), zap.Error(err))
		return ""
	}
	return u
}

