// Package storage は服薬写真のオブジェクトストレージ（MinIO/S3互換）を提供する。
//
// 写真参照は "photos/<被介護者ID>/<UUID><拡張子>" 形式のオブジェクトキーで、
// サービス層からは不透明な文字列として扱われる。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// KeyPrefix はこのストレージが発行する写真参照の接頭辞。
const KeyPrefix = "photos/"

// ErrUnsupportedType は受け付けない画像形式を表す。
var ErrUnsupportedType = errors.New("unsupported photo content type")

// 受け付ける画像形式と保存時の拡張子。
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/heic": ".heic",
	"image/webp": ".webp",
}

// Options はMinIO接続設定。
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLTTL    time.Duration
}

// PhotoStore はMinIOに写真を保存し、閲覧用の署名付きURLを発行する。
type PhotoStore struct {
	client *minio.Client
	bucket string
	urlTTL time.Duration
}

// NewPhotoStore はMinIOに接続し、バケットが無ければ作成する。
func NewPhotoStore(ctx context.Context, opts Options) (*PhotoStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	ttl := opts.URLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &PhotoStore{client: client, bucket: opts.Bucket, urlTTL: ttl}, nil
}

// ObjectKey は被介護者ごとの新しい写真キーを生成する。
func ObjectKey(dependantID, contentType string) (string, error) {
	ext, ok := allowedTypes[normalizeContentType(contentType)]
	if !ok {
		return "", ErrUnsupportedType
	}
	return path.Join(KeyPrefix, dependantID, uuid.New().String()+ext), nil
}

func normalizeContentType(ct string) string {
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// Save は写真をアップロードし、写真参照を返す。
func (s *PhotoStore) Save(ctx context.Context, dependantID string, r io.Reader, size int64, contentType string) (string, error) {
	key, err := ObjectKey(dependantID, contentType)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: normalizeContentType(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return key, nil
}

// OwnsPath は写真参照がこのストレージのキーかを返す。
func (s *PhotoStore) OwnsPath(photoPath string) bool {
	return IsObjectKey(photoPath)
}

// IsObjectKey は写真参照がストレージのキー形式かを返す。
func IsObjectKey(photoPath string) bool {
	return strings.HasPrefix(photoPath, KeyPrefix) && !strings.Contains(photoPath, "..")
}

// KeyOwner は写真参照に含まれる被介護者IDを返す。
// このストレージの写真参照でない場合や、IDの区間が空の場合は false を返す。
func KeyOwner(photoPath string) (string, bool) {
	if !IsObjectKey(photoPath) {
		return "", false
	}
	owner, rest, ok := strings.Cut(strings.TrimPrefix(photoPath, KeyPrefix), "/")
	if !ok || owner == "" || rest == "" {
		return "", false
	}
	return owner, true
}

// PresignGet は写真参照に対する期限付きの取得URLを返す。
func (s *PhotoStore) PresignGet(ctx context.Context, photoPath string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, photoPath, s.urlTTL, nil)
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return u.String(), nil
}

// Ping はバケットに到達できるかを確認する。
func (s *PhotoStore) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	return nil
}
