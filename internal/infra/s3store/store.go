package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"thread-summary-bot/internal/domain"
	"thread-summary-bot/internal/infra/metrics"
)

const uploadedAtLayout = "2006-01-02T15:04:05.000Z07:00"

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store хранит документы в S3-бакете под общим префиксом.
type Store struct {
	api    objectAPI
	bucket string
	prefix string
	region string
	now    func() time.Time
}

var _ domain.ObjectStorage = (*Store)(nil)

// New создаёт хранилище поверх AWS-конфигурации.
func New(cfg aws.Config, bucket, prefix string) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("s3: bucket is empty")
	}
	return newStore(s3.NewFromConfig(cfg), bucket, prefix, cfg.Region), nil
}

func newStore(api objectAPI, bucket, prefix, region string) *Store {
	return &Store{api: api, bucket: bucket, prefix: prefix, region: region, now: time.Now}
}

// Put сохраняет объект и возвращает его https-локатор.
func (s *Store) Put(ctx context.Context, key, body, contentType string, metadata map[string]string) (string, error) {
	fullKey := s.prefix + key
	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = asciiValue(v)
	}
	meta["uploadedAt"] = s.now().UTC().Format(uploadedAtLayout)

	start := time.Now()
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(fullKey),
		Body:        strings.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata:    meta,
	})
	metrics.ObserveNetworkRequest("s3", "put_object", s.bucket, start, err)
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", fullKey, err)
	}
	return s.URL(key), nil
}

// Get читает объект целиком.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	fullKey := s.prefix + key
	start := time.Now()
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	metrics.ObserveNetworkRequest("s3", "get_object", s.bucket, start, err)
	if err != nil {
		return "", fmt.Errorf("s3 get %s: %w", fullKey, err)
	}
	if out.Body == nil {
		return "", fmt.Errorf("s3 get %s: пустое тело", fullKey)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("s3 read %s: %w", fullKey, err)
	}
	return string(data), nil
}

// URL возвращает https-адрес объекта в виртуальном стиле.
func (s *Store) URL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s%s", s.bucket, s.region, s.prefix, key)
}

// asciiValue кодирует значение, если в нём есть не-ASCII символы: S3 принимает только ASCII в user metadata.
func asciiValue(v string) string {
	for _, r := range v {
		if r > unicode.MaxASCII {
			return url.PathEscape(v)
		}
	}
	return v
}
