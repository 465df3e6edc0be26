package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"

	"slidestudio/internal/metrics"
)

var (
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrMaliciousFile   = errors.New("malicious file detected")
	ErrEmptyFile       = errors.New("empty file")
)

// Kind 是媒体的大类，决定可以用作背景图片还是背景视频。
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

type format struct {
	mime string
	ext  string
	kind Kind
}

// 允许上传的格式，按内容嗅探而不是信任客户端的 Content-Type。
var formats = []format{
	{mime: "image/png", ext: ".png", kind: KindImage},
	{mime: "image/jpeg", ext: ".jpg", kind: KindImage},
	{mime: "image/webp", ext: ".webp", kind: KindImage},
	{mime: "image/gif", ext: ".gif", kind: KindImage},
	{mime: "video/mp4", ext: ".mp4", kind: KindVideo},
	{mime: "video/webm", ext: ".webm", kind: KindVideo},
}

// Sniff 识别数据的格式，不在白名单中时返回 ErrUnsupportedType。
func Sniff(data []byte) (mime, ext string, kind Kind, err error) {
	mt := mimetype.Detect(data)
	for _, f := range formats {
		if mt.Is(f.mime) {
			return f.mime, f.ext, f.kind, nil
		}
	}
	return "", "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
}

// Item 是媒体库中的一项（media_library）。
type Item struct {
	ID          uint      `json:"id"`
	Kind        Kind      `json:"kind"`
	FileName    string    `json:"file_name"`
	ObjectKey   string    `json:"object_key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  uint      `json:"uploaded_by"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

// ObjectStore 是对象存储协作方：上传文件并返回可公开访问的地址。
type ObjectStore interface {
	UploadFile(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	DeleteObject(ctx context.Context, objectKey string) error
	PublicURL(objectKey string) string
}

// Repository 保存媒体库记录。
type Repository interface {
	CreateMedia(ctx context.Context, it *Item) error
	GetMedia(ctx context.Context, id uint) (*Item, error)
	ListMedia(ctx context.Context, kind Kind, limit int) ([]Item, error)
	DeleteMedia(ctx context.Context, id uint) error
}

// Scanner 在上传前检查文件。
type Scanner interface {
	Scan(ctx context.Context, r io.Reader) error
}

// ClamdScanner 使用 clamd 扫描文件流。
type ClamdScanner struct {
	addr string
}

func NewClamdScanner(addr string) *ClamdScanner {
	return &ClamdScanner{addr: addr}
}

func (s *ClamdScanner) Scan(ctx context.Context, r io.Reader) error {
	client := clamd.NewClamd(s.addr)
	abort := make(chan bool)
	defer close(abort)

	results, err := client.ScanStream(r, abort)
	if err != nil {
		return fmt.Errorf("scan stream: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case result, ok := <-results:
			if !ok {
				return nil
			}
			switch result.Status {
			case clamd.RES_OK:
			case clamd.RES_FOUND:
				return fmt.Errorf("%w: %s", ErrMaliciousFile, result.Description)
			default:
				return fmt.Errorf("scan failed: %s %s", result.Status, result.Description)
			}
		}
	}
}

// Upload 是一次上传请求。
type Upload struct {
	UserID   uint
	FileName string
	Size     int64
	Body     io.Reader
}

// Service 负责媒体库上传、列举与删除。
type Service struct {
	store    ObjectStore
	repo     Repository
	scanner  Scanner
	maxBytes int64
	logger   *slog.Logger
}

// NewService 构造服务；scanner 为 nil 时跳过病毒扫描。
func NewService(store ObjectStore, repo Repository, scanner Scanner, maxBytes int64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, repo: repo, scanner: scanner, maxBytes: maxBytes, logger: logger}
}

func (s *Service) MaxBytes() int64 { return s.maxBytes }

// Upload 校验大小与格式、扫描后上传，并写入媒体库。任何校验失败都发生在上传之前。
func (s *Service) Upload(ctx context.Context, up Upload) (*Item, error) {
	item, err := s.upload(ctx, up)
	switch {
	case err == nil:
		metrics.ObserveUpload("ok")
	case errors.Is(err, ErrUnsupportedType), errors.Is(err, ErrFileTooLarge), errors.Is(err, ErrEmptyFile), errors.Is(err, ErrMaliciousFile):
		metrics.ObserveUpload("rejected")
	default:
		metrics.ObserveUpload("failed")
	}
	return item, err
}

func (s *Service) upload(ctx context.Context, up Upload) (*Item, error) {
	if s.maxBytes > 0 && up.Size > s.maxBytes {
		return nil, ErrFileTooLarge
	}
	limit := s.maxBytes
	if limit <= 0 {
		limit = 1 << 30
	}
	data, err := io.ReadAll(io.LimitReader(up.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	mime, ext, kind, err := Sniff(data)
	if err != nil {
		return nil, err
	}

	if s.scanner != nil {
		if err := s.scanner.Scan(ctx, bytes.NewReader(data)); err != nil {
			return nil, err
		}
	}

	key := fmt.Sprintf("media/%s/%s%s", kind, strings.ToLower(ulid.Make().String()), ext)
	if err := s.store.UploadFile(ctx, key, bytes.NewReader(data), int64(len(data)), mime); err != nil {
		return nil, err
	}

	item := &Item{
		Kind:        kind,
		FileName:    cleanFileName(up.FileName),
		ObjectKey:   key,
		ContentType: mime,
		Size:        int64(len(data)),
		UploadedBy:  up.UserID,
	}
	if err := s.repo.CreateMedia(ctx, item); err != nil {
		if delErr := s.store.DeleteObject(ctx, key); delErr != nil {
			s.logger.Error("cleanup uploaded object failed", slog.String("object_key", key), slog.Any("error", delErr))
		}
		return nil, fmt.Errorf("create media record: %w", err)
	}
	item.URL = s.store.PublicURL(key)

	s.logger.Info("media uploaded",
		slog.Uint64("media_id", uint64(item.ID)),
		slog.String("object_key", key),
		slog.Int64("size", item.Size),
	)
	return item, nil
}

func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}

// List 列出媒体，kind 为空时返回全部。
func (s *Service) List(ctx context.Context, kind Kind, limit int) ([]Item, error) {
	if limit <= 0 || limit > 200 {
		limit = 60
	}
	items, err := s.repo.ListMedia(ctx, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	for i := range items {
		items[i].URL = s.store.PublicURL(items[i].ObjectKey)
	}
	return items, nil
}

// ResolveURL 返回媒体的公开地址，用于 background_media_id 的渲染。
func (s *Service) ResolveURL(ctx context.Context, id uint) (string, error) {
	item, err := s.repo.GetMedia(ctx, id)
	if err != nil {
		return "", err
	}
	return s.store.PublicURL(item.ObjectKey), nil
}

// Delete 删除对象与记录。
func (s *Service) Delete(ctx context.Context, id uint) error {
	item, err := s.repo.GetMedia(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteObject(ctx, item.ObjectKey); err != nil {
		return err
	}
	return s.repo.DeleteMedia(ctx, id)
}
