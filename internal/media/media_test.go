package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectStore struct {
	objects map[string][]byte
	deleted []string
	failPut bool
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (f *fakeObjectStore) UploadFile(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if f.failPut {
		return errors.New("minio unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStore) DeleteObject(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjectStore) PublicURL(key string) string {
	return "http://cdn.test/slides/" + key
}

type fakeRepo struct {
	items   map[uint]Item
	nextID  uint
	failAdd bool
}

func newFakeRepo() *fakeRepo { return &fakeRepo{items: map[uint]Item{}} }

func (r *fakeRepo) CreateMedia(_ context.Context, it *Item) error {
	if r.failAdd {
		return errors.New("db down")
	}
	r.nextID++
	it.ID = r.nextID
	r.items[it.ID] = *it
	return nil
}

func (r *fakeRepo) GetMedia(_ context.Context, id uint) (*Item, error) {
	it, ok := r.items[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &it, nil
}

func (r *fakeRepo) ListMedia(_ context.Context, kind Kind, _ int) ([]Item, error) {
	var out []Item
	for _, it := range r.items {
		if kind == "" || it.Kind == kind {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *fakeRepo) DeleteMedia(_ context.Context, id uint) error {
	delete(r.items, id)
	return nil
}

type rejectScanner struct{}

func (rejectScanner) Scan(context.Context, io.Reader) error {
	return ErrMaliciousFile
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSniff(t *testing.T) {
	mime, ext, kind, err := Sniff(pngBytes(t))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, ".png", ext)
	assert.Equal(t, KindImage, kind)

	_, _, _, err = Sniff([]byte("<html><body>hi</body></html>"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestUploadStoresObjectAndRecord(t *testing.T) {
	store := newFakeObjectStore()
	repo := newFakeRepo()
	svc := NewService(store, repo, nil, 1<<20, nil)

	data := pngBytes(t)
	item, err := svc.Upload(context.Background(), Upload{UserID: 7, FileName: "../../choir.png", Size: int64(len(data)), Body: bytes.NewReader(data)})
	require.NoError(t, err)

	assert.Equal(t, uint(1), item.ID)
	assert.Equal(t, "choir.png", item.FileName)
	assert.True(t, strings.HasPrefix(item.ObjectKey, "media/image/"))
	assert.True(t, strings.HasSuffix(item.ObjectKey, ".png"))
	assert.Equal(t, "http://cdn.test/slides/"+item.ObjectKey, item.URL)
	assert.Equal(t, data, store.objects[item.ObjectKey])

	url, err := svc.ResolveURL(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.URL, url)
}

func TestUploadRejectsBeforeStoring(t *testing.T) {
	data := pngBytes(t)
	cases := []struct {
		name    string
		svc     func(*fakeObjectStore, *fakeRepo) *Service
		body    []byte
		size    int64
		wantErr error
	}{
		{
			name:    "declared size too large",
			svc:     func(s *fakeObjectStore, r *fakeRepo) *Service { return NewService(s, r, nil, 10, nil) },
			body:    data,
			size:    int64(len(data)),
			wantErr: ErrFileTooLarge,
		},
		{
			name:    "actual size too large",
			svc:     func(s *fakeObjectStore, r *fakeRepo) *Service { return NewService(s, r, nil, 10, nil) },
			body:    data,
			size:    0,
			wantErr: ErrFileTooLarge,
		},
		{
			name:    "unsupported type",
			svc:     func(s *fakeObjectStore, r *fakeRepo) *Service { return NewService(s, r, nil, 1<<20, nil) },
			body:    []byte("%PDF-1.4 fake"),
			wantErr: ErrUnsupportedType,
		},
		{
			name:    "empty",
			svc:     func(s *fakeObjectStore, r *fakeRepo) *Service { return NewService(s, r, nil, 1<<20, nil) },
			body:    nil,
			wantErr: ErrEmptyFile,
		},
		{
			name:    "infected",
			svc:     func(s *fakeObjectStore, r *fakeRepo) *Service { return NewService(s, r, rejectScanner{}, 1<<20, nil) },
			body:    data,
			wantErr: ErrMaliciousFile,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeObjectStore()
			repo := newFakeRepo()
			_, err := tc.svc(store, repo).Upload(context.Background(), Upload{Size: tc.size, Body: bytes.NewReader(tc.body)})
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Empty(t, store.objects)
			assert.Empty(t, repo.items)
		})
	}
}

func TestUploadCleansUpWhenRecordFails(t *testing.T) {
	store := newFakeObjectStore()
	repo := newFakeRepo()
	repo.failAdd = true
	svc := NewService(store, repo, nil, 1<<20, nil)

	data := pngBytes(t)
	_, err := svc.Upload(context.Background(), Upload{Body: bytes.NewReader(data)})
	require.Error(t, err)
	assert.Empty(t, store.objects)
	assert.Len(t, store.deleted, 1)
}

func TestListAndDelete(t *testing.T) {
	store := newFakeObjectStore()
	repo := newFakeRepo()
	svc := NewService(store, repo, nil, 1<<20, nil)
	data := pngBytes(t)

	item, err := svc.Upload(context.Background(), Upload{Body: bytes.NewReader(data)})
	require.NoError(t, err)

	images, err := svc.List(context.Background(), KindImage, 0)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.NotEmpty(t, images[0].URL)

	videos, err := svc.List(context.Background(), KindVideo, 0)
	require.NoError(t, err)
	assert.Empty(t, videos)

	require.NoError(t, svc.Delete(context.Background(), item.ID))
	assert.Empty(t, store.objects)
	assert.Empty(t, repo.items)
}
