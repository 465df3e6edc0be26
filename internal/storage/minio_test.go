package storage

import (
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestPublicURL(t *testing.T) {
	base, _ := url.Parse("https://cdn.example.org")
	got := PublicURL(base, "slides", "media/image/01J.png")
	if got != "https://cdn.example.org/slides/media/image/01J.png" {
		t.Fatalf("unexpected url %q", got)
	}

	base, _ = url.Parse("http://localhost:9000/storage")
	got = PublicURL(base, "slides", "thumbnails/designs/4/preview.jpg")
	if got != "http://localhost:9000/storage/slides/thumbnails/designs/4/preview.jpg" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestIsNoSuchKey(t *testing.T) {
	if IsNoSuchKey(nil) {
		t.Fatal("nil is not a missing key")
	}
	wrapped := fmt.Errorf("remove: %w", minio.ErrorResponse{Code: "NoSuchKey"})
	if !IsNoSuchKey(wrapped) {
		t.Fatal("expected NoSuchKey to be detected through wrapping")
	}
	if IsNoSuchKey(errors.New("access denied")) {
		t.Fatal("access denied is not a missing key")
	}
}
