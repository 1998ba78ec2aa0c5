package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	m.types[*input.Key] = *input.ContentType
	return &s3.PutObjectOutput{}, nil
}

func TestS3UploadImage(t *testing.T) {
	mock := newMockS3()
	u := &S3Uploader{
		cfg:    S3Config{Endpoint: "http://minio:9000", Bucket: "daybreak"},
		client: mock,
		logger: slog.Default(),
	}

	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F'}
	url, err := u.UploadImage(context.Background(), jpeg, "/posts/3/2024-01-02/abc.jpg")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if want := "http://minio:9000/daybreak/posts/3/2024-01-02/abc.jpg"; url != want {
		t.Errorf("url = %q, want %q", url, want)
	}
	got, ok := mock.objects["posts/3/2024-01-02/abc.jpg"]
	if !ok || !bytes.Equal(got, jpeg) {
		t.Fatalf("stored object = %v, want %v", got, jpeg)
	}
	if ct := mock.types["posts/3/2024-01-02/abc.jpg"]; ct != "image/jpeg" {
		t.Errorf("content type = %q, want image/jpeg", ct)
	}
}

func TestS3UploadError(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("access denied")
	u := &S3Uploader{cfg: S3Config{Bucket: "b"}, client: mock, logger: slog.Default()}

	if _, err := u.UploadImage(context.Background(), []byte("x"), "a.jpg"); err == nil {
		t.Fatal("expected error")
	}
}

func TestS3URL(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
		want string
	}{
		{"public url", S3Config{PublicURL: "https://cdn.example.com/", Bucket: "b"}, "https://cdn.example.com/k.jpg"},
		{"custom endpoint", S3Config{Endpoint: "http://localhost:9000/", Bucket: "b"}, "http://localhost:9000/b/k.jpg"},
		{"aws", S3Config{Region: "us-east-1", Bucket: "b"}, "https://s3.us-east-1.amazonaws.com/b/k.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &S3Uploader{cfg: tt.cfg}
			if got := u.URL("k.jpg"); got != tt.want {
				t.Errorf("URL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestS3ConfigEnabled(t *testing.T) {
	if (S3Config{Bucket: "b"}).Enabled() {
		t.Error("expected disabled without credentials")
	}
	if !(S3Config{Bucket: "b", AccessKey: "a", SecretKey: "s"}).Enabled() {
		t.Error("expected enabled")
	}
}

func TestDiskUploadImage(t *testing.T) {
	dir := t.TempDir()
	d := &DiskUploader{Dir: dir, BaseURL: "http://localhost:8080/uploads/"}

	url, err := d.UploadImage(context.Background(), []byte("img"), "posts/1/2024-01-02/x.jpg")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if want := "http://localhost:8080/uploads/posts/1/2024-01-02/x.jpg"; url != want {
		t.Errorf("url = %q, want %q", url, want)
	}
	data, err := os.ReadFile(filepath.Join(dir, "posts", "1", "2024-01-02", "x.jpg"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "img" {
		t.Errorf("data = %q", data)
	}
}
