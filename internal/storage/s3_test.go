package storage

import (
	"context"
	"strings"
	"testing"
	"time"
)

func testStager(t *testing.T) *Stager {
	t.Helper()
	client, err := NewS3Client(context.Background(), ClientOptions{
		Endpoint:  "http://localhost:9000",
		Region:    "us-east-1",
		AccessKey: "access",
		SecretKey: "secret",
	})
	if err != nil {
		t.Fatalf("NewS3Client: %v", err)
	}
	return NewStager(client, "staging", 5*time.Minute)
}

func TestPresignURLs(t *testing.T) {
	s := testStager(t)
	key := UploadKey("user-1", "abc")
	if key != "uploads/user-1/abc" {
		t.Fatalf("unexpected key %q", key)
	}

	put, err := s.PresignPut(context.Background(), key, "image/png")
	if err != nil {
		t.Fatalf("PresignPut: %v", err)
	}
	if !strings.HasPrefix(put, "http://localhost:9000/staging/uploads/user-1/abc?") {
		t.Fatalf("unexpected PUT url %s", put)
	}
	if !strings.Contains(put, "X-Amz-Signature=") || !strings.Contains(put, "X-Amz-Expires=300") {
		t.Fatalf("PUT url is not signed for 5 minutes: %s", put)
	}

	get, err := s.PresignGet(context.Background(), key)
	if err != nil {
		t.Fatalf("PresignGet: %v", err)
	}
	if !strings.Contains(get, "/staging/uploads/user-1/abc?") {
		t.Fatalf("unexpected GET url %s", get)
	}
}
