package recordings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/go-cmp/cmp"

	"github.com/alfredjeanlab/somno/internal/model"
)

const listBucketXML = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>psg</Name>
  <Prefix>telemetry/</Prefix>
  <KeyCount>4</KeyCount>
  <MaxKeys>1000</MaxKeys>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>telemetry/ST7022J0-PSG.edf</Key><LastModified>2024-05-01T10:00:00.000Z</LastModified><Size>2048</Size></Contents>
  <Contents><Key>telemetry/ST7011J0-PSG.edf</Key><LastModified>2024-05-01T09:00:00.000Z</LastModified><Size>1024</Size></Contents>
  <Contents><Key>telemetry/ST7011JP-Hypnogram.edf</Key><LastModified>2024-05-01T09:00:00.000Z</LastModified><Size>64</Size></Contents>
  <Contents><Key>telemetry/archive/ST7099J0-PSG.edf</Key><LastModified>2024-05-01T09:00:00.000Z</LastModified><Size>8</Size></Contents>
</ListBucketResult>`

const noSuchKeyXML = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`

// fakeS3 serves a path-style bucket named "psg".
func fakeS3(t *testing.T, objects map[string]string) *S3Source {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimSuffix(r.URL.Path, "/")
		if path == "/psg" && r.URL.Query().Get("list-type") == "2" {
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprint(w, listBucketXML)
			return
		}
		if body, ok := objects[strings.TrimPrefix(path, "/psg/")]; ok {
			w.Header().Set("Content-Type", "application/octet-stream")
			fmt.Fprint(w, body)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, noSuchKeyXML)
	}))
	t.Cleanup(srv.Close)

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
		Credentials:  aws.AnonymousCredentials{},
	})
	src, err := newS3Source(client, S3Config{Bucket: "psg", Prefix: "telemetry/"})
	if err != nil {
		t.Fatalf("newS3Source: %v", err)
	}
	return src
}

func TestS3Source_List(t *testing.T) {
	src := fakeS3(t, nil)

	recs, err := src.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []model.Recording{
		{Name: "ST7011J0-PSG.edf", Size: 1024, ModTime: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), Source: "s3"},
		{Name: "ST7022J0-PSG.edf", Size: 2048, ModTime: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), Source: "s3"},
	}
	if diff := cmp.Diff(want, recs); diff != "" {
		t.Errorf("recordings mismatch (-want +got):\n%s", diff)
	}
}

func TestS3Source_Open(t *testing.T) {
	src := fakeS3(t, map[string]string{"telemetry/ST7011J0-PSG.edf": "0       header"})

	rc, err := src.Open(context.Background(), "ST7011J0-PSG.edf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "0       header" {
		t.Errorf("body = %q", data)
	}

	if _, err := src.Open(context.Background(), "ST7999J0-PSG.edf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: err = %v, want ErrNotFound", err)
	}
	if _, err := src.Open(context.Background(), "../secret"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("invalid: err = %v, want ErrInvalidName", err)
	}
	if _, err := src.Open(context.Background(), "ST7011JP-Hypnogram.edf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("outside pattern: err = %v, want ErrNotFound", err)
	}
}

func TestNewS3Source_RequiresBucket(t *testing.T) {
	if _, err := newS3Source(s3.New(s3.Options{Region: "us-east-1"}), S3Config{}); err == nil {
		t.Error("expected error without bucket")
	}
}
