package blob

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"ada.jpg":          "ada.jpg",
		"my photo.png":     "my_photo.png",
		"../../etc/passwd": "passwd",
		`C:\pics\me.gif`:   "me.gif",
		".hidden":          "hidden",
		"ünï©ødé":          "nd",
		"":                 "upload",
		"///":              "upload",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanName(in), in)
	}
}

func TestStoredName_ExtensionFollowsType(t *testing.T) {
	tests := []struct {
		name, contentType, want string
	}{
		{"ada.jpg", "image/jpeg", "ada.jpg"},
		{"evil.html", "image/png", "evil.png"},
		{"evil.html", "IMAGE/PNG; charset=utf-8", "evil.png"},
		{"logo.svg", "image/svg+xml", "logo.bin"},
		{"photo", "image/webp", "photo.webp"},
		{".png", "image/gif", "png.gif"},
		{"x.png", "", "x.bin"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, storedName(tt.name, tt.contentType), tt.name+" "+tt.contentType)
	}
}

func TestServedType(t *testing.T) {
	ct, inline := ServedType("abc_ada.JPG")
	assert.Equal(t, "image/jpeg", ct)
	assert.True(t, inline)

	for _, name := range []string{"abc_evil.html", "logo.svg", "x.bin", "noext"} {
		ct, inline := ServedType(name)
		assert.Equal(t, "application/octet-stream", ct, name)
		assert.False(t, inline, name)
	}
}

func TestDiskStore_PutAndDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profilePics")
	s, err := NewDiskStore(dir, "http://localhost:4567/")
	require.NoError(t, err)
	assert.DirExists(t, dir)

	url, err := s.Put(context.Background(), Object{
		Name: "ada.jpg", ContentType: "image/jpeg", Size: 5, Body: strings.NewReader("hello"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:4567/profilePics/"), url)
	assert.True(t, strings.HasSuffix(url, "_ada.jpg"), url)

	name := strings.TrimPrefix(url, "http://localhost:4567/profilePics/")
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, s.Delete(context.Background(), url))
	assert.NoFileExists(t, filepath.Join(dir, name))

	// deleting twice is fine
	require.NoError(t, s.Delete(context.Background(), url))
}

func TestDiskStore_DistinctNames(t *testing.T) {
	s, err := NewDiskStore(t.TempDir(), "")
	require.NoError(t, err)

	a, err := s.Put(context.Background(), Object{Name: "x.png", Body: strings.NewReader("a")})
	require.NoError(t, err)
	b, err := s.Put(context.Background(), Object{Name: "x.png", Body: strings.NewReader("b")})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, PublicPrefix))
}

func TestDiskStore_DeleteRejectsForeignURLs(t *testing.T) {
	s, err := NewDiskStore(t.TempDir(), "")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Delete(context.Background(), "https://elsewhere/x.png"), ErrNotOwned)
	assert.ErrorIs(t, s.Delete(context.Background(), PublicPrefix+"../secret"), ErrNotOwned)
	assert.ErrorIs(t, s.Delete(context.Background(), PublicPrefix), ErrNotOwned)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk full") }

func TestDiskStore_FailedWriteLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStore(dir, "")
	require.NoError(t, err)

	_, err = s.Put(context.Background(), Object{Name: "x.png", Body: failingReader{}})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiskStore_CanceledContext(t *testing.T) {
	s, err := NewDiskStore(t.TempDir(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Put(ctx, Object{Name: "x.png", Body: strings.NewReader("a")})
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
	body    string
	putErr  error
	delErr  error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, in)
	return &s3.DeleteObjectOutput{}, f.delErr
}

func TestS3Store_PutAndDelete(t *testing.T) {
	fake := &fakeS3{}
	s := &S3Store{
		client:  fake,
		bucket:  "members",
		baseURL: "https://cdn.example.com",
		now:     func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) },
	}

	url, err := s.Put(context.Background(), Object{
		Name: "Ada.JPG", ContentType: "image/jpeg", Size: 5, Body: strings.NewReader("hello"),
	})
	require.NoError(t, err)
	require.Len(t, fake.puts, 1)

	in := fake.puts[0]
	assert.Equal(t, "members", aws.ToString(in.Bucket))
	assert.Equal(t, "image/jpeg", aws.ToString(in.ContentType))
	assert.Equal(t, int64(5), aws.ToInt64(in.ContentLength))
	assert.True(t, strings.HasPrefix(aws.ToString(in.Key), "profilePics/2026/10/15/"), aws.ToString(in.Key))
	assert.True(t, strings.HasSuffix(aws.ToString(in.Key), ".jpg"))
	assert.Equal(t, "hello", fake.body)
	assert.Equal(t, "https://cdn.example.com/"+aws.ToString(in.Key), url)

	require.NoError(t, s.Delete(context.Background(), url))
	require.Len(t, fake.deletes, 1)
	assert.Equal(t, aws.ToString(in.Key), aws.ToString(fake.deletes[0].Key))

	assert.ErrorIs(t, s.Delete(context.Background(), "https://other/x"), ErrNotOwned)
}

func TestS3Store_NonRasterIsAttachment(t *testing.T) {
	fake := &fakeS3{}
	s := &S3Store{client: fake, bucket: "b", baseURL: "https://x", now: time.Now}

	_, err := s.Put(context.Background(), Object{Name: "logo.html", ContentType: "image/svg+xml", Body: strings.NewReader("<svg/>")})
	require.NoError(t, err)
	require.Len(t, fake.puts, 1)
	in := fake.puts[0]
	assert.True(t, strings.HasSuffix(aws.ToString(in.Key), ".bin"), aws.ToString(in.Key))
	assert.Equal(t, "application/octet-stream", aws.ToString(in.ContentType))
	assert.Equal(t, "attachment", aws.ToString(in.ContentDisposition))
}

func TestS3Store_PutError(t *testing.T) {
	s := &S3Store{client: &fakeS3{putErr: errors.New("boom")}, bucket: "b", baseURL: "https://x", now: time.Now}
	_, err := s.Put(context.Background(), Object{Name: "a.png", Body: strings.NewReader("a")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com", publicBaseURL(Config{S3PublicURL: "https://cdn.example.com/"}))
	assert.Equal(t, "http://127.0.0.1:9000/pics", publicBaseURL(Config{S3Endpoint: "http://127.0.0.1:9000/", S3Bucket: "pics"}))
	assert.Equal(t, "https://pics.s3.us-east-1.amazonaws.com", publicBaseURL(Config{S3Bucket: "pics", S3Region: "us-east-1"}))
}

func TestNewS3Store_UsesEndpoint(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	defer func() { loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew }()

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{Region: "us-east-1"}, nil
	}
	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &fakeS3{}
	}

	s, err := NewS3Store(context.Background(), Config{
		S3Bucket: "pics", S3Region: "us-east-1", S3Endpoint: "http://minio:9000",
		S3AccessKey: "admin", S3SecretKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "http://minio:9000/pics", s.baseURL)
}

func TestNewS3Store_Errors(t *testing.T) {
	_, err := NewS3Store(context.Background(), Config{})
	require.Error(t, err)

	origLoad := loadDefaultAWSConfig
	defer func() { loadDefaultAWSConfig = origLoad }()
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no creds")
	}
	_, err = NewS3Store(context.Background(), Config{S3Bucket: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no creds")
}

func TestNew_SelectsBackend(t *testing.T) {
	s, err := New(context.Background(), Config{Backend: "disk", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &DiskStore{}, s)

	_, err = New(context.Background(), Config{Backend: "ftp"})
	require.Error(t, err)
}
