package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:4567", c.HTTPAddr)
	assert.Equal(t, 10, c.BcryptCost)
	assert.Equal(t, 5*time.Second, c.HashTimeout)
	assert.Equal(t, 30*time.Second, c.UploadTimeout)
	assert.Equal(t, int64(10*1024*1024), c.MaxUploadBytes)
	assert.Equal(t, []string{"*"}, c.CORSOrigins)
	assert.Equal(t, "disk", c.BlobBackend)
	assert.Equal(t, "profilePics", c.UploadDir)
	assert.Equal(t, "us-east-1", c.S3Region)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("UPLOAD_TIMEOUT", "1m")
	t.Setenv("CORS_ORIGINS", "http://a.example,http://b.example")
	t.Setenv("BLOB_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "pics")
	t.Setenv("S3_ENDPOINT", "http://127.0.0.1:9000")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", c.HTTPAddr)
	assert.Equal(t, 12, c.BcryptCost)
	assert.Equal(t, time.Minute, c.UploadTimeout)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, c.CORSOrigins)

	b := c.Blob()
	assert.Equal(t, "s3", b.Backend)
	assert.Equal(t, "pics", b.S3Bucket)
	assert.Equal(t, "http://127.0.0.1:9000", b.S3Endpoint)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("HASH_TIMEOUT", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	base := Config{JWTSecret: "x", BcryptCost: 10, HashTimeout: time.Second, UploadTimeout: time.Second, MaxUploadBytes: 1}
	require.NoError(t, base.Validate())

	c := base
	c.BcryptCost = 3
	assert.Error(t, c.Validate())

	c = base
	c.HashTimeout = 0
	assert.Error(t, c.Validate())

	c = base
	c.MaxUploadBytes = 0
	assert.Error(t, c.Validate())
}
