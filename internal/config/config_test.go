package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, configFile string) *viper.Viper {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	v := viper.New()
	Init(v, configFile)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "accreditation", cfg.MongoDatabase)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 72*time.Hour, cfg.RedisTTL)
	assert.True(t, cfg.StrictCatalog)
	assert.Equal(t, 15*time.Second, cfg.SubmitTimeout)
	assert.Equal(t, uint64(3), cfg.SubmitRetries)
	assert.Equal(t, int64(10), cfg.UploadMaxSizeMB)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Environment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ACCRED_HTTP_PORT", "9090")
	t.Setenv("ACCRED_REDIS_TTL", "2h")
	t.Setenv("ACCRED_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ACCRED_STRICT_CATALOG", "false")

	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 2*time.Hour, cfg.RedisTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.StrictCatalog)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accreditation.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http-port: 7070
mongo-database: accreditation_test
upload-allowed-types:
  - application/pdf
submit-retries: 5
`), 0o600))

	cfg, err := Load(newViper(t, path))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.HTTPPort)
	assert.Equal(t, "accreditation_test", cfg.MongoDatabase)
	assert.Equal(t, []string{"application/pdf"}, cfg.UploadAllowedTypes)
	assert.Equal(t, uint64(5), cfg.SubmitRetries)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"ACCRED_HTTP_PORT", "0", "http-port"},
		{"ACCRED_REDIS_TTL", "-1s", "redis-ttl"},
		{"ACCRED_SUBMIT_TIMEOUT", "0s", "submit-timeout"},
		{"ACCRED_UPLOAD_MAX_SIZE_MB", "0", "upload-max-size-mb"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.value)
			_, err := Load(newViper(t, ""))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_BrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accreditation.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http-port: [\n"), 0o600))
	_, err := Load(newViper(t, path))
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test,
// matching testing.T.Chdir (Go 1.24+) on older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
