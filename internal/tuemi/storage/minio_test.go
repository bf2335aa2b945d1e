package storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/pkg/options"
)

func TestPresignedURLIsSignedLocally(t *testing.T) {
	opts := options.NewS3Options()
	opts.Enabled = true
	opts.AccessKeyID = "access"
	opts.SecretAccessKey = "secret"

	s, err := New(opts)
	require.NoError(t, err)
	require.IsType(t, &MinIO{}, s)

	raw, err := s.PresignedURL(context.Background(), "trips/t1/report.json", 15*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/tuemi-reports/trips/t1/report.json", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.Contains(t, u.Query().Get("response-content-disposition"), `filename="report.json"`)
}

func TestDisabledStorage(t *testing.T) {
	s, err := New(options.NewS3Options())
	require.NoError(t, err)

	assert.NoError(t, s.CheckBucket(context.Background()))
	assert.ErrorIs(t, s.PutJSON(context.Background(), "k", []byte("{}")), core.ErrUnavailable)
	_, err = s.PresignedURL(context.Background(), "k", time.Minute)
	assert.ErrorIs(t, err, core.ErrUnavailable)
}
