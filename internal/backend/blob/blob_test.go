package blob_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/fieldwork/internal/backend/blob"
	"github.com/slok/fieldwork/internal/model"
)

func TestFSStoreUpload(t *testing.T) {
	tests := map[string]struct {
		key    string
		expErr error
	}{
		"A nested key should be stored on its directory.": {
			key: "jobs/job-1/signatures/customer_w1_1.png",
		},
		"A key escaping the store should fail.": {
			key:    "../../etc/passwd",
			expErr: model.ErrNotValid,
		},
		"An empty key should fail.": {
			key:    "",
			expErr: model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			s, err := blob.NewFSStore(blob.FSStoreConfig{Dir: t.TempDir()})
			require.NoError(err)

			gotURL, err := s.Upload(context.Background(), test.key, "image/png", strings.NewReader("png-data"))
			if test.expErr != nil {
				assert.True(errors.Is(err, test.expErr), "got %v", err)
				return
			}
			require.NoError(err)

			u, err := url.Parse(gotURL)
			require.NoError(err)
			assert.Equal("file", u.Scheme)
			assert.True(strings.HasSuffix(u.Path, test.key))

			data, err := os.ReadFile(u.Path)
			require.NoError(err)
			assert.Equal("png-data", string(data))
		})
	}
}

type fakeUploader struct {
	input *s3manager.UploadInput
	body  []byte
	err   error
}

func (f *fakeUploader) Upload(in *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	return f.UploadWithContext(context.Background(), in, opts...)
}

func (f *fakeUploader) UploadWithContext(ctx aws.Context, in *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3manager.UploadOutput{Location: "https://" + *in.Bucket + ".s3.amazonaws.com/" + *in.Key}, nil
}

func TestS3StoreUpload(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	up := &fakeUploader{}
	s, err := blob.NewS3Store(blob.S3StoreConfig{Uploader: up, Bucket: "attachments", Prefix: "prod"})
	require.NoError(err)

	gotURL, err := s.Upload(context.Background(), "jobs/job-1/images/img-1.jpg", "image/jpeg", bytes.NewReader([]byte("jpg")))
	require.NoError(err)
	assert.Equal("https://attachments.s3.amazonaws.com/prod/jobs/job-1/images/img-1.jpg", gotURL)
	assert.Equal("image/jpeg", *up.input.ContentType)
	assert.Equal([]byte("jpg"), up.body)

	up.err = errors.New("access denied")
	_, err = s.Upload(context.Background(), "k", "image/png", bytes.NewReader(nil))
	assert.Error(err)
}

func TestNewS3Store(t *testing.T) {
	_, err := blob.NewS3Store(blob.S3StoreConfig{Uploader: &fakeUploader{}})
	assert.Error(t, err)
	_, err = blob.NewS3Store(blob.S3StoreConfig{Bucket: "b"})
	assert.Error(t, err)
}
