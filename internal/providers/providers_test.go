package providers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/smallbiznis/hisaab/internal/config"
)

func newUploader(t *testing.T) (Uploader, string) {
	t.Helper()
	root := t.TempDir()
	u := NewLocalUploader(UploaderParams{
		Cfg: config.Config{
			StorageRoot:    root,
			StorageBaseURL: "http://localhost:8080/storage/",
		},
		Log: zaptest.NewLogger(t),
	})
	return u, root
}

func TestUploadWritesFileAndReturnsURL(t *testing.T) {
	u, root := newUploader(t)

	url, err := u.Upload(context.Background(), "members/mbr_1/picture.png", strings.NewReader("fake-png"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/storage/members/mbr_1/picture.png", url)

	data, err := os.ReadFile(filepath.Join(root, "members", "mbr_1", "picture.png"))
	require.NoError(t, err)
	assert.Equal(t, "fake-png", string(data))
}

func TestUploadRejectsEmptyName(t *testing.T) {
	u, _ := newUploader(t)

	_, err := u.Upload(context.Background(), "", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidObjectName)
}

func TestUploadContainsTraversal(t *testing.T) {
	u, root := newUploader(t)

	// Cleaning roots the name, so traversal stays inside the storage tree.
	url, err := u.Upload(context.Background(), "../../escape.txt", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/storage/escape.txt", url)

	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	require.NoError(t, err)
}

func TestDeleteRemovesUploadedObject(t *testing.T) {
	u, root := newUploader(t)
	ctx := context.Background()

	url, err := u.Upload(ctx, "members/mbr_1/picture.png", strings.NewReader("fake-png"))
	require.NoError(t, err)

	require.NoError(t, u.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(root, "members", "mbr_1", "picture.png"))
	assert.True(t, os.IsNotExist(err))

	// Deleting again is a no-op.
	require.NoError(t, u.Delete(ctx, url))
}

func TestDeleteRejectsForeignURL(t *testing.T) {
	u, _ := newUploader(t)

	err := u.Delete(context.Background(), "http://elsewhere.example/members/mbr_1/picture.png")
	assert.ErrorIs(t, err, ErrInvalidObjectName)
}

func TestSenderFactoryChannels(t *testing.T) {
	factory := NewSenderFactory(FactoryParams{Log: zaptest.NewLogger(t)})

	for _, channel := range []Channel{ChannelSMS, ChannelWhatsApp, ChannelEmail} {
		sender, err := factory.ForChannel(channel)
		require.NoError(t, err)
		require.NoError(t, sender.Send(context.Background(), "+923001234567", "hello"))
	}

	_, err := factory.ForChannel("fax")
	assert.ErrorIs(t, err, ErrUnknownChannel)
}
