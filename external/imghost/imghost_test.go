package imghost_test

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigie-covid/vigie/external/imghost"
)

func tempImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.png")
	require.Nil(t, ioutil.WriteFile(path, []byte("png-bytes"), 0644))
	return path
}

func TestUpload(t *testing.T) {
	link := "https://img.example.com/abc.png"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Client-ID test", r.Header.Get("Authorization"))

		require.Nil(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("image")
		require.Nil(t, err)
		assert.Equal(t, "graph.png", header.Filename)

		type data struct {
			Link string `json:"link"`
		}
		b, _ := json.Marshal(struct {
			Success bool `json:"success"`
			Status  int  `json:"status"`
			Data    data `json:"data"`
		}{Success: true, Status: 200, Data: data{Link: link}})
		_, _ = w.Write(b)
	}))
	defer ts.Close()

	h := imghost.New("test", ts.URL, nil)
	actual, err := h.Upload(context.Background(), tempImage(t))
	assert.Nil(t, err, "wrong Upload")
	assert.Equal(t, link, actual)
}

func TestUploadRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"status":403}`))
	}))
	defer ts.Close()

	h := imghost.New("test", ts.URL, nil)
	_, err := h.Upload(context.Background(), tempImage(t))
	assert.NotNil(t, err)
}

func TestUploadEmptyToken(t *testing.T) {
	h := imghost.New("", "", nil)
	_, err := h.Upload(context.Background(), "whatever.png")
	assert.NotNil(t, err)
}
