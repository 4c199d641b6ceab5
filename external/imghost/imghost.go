package imghost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	logPrefix  = "imghost"
	defaultURL = "https://api.imgur.com/3/image"
)

var (
	errEmptyToken = fmt.Errorf("empty client token")
	errNoLink     = fmt.Errorf("upload response carries no link")
)

// Host uploads a local image and returns a public URL for it. Upload
// failures are expected to be degraded by the caller, never fatal.
type Host interface {
	Upload(ctx context.Context, path string) (string, error)
}

type host struct {
	token  string
	url    string
	client *http.Client
}

type uploadData struct {
	Link string `json:"link"`
}

type uploadResponse struct {
	Success bool       `json:"success"`
	Status  int        `json:"status"`
	Data    uploadData `json:"data"`
}

func (h host) Upload(ctx context.Context, path string) (string, error) {
	if h.token == "" {
		return "", errEmptyToken
	}

	f, err := os.Open(path)
	if nil != err {
		return "", err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filepath.Base(path))
	if nil != err {
		return "", err
	}
	if _, err := io.Copy(part, f); nil != err {
		return "", err
	}
	if err := mw.Close(); nil != err {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, &body)
	if nil != err {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Client-ID "+h.token)

	resp, err := h.client.Do(req)
	if nil != err {
		log.WithFields(log.Fields{
			"prefix": logPrefix,
			"path":   path,
			"error":  err,
		}).Error("upload image")
		return "", err
	}
	defer resp.Body.Close()

	d, err := ioutil.ReadAll(resp.Body)
	if nil != err {
		return "", err
	}

	var r uploadResponse
	if err := json.Unmarshal(d, &r); nil != err {
		return "", err
	}

	if !r.Success || r.Data.Link == "" {
		log.WithFields(log.Fields{
			"prefix": logPrefix,
			"status": r.Status,
		}).Error("upload rejected")
		return "", errNoLink
	}

	log.WithFields(log.Fields{
		"prefix": logPrefix,
		"path":   path,
		"link":   r.Data.Link,
	}).Debug("image uploaded")

	return r.Data.Link, nil
}

// New returns an image host client. An empty url falls back to the
// default host.
func New(token string, url string, client *http.Client) Host {
	u := defaultURL
	if url != "" {
		u = url
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &host{
		token:  token,
		url:    u,
		client: client,
	}
}
