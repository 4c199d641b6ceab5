package messenger

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
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vigie-covid/vigie/schema"
)

const logPrefix = "messenger"

// EmbedField is one titled block of an embed body.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embedImage struct {
	URL string `json:"url"`
}

// Embed is the rich message content understood by the messaging surface.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Image       *embedImage  `json:"image,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// SetFooter sets the footer text.
func (e *Embed) SetFooter(text string) {
	if text == "" {
		e.Footer = nil
		return
	}
	e.Footer = &embedFooter{Text: text}
}

// SetImage attaches a hosted image URL.
func (e *Embed) SetImage(url string) {
	if url == "" {
		e.Image = nil
		return
	}
	e.Image = &embedImage{URL: url}
}

// SetTimestamp stamps the embed with a display time.
func (e *Embed) SetTimestamp(t time.Time) {
	e.Timestamp = t.UTC().Format(time.RFC3339)
}

// FileAttachment is a local file sent along a message instead of a
// hosted image link, used for ephemeral single-zone replies.
type FileAttachment struct {
	Name string
	Path string
}

// Messenger is the messaging collaborator: it edits a known message in
// place, sends new messages and answers role checks. The chat command
// front-end itself lives outside this module.
type Messenger interface {
	Edit(ctx context.Context, slot schema.Slot, embed Embed) error
	Send(ctx context.Context, channelID string, embed Embed, file *FileAttachment) (string, error)
	HasRole(ctx context.Context, actorID string, roleID string) (bool, error)
}

// ResolveSlot binds a channel and an optional message id into a Slot.
// An empty message id yields a bare slot: publishing to it creates a
// new message instead of editing one.
func ResolveSlot(channelID, messageID string) schema.Slot {
	return schema.Slot{ChannelID: channelID, MessageID: messageID}
}

type client struct {
	baseURL string
	token   string
	guildID string
	client  *http.Client
}

// New returns a Messenger speaking the REST surface rooted at baseURL.
func New(baseURL, token, guildID string, httpClient *http.Client) Messenger {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &client{
		baseURL: baseURL,
		token:   token,
		guildID: guildID,
		client:  httpClient,
	}
}

type messagePayload struct {
	Content string `json:"content"`
	Embed   *Embed `json:"embed,omitempty"`
}

type messageResponse struct {
	ID string `json:"id"`
}

func (c *client) Edit(ctx context.Context, slot schema.Slot, embed Embed) error {
	url := fmt.Sprintf("%s/channels/%s/messages/%s", c.baseURL, slot.ChannelID, slot.MessageID)

	body, err := json.Marshal(messagePayload{Embed: &embed})
	if nil != err {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if nil != err {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+c.token)

	return c.do(req, nil)
}

func (c *client) Send(ctx context.Context, channelID string, embed Embed, file *FileAttachment) (string, error) {
	url := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, channelID)

	var (
		body        bytes.Buffer
		contentType string
	)

	if file != nil {
		mw := multipart.NewWriter(&body)

		payload, err := json.Marshal(messagePayload{Embed: &embed})
		if nil != err {
			return "", err
		}
		if err := mw.WriteField("payload_json", string(payload)); nil != err {
			return "", err
		}

		f, err := os.Open(file.Path)
		if nil != err {
			return "", err
		}
		part, err := mw.CreateFormFile("file", file.Name)
		if nil != err {
			f.Close()
			return "", err
		}
		if _, err := io.Copy(part, f); nil != err {
			f.Close()
			return "", err
		}
		f.Close()
		if err := mw.Close(); nil != err {
			return "", err
		}
		contentType = mw.FormDataContentType()
	} else {
		payload, err := json.Marshal(messagePayload{Embed: &embed})
		if nil != err {
			return "", err
		}
		body.Write(payload)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if nil != err {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bot "+c.token)

	var r messageResponse
	if err := c.do(req, &r); nil != err {
		return "", err
	}
	return r.ID, nil
}

type memberResponse struct {
	Roles []string `json:"roles"`
}

func (c *client) HasRole(ctx context.Context, actorID string, roleID string) (bool, error) {
	url := fmt.Sprintf("%s/guilds/%s/members/%s", c.baseURL, c.guildID, actorID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if nil != err {
		return false, err
	}
	req.Header.Set("Authorization", "Bot "+c.token)

	var r memberResponse
	if err := c.do(req, &r); nil != err {
		return false, err
	}
	for _, role := range r.Roles {
		if role == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (c *client) do(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if nil != err {
		log.WithFields(log.Fields{
			"prefix": logPrefix,
			"url":    req.URL.String(),
			"error":  err,
		}).Error("messaging request")
		return err
	}
	defer resp.Body.Close()

	d, err := ioutil.ReadAll(resp.Body)
	if nil != err {
		return err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		log.WithFields(log.Fields{
			"prefix": logPrefix,
			"url":    req.URL.String(),
			"status": resp.StatusCode,
			"body":   string(d),
		}).Error("messaging request rejected")
		return fmt.Errorf("messaging surface returned status %d", resp.StatusCode)
	}

	if out != nil {
		return json.Unmarshal(d, out)
	}
	return nil
}
