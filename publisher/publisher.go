package publisher

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vigie-covid/vigie/external/imghost"
	"github.com/vigie-covid/vigie/external/messenger"
	"github.com/vigie-covid/vigie/schema"
)

const logPrefix = "publisher"

// Message is the textual content of a publish, independent of the
// artifact image.
type Message struct {
	Title       string
	Description string
	URL         string
	Footer      string
	Color       int
	Fields      []messenger.EmbedField
}

// Publisher updates message slots with rendered artifacts. The caller
// issues at most one publish per slot at a time and awaits completion,
// so no two updates of the same slot are ever in flight together.
type Publisher struct {
	messenger messenger.Messenger
	host      imghost.Host
	now       func() time.Time
}

// New wires a Publisher to its messaging and image host collaborators.
func New(m messenger.Messenger, h imghost.Host) *Publisher {
	return &Publisher{
		messenger: m,
		host:      h,
		now:       time.Now,
	}
}

func (p *Publisher) embed(msg Message) messenger.Embed {
	e := messenger.Embed{
		Title:       msg.Title,
		Description: msg.Description,
		URL:         msg.URL,
		Color:       msg.Color,
		Fields:      msg.Fields,
	}
	e.SetFooter(msg.Footer)
	e.SetTimestamp(p.now())
	return e
}

// attach uploads the artifact and sets its URL on the embed. An upload
// failure degrades to the image-less embed: the slot must never be left
// stale because only the image step failed.
func (p *Publisher) attach(ctx context.Context, e *messenger.Embed, artifact *schema.Artifact) {
	if artifact == nil {
		return
	}
	url, err := p.host.Upload(ctx, artifact.Path)
	if nil != err {
		log.WithFields(log.Fields{
			"prefix": logPrefix,
			"path":   artifact.Path,
			"error":  err,
		}).Warn("image upload failed, publishing without image")
		return
	}
	e.SetImage(url)
}

// Publish updates a slot: a slot with a known message id is edited in
// place, a bare one receives a new message.
func (p *Publisher) Publish(ctx context.Context, slot schema.Slot, artifact *schema.Artifact, msg Message) error {
	e := p.embed(msg)
	p.attach(ctx, &e, artifact)

	if slot.MessageID != "" {
		if err := p.messenger.Edit(ctx, slot, e); nil != err {
			return fmt.Errorf("%w: editing slot %s/%s: %v", schema.ErrPublish, slot.ChannelID, slot.MessageID, err)
		}
		log.WithFields(log.Fields{
			"prefix":  logPrefix,
			"channel": slot.ChannelID,
			"message": slot.MessageID,
		}).Info("slot updated")
		return nil
	}

	id, err := p.messenger.Send(ctx, slot.ChannelID, e, nil)
	if nil != err {
		return fmt.Errorf("%w: sending to channel %s: %v", schema.ErrPublish, slot.ChannelID, err)
	}
	log.WithFields(log.Fields{
		"prefix":  logPrefix,
		"channel": slot.ChannelID,
		"message": id,
	}).Info("new message sent")
	return nil
}

// SendEphemeral sends a one-off message with the artifact attached as a
// direct file instead of an uploaded link, used for on-demand
// single-zone requests.
func (p *Publisher) SendEphemeral(ctx context.Context, channelID string, artifact *schema.Artifact, filename string, msg Message) (string, error) {
	e := p.embed(msg)

	var file *messenger.FileAttachment
	if artifact != nil {
		file = &messenger.FileAttachment{Name: filename, Path: artifact.Path}
	}

	id, err := p.messenger.Send(ctx, channelID, e, file)
	if nil != err {
		return "", fmt.Errorf("%w: sending to channel %s: %v", schema.ErrPublish, channelID, err)
	}
	return id, nil
}
