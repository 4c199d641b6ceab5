package publisher_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	hostmocks "github.com/vigie-covid/vigie/external/imghost/mocks"
	"github.com/vigie-covid/vigie/external/messenger"
	msgmocks "github.com/vigie-covid/vigie/external/messenger/mocks"
	"github.com/vigie-covid/vigie/publisher"
	"github.com/vigie-covid/vigie/schema"
)

var artifact = &schema.Artifact{Path: "/tmp/out/figure.png", AsOfLabel: "samedi 9 mars 2024"}

var message = publisher.Message{
	Title:       "Vaccination par âge : France · IDF · 92",
	Description: "actualisé vers 20h-23h",
	Footer:      "Données du samedi 9 mars 2024\nSanté publique France",
	Color:       0x70E6E4,
}

// A slot with a known message id is edited, never re-sent.
func TestPublishEditsKnownSlot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := msgmocks.NewMockMessenger(ctrl)
	h := hostmocks.NewMockHost(ctrl)
	slot := schema.Slot{ChannelID: "chan", MessageID: "msg"}

	h.EXPECT().Upload(gomock.Any(), artifact.Path).Return("https://img.example.com/x.png", nil)
	m.EXPECT().Edit(gomock.Any(), slot, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ schema.Slot, e messenger.Embed) error {
			assert.Equal(t, message.Title, e.Title)
			assert.NotNil(t, e.Image)
			return nil
		})

	p := publisher.New(m, h)
	assert.Nil(t, p.Publish(context.Background(), slot, artifact, message))
}

// A bare slot receives a new message.
func TestPublishSendsToBareSlot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := msgmocks.NewMockMessenger(ctrl)
	h := hostmocks.NewMockHost(ctrl)

	h.EXPECT().Upload(gomock.Any(), artifact.Path).Return("https://img.example.com/x.png", nil)
	m.EXPECT().Send(gomock.Any(), "chan", gomock.Any(), gomock.Nil()).Return("new-id", nil)

	p := publisher.New(m, h)
	assert.Nil(t, p.Publish(context.Background(), schema.Slot{ChannelID: "chan"}, artifact, message))
}

// A failed upload must still update the slot with the textual content.
func TestPublishDegradesOnUploadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := msgmocks.NewMockMessenger(ctrl)
	h := hostmocks.NewMockHost(ctrl)
	slot := schema.Slot{ChannelID: "chan", MessageID: "msg"}

	h.EXPECT().Upload(gomock.Any(), artifact.Path).Return("", errors.New("host down"))
	m.EXPECT().Edit(gomock.Any(), slot, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ schema.Slot, e messenger.Embed) error {
			assert.Equal(t, message.Title, e.Title)
			assert.Equal(t, message.Description, e.Description)
			assert.Nil(t, e.Image, "degraded embed must carry no image")
			return nil
		})

	p := publisher.New(m, h)
	assert.Nil(t, p.Publish(context.Background(), slot, artifact, message))
}

func TestPublishEditFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := msgmocks.NewMockMessenger(ctrl)
	h := hostmocks.NewMockHost(ctrl)
	slot := schema.Slot{ChannelID: "chan", MessageID: "gone"}

	h.EXPECT().Upload(gomock.Any(), gomock.Any()).Return("url", nil)
	m.EXPECT().Edit(gomock.Any(), slot, gomock.Any()).Return(errors.New("unknown message"))

	p := publisher.New(m, h)
	err := p.Publish(context.Background(), slot, artifact, message)
	assert.True(t, errors.Is(err, schema.ErrPublish))
}

// Ephemeral replies attach the file directly instead of uploading it.
func TestSendEphemeral(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := msgmocks.NewMockMessenger(ctrl)
	h := hostmocks.NewMockHost(ctrl)

	m.EXPECT().Send(gomock.Any(), "chan", gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, _ messenger.Embed, file *messenger.FileAttachment) (string, error) {
			assert.Equal(t, "Vaccin_Age-75.png", file.Name)
			assert.Equal(t, artifact.Path, file.Path)
			return "ephemeral-id", nil
		})

	p := publisher.New(m, h)
	id, err := p.SendEphemeral(context.Background(), "chan", artifact, "Vaccin_Age-75.png", message)
	assert.Nil(t, err)
	assert.Equal(t, "ephemeral-id", id)
}

func TestPublishWithoutArtifact(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := msgmocks.NewMockMessenger(ctrl)
	h := hostmocks.NewMockHost(ctrl)
	slot := schema.Slot{ChannelID: "chan", MessageID: "msg"}

	m.EXPECT().Edit(gomock.Any(), slot, gomock.Any()).Return(nil)

	p := publisher.New(m, h)
	assert.Nil(t, p.Publish(context.Background(), slot, nil, message))
}
