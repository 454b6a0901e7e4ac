// Package bus routes messages between the Telegram channel and the
// assistant service, keeping transport and processing decoupled.
package bus

import (
	"context"
	"time"
)

// Kind says what an inbound message carries.
type Kind string

const (
	KindText  Kind = "text"
	KindVoice Kind = "voice"
	KindPhoto Kind = "photo"
)

// InboundMessage is one user message after the channel has downloaded any
// media. One inbound message is one processing batch.
type InboundMessage struct {
	ChatID     int64
	UserID     int64
	Username   string
	Kind       Kind
	Text       string // message text, or caption for media
	Voice      []byte // ogg/opus voice note payload
	VoiceName  string
	Photo      []byte // largest photo size, as served by Telegram
	ReceivedAt time.Time
}

// OutboundMessage is one reply to a chat. Long texts are chunked by the
// channel, not here.
type OutboundMessage struct {
	ChatID int64
	Text   string
}

// MessageBus carries inbound and outbound messages over buffered channels.
type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage
}

func New() *MessageBus {
	return &MessageBus{
		inbound:  make(chan InboundMessage, 100),
		outbound: make(chan OutboundMessage, 100),
	}
}

// PublishInbound queues an inbound message from the channel.
func (mb *MessageBus) PublishInbound(msg InboundMessage) {
	mb.inbound <- msg
}

// ConsumeInbound blocks until an inbound message is available or ctx is cancelled.
func (mb *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case msg := <-mb.inbound:
		return msg, true
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

// PublishOutbound queues a reply to the channel.
func (mb *MessageBus) PublishOutbound(msg OutboundMessage) {
	mb.outbound <- msg
}

// SubscribeOutbound blocks until a reply is available or ctx is cancelled.
func (mb *MessageBus) SubscribeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case msg := <-mb.outbound:
		return msg, true
	case <-ctx.Done():
		return OutboundMessage{}, false
	}
}

// Close shuts down the message bus.
func (mb *MessageBus) Close() {
	close(mb.inbound)
	close(mb.outbound)
}
