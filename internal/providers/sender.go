package providers

import (
	"context"
	"errors"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Channel selects how a message reaches a recipient.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

var ErrUnknownChannel = errors.New("unknown_channel")

// Sender delivers a short message to a single recipient.
type Sender interface {
	Send(ctx context.Context, recipient, message string) error
}

// SenderFactory picks a Sender for the requested channel.
type SenderFactory interface {
	ForChannel(channel Channel) (Sender, error)
}

type factory struct {
	senders map[Channel]Sender
}

type FactoryParams struct {
	fx.In

	Log *zap.Logger
}

func NewSenderFactory(p FactoryParams) SenderFactory {
	log := p.Log.Named("providers")
	return &factory{senders: map[Channel]Sender{
		ChannelSMS:      &logSender{log: log.Named("sms"), channel: ChannelSMS},
		ChannelWhatsApp: &logSender{log: log.Named("whatsapp"), channel: ChannelWhatsApp},
		ChannelEmail:    &logSender{log: log.Named("email"), channel: ChannelEmail},
	}}
}

func (f *factory) ForChannel(channel Channel) (Sender, error) {
	s, ok := f.senders[channel]
	if !ok {
		return nil, ErrUnknownChannel
	}
	return s, nil
}

// logSender writes the message to the structured log instead of a gateway.
// Real gateways slot in behind the same interface per deployment.
type logSender struct {
	log     *zap.Logger
	channel Channel
}

func (s *logSender) Send(_ context.Context, recipient, message string) error {
	s.log.Info("message dispatched",
		zap.String("channel", string(s.channel)),
		zap.String("recipient", recipient),
		zap.Int("length", len(message)))
	return nil
}

var Module = fx.Module("providers",
	fx.Provide(NewSenderFactory, NewLocalUploader),
)
