// Package events publishes routing outcomes onto Kafka for downstream
// consumers (notification fan-out, analytics). Publishing is best
// effort; the chat path never blocks on the broker.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/zaederex/prattle/internal/chat"
)

type Producer struct {
	writer *kafkago.Writer
	log    *zap.SugaredLogger
}

func NewProducer(brokers []string, topic string, log *zap.SugaredLogger) *Producer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
		Async:        true,
	}
	return &Producer{writer: w, log: log}
}

// MessageRouted emits one event per routed message, keyed by message id.
func (p *Producer) MessageRouted(ctx context.Context, report *chat.DeliveryReport) {
	b, err := json.Marshal(report)
	if err != nil {
		p.log.Warnw("marshal delivery report", "err", err)
		return
	}
	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(strconv.Itoa(report.MessageID)),
		Value: b,
		Time:  time.Now(),
	})
	if err != nil {
		p.log.Warnw("publish delivery report", "message_id", report.MessageID, "err", err)
	}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
