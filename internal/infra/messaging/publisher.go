package messaging

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/telemetry"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var producerTracer = otel.Tracer("messaging/producer")

// messageWriter は kafka.Writer のうち使う部分
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher は注文イベントを送る。失敗してもログだけ（注文は確定済み）。
type KafkaPublisher struct {
	writer  messageWriter
	topic   string
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           100 * time.Millisecond,
	}, topic)
}

func newKafkaPublisher(w messageWriter, topic string) *KafkaPublisher {
	name := "kafka-" + topic
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			state := float64(0)
			switch to {
			case gobreaker.StateOpen:
				state = 1
			case gobreaker.StateHalfOpen:
				state = 2
			}
			telemetry.CircuitBreakerState.WithLabelValues(cbName).Set(state)

			log.WithFields(log.Fields{
				"circuit": cbName,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})
	telemetry.CircuitBreakerState.WithLabelValues(name).Set(0)

	return &KafkaPublisher{writer: w, topic: topic, breaker: cb, timeout: 5 * time.Second}
}

// Publish は注文IDをキーにして送る（同じ注文のイベントは同じパーティション）
func (p *KafkaPublisher) Publish(ctx context.Context, ev model.OrderEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).WithField("type", ev.Type).Error("marshal order event")
		return
	}

	key := strconv.FormatInt(ev.OrderID, 10)
	msg := kafka.Message{Key: []byte(key), Value: data}

	//リクエストが終わっても送れるように切り離す
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	ctx, span := producerTracer.Start(ctx, "send "+p.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingKafkaMessageKey(key),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, NewMessageCarrier(&msg))

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		telemetry.EventsPublishedTotal.WithLabelValues(string(ev.Type), "failed").Inc()
		log.WithError(err).WithFields(log.Fields{
			"type":     ev.Type,
			"order_id": ev.OrderID,
		}).Warn("publish order event failed")
		return
	}
	telemetry.EventsPublishedTotal.WithLabelValues(string(ev.Type), "ok").Inc()
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher はブローカー未設定のとき
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.OrderEvent) {}

func (NopPublisher) Close() error { return nil }
