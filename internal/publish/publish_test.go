package publish

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"

	"freeco-signals/internal/domain"
)

type fakeToken struct {
	completed bool
	err       error
}

func (t *fakeToken) Wait() bool                     { return t.completed }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.completed }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeMQTTClient struct {
	mqtt.Client
	token        *fakeToken
	messages     []published
	open         bool
	disconnected uint
}

func (c *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.messages = append(c.messages, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return c.token
}

func (c *fakeMQTTClient) IsConnectionOpen() bool { return c.open }

func (c *fakeMQTTClient) Disconnect(quiesce uint) { c.disconnected = quiesce }

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type stubSink struct {
	name string
	err  error
	got  [][]byte
}

func (s *stubSink) Name() string { return s.name }
func (s *stubSink) Publish(_ context.Context, _ string, payload []byte) error {
	s.got = append(s.got, payload)
	return s.err
}
func (s *stubSink) Close() error { return nil }

func testTracer() trace.Tracer {
	return trace.NewNoopTracerProvider().Tracer("test")
}

func testInputs() (domain.MarketSnapshot, domain.AnalysisResult) {
	snap := domain.MarketSnapshot{Pair: "FREECO/CHF", Price: 1.02, Volume24h: 12000.5, Change24h: -1.25}
	result := domain.AnalysisResult{
		Action:        domain.ActionSell,
		Confidence:    0.72,
		Reasoning:     "momentum fading",
		Probabilities: domain.Probabilities{Short: 0.6, Neutral: 0.3, Long: 0.1},
	}
	return snap, result
}

func TestShapeOrderAndTarget(t *testing.T) {
	snap, result := testInputs()
	now := time.UnixMilli(1700000000123)

	sig := Shape(snap, result, 0.5/100, now)
	if sig.Timestamp != 1700000000123 {
		t.Fatalf("expected epoch millis, got %d", sig.Timestamp)
	}
	if sig.Probabilities != [3]float64{0.6, 0.3, 0.1} {
		t.Fatalf("expected [short neutral long], got %v", sig.Probabilities)
	}
	if sig.TargetPct != 0.005 {
		t.Fatalf("expected target 0.005, got %v", sig.TargetPct)
	}
	f := sig.Features
	if f.Price != 1.02 || f.Volume != 12000.5 || f.Change != -1.25 || f.Action != domain.ActionSell || f.Confidence != 0.72 || f.Reasoning != "momentum fading" {
		t.Fatalf("unexpected features %+v", f)
	}
}

func TestEncodeWireShape(t *testing.T) {
	snap, result := testInputs()
	payload, err := Encode(Shape(snap, result, 0.005, time.UnixMilli(42)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"timestamp":42,"probabilities":[0.6,0.3,0.1],"target_pct":0.005,"features":{"price":1.02,"volume":12000.5,"change":-1.25,"action":"SELL","confidence":0.72,"reasoning":"momentum fading"}}`
	if string(payload) != want {
		t.Fatalf("unexpected payload\n got: %s\nwant: %s", payload, want)
	}
}

func TestMQTTSinkPublishesQoS1(t *testing.T) {
	client := &fakeMQTTClient{token: &fakeToken{completed: true}}
	sink := NewMQTTSink(client, "hbot/predictions/freeco_chf/ML_SIGNALS")

	if err := sink.Publish(context.Background(), "FREECO/CHF", []byte(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(client.messages))
	}
	msg := client.messages[0]
	if msg.topic != "hbot/predictions/freeco_chf/ML_SIGNALS" || msg.qos != 1 || msg.retained {
		t.Fatalf("unexpected publish %+v", msg)
	}
}

func TestMQTTSinkErrors(t *testing.T) {
	timeout := NewMQTTSink(&fakeMQTTClient{token: &fakeToken{completed: false}}, "t")
	if err := timeout.Publish(context.Background(), "", nil); !errors.Is(err, ErrPublishTimeout) {
		t.Fatalf("expected ErrPublishTimeout, got %v", err)
	}

	boom := errors.New("not connected")
	failing := NewMQTTSink(&fakeMQTTClient{token: &fakeToken{completed: true, err: boom}}, "t")
	if err := failing.Publish(context.Background(), "", nil); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestMQTTSinkCloseDisconnects(t *testing.T) {
	for _, open := range []bool{true, false} {
		client := &fakeMQTTClient{open: open}
		if err := NewMQTTSink(client, "t").Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.disconnected != disconnectQuiesceMs {
			t.Fatalf("open=%v: expected disconnect with quiesce %d, got %d", open, disconnectQuiesceMs, client.disconnected)
		}
	}
}

func TestMQTTSinkSkipsCancelledContext(t *testing.T) {
	client := &fakeMQTTClient{token: &fakeToken{completed: true}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewMQTTSink(client, "t").Publish(ctx, "", []byte(`{}`)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if len(client.messages) != 0 {
		t.Fatalf("expected no message sent, got %d", len(client.messages))
	}
}

func TestKafkaSinkPublish(t *testing.T) {
	w := &fakeWriter{}
	sink := &KafkaSink{writer: w, topic: "freeco.ml_signals"}

	if err := sink.Publish(context.Background(), "FREECO/CHF", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "FREECO/CHF" || string(w.msgs[0].Value) != `{"a":1}` {
		t.Fatalf("unexpected messages %+v", w.msgs)
	}

	w.err = errors.New("leader not available")
	if err := sink.Publish(context.Background(), "k", nil); err == nil || !strings.Contains(err.Error(), "freeco.ml_signals") {
		t.Fatalf("expected wrapped kafka error, got %v", err)
	}
	_ = sink.Close()
	if !w.closed {
		t.Fatal("expected writer to be closed")
	}
}

func TestNewKafkaSinkValidation(t *testing.T) {
	if _, err := NewKafkaSink(nil, "topic"); err == nil {
		t.Fatal("expected error without brokers")
	}
	if _, err := NewKafkaSink([]string{"localhost:9092"}, ""); err == nil {
		t.Fatal("expected error without topic")
	}
	sink, err := NewKafkaSink([]string{"localhost:9092"}, "topic", WithKafkaMaxAttempts(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w, ok := sink.writer.(*kafka.Writer); !ok || w.MaxAttempts != 1 || w.RequiredAcks != kafka.RequireOne {
		t.Fatalf("unexpected writer config %+v", sink.writer)
	}
}

func TestPublisherFanOut(t *testing.T) {
	snap, result := testInputs()
	mq := &stubSink{name: "mqtt"}
	kf := &stubSink{name: "kafka"}
	p := NewPublisher(testTracer(), nil, 0.005, mq, kf)
	p.now = func() time.Time { return time.UnixMilli(7) }

	out := p.Publish(context.Background(), snap, result)
	if !out.Published || out.Err != nil {
		t.Fatalf("expected success, got %+v", out)
	}
	if len(mq.got) != 1 || len(kf.got) != 1 || string(mq.got[0]) != string(kf.got[0]) {
		t.Fatalf("expected identical payload on both sinks")
	}
	var decoded domain.Signal
	if err := json.Unmarshal(mq.got[0], &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded != out.Signal || decoded.Timestamp != 7 {
		t.Fatalf("payload does not match outcome signal: %+v vs %+v", decoded, out.Signal)
	}
}

func TestPublisherReportsSinkFailure(t *testing.T) {
	snap, result := testInputs()
	mq := &stubSink{name: "mqtt", err: errors.New("broker down")}
	kf := &stubSink{name: "kafka"}
	p := NewPublisher(testTracer(), nil, 0.005, mq, kf)

	out := p.Publish(context.Background(), snap, result)
	if out.Published || out.Err == nil {
		t.Fatalf("expected failure outcome, got %+v", out)
	}
	if len(kf.got) != 1 {
		t.Fatal("a failing sink must not stop the others")
	}
	if out.Sinks[0].Error == "" || out.Sinks[1].Error != "" {
		t.Fatalf("unexpected sink results %+v", out.Sinks)
	}
}

func TestPublisherWithoutSinks(t *testing.T) {
	snap, result := testInputs()
	out := NewPublisher(testTracer(), nil, 0.005).Publish(context.Background(), snap, result)
	if out.Published || out.Err == nil {
		t.Fatalf("expected failure without sinks, got %+v", out)
	}
}

func TestFallbackSignalFeatures(t *testing.T) {
	snap, _ := testInputs()
	sig := Shape(snap, domain.FallbackAnalysis(), 0.005, time.Now())
	if sig.Features.Action != domain.ActionHold || sig.Features.Confidence != 0.5 {
		t.Fatalf("expected HOLD/0.5, got %+v", sig.Features)
	}
	if sig.Probabilities != [3]float64{0.33, 0.34, 0.33} {
		t.Fatalf("unexpected fallback probabilities %v", sig.Probabilities)
	}
}
