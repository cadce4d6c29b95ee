package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestProducerPushMessage(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"x":1}` {
			return errors.New("unexpected value " + string(val))
		}
		return nil
	})

	p := NewProducerFromSync(sp)

	if _, _, err := p.PushMessage(context.Background(), []byte("k"), []byte(`{"x":1}`), "bookings", Header{Key: "h", Value: "v"}); err != nil {
		t.Fatalf("PushMessage: %v", err)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestProducerPushMessageFailure(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducerFromSync(sp)
	defer p.Close()

	_, _, err := p.PushMessage(context.Background(), nil, []byte(`{}`), "bookings")
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected ErrOutOfBrokers, got %v", err)
	}
}

func TestProducerPushMessageCancelled(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	p := NewProducerFromSync(sp)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := p.PushMessage(ctx, nil, []byte(`{}`), "bookings"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type fakeMetadataClient struct {
	refreshErr error
	topics     []string
	refreshes  int
}

func (c *fakeMetadataClient) RefreshMetadata(...string) error {
	c.refreshes++
	return c.refreshErr
}

func (c *fakeMetadataClient) Topics() ([]string, error) { return c.topics, nil }
func (c *fakeMetadataClient) Close() error              { return nil }

func TestTopicLookup(t *testing.T) {
	tests := []struct {
		name    string
		client  *fakeMetadataClient
		want    bool
		wantErr bool
	}{
		{name: "known topic", client: &fakeMetadataClient{topics: []string{"bookings"}}, want: true},
		{name: "absent from listing", client: &fakeMetadataClient{topics: []string{"other"}}, want: false},
		{name: "unknown topic error", client: &fakeMetadataClient{refreshErr: sarama.ErrUnknownTopicOrPartition}, want: false},
		{name: "broker failure", client: &fakeMetadataClient{refreshErr: sarama.ErrOutOfBrokers}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := NewTopicLookupFromClient(tt.client)

			got, err := lookup.TopicExists(context.Background(), "bookings")
			if (err != nil) != tt.wantErr {
				t.Fatalf("TopicExists() err = %v, wantErr %v", err, tt.wantErr)
			}

			if got != tt.want {
				t.Errorf("TopicExists() = %v, want %v", got, tt.want)
			}

			if tt.client.refreshes != 1 {
				t.Errorf("expected one metadata refresh, got %d", tt.client.refreshes)
			}
		})
	}
}

type fakeSession struct {
	sarama.ConsumerGroupSession

	ctx context.Context

	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }
func (s *fakeSession) MemberID() string         { return "member-1" }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

func (s *fakeSession) markedOffsets() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.marked...)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim

	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func newClaim(offsets ...int64) *fakeClaim {
	c := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, len(offsets))}
	for _, o := range offsets {
		c.messages <- &sarama.ConsumerMessage{Topic: "bookings", Offset: o}
	}
	return c
}

func TestBatchGroupHandlerFlushesBySize(t *testing.T) {
	var sizes []int

	h := newBatchGroupHandler("g", func(_ context.Context, msgs []*sarama.ConsumerMessage) error {
		sizes = append(sizes, len(msgs))
		return nil
	}, 2, time.Hour)

	claim := newClaim(1, 2, 3, 4, 5)
	close(claim.messages)

	sess := &fakeSession{ctx: context.Background()}

	if err := h.ConsumeClaim(sess, claim); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}

	if len(sizes) != 3 || sizes[0] != 2 || sizes[1] != 2 || sizes[2] != 1 {
		t.Fatalf("unexpected batch sizes %v", sizes)
	}

	marked := sess.markedOffsets()
	if len(marked) != 3 || marked[0] != 2 || marked[1] != 4 || marked[2] != 5 {
		t.Fatalf("unexpected marked offsets %v", marked)
	}
}

func TestBatchGroupHandlerFlushesByWindow(t *testing.T) {
	flushed := make(chan int, 1)

	h := newBatchGroupHandler("g", func(_ context.Context, msgs []*sarama.ConsumerMessage) error {
		flushed <- len(msgs)
		return nil
	}, 100, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	claim := newClaim(7, 8)
	sess := &fakeSession{ctx: ctx}

	done := make(chan error, 1)
	go func() { done <- h.ConsumeClaim(sess, claim) }()

	select {
	case n := <-flushed:
		if n != 2 {
			t.Fatalf("expected batch of 2, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("batch window did not flush")
	}

	cancel()

	if err := <-done; err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}

	if marked := sess.markedOffsets(); len(marked) != 1 || marked[0] != 8 {
		t.Fatalf("unexpected marked offsets %v", marked)
	}
}

func TestBatchGroupHandlerErrorLeavesBatchUnmarked(t *testing.T) {
	boom := errors.New("boom")

	h := newBatchGroupHandler("g", func(context.Context, []*sarama.ConsumerMessage) error {
		return boom
	}, 2, time.Hour)

	claim := newClaim(1, 2)
	sess := &fakeSession{ctx: context.Background()}

	if err := h.ConsumeClaim(sess, claim); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if marked := sess.markedOffsets(); len(marked) != 0 {
		t.Fatalf("expected nothing marked, got %v", marked)
	}
}

func TestBatchGroupHandlerSetupReportsOnce(t *testing.T) {
	h := newBatchGroupHandler("g", nil, 1, time.Second)
	sess := &fakeSession{ctx: context.Background()}

	_ = h.Setup(sess)
	_ = h.Setup(sess)

	select {
	case msg := <-h.info:
		if msg == "" {
			t.Fatal("empty info message")
		}
	default:
		t.Fatal("expected info message")
	}

	select {
	case <-h.info:
		t.Fatal("info reported twice")
	default:
	}
}
