package events

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("producer", func() {
	It("writes every queued event in order", func() {
		w := newTestWriter()
		ep := NewEventProducer(w, WithOutputTopic("jobs"))

		Expect(ep.Write(context.TODO(), JobStartedKind, bytes.NewReader([]byte("{}")))).To(Succeed())
		Expect(ep.Write(context.TODO(), JobCompletedKind, bytes.NewReader([]byte("{}")))).To(Succeed())

		Eventually(w.count).Should(Equal(2))
		msgs := w.messages()
		Expect(msgs[0].Type()).To(Equal(JobStartedKind))
		Expect(msgs[1].Type()).To(Equal(JobCompletedKind))
		Expect(msgs[0].Source()).To(Equal(defaultSource))

		Expect(ep.Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
		Expect(w.topic).To(Equal("jobs"))
	})

	It("publishes json payloads", func() {
		w := newTestWriter()
		ep := NewEventProducer(w, WithSource("test"))

		Expect(ep.Publish(context.TODO(), JobFailedKind, JobEvent{JobID: "j1", Status: "failed", Reason: "boom"})).To(Succeed())
		Expect(ep.Close()).To(Succeed())

		Expect(w.count()).To(Equal(1))
		e := w.messages()[0]
		Expect(e.Source()).To(Equal("test"))

		var payload JobEvent
		Expect(json.Unmarshal(e.Data(), &payload)).To(Succeed())
		Expect(payload.JobID).To(Equal("j1"))
		Expect(payload.Reason).To(Equal("boom"))
	})
})

type testwriter struct {
	mu     sync.Mutex
	msgs   []cloudevents.Event
	topic  string
	closed bool
}

func newTestWriter() *testwriter {
	return &testwriter{msgs: []cloudevents.Event{}}
}

func (t *testwriter) Write(ctx context.Context, topic string, e cloudevents.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.topic = topic
	t.msgs = append(t.msgs, e)
	return nil
}

func (t *testwriter) Close(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *testwriter) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.msgs)
}

func (t *testwriter) messages() []cloudevents.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]cloudevents.Event{}, t.msgs...)
}
