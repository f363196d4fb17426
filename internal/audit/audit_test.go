package audit

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *recordingSink) Write(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func TestDispatcherDeliversBeforeClose(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, zerolog.Nop())

	for i := 0; i < 10; i++ {
		d.Dispatch(Event{UserID: "u1", Action: ActionBook})
	}
	d.Close()
	d.Close()
	d.Dispatch(Event{Action: ActionCancel})

	if len(sink.events) != 10 {
		t.Fatalf("delivered %d events", len(sink.events))
	}
	if sink.events[0].At.IsZero() {
		t.Fatal("timestamp not set")
	}
}

func TestDispatcherSurvivesSinkErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("db down")}
	d := NewDispatcher(sink, zerolog.Nop())
	d.Dispatch(Event{Action: ActionLogin})
	d.Dispatch(Event{Action: ActionLogout})
	d.Close()

	if len(sink.events) != 2 {
		t.Fatalf("delivered %d events", len(sink.events))
	}
}

type fakePublisher struct {
	subject string
	data    []byte
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.subject, p.data = subject, data
	return nil
}

func TestNATSSinkPublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewNATSSink(pub, "medease.audit")

	ev := Event{UserID: "u1", Action: ActionBook, Entity: "appointment", EntityID: "7", Metadata: map[string]string{"ticket_no": "APT-20300102-1234"}}
	if err := sink.Write(ev); err != nil {
		t.Fatalf("write: %v", err)
	}
	if pub.subject != "medease.audit" {
		t.Fatalf("subject = %s", pub.subject)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(pub.data, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got["action"] != ActionBook || got["entity_id"] != "7" {
		t.Fatalf("payload = %v", got)
	}
}

func TestMultiSinkReturnsFirstError(t *testing.T) {
	a := &recordingSink{err: errors.New("first")}
	b := &recordingSink{err: errors.New("second")}
	err := MultiSink{a, b}.Write(Event{Action: ActionLogin})
	if err == nil || err.Error() != "first" {
		t.Fatalf("err = %v", err)
	}
	if len(b.events) != 1 {
		t.Fatal("second sink skipped")
	}
}

func TestMetadataJSON(t *testing.T) {
	if metadataJSON(nil) != "" {
		t.Fatal("nil metadata should be empty")
	}
	if got := metadataJSON(map[string]int{"id": 7}); got != `{"id":7}` {
		t.Fatalf("got %s", got)
	}
}
