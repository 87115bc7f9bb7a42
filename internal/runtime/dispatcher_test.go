package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/portabus/portabus/envelope"
)

func countingHandler(n *atomic.Int32) HandlerFunc {
	return func(ctx context.Context, env envelope.Envelope) error {
		n.Add(1)
		return nil
	}
}

func TestDispatchRouting(t *testing.T) {
	// One handler per pattern combination, checked against the same event.
	cases := []struct {
		topic, typ string
		match      bool
	}{
		{"orders", "created", true},
		{"orders", "*", true},
		{"orders", "", true},
		{"*", "created", true},
		{"*", "*", true},
		{"orders", "deleted", false},
		{"payments", "created", false},
		{"payments", "*", false},
	}

	for _, c := range cases {
		d := NewDispatcher(nil, nil)
		var n atomic.Int32
		d.Register(c.topic, c.typ, countingHandler(&n))

		env := envelope.Envelope{Topic: "orders", Type: "created"}
		delivered := d.Dispatch(context.Background(), env)

		wantCount := int32(0)
		wantDelivered := 0
		if c.match {
			wantCount, wantDelivered = 1, 1
		}
		if n.Load() != wantCount || delivered != wantDelivered {
			t.Errorf("pattern (%q, %q): delivered=%d calls=%d, want match=%v",
				c.topic, c.typ, delivered, n.Load(), c.match)
		}
	}
}

func TestDispatchFanOut(t *testing.T) {
	d := NewDispatcher(nil, nil)
	var n atomic.Int32
	d.Register("orders", "*", countingHandler(&n))
	d.Register("*", "created", countingHandler(&n))
	d.Register("payments", "*", countingHandler(&n))

	delivered := d.Dispatch(context.Background(), envelope.Envelope{Topic: "orders", Type: "created"})
	if delivered != 2 || n.Load() != 2 {
		t.Fatalf("expected 2 matching handlers, got delivered=%d calls=%d", delivered, n.Load())
	}
}

func TestDispatchFilterGatesDelivery(t *testing.T) {
	d := NewDispatcher(nil, nil)
	var n atomic.Int32
	d.RegisterBinding(Binding{
		Topic:   "orders",
		Type:    "*",
		Filter:  func(env envelope.Envelope) bool { return env.Key == "vip" },
		Handler: countingHandler(&n),
	})

	d.Dispatch(context.Background(), envelope.Envelope{Topic: "orders", Key: "regular"})
	if n.Load() != 0 {
		t.Fatal("filter should have blocked delivery")
	}

	d.Dispatch(context.Background(), envelope.Envelope{Topic: "orders", Key: "vip"})
	if n.Load() != 1 {
		t.Fatal("filter should have passed the vip envelope")
	}
}

func TestDispatchIsolatesHandlerFailures(t *testing.T) {
	d := NewDispatcher(nil, nil)
	var n atomic.Int32
	d.Register("orders", "*", func(ctx context.Context, env envelope.Envelope) error {
		return errors.New("handler failed")
	})
	d.Register("orders", "*", func(ctx context.Context, env envelope.Envelope) error {
		panic("handler panicked")
	})
	d.Register("orders", "*", countingHandler(&n))

	delivered := d.Dispatch(context.Background(), envelope.Envelope{Topic: "orders"})
	if delivered != 3 {
		t.Fatalf("all three handlers should be invoked, got %d", delivered)
	}
	if n.Load() != 1 {
		t.Fatal("healthy handler should still run after failures")
	}
}

func TestRegisterNilHandlerIsIgnored(t *testing.T) {
	d := NewDispatcher(nil, nil)
	d.Register("orders", "*", nil)
	if delivered := d.Dispatch(context.Background(), envelope.Envelope{Topic: "orders"}); delivered != 0 {
		t.Fatalf("nil handler must not be registered, got %d deliveries", delivered)
	}
}

type staticSource struct {
	bindings []Binding
}

func (s *staticSource) EventBindings() []Binding { return s.bindings }

func TestRegisterSource(t *testing.T) {
	d := NewDispatcher(nil, nil)
	var n atomic.Int32
	d.RegisterSource(&staticSource{bindings: []Binding{
		{Topic: "orders", Type: "*", Handler: countingHandler(&n)},
	}})

	if delivered := d.Dispatch(context.Background(), envelope.Envelope{Topic: "orders"}); delivered != 1 {
		t.Fatalf("source binding should match, got %d", delivered)
	}
	if n.Load() != 1 {
		t.Fatal("source handler should have run")
	}
}

func TestLateRegistrationAfterIndexBuild(t *testing.T) {
	d := NewDispatcher(nil, nil)
	d.Ready()

	var n atomic.Int32
	d.Register("orders", "*", countingHandler(&n))
	d.RegisterSource(&staticSource{bindings: []Binding{
		{Topic: "orders", Type: "*", Handler: countingHandler(&n)},
	}})

	if delivered := d.Dispatch(context.Background(), envelope.Envelope{Topic: "orders"}); delivered != 2 {
		t.Fatalf("late registrations should take effect, got %d", delivered)
	}
	if n.Load() != 2 {
		t.Fatalf("expected both late handlers to run, got %d", n.Load())
	}
}

func TestReadyIsIdempotent(t *testing.T) {
	d := NewDispatcher(nil, nil)
	var n atomic.Int32
	d.Register("orders", "*", countingHandler(&n))

	d.Ready()
	d.Ready()
	if delivered := d.Dispatch(context.Background(), envelope.Envelope{Topic: "orders"}); delivered != 1 {
		t.Fatalf("repeated Ready must not duplicate bindings, got %d", delivered)
	}
}

func TestOnDecodesJSONPayload(t *testing.T) {
	type orderCreated struct {
		OrderID string `json:"order_id"`
	}

	d := NewDispatcher(nil, nil)
	got := make(chan orderCreated, 1)
	On(d, "orders", "created", func(ctx context.Context, env envelope.Envelope, payload orderCreated) error {
		got <- payload
		return nil
	})

	env := envelope.Envelope{
		Topic:   "orders",
		Type:    "created",
		Payload: []byte(`{"order_id":"42"}`),
	}
	if delivered := d.Dispatch(context.Background(), env); delivered != 1 {
		t.Fatalf("expected delivery, got %d", delivered)
	}
	if p := <-got; p.OrderID != "42" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestOnPassesThroughMatchingType(t *testing.T) {
	type orderCreated struct{ OrderID string }

	d := NewDispatcher(nil, nil)
	got := make(chan orderCreated, 1)
	On(d, "orders", "*", func(ctx context.Context, env envelope.Envelope, payload orderCreated) error {
		got <- payload
		return nil
	})

	d.Dispatch(context.Background(), envelope.Envelope{
		Topic:   "orders",
		Payload: orderCreated{OrderID: "7"},
	})
	if p := <-got; p.OrderID != "7" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestOnStringHandlerGetsRawPayload(t *testing.T) {
	d := NewDispatcher(nil, nil)
	got := make(chan string, 1)
	On(d, "logs", "*", func(ctx context.Context, env envelope.Envelope, payload string) error {
		got <- payload
		return nil
	})

	d.Dispatch(context.Background(), envelope.Envelope{
		Topic:   "logs",
		Payload: []byte("not json at all"),
	})
	if p := <-got; p != "not json at all" {
		t.Fatalf("unexpected payload: %q", p)
	}
}

func TestOnDecodeFailureCountsAsHandlerFailure(t *testing.T) {
	type strict struct {
		N int `json:"n"`
	}

	d := NewDispatcher(nil, nil)
	invoked := false
	On(d, "orders", "*", func(ctx context.Context, env envelope.Envelope, payload strict) error {
		invoked = true
		return nil
	})

	delivered := d.Dispatch(context.Background(), envelope.Envelope{
		Topic:   "orders",
		Payload: 3.14, // neither strict, []byte nor string
	})
	if delivered != 1 {
		t.Fatalf("binding still matches, got %d", delivered)
	}
	if invoked {
		t.Fatal("typed handler must not run on decode failure")
	}
}
