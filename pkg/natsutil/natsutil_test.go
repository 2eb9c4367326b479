package natsutil

import (
	"testing"

	"github.com/nats-io/nats.go"
)

func TestMsgCarrierRoundTrip(t *testing.T) {
	msg := &nats.Msg{}
	c := (*msgCarrier)(msg)

	c.Set("traceparent", "00-abc-def-01")
	if got := c.Get("traceparent"); got != "00-abc-def-01" {
		t.Fatalf("got %q", got)
	}
	if keys := c.Keys(); len(keys) != 1 {
		t.Fatalf("keys = %v", keys)
	}
}

func TestMsgCarrierNilHeader(t *testing.T) {
	c := (*msgCarrier)(&nats.Msg{})
	if got := c.Get("missing"); got != "" {
		t.Fatalf("got %q", got)
	}
	if keys := c.Keys(); keys != nil {
		t.Fatalf("keys = %v", keys)
	}
}

func TestPublishRejectsUnmarshalable(t *testing.T) {
	// json.Marshal fails before the connection is touched.
	err := Publish(t.Context(), nil, "claimlens.test", make(chan int))
	if err == nil {
		t.Fatal("expected marshal error")
	}
}
