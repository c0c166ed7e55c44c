package tcp_test

import (
	"net"
	"testing"
	"time"

	"github.com/mgreenly/space-captain/logger"
	"github.com/mgreenly/space-captain/pool"
	"github.com/mgreenly/space-captain/queue"
	"github.com/mgreenly/space-captain/server/tcp"
	"github.com/mgreenly/space-captain/wire"
)

func TestServeEnqueuesDecodedMessage(t *testing.T) {
	connPool := pool.New(4, logger.Nop())
	q, err := queue.New(4)
	if err != nil {
		t.Fatal(err)
	}

	srv, err := tcp.Listen("127.0.0.1:0", connPool, q, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()
	go srv.Serve()

	client, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	msg := wire.LegacyMessage{Header: wire.LegacyHeader{Type: wire.LegacyEcho}, Payload: []byte("hi")}
	if _, err := client.Write(msg.Encode()); err != nil {
		t.Fatal(err)
	}

	item, err := q.Pop(2 * time.Second)
	if err != nil {
		t.Fatalf("expected an enqueued item, got error: %v", err)
	}
	if item.Message.Header.MessageType != wire.LegacyEcho {
		t.Fatalf("expected LegacyEcho, got %v", item.Message.Header.MessageType)
	}
	if string(item.Message.Payload) != "hi" {
		t.Fatalf("expected payload %q, got %q", "hi", item.Message.Payload)
	}
}
