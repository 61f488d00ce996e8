package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

// pipeEnd closes both halves of one side of an in-memory connection.
type pipeEnd struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p pipeEnd) Close() error {
	p.w.Close()
	return p.r.Close()
}

// transportPair returns two started transports connected to each other.
func transportPair(t *testing.T) (client, peer *Transport) {
	t.Helper()

	c2pR, c2pW := io.Pipe()
	p2cR, p2cW := io.Pipe()

	client = NewTransport(p2cR, c2pW, pipeEnd{r: p2cR, w: c2pW})
	peer = NewTransport(c2pR, p2cW, pipeEnd{r: c2pR, w: p2cW})

	ctx, cancel := context.WithCancel(context.Background())
	client.Start(ctx)
	peer.Start(ctx)

	t.Cleanup(func() {
		cancel()
		client.Close()
		peer.Close()
	})
	return client, peer
}

func TestTransportCall(t *testing.T) {
	client, peer := transportPair(t)

	peer.OnRequest("echo", func(_ context.Context, params json.RawMessage) (any, error) {
		var p struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		return map[string]string{"echo": strings.ToUpper(p.Text)}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var result struct {
		Echo string `json:"echo"`
	}
	if err := client.Call(ctx, "echo", map[string]string{"text": "hello"}, &result); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.Echo != "HELLO" {
		t.Errorf("result: got %q, want HELLO", result.Echo)
	}
}

func TestTransportConcurrentCalls(t *testing.T) {
	client, peer := transportPair(t)

	peer.OnRequest("id", func(_ context.Context, params json.RawMessage) (any, error) {
		return params, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func(n int) {
			var got int
			if err := client.Call(ctx, "id", n, &got); err != nil {
				errs <- err
				return
			}
			if got != n {
				errs <- errors.New("response routed to wrong caller")
				return
			}
			errs <- nil
		}(i)
	}
	for i := 0; i < 10; i++ {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
}

func TestTransportMethodNotFound(t *testing.T) {
	client, _ := transportPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := client.Call(ctx, "no/such/method", nil, nil)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %v", err)
	}
	if rpcErr.Code != CodeMethodNotFound {
		t.Errorf("code: got %d, want %d", rpcErr.Code, CodeMethodNotFound)
	}
}

func TestTransportHandlerError(t *testing.T) {
	client, peer := transportPair(t)

	peer.OnRequest("fail", func(context.Context, json.RawMessage) (any, error) {
		return nil, errors.New("boom")
	})
	peer.OnRequest("invalid", func(context.Context, json.RawMessage) (any, error) {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "bad params"}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var rpcErr *RPCError
	if err := client.Call(ctx, "fail", nil, nil); !errors.As(err, &rpcErr) || rpcErr.Code != CodeInternalError {
		t.Errorf("fail: got %v, want internal error", err)
	}
	if err := client.Call(ctx, "invalid", nil, nil); !errors.As(err, &rpcErr) || rpcErr.Code != CodeInvalidParams {
		t.Errorf("invalid: got %v, want invalid params", err)
	}
}

func TestTransportNotificationsInOrder(t *testing.T) {
	client, peer := transportPair(t)

	got := make(chan string, 3)
	peer.OnNotification("step", func(_ string, params json.RawMessage) {
		var s string
		_ = json.Unmarshal(params, &s)
		got <- s
	})

	ctx := context.Background()
	for _, s := range []string{"one", "two", "three"} {
		if err := client.Notify(ctx, "step", s); err != nil {
			t.Fatalf("Notify: %v", err)
		}
	}

	for _, want := range []string{"one", "two", "three"} {
		select {
		case s := <-got:
			if s != want {
				t.Errorf("notification: got %q, want %q", s, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for notification")
		}
	}
}

func TestTransportWildcardNotification(t *testing.T) {
	client, peer := transportPair(t)

	got := make(chan string, 1)
	peer.OnNotification("*", func(method string, _ json.RawMessage) {
		got <- method
	})

	if err := client.Notify(context.Background(), "$/progress", nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	select {
	case method := <-got:
		if method != "$/progress" {
			t.Errorf("method: got %q", method)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}
}

func TestTransportCloseUnblocksCall(t *testing.T) {
	client, peer := transportPair(t)

	block := make(chan struct{})
	defer close(block)
	peer.OnRequest("slow", func(ctx context.Context, _ json.RawMessage) (any, error) {
		<-block
		return nil, nil
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- client.Call(context.Background(), "slow", nil, nil)
	}()

	time.Sleep(50 * time.Millisecond)
	client.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrShutdown) {
			t.Errorf("got %v, want ErrShutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Call did not return after Close")
	}

	if err := client.Call(context.Background(), "slow", nil, nil); !errors.Is(err, ErrShutdown) {
		t.Errorf("Call after Close: got %v, want ErrShutdown", err)
	}
	if err := client.Notify(context.Background(), "x", nil); !errors.Is(err, ErrShutdown) {
		t.Errorf("Notify after Close: got %v, want ErrShutdown", err)
	}
}

func TestTransportCallContextCanceled(t *testing.T) {
	client, peer := transportPair(t)

	block := make(chan struct{})
	defer close(block)
	peer.OnRequest("slow", func(context.Context, json.RawMessage) (any, error) {
		<-block
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := client.Call(ctx, "slow", nil, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want DeadlineExceeded", err)
	}
}

func TestTransportPeerClosed(t *testing.T) {
	client, peer := transportPair(t)

	peer.Close()

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client transport did not close after peer hung up")
	}
	if !client.IsClosed() {
		t.Error("IsClosed should report true")
	}
}

func TestReadMessage(t *testing.T) {
	body := `{"jsonrpc":"2.0","method":"x"}`
	input := "Content-Type: application/vscode-jsonrpc\r\ncontent-length: 30\r\n\r\n" + body

	tr := NewTransport(strings.NewReader(input), io.Discard, nil)
	msg, err := tr.readMessage()
	if err != nil {
		t.Fatalf("readMessage: %v", err)
	}
	if string(msg) != body {
		t.Errorf("body: got %q, want %q", msg, body)
	}

	tr = NewTransport(strings.NewReader("\r\n{}"), io.Discard, nil)
	if _, err := tr.readMessage(); err == nil {
		t.Error("expected error for missing Content-Length")
	}
}
