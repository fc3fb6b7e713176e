package server_test

import (
	"testing"
	"time"

	"kvs/internal/client"
	"kvs/internal/kverrors"
	"kvs/internal/logengine"
	"kvs/internal/pool"
	"kvs/internal/server"
)

func startServer(t *testing.T) (addr string, stop func()) {
	t.Helper()

	eng, err := logengine.Open(t.TempDir(), 4096, time.Second)
	if err != nil {
		t.Fatalf("logengine.Open() error = %v", err)
	}

	p := pool.NewSharedQueue(1)

	srv, err := server.New("127.0.0.1:0", eng, p)
	if err != nil {
		t.Fatalf("server.New() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Run() }()

	return srv.Addr(), func() {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("server.Run() did not return after shutdown")
		}
		eng.Close()
	}
}

func TestShutdown(t *testing.T) {
	addr, stop := startServer(t)
	c := client.New(addr)
	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	stop()
}

func TestSeveralOperationsFromSingleClient(t *testing.T) {
	addr, stop := startServer(t)
	c := client.New(addr)

	if err := c.Set("K1", "V1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value, ok, err := c.Get("K1")
	if err != nil || !ok || value != "V1" {
		t.Errorf("Get() = (%q, %v, %v), want (V1, true, nil)", value, ok, err)
	}

	if err := c.Remove("K1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	_, ok, err = c.Get("K1")
	if err != nil || ok {
		t.Errorf("Get() after remove = (%v, %v), want (false, nil)", ok, err)
	}

	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	stop()
}

func TestRemoveNonexistentKeyOverNetworkIsKeyNotFound(t *testing.T) {
	addr, stop := startServer(t)
	c := client.New(addr)

	err := c.Remove("absent")
	if err == nil {
		t.Fatal("Remove() on absent key returned nil error")
	}
	if key, ok := kverrors.KeyOf(err); !ok || key != "absent" {
		t.Errorf("Remove() on absent key returned %v, want a KindKeyNotFound error for %q", err, "absent")
	}

	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	stop()
}
