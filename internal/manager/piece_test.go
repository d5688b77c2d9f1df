package manager

import (
	"bytes"
	"testing"
)

func TestPutAndGet(t *testing.T) {
	m := New(t.TempDir())
	if err := m.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer m.Close()

	want := []byte("hello piece")
	if err := m.Put(3, want); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := m.Get(3)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Get() = %q, want %q", got, want)
	}
}

func TestOperationsBeforeInit(t *testing.T) {
	m := New(t.TempDir())
	if _, err := m.Get(0); err != ErrManagerClosed {
		t.Errorf("Get() before Init() error = %v, want ErrManagerClosed", err)
	}
	if err := m.Put(0, nil); err != ErrManagerClosed {
		t.Errorf("Put() before Init() error = %v, want ErrManagerClosed", err)
	}
}

func TestCloseRemovesStorage(t *testing.T) {
	m := New(t.TempDir())
	if err := m.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := m.Close(); err != ErrManagerClosed {
		t.Errorf("second Close() error = %v, want ErrManagerClosed", err)
	}
}
