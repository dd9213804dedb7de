package domain

import (
	"strings"
	"testing"
)

func TestNewPlayer(t *testing.T) {
	p, err := NewPlayer("sid-1", "alice")
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	if p.ID != "sid-1" || p.Name != "alice" {
		t.Fatalf("player = %+v", p)
	}
	if p.Health != 100 {
		t.Fatalf("initial health = %d, want 100", p.Health)
	}
	if p.Ready {
		t.Fatalf("new player must not be ready")
	}
}

func TestNewPlayerNameTooLong(t *testing.T) {
	if _, err := NewPlayer("sid-1", strings.Repeat("x", MaxNameLen+1)); err != ErrNameTooLong {
		t.Fatalf("err = %v, want ErrNameTooLong", err)
	}
}
