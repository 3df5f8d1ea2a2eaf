package cache

import "testing"

func TestKeySeparatesPrefix(t *testing.T) {
	c := NewRedis(nil, "thread-summary")
	if got := c.key("summary:C1:1.2:U1"); got != "thread-summary:summary:C1:1.2:U1" {
		t.Fatalf("неожиданный ключ %q", got)
	}
}

func TestKeyWithoutPrefix(t *testing.T) {
	c := NewRedis(nil, "")
	if got := c.key("summary:C1"); got != "summary:C1" {
		t.Fatalf("неожиданный ключ %q", got)
	}
}
