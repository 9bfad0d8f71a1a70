package cache

import (
	"strings"
	"testing"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name  string
		sub   string
		parts []string
		want  string
	}{
		{"publishers", "sub1", []string{"eastus"}, "sub1-eastus"},
		{"offers", "sub1", []string{"Canonical", "westeurope"}, "sub1-Canonical-westeurope"},
		{"skus", "sub1", []string{"Canonical", "UbuntuServer", "eastus"}, "sub1-Canonical-UbuntuServer-eastus"},
		{"subscription only", "sub1", nil, "sub1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.sub, tt.parts...); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_ScopedBySubscription(t *testing.T) {
	a := Key("sub1", "eastus")
	b := Key("sub2", "eastus")
	if a == b {
		t.Error("keys for different subscriptions should differ")
	}
	if !strings.HasPrefix(Key("sub1", "Canonical", "eastus"), SubscriptionPrefix("sub1")) {
		t.Error("key should start with its subscription prefix")
	}
}

func TestKey_Deterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		if Key("s", "p", "o", "l") != "s-p-o-l" {
			t.Fatal("Key should be deterministic")
		}
	}
}
