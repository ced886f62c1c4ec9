package pqlink_test

import (
	"testing"

	"github.com/jesiegel1/tls13/internal/pqlink"
)

func TestSmoke(t *testing.T) {
	if err := pqlink.Smoke(); err != nil {
		t.Fatalf("pqlink.Smoke failed: %v", err)
	}
}
