package policy

import (
	"context"
	"testing"
)

func TestCurlGuard_DeniesPlainHTTPByDefault(t *testing.T) {
	g := NewCurlGuard(false, nil, 0)
	if err := g.CheckURL(context.Background(), "http://example.com"); err == nil {
		t.Fatal("expected plain http to be denied")
	}
}

func TestCurlGuard_AllowsHTTPS(t *testing.T) {
	g := NewCurlGuard(false, nil, 0)
	if err := g.CheckURL(context.Background(), "https://example.com/api"); err != nil {
		t.Fatalf("expected https to be allowed, got: %v", err)
	}
}

func TestCurlGuard_DeniesLoopbackAndPrivate(t *testing.T) {
	g := NewCurlGuard(false, nil, 0)
	cases := []string{
		"https://127.0.0.1:8080/",
		"https://localhost/",
		"https://10.0.0.5/",
		"https://169.254.169.254/latest/meta-data/",
	}
	for _, u := range cases {
		if err := g.CheckURL(context.Background(), u); err == nil {
			t.Errorf("expected %q to be denied", u)
		}
	}
}

func TestCurlGuard_AllowedHostsBypassesPrivateCheck(t *testing.T) {
	g := NewCurlGuard(false, []string{"10.0.0.5"}, 0)
	if err := g.CheckURL(context.Background(), "https://10.0.0.5/"); err != nil {
		t.Fatalf("expected allow-listed host to pass, got: %v", err)
	}
}

func TestCurlGuard_MaxBytesFallsBackToDefault(t *testing.T) {
	g := NewCurlGuard(false, nil, 0)
	if got := g.MaxBytes(1024); got != 1024 {
		t.Errorf("MaxBytes() = %d, want 1024 (fallback)", got)
	}

	g2 := NewCurlGuard(false, nil, 4096)
	if got := g2.MaxBytes(1024); got != 4096 {
		t.Errorf("MaxBytes() = %d, want 4096 (configured)", got)
	}
}
