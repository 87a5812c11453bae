package signal

import "testing"

func TestIsInternalHost(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"127.0.0.1", true},
		{"169.254.169.254", true},
		{"10.1.2.3", true},
		{"172.20.0.1", true},
		{"192.168.1.10", true},
		{"[::1]", true},
		{"localhost", true},
		{"metadata.google.internal", true},
		{"example.com", false},
		{"8.8.8.8", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsInternalHost(tc.in); got != tc.want {
			t.Fatalf("IsInternalHost(%q)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestInternalReferences(t *testing.T) {
	got := InternalReferences("URL to fetch - try http://169.254.169.254/latest/meta-data/ or https://example.com")
	if len(got) != 1 || got[0] != "http://169.254.169.254/latest/meta-data/" {
		t.Fatalf("unexpected references %v", got)
	}
	if got := InternalReferences("read file:///etc/passwd"); len(got) != 1 {
		t.Fatalf("expected unsafe scheme reference, got %v", got)
	}
	if got := InternalReferences("reach 10.0.0.5 directly"); len(got) != 1 || got[0] != "10.0.0.5" {
		t.Fatalf("expected bare private address, got %v", got)
	}
	if got := InternalReferences("public docs at https://docs.example.org/api"); len(got) != 0 {
		t.Fatalf("expected no references, got %v", got)
	}
}

func TestClassifyTLD(t *testing.T) {
	if got := ClassifyTLD(TLD("malicious-collector.darkweb.onion"), nil); got == "" {
		t.Fatal("expected .onion to be flagged")
	}
	if got := ClassifyTLD("com", nil); got != "" {
		t.Fatalf("expected .com to pass, got %q", got)
	}
	if got := ClassifyTLD("biz", []string{".BIZ"}); got == "" {
		t.Fatal("expected operator TLD to be flagged")
	}
}

func TestHostWithin(t *testing.T) {
	if !HostWithin("hooks.example.com", "example.com") || !HostWithin("example.com", "*.example.com") {
		t.Fatal("expected subdomain match")
	}
	if HostWithin("badexample.com", "example.com") {
		t.Fatal("expected suffix without dot boundary to fail")
	}
}
