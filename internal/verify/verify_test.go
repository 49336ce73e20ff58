package verify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const poolMetadata = `{"name":"Example Pool","ticker":"EXMPL","description":"test pool","homepage":"https://example.com"}`

func serve(t *testing.T, status int, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerifyMatch(t *testing.T) {
	blob := []byte(poolMetadata)
	srv := serve(t, http.StatusOK, blob)

	result, err := New(Config{}).Verify(context.Background(), srv.URL, Digest(blob))
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if !result.Match {
		t.Fatalf("expected match, got %#v", result)
	}
	if result.Size != len(blob) {
		t.Fatalf("expected size %d, got %d", len(blob), result.Size)
	}
	if result.Metadata == nil || result.Metadata.Ticker != "EXMPL" {
		t.Fatalf("expected decoded metadata, got %#v", result.Metadata)
	}
}

func TestVerifyFlippedBitMismatch(t *testing.T) {
	blob := []byte(poolMetadata)
	srv := serve(t, http.StatusOK, blob)
	good := Digest(blob)
	v := New(Config{})

	for i := 0; i < len(good); i++ {
		flipped := []byte(good)
		nibble := hexValue(flipped[i]) ^ 0x1
		flipped[i] = "0123456789abcdef"[nibble]

		result, err := v.Verify(context.Background(), srv.URL, string(flipped))
		if err != nil {
			t.Fatalf("verify error: %v", err)
		}
		if result.Match {
			t.Fatalf("expected mismatch with flipped digit %d", i)
		}
		if result.ComputedHash != good {
			t.Fatalf("computed hash changed: %s", result.ComputedHash)
		}
	}
}

func TestVerifyMismatchScenario(t *testing.T) {
	srv := serve(t, http.StatusOK, []byte("def456"))

	result, err := New(Config{}).Verify(context.Background(), srv.URL, "abc123")
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if result.Match {
		t.Fatalf("expected mismatch")
	}
	if result.ExpectedHash != "abc123" || result.ComputedHash == "" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestVerifyIsCaseSensitive(t *testing.T) {
	blob := []byte("blob")
	srv := serve(t, http.StatusOK, blob)
	upper := []byte(Digest(blob))
	for i, c := range upper {
		if c >= 'a' && c <= 'f' {
			upper[i] = c - 'a' + 'A'
		}
	}

	result, err := New(Config{}).Verify(context.Background(), srv.URL, string(upper))
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if result.Match {
		t.Fatalf("expected uppercase hash not to match")
	}
}

func TestVerifyNonSuccessStatus(t *testing.T) {
	srv := serve(t, http.StatusNotFound, []byte("missing"))

	result, err := New(Config{}).Verify(context.Background(), srv.URL, Digest([]byte("missing")))
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if result.Match || result.ComputedHash != "" || result.Error == "" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestVerifyTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	result, err := New(Config{Timeout: 50 * time.Millisecond}).Verify(context.Background(), srv.URL, "00")
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if result.Match {
		t.Fatalf("expected no match on timeout")
	}
}

func TestVerifyRejectsInvalidHash(t *testing.T) {
	for _, hash := range []string{"", "xyz", "abc"} {
		result, err := New(Config{}).Verify(context.Background(), "http://127.0.0.1:1/", hash)
		if !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("expected ErrInvalidHash for %q, got %v", hash, err)
		}
		if result.Match {
			t.Fatalf("expected no match for %q", hash)
		}
	}
}

func TestVerifyBodyLimit(t *testing.T) {
	srv := serve(t, http.StatusOK, make([]byte, 64))

	_, err := New(Config{MaxSize: 16}).Verify(context.Background(), srv.URL, "00")
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch for oversized body, got %v", err)
	}
}

func TestDigestKnownValue(t *testing.T) {
	// BLAKE2b-256 of the empty input.
	want := "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"
	if got := Digest(nil); got != want {
		t.Fatalf("Digest(nil) = %s, want %s", got, want)
	}
}

func hexValue(c byte) byte {
	if c >= 'a' {
		return c - 'a' + 10
	}
	return c - '0'
}
