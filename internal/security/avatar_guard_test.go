package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestNewAvatarGuard はAvatarGuardの生成をテストする。
func TestNewAvatarGuard(t *testing.T) {
	guard := NewAvatarGuard()
	if guard == nil {
		t.Fatal("NewAvatarGuard() returned nil")
	}
}

// TestNewSafeClient はSSRF防止付きHTTPクライアントの生成をテストする。
func TestNewSafeClient(t *testing.T) {
	guard := NewAvatarGuard()
	client := guard.NewSafeClient(5*time.Second, 2*1024*1024)
	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
}

// TestNewSafeClientTimeout はタイムアウト設定が反映されることをテストする。
func TestNewSafeClientTimeout(t *testing.T) {
	guard := NewAvatarGuard()
	timeout := 5 * time.Second
	client := guard.NewSafeClient(timeout, 2*1024*1024)
	if client.Timeout != timeout {
		t.Errorf("expected timeout %v, got %v", timeout, client.Timeout)
	}
}

// TestNewSafeClientHasTransport はSafeClientにカスタムTransportが設定されていることをテストする。
// safeurlはnet.DialerのControlフックでIPアドレス検証を行うため、
// Transportが標準のhttp.DefaultTransportではないことを確認する。
func TestNewSafeClientHasTransport(t *testing.T) {
	guard := NewAvatarGuard()
	client := guard.NewSafeClient(5*time.Second, 2*1024*1024)

	if client.Transport == nil {
		t.Fatal("expected custom Transport to be set, got nil")
	}
	if client.Transport == http.DefaultTransport {
		t.Fatal("expected custom Transport, got http.DefaultTransport")
	}
}

// TestNewSafeClientBlocksLoopback はSafeClientがループバックへのリクエストをブロックすることをテストする。
// httptestサーバーは127.0.0.1で起動されるため、safeurlがブロックする。
func TestNewSafeClientBlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	guard := NewAvatarGuard()
	client := guard.NewSafeClient(5*time.Second, 2*1024*1024)

	_, err := client.Get(ts.URL)
	if err == nil {
		t.Fatal("expected error for loopback address request, got nil")
	}
}

// TestValidateURL_PublicHTTPSURL は公開httpsURLの検証が成功することをテストする。
func TestValidateURL_PublicHTTPSURL(t *testing.T) {
	guard := NewAvatarGuard()

	publicURLs := []string{
		"https://lh3.googleusercontent.com/a/avatar",
		"https://example.com/photo.jpg",
	}

	for _, u := range publicURLs {
		t.Run(u, func(t *testing.T) {
			err := guard.ValidateURL(u)
			if err != nil {
				t.Errorf("ValidateURL(%q) returned error: %v", u, err)
			}
		})
	}
}

// TestValidateURL_HTTPRejected はhttpスキームの拒否をテストする。
// アバターURLはhttpsのみを許可する。
func TestValidateURL_HTTPRejected(t *testing.T) {
	guard := NewAvatarGuard()

	err := guard.ValidateURL("http://example.com/photo.jpg")
	if err == nil {
		t.Error("ValidateURL should have returned error for http scheme")
	}
}

// TestValidateURL_PrivateIP はプライベートIPアドレスの拒否をテストする。
func TestValidateURL_PrivateIP(t *testing.T) {
	guard := NewAvatarGuard()

	privateURLs := []string{
		"https://10.0.0.1/avatar",
		"https://172.16.0.1/avatar",
		"https://192.168.1.100/avatar",
	}

	for _, u := range privateURLs {
		t.Run(u, func(t *testing.T) {
			err := guard.ValidateURL(u)
			if err == nil {
				t.Errorf("ValidateURL(%q) should have returned error for private IP", u)
			}
		})
	}
}

// TestValidateURL_LoopbackAddress はループバックアドレスの拒否をテストする。
func TestValidateURL_LoopbackAddress(t *testing.T) {
	guard := NewAvatarGuard()

	loopbackURLs := []string{
		"https://127.0.0.1/avatar",
		"https://localhost/avatar",
	}

	for _, u := range loopbackURLs {
		t.Run(u, func(t *testing.T) {
			err := guard.ValidateURL(u)
			if err == nil {
				t.Errorf("ValidateURL(%q) should have returned error for loopback address", u)
			}
		})
	}
}

// TestValidateURL_MetadataIP はクラウドメタデータIPアドレスの拒否をテストする。
func TestValidateURL_MetadataIP(t *testing.T) {
	guard := NewAvatarGuard()

	err := guard.ValidateURL("https://169.254.169.254/latest/meta-data/")
	if err == nil {
		t.Error("ValidateURL should have returned error for metadata IP")
	}
}

// TestValidateURL_InvalidURL は無効なURLの検証が失敗することをテストする。
func TestValidateURL_InvalidURL(t *testing.T) {
	guard := NewAvatarGuard()

	invalidURLs := []string{
		"",
		"not-a-url",
		"ftp://example.com/avatar",
		"file:///etc/passwd",
		"javascript:alert(1)",
	}

	for _, u := range invalidURLs {
		t.Run(u, func(t *testing.T) {
			err := guard.ValidateURL(u)
			if err == nil {
				t.Errorf("ValidateURL(%q) should have returned error for invalid URL", u)
			}
		})
	}
}

// TestValidateURL_IPv6Loopback はIPv6ループバックアドレスの拒否をテストする。
func TestValidateURL_IPv6Loopback(t *testing.T) {
	guard := NewAvatarGuard()

	err := guard.ValidateURL("https://[::1]/avatar")
	if err == nil {
		t.Error("ValidateURL(\"https://[::1]/avatar\") should have returned error for IPv6 loopback")
	}
}

// TestAvatarGuardInterface はAvatarGuardがインターフェースを正しく実装していることをテストする。
func TestAvatarGuardInterface(t *testing.T) {
	var _ AvatarGuardService = NewAvatarGuard()
}
