package tlsconfig

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMutualTLSHandshake(t *testing.T) {
	dir := t.TempDir()
	ca, caKey, err := EnsureCA(dir, "test-ca", time.Hour)
	if err != nil {
		t.Fatalf("EnsureCA: %v", err)
	}
	srvCert, srvKey, err := IssueCertificate(dir, "server", "localhost", ServerAuth, ca, caKey, time.Hour, []string{"127.0.0.1", "localhost"})
	if err != nil {
		t.Fatalf("issue server: %v", err)
	}
	cliCert, cliKey, err := IssueCertificate(dir, "client", "agent_1", ClientAuth, ca, caKey, time.Hour, nil)
	if err != nil {
		t.Fatalf("issue client: %v", err)
	}
	caPath, _, _, _ := Paths(dir, "")

	serverCfg, err := ServerTLSConfig(srvCert, srvKey, caPath)
	if err != nil {
		t.Fatalf("ServerTLSConfig: %v", err)
	}
	if serverCfg.ClientAuth != tls.RequireAndVerifyClientCert {
		t.Fatalf("expected client certs to be required")
	}

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.TLS.PeerCertificates[0].Subject.CommonName))
	}))
	srv.TLS = serverCfg
	srv.StartTLS()
	defer srv.Close()

	clientCfg, err := ClientTLSConfig(caPath, cliCert, cliKey, "127.0.0.1")
	if err != nil {
		t.Fatalf("ClientTLSConfig: %v", err)
	}
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: clientCfg}}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("mTLS request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	anon, err := ClientTLSConfig(caPath, "", "", "127.0.0.1")
	if err != nil {
		t.Fatalf("ClientTLSConfig: %v", err)
	}
	bare := &http.Client{Transport: &http.Transport{TLSClientConfig: anon}}
	if resp, err := bare.Get(srv.URL); err == nil {
		resp.Body.Close()
		t.Fatalf("expected handshake failure without a client certificate")
	}
}

func TestEnsureCAReusesExisting(t *testing.T) {
	dir := t.TempDir()
	first, _, err := EnsureCA(dir, "ca", time.Hour)
	if err != nil {
		t.Fatalf("EnsureCA: %v", err)
	}
	second, _, err := EnsureCA(dir, "ca", time.Hour)
	if err != nil {
		t.Fatalf("EnsureCA again: %v", err)
	}
	if first.SerialNumber.Cmp(second.SerialNumber) != 0 {
		t.Fatalf("expected the existing CA to be reused")
	}
}

func TestServerTLSConfigWithoutClientCA(t *testing.T) {
	dir := t.TempDir()
	ca, caKey, err := EnsureCA(dir, "ca", time.Hour)
	if err != nil {
		t.Fatalf("EnsureCA: %v", err)
	}
	cert, key, err := IssueCertificate(dir, "server", "localhost", ServerAuth, ca, caKey, time.Hour, []string{"localhost"})
	if err != nil {
		t.Fatalf("IssueCertificate: %v", err)
	}
	cfg, err := ServerTLSConfig(cert, key, "")
	if err != nil {
		t.Fatalf("ServerTLSConfig: %v", err)
	}
	if cfg.ClientAuth != tls.NoClientCert {
		t.Fatalf("expected no client auth")
	}
	if _, err := ServerTLSConfig(cert, key, dir+"/missing.pem"); err == nil {
		t.Fatalf("expected error for missing client CA")
	}
}
