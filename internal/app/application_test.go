package app_test

import (
	"context"
	"testing"

	"github.com/raysh454/threatcheck/internal/app"
	"github.com/raysh454/threatcheck/internal/model"
	"github.com/raysh454/threatcheck/internal/testutil"
)

func TestNewApplication_WiresHTTPStack(t *testing.T) {
	t.Parallel()
	a, err := app.NewApplication(app.DefaultConfig(), app.WithLogger(&testutil.DummyLogger{}))
	if err != nil {
		t.Fatalf("NewApplication: %v", err)
	}
	defer a.Shutdown(context.Background())

	if a.WebClient == nil || a.ScanClient == nil || a.Verifier == nil || a.Orch == nil || a.Metrics == nil {
		t.Fatalf("incomplete application: %+v", a)
	}
}

func TestNewApplication_RejectsBadScannerURL(t *testing.T) {
	t.Parallel()
	cfg := app.DefaultConfig()
	cfg.Scanner.Client.BaseURL = "ftp://scanner"
	if _, err := app.NewApplication(cfg, app.WithLogger(&testutil.DummyLogger{})); err == nil {
		t.Fatal("expected error for non-http scanner URL")
	}
}

func TestNewApplication_UnknownBackend(t *testing.T) {
	t.Parallel()
	cfg := app.DefaultConfig()
	cfg.Scanner.Transport.Client = "carrier-pigeon"
	if _, err := app.NewApplication(cfg, app.WithLogger(&testutil.DummyLogger{})); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestApplication_VerifyThroughInjectedClient(t *testing.T) {
	t.Parallel()
	client := &testutil.DummyScanClient{
		ByHashFunc: func(context.Context, string) (model.ScanCounters, error) {
			return model.ScanCounters{Malicious: 3}, nil
		},
	}
	cfg := app.DefaultConfig()
	cfg.Verifier.PollDelay = 0
	a, err := app.NewApplication(cfg, app.WithLogger(&testutil.DummyLogger{}), app.WithScanClient(client))
	if err != nil {
		t.Fatalf("NewApplication: %v", err)
	}
	defer a.Shutdown(context.Background())

	if a.WebClient != nil {
		t.Error("expected no web client when scan client is injected")
	}
	res := a.Verifier.Verify(context.Background(), model.CheckRequest{Hash: "44d88612fea8a8f36de82e1278abb02f"})
	if res.IsSafe || res.Level == nil || *res.Level != model.ThreatHigh {
		t.Errorf("result = %+v", res)
	}
}

func TestApplication_ShutdownNil(t *testing.T) {
	t.Parallel()
	var a *app.Application
	if err := a.Shutdown(context.Background()); err == nil {
		t.Error("expected error for nil application")
	}
}
