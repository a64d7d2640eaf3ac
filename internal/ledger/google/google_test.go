package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tally/internal/ledger"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing spreadsheet id" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "test-id"})
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "missing Google credentials") {
		t.Errorf("expected credentials error, got: %v", err)
	}
}

func TestResolveCredentials(t *testing.T) {
	dir := t.TempDir()
	credsFile := filepath.Join(dir, "creds.json")
	if err := os.WriteFile(credsFile, []byte(`{"type":"service_account","from":"file"}`), 0644); err != nil {
		t.Fatalf("write credentials file: %v", err)
	}

	t.Run("inline wins over file", func(t *testing.T) {
		got, err := resolveCredentials(Config{
			CredentialsJSON: `{"from":"inline"}`,
			CredentialsFile: credsFile,
		})
		if err != nil {
			t.Fatalf("resolveCredentials: %v", err)
		}
		if !strings.Contains(string(got), "inline") {
			t.Errorf("expected inline credentials, got %s", got)
		}
	})

	t.Run("file fallback", func(t *testing.T) {
		got, err := resolveCredentials(Config{CredentialsFile: credsFile})
		if err != nil {
			t.Fatalf("resolveCredentials: %v", err)
		}
		if !strings.Contains(string(got), "from") {
			t.Errorf("expected file contents, got %s", got)
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		if _, err := resolveCredentials(Config{CredentialsFile: filepath.Join(dir, "missing.json")}); err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}

func TestClient_AppendWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: "Ledger"} // svc never initialized

	_, err := c.Append(context.Background(), ledger.Entry{Event: "transaction.created"})
	if err == nil {
		t.Fatal("expected error with nil service")
	}
	if !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("unexpected error: %v", err)
	}
}
