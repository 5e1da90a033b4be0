package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"solana-wallet-ledger/internal/domain"
)

const testWallet = "7cMEhpt9y3inBNVv8fNnuaEbx7hKHZnLvR1KWKKxuDDU"

func sampleEvents() []*domain.TransferEvent {
	return []*domain.TransferEvent{
		{
			Signature: "sig1",
			Timestamp: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			Amount:    1500000,
			Direction: domain.DirectionSent,
			From:      testWallet,
			To:        "counterparty",
		},
		{
			Signature: "sig2",
			Timestamp: time.Date(2024, 1, 15, 11, 30, 0, 0, time.UTC),
			Amount:    500000,
			Direction: domain.DirectionReceived,
			From:      "counterparty",
			To:        testWallet,
		},
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transfers.json")

	if err := WriteJSON(path, sampleEvents()); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0]["signature"] != "sig1" {
		t.Errorf("Signature mismatch: got %v", records[0]["signature"])
	}
	if records[0]["timestamp"] != "2024-01-15T12:00:00Z" {
		t.Errorf("Timestamp not RFC3339 UTC: got %v", records[0]["timestamp"])
	}
	if records[0]["amount"] != float64(1500000) {
		t.Errorf("Amount mismatch: got %v", records[0]["amount"])
	}
	if records[1]["direction"] != "Received" {
		t.Errorf("Direction mismatch: got %v", records[1]["direction"])
	}
}

func TestWriteJSON_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transfers.json")

	if err := WriteJSON(path, sampleEvents()); err != nil {
		t.Fatalf("First write failed: %v", err)
	}
	if err := WriteJSON(path, nil); err != nil {
		t.Fatalf("Second write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("Expected empty array after overwrite, got %s", data)
	}
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(testWallet, sampleEvents())

	if !strings.Contains(out, "USDC transfers for "+testWallet+": 2") {
		t.Errorf("Missing header: %s", out)
	}
	if !strings.Contains(out, "Total sent: 1.500000, received: 0.500000, net: -1.000000") {
		t.Errorf("Totals mismatch: %s", out)
	}
	if !strings.Contains(out, "sig1") || !strings.Contains(out, "sig2") {
		t.Errorf("Missing transfer lines: %s", out)
	}
}

func TestRenderSummary_Empty(t *testing.T) {
	out := RenderSummary(testWallet, nil)

	if !strings.Contains(out, ": 0") {
		t.Errorf("Missing zero count: %s", out)
	}
	if !strings.Contains(out, "Total sent: 0.000000, received: 0.000000, net: 0.000000") {
		t.Errorf("Totals mismatch: %s", out)
	}
}
