// Package export writes reconciled transfer ledgers to disk and renders
// console summaries.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"solana-wallet-ledger/internal/domain"
)

// DefaultFilename is where a run's ledger lands unless overridden.
const DefaultFilename = "usdc_transfers.json"

// usdcDecimals scales raw units to display units in summaries.
const usdcDecimals = 1e6

// transferRecord is the on-disk JSON shape of one transfer.
type transferRecord struct {
	Signature string `json:"signature"`
	Timestamp string `json:"timestamp"`
	Amount    uint64 `json:"amount"`
	Direction string `json:"direction"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// WriteJSON writes the transfer list to path as a JSON array, overwriting
// any prior contents. Timestamps are rendered as RFC 3339 UTC.
func WriteJSON(path string, events []*domain.TransferEvent) error {
	records := make([]transferRecord, 0, len(events))
	for _, e := range events {
		records = append(records, transferRecord{
			Signature: e.Signature,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Amount:    e.Amount,
			Direction: string(e.Direction),
			From:      e.From,
			To:        e.To,
		})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transfers: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderSummary renders a console summary of a run: each transfer plus
// sent/received/net totals in display units (6 decimals).
func RenderSummary(wallet string, events []*domain.TransferEvent) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("USDC transfers for %s: %d\n", wallet, len(events)))

	var sent, received uint64
	for _, e := range events {
		sb.WriteString(fmt.Sprintf("  %s  %s  %-8s  %.6f  %s -> %s\n",
			e.Timestamp.UTC().Format(time.RFC3339),
			e.Signature,
			e.Direction,
			float64(e.Amount)/usdcDecimals,
			e.From,
			e.To,
		))
		switch e.Direction {
		case domain.DirectionSent:
			sent += e.Amount
		case domain.DirectionReceived:
			received += e.Amount
		}
	}

	net := float64(received)/usdcDecimals - float64(sent)/usdcDecimals
	sb.WriteString(fmt.Sprintf("Total sent: %.6f, received: %.6f, net: %.6f\n",
		float64(sent)/usdcDecimals, float64(received)/usdcDecimals, net))

	return sb.String()
}
