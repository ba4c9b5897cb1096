package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decoding log entry %q: %v", buf.String(), err)
	}
	return entry
}

func TestWithRunTagsEveryEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := WithRun(zerolog.New(&buf), "golden-falcon-1234")
	logger.Info().Msg("hello")

	entry := decodeEntry(t, &buf)
	if entry["run"] != "golden-falcon-1234" {
		t.Errorf("run field = %v, want golden-falcon-1234", entry["run"])
	}
}

func TestWithTickerTagsEveryEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := WithTicker(zerolog.New(&buf), "CL=F")
	logger.Warn().Msg("no rows")

	entry := decodeEntry(t, &buf)
	if entry["ticker"] != "CL=F" {
		t.Errorf("ticker field = %v, want CL=F", entry["ticker"])
	}
}

func TestLogTradeFields(t *testing.T) {
	var buf bytes.Buffer
	LogTrade(zerolog.New(&buf), "BUY", "AAPL", 7, 189.5, 4321.25)

	entry := decodeEntry(t, &buf)
	if entry["event"] != "trade" || entry["action"] != "BUY" || entry["ticker"] != "AAPL" {
		t.Errorf("trade identity fields = %v", entry)
	}
	if entry["quantity"] != float64(7) {
		t.Errorf("quantity = %v, want 7", entry["quantity"])
	}
	if entry["price"] != 189.5 || entry["cash"] != 4321.25 {
		t.Errorf("price/cash = %v/%v", entry["price"], entry["cash"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
}
