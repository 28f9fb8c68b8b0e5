package lifecycle

import (
	"log/slog"
	"testing"

	"readyparser/internal/shared/testutil"
	"readyparser/pkg/contracts/domain"
)

var day = testutil.Day

func testLogger(t *testing.T) *slog.Logger {
	logger, _ := testutil.NewTestLogger(t)
	return logger
}

func writeInventory(t *testing.T, dir string, rows []testutil.InventoryRow) string {
	t.Helper()
	return testutil.WriteInventory(t, dir, "inventory.xlsx", rows)
}

func record(pid string, qty int, be, sbe string) domain.AssetRecord {
	return domain.AssetRecord{
		ItemQuantity:      qty,
		ProductID:         pid,
		BusinessEntity:    be,
		SubBusinessEntity: sbe,
		MajorMinor:        domain.Major,
	}
}
