package lifecycle

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readyparser/pkg/contracts/domain"
)

func TestAggregate_SumsDuplicateKeys(t *testing.T) {
	d := domain.DateOf(2021, time.May, 1)

	first := record("WS-C1", 3, "Security", "Firewall")
	first.EndOfProductSale = d
	first.Coverage = "COVERED"
	first.InstallSiteName = "HQ"

	second := record("WS-C1", 5, "Security", "Firewall")
	second.EndOfProductSale = d
	second.Coverage = "NOT COVERED"
	second.ProductDescription = "Firewall appliance"

	other := record("WS-C2", 1, "Security", "Firewall")
	other.EndOfProductSale = d

	got := Aggregate([]domain.AssetRecord{first, second, other}, PortfolioOptions{
		Target: domain.EndOfProductSale,
		Mode:   domain.MultipleCustomers,
	})
	require.Len(t, got, 2)

	want := domain.AssetRecord{
		ItemQuantity:       8,
		Coverage:           "COVERED",
		ProductID:          "WS-C1",
		ProductDescription: "Firewall appliance",
		EndOfProductSale:   d,
		MajorMinor:         domain.Major,
		InstallSiteName:    "HQ",
	}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("merged row mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "WS-C2", got[1].ProductID)
	assert.Equal(t, 1, got[1].ItemQuantity)
}

func TestAggregate_FirstNonNullDateWins(t *testing.T) {
	d := domain.DateOf(2021, time.May, 1)

	first := record("X", 1, "Wireless", "")
	first.LastDateOfSupport = d

	second := record("X", 1, "Wireless", "")
	second.LastDateOfSupport = d
	second.LastRenewal = domain.DateOf(2022, time.March, 3)

	third := record("X", 1, "Wireless", "")
	third.LastDateOfSupport = d
	third.LastRenewal = domain.DateOf(2023, time.March, 3)

	got := Aggregate([]domain.AssetRecord{first, second, third}, PortfolioOptions{
		Target: domain.LastDateOfSupport,
		Mode:   domain.SingleCustomer,
	})
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].ItemQuantity)
	assert.True(t, got[0].LastRenewal.Equal(domain.DateOf(2022, time.March, 3)))
	assert.False(t, got[0].EndOfProductSale.Valid)
}

func TestAggregate_GroupingModes(t *testing.T) {
	a := record("WS-C1", 2, "Security", "")
	a.EndOfProductSale = domain.DateOf(2021, time.May, 1)
	b := record("WS-C1", 4, "Security", "")
	b.EndOfProductSale = domain.DateOf(2021, time.June, 1)

	t.Run("product and date", func(t *testing.T) {
		got := Aggregate([]domain.AssetRecord{b, a}, PortfolioOptions{Target: domain.EndOfProductSale, Mode: domain.SingleCustomer})
		require.Len(t, got, 2)
		assert.Equal(t, 2, got[0].ItemQuantity)
		assert.Equal(t, 4, got[1].ItemQuantity)
	})

	t.Run("product", func(t *testing.T) {
		got := Aggregate([]domain.AssetRecord{a, b}, PortfolioOptions{
			Target:   domain.EndOfProductSale,
			Mode:     domain.SingleCustomer,
			Grouping: GroupByProduct,
		})
		require.Len(t, got, 1)
		assert.Equal(t, 6, got[0].ItemQuantity)
		assert.True(t, got[0].EndOfProductSale.Equal(domain.DateOf(2021, time.May, 1)))
	})
}

func TestAggregate_DropsClassificationColumnsAndSite(t *testing.T) {
	r := record("P", 1, "Security", "Firewall")
	r.ProductType = "CHASSIS"
	r.InstallSiteName = "Branch 7"
	r.LastDateOfSupport = domain.DateOf(2025, time.January, 10)

	for _, mode := range domain.CustomerModes {
		t.Run(string(mode), func(t *testing.T) {
			got := Aggregate([]domain.AssetRecord{r}, PortfolioOptions{Target: domain.LastDateOfSupport, Mode: mode})
			require.Len(t, got, 1)
			assert.Empty(t, got[0].BusinessEntity)
			assert.Empty(t, got[0].SubBusinessEntity)
			assert.Empty(t, got[0].ProductType)
			if mode == domain.SingleCustomer {
				assert.Empty(t, got[0].InstallSiteName)
			} else {
				assert.Equal(t, "Branch 7", got[0].InstallSiteName)
			}
		})
	}
}

func TestAggregate_SkipsRowsWithoutKey(t *testing.T) {
	noID := record("", 3, "Security", "")
	noID.LastDateOfSupport = domain.DateOf(2025, time.January, 10)
	noDate := record("Q", 3, "Security", "")

	got := Aggregate([]domain.AssetRecord{noID, noDate}, PortfolioOptions{Target: domain.LastDateOfSupport, Mode: domain.SingleCustomer})
	assert.Empty(t, got)
}

func TestAggregate_SortsByTargetDate(t *testing.T) {
	late := record("A", 1, "Wireless", "")
	late.LastRenewal = domain.DateOf(2024, time.December, 1)
	early := record("B", 1, "Wireless", "")
	early.LastRenewal = domain.DateOf(2022, time.February, 1)
	middle := record("C", 1, "Wireless", "")
	middle.LastRenewal = domain.DateOf(2023, time.July, 1)

	got := Aggregate([]domain.AssetRecord{late, early, middle}, PortfolioOptions{Target: domain.LastRenewal, Mode: domain.SingleCustomer})
	assert.Equal(t, []string{"B", "C", "A"}, productIDs(got))
}

func TestBuildPortfolio(t *testing.T) {
	d := domain.DateOf(2021, time.May, 1)
	mk := func(pid, be, sbe string) domain.AssetRecord {
		r := record(pid, 1, be, sbe)
		r.LastDateOfSupport = d
		return r
	}

	records := []domain.AssetRecord{
		mk("EP-1", "Collaboration", "TP Endpoints"),
		mk("CI-1", "Collaboration", "Conferencing"),
		mk("SRV-1", "Data Center", "Servers"),
		mk("FW-1", "Security", "Firewall"),
		mk("RTR-1", "Enterprise Routing", ""),
		mk("SW-1", "Enterprise Switching", ""),
		mk("AP-1", "Wireless", ""),
		mk("SP-1", "Service Provider", ""),
		mk("MGMT-1", "Management Software", ""),
	}

	buckets := BuildPortfolio(records, PortfolioOptions{Target: domain.LastDateOfSupport, Mode: domain.SingleCustomer})
	require.Len(t, buckets, len(Portfolios))

	got := make(map[Portfolio][]string)
	total := 0
	for i, b := range buckets {
		assert.Equal(t, Portfolios[i], b.Portfolio)
		got[b.Portfolio] = productIDs(b.Rows)
		total += len(b.Rows)
	}

	assert.Empty(t, got[ManagementSoftware])
	assert.Equal(t, []string{"EP-1"}, got[CollaborationEndpoints])
	assert.Equal(t, []string{"CI-1"}, got[CollaborationInfrastructure])
	assert.Equal(t, []string{"SRV-1"}, got[Compute])
	assert.Equal(t, []string{"FW-1"}, got[Security])
	assert.Equal(t, []string{"RTR-1"}, got[EnterpriseRouting])
	assert.Equal(t, []string{"SW-1"}, got[EnterpriseSwitching])
	assert.Equal(t, []string{"AP-1"}, got[Wireless])
	assert.Equal(t, 7, total, "unclassified records are left out")
}

func TestBuildPortfolio_EmptyInput(t *testing.T) {
	buckets := BuildPortfolio(nil, PortfolioOptions{Target: domain.LastRenewal, Mode: domain.MultipleCustomers})
	require.Len(t, buckets, len(Portfolios))
	for _, b := range buckets {
		assert.Empty(t, b.Rows, b.Portfolio)
	}
}

func TestParseGrouping(t *testing.T) {
	g, err := ParseGrouping("")
	require.NoError(t, err)
	assert.Equal(t, GroupByProductAndDate, g)

	g, err = ParseGrouping("Product")
	require.NoError(t, err)
	assert.Equal(t, GroupByProduct, g)

	_, err = ParseGrouping("site")
	assert.Error(t, err)
}
