package lifecycle

import (
	"readyparser/pkg/contracts/domain"
)

// Portfolio is a product category of the report. Its value doubles as the block label.
type Portfolio string

const (
	ManagementSoftware          Portfolio = "Management Software"
	Security                    Portfolio = "Security"
	CollaborationInfrastructure Portfolio = "Collaboration Infrastructure"
	CollaborationEndpoints      Portfolio = "Collaboration Endpoints"
	EnterpriseRouting           Portfolio = "Enterprise Routing"
	EnterpriseSwitching         Portfolio = "Enterprise Switching"
	Compute                     Portfolio = "Compute"
	Wireless                    Portfolio = "Wireless"
)

// Portfolios is the block order of every report sheet.
var Portfolios = []Portfolio{
	ManagementSoftware,
	Security,
	CollaborationInfrastructure,
	CollaborationEndpoints,
	EnterpriseRouting,
	EnterpriseSwitching,
	Compute,
	Wireless,
}

// Label is the text written in the bold block header.
func (p Portfolio) Label() string { return string(p) }

// Placeholder reports whether p is never populated from input rows.
func (p Portfolio) Placeholder() bool { return p == ManagementSoftware }

type classificationRule struct {
	portfolio Portfolio
	matches   func(domain.AssetRecord) bool
}

func subEntityIn(names ...string) func(domain.AssetRecord) bool {
	return func(r domain.AssetRecord) bool {
		for _, n := range names {
			if r.SubBusinessEntity == n {
				return true
			}
		}
		return false
	}
}

func entityIs(name string) func(domain.AssetRecord) bool {
	return func(r domain.AssetRecord) bool { return r.BusinessEntity == name }
}

var isEndpoint = subEntityIn("TP Endpoints", "UC Endpoints")

// Evaluated top-down; the first match wins.
var classificationRules = []classificationRule{
	{CollaborationEndpoints, isEndpoint},
	{CollaborationInfrastructure, func(r domain.AssetRecord) bool {
		return r.BusinessEntity == "Collaboration" && !isEndpoint(r)
	}},
	{Compute, subEntityIn("Servers", "Hyper Converged")},
	{Security, entityIs(string(Security))},
	{EnterpriseRouting, entityIs(string(EnterpriseRouting))},
	{EnterpriseSwitching, entityIs(string(EnterpriseSwitching))},
	{Wireless, entityIs(string(Wireless))},
}

// Classify assigns r to at most one portfolio. ok is false for records that
// belong to no portfolio and are left out of the report.
func Classify(r domain.AssetRecord) (p Portfolio, ok bool) {
	for _, rule := range classificationRules {
		if rule.matches(r) {
			return rule.portfolio, true
		}
	}
	return "", false
}
