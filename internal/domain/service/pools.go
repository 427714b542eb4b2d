package service

import "irecStatApp/internal/domain/model"

var participantNames = map[model.ParticipantCategory][]string{
	model.CategoryIndividual: {
		"Alex M.", "Priya S.", "Jonas K.", "Maria L.", "Chen W.", "Fatima A.",
		"Lucas B.", "Amara O.", "Sofia R.", "Kenji T.", "Elena V.", "Noah P.",
	},
	model.CategoryCorporation: {
		"Northwind Logistics", "Helios Data Centers", "Bluefin Retail Group",
		"Altura Manufacturing", "Verdant Foods", "Meridian Airlines",
		"Quantix Semiconductors", "Crescent Hotels", "Orbital Software",
	},
	model.CategoryInstitution: {
		"City of Rotterdam", "University of Cape Town", "Nordic Pension Fund",
		"St. Mary's Hospital Trust", "Asian Development Fund",
		"Green Schools Alliance", "Port Authority of Lisbon",
	},
}

var beneficiaryNames = map[model.ParticipantCategory][]string{
	model.CategoryIndividual: {
		"Household electricity", "Home office", "Electric vehicle charging",
		"Family travel offset", "Personal footprint",
	},
	model.CategoryCorporation: {
		"Scope 2 operations", "EU headquarters", "Data center fleet",
		"Retail store network", "Manufacturing plant 3", "Product line offset",
	},
	model.CategoryInstitution: {
		"Municipal buildings", "Campus operations", "Public transport depot",
		"Hospital wards", "Portfolio decarbonisation",
	},
}

var retirementReasons = map[model.ParticipantCategory][]string{
	model.CategoryIndividual: {
		"Offsetting annual household consumption",
		"Matching EV charging with renewable supply",
		"Personal commitment to 100% renewable electricity",
		"Gift retirement on behalf of a friend",
	},
	model.CategoryCorporation: {
		"Scope 2 market-based reporting",
		"RE100 annual disclosure",
		"CDP climate questionnaire evidence",
		"Green product certification",
		"Customer-facing carbon neutral claim",
	},
	model.CategoryInstitution: {
		"Public sector net-zero target",
		"Campus sustainability programme",
		"ESG fund allocation policy",
		"Compliance with regional renewable mandate",
	},
}

var transferPurposes = []string{
	"Secondary market trade",
	"OTC settlement",
	"Portfolio rebalancing",
	"Broker inventory transfer",
	"Marketplace purchase",
}

func pick(pool []string, s interface{ Intn(int) int }) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[s.Intn(len(pool))]
}
