package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"irecStatApp/internal/domain/model"
	"irecStatApp/pkg/seed"
)

// demoNamespace scopes the name-based UUIDs of demo projects.
var demoNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://irec.example/demo-projects"))

var (
	demoCountries    = []string{"BR", "IN", "CN", "ZA", "MX", "VN", "TR", "CL"}
	demoTechnologies = []string{"solar", "wind", "hydro", "biomass"}
	demoRegistries   = []string{"I-REC", "Evident", "TIGRs"}
)

// ProjectGenerator produces demo ProjectRecords and evolves them tick by tick.
// Output depends only on the key, so two generators with the same key agree.
// It is not safe for concurrent use.
type ProjectGenerator struct {
	stream   *seed.Stream
	projects []model.ProjectRecord
}

// NewProjectGenerator creates count demo projects.
func NewProjectGenerator(key string, count int) *ProjectGenerator {
	g := &ProjectGenerator{stream: seed.NewStreamFromKey(key)}
	for i := 0; i < count; i++ {
		g.projects = append(g.projects, g.newProject(key, i))
	}
	return g
}

func (g *ProjectGenerator) newProject(key string, i int) model.ProjectRecord {
	s := g.stream
	country := demoCountries[s.Intn(len(demoCountries))]
	technology := demoTechnologies[s.Intn(len(demoTechnologies))]
	id := uuid.NewSHA1(demoNamespace, []byte(key+"/"+strconv.Itoa(i)))

	total := int64(s.Range(100, 5000)) * 1000
	retired := total * int64(s.Range(5, 60)) / 100
	circulating := (total - retired) * int64(s.Range(0, 30)) / 100
	price := decimal.NewFromFloat(0.4 + s.Float()*3).Round(2)

	return model.ProjectRecord{
		ID:            fmt.Sprintf("IREC-%s-%s", country, strings.ToUpper(id.String()[:8])),
		Name:          fmt.Sprintf("%s %s Project %d", country, strings.ToUpper(technology[:1])+technology[1:], i+1),
		TotalSupply:   strconv.FormatInt(total, 10),
		CurrentSupply: strconv.FormatInt(total-retired-circulating, 10),
		Retired:       strconv.FormatInt(retired, 10),
		Vintage:       strconv.Itoa(s.Range(2018, 2025)),
		Methodology:   "I-REC Standard",
		Registry:      demoRegistries[s.Intn(len(demoRegistries))],
		Country:       country,
		Technology:    technology,
		Pricing:       model.Pricing{CurrentPrice: price.StringFixed(2), Currency: "USD"},
	}
}

// Projects returns a copy of the current projects.
func (g *ProjectGenerator) Projects() []model.ProjectRecord {
	return append([]model.ProjectRecord(nil), g.projects...)
}

// Tick retires part of the available supply of some projects and nudges
// their price. It returns the projects that changed.
func (g *ProjectGenerator) Tick() []model.ProjectRecord {
	var changed []model.ProjectRecord
	for i := range g.projects {
		p := &g.projects[i]
		if g.stream.Float() < 0.4 {
			continue
		}
		available := p.AvailableQuantity().IntPart()
		if available <= 0 {
			continue
		}
		step := available*int64(g.stream.Range(1, 50))/10000 + 1
		if step > available {
			step = available
		}
		p.CurrentSupply = strconv.FormatInt(available-step, 10)
		p.Retired = strconv.FormatInt(p.RetiredQuantity().IntPart()+step, 10)

		drift := decimal.NewFromFloat(1 + (g.stream.Float()-0.5)*0.02)
		price := p.UnitPrice().Mul(drift).Round(2)
		if price.IsPositive() {
			p.Pricing.CurrentPrice = price.StringFixed(2)
		}
		changed = append(changed, *p)
	}
	return changed
}
