package http

import (
	"fmt"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/regionlatency/internal/core/domain"
)

// regionMetrics is the GraphQL row shape; GraphQL has no map type, so the
// region key becomes a field.
type regionMetrics struct {
	Region     string  `json:"region"`
	AvgLatency float64 `json:"avg_latency"`
	P95Latency float64 `json:"p95_latency"`
	AvgUptime  float64 `json:"avg_uptime"`
	Breaches   int     `json:"breaches"`
}

// buildSchema creates the GraphQL schema wired to the latency service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	metricsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RegionMetrics",
		Fields: graphql.Fields{
			"region":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"avg_latency": &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
			"p95_latency": &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
			"avg_uptime":  &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
			"breaches":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	regionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Region",
		Fields: graphql.Fields{
			"region":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"records": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"latency": &graphql.Field{
				Type:        graphql.NewList(metricsType),
				Description: "Latency and uptime statistics per region, sorted by region",
				Args: graphql.FieldConfigArgument{
					"regions":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
					"threshold_ms": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					rawRegions, _ := p.Args["regions"].([]interface{})
					if len(rawRegions) > maxRegionsPerRequest {
						return nil, fmt.Errorf("too many regions (max %d)", maxRegionsPerRequest)
					}
					req := domain.LatencyRequest{Regions: make([]string, 0, len(rawRegions))}
					for _, r := range rawRegions {
						s, ok := r.(string)
						if !ok {
							return nil, fmt.Errorf("regions must be strings")
						}
						req.Regions = append(req.Regions, s)
					}
					if th, ok := p.Args["threshold_ms"].(float64); ok {
						req.ThresholdMS = th
					}

					results := deps.Latency.Compute(p.Context, req)

					rows := make([]regionMetrics, 0, len(results))
					for region, m := range results {
						rows = append(rows, regionMetrics{
							Region:     region,
							AvgLatency: m.AvgLatency,
							P95Latency: m.P95Latency,
							AvgUptime:  m.AvgUptime,
							Breaches:   m.Breaches,
						})
					}
					sort.Slice(rows, func(i, j int) bool { return rows[i].Region < rows[j].Region })
					return rows, nil
				},
			},
			"regions": &graphql.Field{
				Type:        graphql.NewList(regionType),
				Description: "Regions present in the dataset",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Latency.Regions(p.Context), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
