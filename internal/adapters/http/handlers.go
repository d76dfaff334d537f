package http

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/regionlatency/internal/core/domain"
)

const maxRegionsPerRequest = 1000

// latencyBody is the wire form of a latency request. Pointers distinguish
// absent fields from zero values.
type latencyBody struct {
	Regions     *[]*string `json:"regions"`
	ThresholdMS *float64   `json:"threshold_ms"`
}

// parseLatencyRequest validates a latency request body. regions must be an
// array of strings; threshold_ms must be a number and defaults to 0.
func parseLatencyRequest(body []byte) (domain.LatencyRequest, error) {
	var req domain.LatencyRequest

	if len(strings.TrimSpace(string(body))) == 0 {
		return req, errors.New("request body is required")
	}

	var b latencyBody
	if err := json.Unmarshal(body, &b); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			switch {
			case strings.HasPrefix(typeErr.Field, "regions"):
				return req, errors.New("regions must be an array of strings")
			case strings.HasPrefix(typeErr.Field, "threshold_ms"):
				return req, errors.New("threshold_ms must be a number")
			case typeErr.Field == "":
				return req, errors.New("request body must be a JSON object")
			}
		}
		return req, errors.New("invalid JSON body")
	}

	if b.Regions == nil {
		return req, errors.New("regions is required")
	}
	if len(*b.Regions) > maxRegionsPerRequest {
		return req, errors.New("too many regions (max 1000)")
	}

	req.Regions = make([]string, 0, len(*b.Regions))
	for _, r := range *b.Regions {
		if r == nil {
			return req, errors.New("regions must be an array of strings")
		}
		req.Regions = append(req.Regions, *r)
	}
	if b.ThresholdMS != nil {
		req.ThresholdMS = *b.ThresholdMS
	}
	return req, nil
}

// LatencyHandler computes per-region latency statistics for the posted
// regions and threshold. The response wraps results under "regions".
func LatencyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := parseLatencyRequest(c.Body())
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		results := deps.Latency.Compute(c.UserContext(), req)

		LoggerFromCtx(c.UserContext()).Debug("latency computed",
			"regions", len(results), "threshold_ms", req.ThresholdMS)

		c.Set("Cache-Control", "no-store")
		return c.JSON(domain.LatencyReport{Regions: results})
	}
}

// ListRegionsHandler returns the regions present in the dataset with record counts.
func ListRegionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		regions := deps.Latency.Regions(c.UserContext())

		// Apply offset/limit pagination on the full list
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		total := len(regions)
		page := []domain.RegionSummary{}
		if offset < total {
			end := offset + limit
			if end > total {
				end = total
			}
			page = regions[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}
