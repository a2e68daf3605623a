package bestbuy

import (
	"encoding/json"
	"time"

	"github.com/curi/backend/internal/domain"
)

// searchResponse is the top-level Best Buy products search payload
type searchResponse struct {
	Products []productResponse `json:"products"`
	Total    int               `json:"total"`
}

// productResponse mirrors the fields requested via the "show" parameter
type productResponse struct {
	SKU                   json.Number    `json:"sku"`
	Name                  string         `json:"name"`
	Manufacturer          string         `json:"manufacturer"`
	RegularPrice          float64        `json:"regularPrice"`
	SalePrice             float64        `json:"salePrice"`
	CategoryPath          []categoryNode `json:"categoryPath"`
	LongDescription       string         `json:"longDescription"`
	CustomerReviewAverage float64        `json:"customerReviewAverage"`
	CustomerReviewCount   int            `json:"customerReviewCount"`
	OnlineAvailability    bool           `json:"onlineAvailability"`
	Image                 string         `json:"image"`
	URL                   string         `json:"url"`
	Details               []detailNode   `json:"details"`
}

type categoryNode struct {
	Name string `json:"name"`
}

type detailNode struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// mapProduct converts a Best Buy API item to the standardized product shape
func mapProduct(item *productResponse) domain.Product {
	category := ""
	if len(item.CategoryPath) > 0 {
		category = item.CategoryPath[len(item.CategoryPath)-1].Name
	}

	availability := "unavailable"
	if item.OnlineAvailability {
		availability = "available"
	}

	var images []string
	if item.Image != "" {
		images = []string{item.Image}
	}

	var specs map[string]string
	if len(item.Details) > 0 {
		specs = make(map[string]string, len(item.Details))
		for _, d := range item.Details {
			specs[d.Name] = d.Value
		}
	}

	return domain.Product{
		SKU:            item.SKU.String(),
		Title:          item.Name,
		Brand:          item.Manufacturer,
		Price:          item.RegularPrice,
		SalePrice:      item.SalePrice,
		Category:       category,
		Description:    item.LongDescription,
		Rating:         item.CustomerReviewAverage,
		ReviewCount:    item.CustomerReviewCount,
		Availability:   availability,
		Images:         images,
		Specifications: specs,
		URL:            item.URL,
		Source:         "bestbuy",
		LastUpdated:    time.Now(),
	}
}
