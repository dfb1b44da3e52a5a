package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mthangit/demo-payment/internal/domains/checkout/model"
)

// ParseCatalog đọc danh sách "id:price,id:price"
func ParseCatalog(raw string) ([]model.Product, error) {
	var products []model.Product
	seen := make(map[string]bool)

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		id, priceStr, ok := strings.Cut(entry, ":")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid catalog entry %q: want id:price", entry)
		}

		price, err := strconv.ParseInt(strings.TrimSpace(priceStr), 10, 64)
		if err != nil || price < 0 {
			return nil, fmt.Errorf("invalid price for product %q", id)
		}

		if seen[id] {
			return nil, fmt.Errorf("duplicate product %q", id)
		}
		seen[id] = true

		products = append(products, model.Product{ID: id, Price: price})
	}

	return products, nil
}

// priceOf trả về data-price của option; productID rỗng -> option đầu tiên
func priceOf(products []model.Product, productID string) (string, *int64) {
	if productID == "" && len(products) > 0 {
		p := products[0]
		return p.ID, &p.Price
	}
	for _, p := range products {
		if p.ID == productID {
			price := p.Price
			return p.ID, &price
		}
	}
	return productID, nil
}
