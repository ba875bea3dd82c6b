package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andrebq/stockroom/inventory"
)

type (
	ProductWriter interface {
		CreateProducts(ctx context.Context, products []inventory.Product) ([]inventory.Product, error)
	}
)

var (
	requiredColumns = []string{"name", "quantity", "price"}
)

// CSV reads products from r and stores them with a single call to out,
// either every row is imported or none is.
//
// The first row is a header naming the columns (name, quantity, price
// and the optional description), in any order.
func CSV(ctx context.Context, out ProductWriter, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, errors.New("importer: missing csv header")
	} else if err != nil {
		return 0, fmt.Errorf("importer: unable to read csv header, cause %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return 0, fmt.Errorf("importer: csv header is missing column %v", c)
		}
	}
	var products []inventory.Product
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return 0, fmt.Errorf("importer: unable to read line %v, cause %w", line, err)
		}
		p, err := toProduct(record, cols)
		if err != nil {
			return 0, fmt.Errorf("importer: line %v, cause %w", line, err)
		}
		products = append(products, p)
	}
	if len(products) == 0 {
		return 0, nil
	}
	stored, err := out.CreateProducts(ctx, products)
	if err != nil {
		return 0, err
	}
	return len(stored), nil
}

func toProduct(record []string, cols map[string]int) (inventory.Product, error) {
	var p inventory.Product
	var err error
	p.Name = record[cols["name"]]
	if i, ok := cols["description"]; ok {
		p.Description = record[i]
	}
	p.Quantity, err = strconv.ParseInt(strings.TrimSpace(record[cols["quantity"]]), 10, 64)
	if err != nil {
		return p, inventory.InvalidProduct{Field: "quantity", Reason: "must be an integer"}
	}
	p.Price, err = strconv.ParseFloat(strings.TrimSpace(record[cols["price"]]), 64)
	if err != nil {
		return p, inventory.InvalidProduct{Field: "price", Reason: "must be a number"}
	}
	return p, p.Validate()
}
