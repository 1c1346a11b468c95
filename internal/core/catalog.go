package core

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Catalog is the ordered list of items tracked on the stock sheet. Duplicate
// names are allowed and each occurrence gets its own line.
type Catalog []string

var defaultCatalog = Catalog{
	"TUSKER", "PILISNER", "TUSKER MALT", "TUSKER LITE", "GUINESS KUBWA",
	"GUINESS SMALL", "BALOZICAN", "WHITE CAP", "BALOZI", "SMIRNOFF ICE",
	"SAVANNAH", "SNAPP", "TUSKER CIDER", "KINGFISHER", "ALLSOPPS",
	"G.K CAN", "T.LITE CAN", "GUARANA", "REDBULL", "RICHOT ½",
	"RICHOT ¼", "VICEROY ½", "VICEROY ¼", "VODKA½", "VODKA¼",
	"KENYACANE ¾", "KENYACANE ½", "KENYACANE ¼", "GILBEYS ½", "GILBEYS ¼",
	"V&A 750ml", "CHROME", "TRIPLE ACE", "BLACK AND WHITE", "KIBAO½",
	"KIBAO¼", "HUNTERS ½", "HUNTERS ¼", "CAPTAIN MORGAN", "KONYAGI",
	"V&A", "COUNTY", "BEST 750ml", "WATER 1L", "WATER½",
	"LEMONADE", "CAPRICE", "FAXE", "C.MORGAN", "VAT 69",
	"SODA300ML", "SODA500ML", "BLACK AND WHITE", "BEST", "CHROME 750ml",
	"MANGO", "TRUST", "PUNCH", "VODKA 750ml", "KONYAGI 500ml",
	"GILBEYS 750ml",
}

// DefaultCatalog returns a copy of the built-in bar catalog.
func DefaultCatalog() Catalog {
	return append(Catalog(nil), defaultCatalog...)
}

// LoadCatalog reads one item per line. Blank lines and lines starting with
// '#' are skipped; duplicates are kept in order.
func LoadCatalog(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	var out Catalog
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("catalog %s is empty: %w", path, ErrInvalidInput)
	}
	return out, nil
}

// Items returns the distinct item names in first-seen order.
func (c Catalog) Items() []string {
	seen := make(map[string]struct{}, len(c))
	out := make([]string, 0, len(c))
	for _, item := range c {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
