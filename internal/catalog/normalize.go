package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Normalize converts one raw upstream item into a Product. String fields
// default to empty, booleans to false, lists to empty; price, rating, and
// review count go through the field parsers whether the upstream sends them
// as strings or bare numbers. It returns an error only when the item is not
// a decodable JSON object.
func Normalize(item jx.Raw) (Product, error) {
	var p Product
	d := jx.DecodeBytes(item)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "asin":
			return readString(d, &p.ASIN)
		case "product_title":
			return readString(d, &p.Title)
		case "product_price":
			return readParsed(d, &p.Price, ParsePrice)
		case "product_star_rating":
			return readParsed(d, &p.Rating, ParseRating)
		case "product_num_reviews":
			return readParsed(d, &p.ReviewCount, ParseReviewCount)
		case "product_availability":
			return readString(d, &p.Availability)
		case "is_prime":
			return readBool(d, &p.PrimeEligible)
		case "product_category":
			return readString(d, &p.Category)
		case "product_url":
			return readString(d, &p.URL)
		case "product_photo":
			return readString(d, &p.ImageURL)
		case "product_features":
			return readStrings(d, &p.Features)
		case "product_description":
			return readString(d, &p.Description)
		case "product_brand":
			return readString(d, &p.Brand)
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return Product{}, errors.Wrap(err, "decode item")
	}
	return newProduct(p), nil
}

// NormalizeBatch truncates items to maxResults before normalization, then
// normalizes each one, dropping items that fail or carry no identifier.
// Upstream order is preserved. maxResults < 0 means no limit.
func NormalizeBatch(ctx context.Context, items []jx.Raw, maxResults int) []Product {
	if maxResults >= 0 && len(items) > maxResults {
		items = items[:maxResults]
	}
	out := make([]Product, 0, len(items))
	for i, raw := range items {
		p, err := Normalize(raw)
		if err != nil {
			zctx.From(ctx).Warn("Dropping malformed product item",
				zap.Int("index", i), zap.Error(err))
			continue
		}
		if p.ASIN == "" {
			zctx.From(ctx).Warn("Dropping product item without identifier",
				zap.Int("index", i))
			continue
		}
		out = append(out, p)
	}
	return out
}

// readString accepts a JSON string or number, defaults null and anything else
// to the empty string.
func readString(d *jx.Decoder, dst *string) error {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return err
		}
		*dst = s
		return nil
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return err
		}
		*dst = n.String()
		return nil
	default:
		return d.Skip()
	}
}

// readParsed reads a string-or-number field as text and runs it through one
// of the field parsers.
func readParsed[T float64 | int](d *jx.Decoder, dst *T, parse func(string) T) error {
	var text string
	if err := readString(d, &text); err != nil {
		return err
	}
	*dst = parse(text)
	return nil
}

func readBool(d *jx.Decoder, dst *bool) error {
	if d.Next() != jx.Bool {
		return d.Skip()
	}
	b, err := d.Bool()
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

// readStrings reads an array of strings, skipping non-string elements.
func readStrings(d *jx.Decoder, dst *[]string) error {
	if d.Next() != jx.Array {
		return d.Skip()
	}
	return d.Arr(func(d *jx.Decoder) error {
		if d.Next() != jx.String {
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return err
		}
		*dst = append(*dst, s)
		return nil
	})
}
