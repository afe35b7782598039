package catalog

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// errMalformedPayload marks a response body whose envelope could not be
// decoded. Distinguished from transport failures for error accounting.
var errMalformedPayload = errors.New("malformed payload")

// decodeItemList extracts data.<listKey> from a response envelope as raw
// items. A missing data object or list yields an empty slice; a structurally
// broken envelope yields errMalformedPayload.
func decodeItemList(body []byte, listKey string) ([]jx.Raw, error) {
	var items []jx.Raw
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "data" || d.Next() != jx.Object {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != listKey || d.Next() != jx.Array {
				return d.Skip()
			}
			return d.Arr(func(d *jx.Decoder) error {
				raw, err := d.Raw()
				if err != nil {
					return err
				}
				items = append(items, raw)
				return nil
			})
		})
	})
	if err != nil {
		return nil, errors.Wrap(errMalformedPayload, err.Error())
	}
	return items, nil
}

// decodeDetail extracts the data object of a product-details envelope.
func decodeDetail(body []byte) (jx.Raw, error) {
	var detail jx.Raw
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "data" || d.Next() != jx.Object {
			return d.Skip()
		}
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		detail = raw
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errMalformedPayload, err.Error())
	}
	if len(detail) == 0 {
		return nil, errors.Wrap(errMalformedPayload, "missing data object")
	}
	return detail, nil
}
