package hclconfig

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

var pointType = cty.List(cty.Number)

// point converts an [x, y] tuple into grid coordinates.
func point(v cty.Value) ([2]int, error) {
	var out [2]int
	if v.IsNull() || !v.IsKnown() {
		return out, fmt.Errorf("point must be a known [x, y] value")
	}
	list, err := convert.Convert(v, pointType)
	if err != nil {
		return out, fmt.Errorf("point must be [x, y]: %w", err)
	}
	var xy []int
	if err := gocty.FromCtyValue(list, &xy); err != nil {
		return out, fmt.Errorf("point coordinates must be integers: %w", err)
	}
	if len(xy) != 2 {
		return out, fmt.Errorf("point must have 2 coordinates, got %d", len(xy))
	}
	out[0], out[1] = xy[0], xy[1]
	return out, nil
}
