package mosaic

import (
	"fmt"
	"math"

	goeval "github.com/edisonguo/govaluate"
)

// BandExpression evaluates a per-pixel arithmetic expression over the
// bands of a composited tile, producing a single derived band. Band values
// are bound to the variables b1..bN, b1 being the first band. A typical
// expression is the normalised difference '(b2 - b1) / (b2 + b1)'.
type BandExpression struct {
	Expr    string
	expr    *goeval.EvaluableExpression
	varList []string
}

// ParseBandExpression validates and compiles an expression against the
// number of bands it will be applied to. Unknown variables are rejected at
// parse time so a malformed layer configuration fails at load, not per
// request.
func ParseBandExpression(expression string, bands int) (*BandExpression, error) {
	expr, err := goeval.NewEvaluableExpression(expression)
	if err != nil {
		return nil, fmt.Errorf("error parsing band expression '%s': %v", expression, err)
	}

	validVariables := make(map[string]struct{})
	for b := 0; b < bands; b++ {
		validVariables[fmt.Sprintf("b%d", b+1)] = struct{}{}
	}

	var varList []string
	seen := make(map[string]struct{})
	for _, token := range expr.Tokens() {
		if token.Kind != goeval.VARIABLE {
			continue
		}
		varName, ok := token.Value.(string)
		if !ok {
			return nil, fmt.Errorf("variable token '%v' failed to cast string", token.Value)
		}
		if _, found := validVariables[varName]; !found {
			return nil, fmt.Errorf("variable %v is not supported, valid variables are b1..b%d", varName, bands)
		}
		if _, found := seen[varName]; !found {
			seen[varName] = struct{}{}
			varList = append(varList, varName)
		}
	}

	return &BandExpression{Expr: expression, expr: expr, varList: varList}, nil
}

// Apply evaluates the expression for every valid pixel of the tile. Pixels
// that are invalid in the input, or whose evaluation produces a non-finite
// or non-numeric value, are invalid in the output.
func (be *BandExpression) Apply(tile *ImageTile) (*ImageTile, error) {
	varBands := make(map[string][]float64, len(be.varList))
	for _, varName := range be.varList {
		var idx int
		if _, err := fmt.Sscanf(varName, "b%d", &idx); err != nil {
			return nil, fmt.Errorf("error parsing band variable '%s': %v", varName, err)
		}
		if idx < 1 || idx > len(tile.Bands) {
			return nil, fmt.Errorf("band variable %s out of range for %d band tile", varName, len(tile.Bands))
		}
		varBands[varName] = tile.Bands[idx-1]
	}

	out := NewImageTile(tile.Width, tile.Height, 1, tile.NoData)
	out.CRS = tile.CRS
	out.BBox = tile.BBox

	parameters := make(map[string]interface{}, len(be.varList))
	for i, ok := range tile.Mask {
		if !ok {
			continue
		}
		for varName, data := range varBands {
			parameters[varName] = data[i]
		}
		result, err := be.expr.Evaluate(parameters)
		if err != nil {
			continue
		}
		val, ok := result.(float64)
		if !ok || math.IsNaN(val) || math.IsInf(val, 0) {
			continue
		}
		out.Bands[0][i] = val
		out.Mask[i] = true
	}
	return out, nil
}
