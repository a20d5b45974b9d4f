// Package builtin provides the tools shipped with toolagent.
package builtin

import (
	"context"
	"errors"
	"math"

	"github.com/crystaldolphin/toolagent/internal/tools"
)

// ToolName is the canonical name of a built-in tool.
type ToolName string

const (
	ToolPower    ToolName = "power"
	ToolExec     ToolName = "exec"
	ToolWebFetch ToolName = "web_fetch"
	ToolReadFile ToolName = "read_file"
	ToolListDir  ToolName = "list_dir"
)

var (
	errFractionalOfNegative = errors.New("negative base with a fractional exponent has no real result")
	errOverflow             = errors.New("result is too large to represent")
)

// Power returns the power tool: base raised to exponent.
func Power() *tools.Descriptor {
	return tools.MustNew(string(ToolPower),
		"Calculate the power of a base number raised to an exponent.",
		func(_ context.Context, args tools.Args) (any, error) {
			return power(args.Float("base"), args.Float("exponent"))
		},
		tools.Param{Name: "base", Type: tools.Number, Description: "The base number"},
		tools.Param{Name: "exponent", Type: tools.Number, Description: "The exponent to raise the base to"},
	)
}

func power(base, exponent float64) (float64, error) {
	if base < 0 && exponent != math.Trunc(exponent) {
		return 0, errFractionalOfNegative
	}
	r := math.Pow(base, exponent)
	if math.IsInf(r, 0) {
		return 0, errOverflow
	}
	return r, nil
}
