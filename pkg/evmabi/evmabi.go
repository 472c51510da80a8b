// Package evmabi packs and unpacks call data for on-chain Gaussian
// evaluators. The contract interface mirrors this module: pdf, cdf,
// erf and ppf over int256 WAD values.
package evmabi

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/betbot/gostat/pkg/wad"
)

// GaussianABI Gaussian 求值合约 ABI
// pdf/cdf/erf/ppf 均为 pure 函数，参数与返回值都是 WAD 定点 int256
const GaussianABI = `[
	{
		"inputs": [{"name": "x", "type": "int256"}],
		"name": "pdf",
		"outputs": [{"name": "", "type": "int256"}],
		"stateMutability": "pure",
		"type": "function"
	},
	{
		"inputs": [{"name": "x", "type": "int256"}],
		"name": "cdf",
		"outputs": [{"name": "", "type": "int256"}],
		"stateMutability": "pure",
		"type": "function"
	},
	{
		"inputs": [{"name": "x", "type": "int256"}],
		"name": "erf",
		"outputs": [{"name": "", "type": "int256"}],
		"stateMutability": "pure",
		"type": "function"
	},
	{
		"inputs": [{"name": "p", "type": "int256"}],
		"name": "ppf",
		"outputs": [{"name": "", "type": "int256"}],
		"stateMutability": "pure",
		"type": "function"
	}
]`

// Codec converts between WAD values and EVM call data.
type Codec struct {
	abi abi.ABI
}

func NewCodec() (*Codec, error) {
	parsed, err := abi.JSON(strings.NewReader(GaussianABI))
	if err != nil {
		return nil, fmt.Errorf("解析Gaussian ABI失败: %w", err)
	}
	return &Codec{abi: parsed}, nil
}

// Ops lists the callable operations.
func (c *Codec) Ops() []string {
	return []string{"pdf", "cdf", "erf", "ppf"}
}

// Selector returns the 4-byte function selector for op.
func (c *Codec) Selector(op string) ([]byte, error) {
	m, ok := c.abi.Methods[op]
	if !ok {
		return nil, fmt.Errorf("unknown op %q", op)
	}
	return m.ID, nil
}

// PackCall builds the call data for op(x).
func (c *Codec) PackCall(op string, x wad.Wad) ([]byte, error) {
	if _, ok := c.abi.Methods[op]; !ok {
		return nil, fmt.Errorf("unknown op %q", op)
	}
	data, err := c.abi.Pack(op, x.Big())
	if err != nil {
		return nil, fmt.Errorf("打包%s参数失败: %w", op, err)
	}
	return data, nil
}

// DecodeCall recovers the operation and argument from call data.
func (c *Codec) DecodeCall(data []byte) (string, wad.Wad, error) {
	if len(data) < 4 {
		return "", wad.Wad{}, fmt.Errorf("call data too short")
	}
	m, err := c.abi.MethodById(data[:4])
	if err != nil {
		return "", wad.Wad{}, fmt.Errorf("未知函数选择器: %w", err)
	}
	vals, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return "", wad.Wad{}, fmt.Errorf("解析%s参数失败: %w", m.Name, err)
	}
	if len(vals) != 1 {
		return "", wad.Wad{}, fmt.Errorf("unexpected argument count %d", len(vals))
	}
	arg, ok := vals[0].(*big.Int)
	if !ok {
		return "", wad.Wad{}, fmt.Errorf("unexpected argument type %T", vals[0])
	}
	x, err := wad.FromBig(arg)
	if err != nil {
		return "", wad.Wad{}, err
	}
	return m.Name, x, nil
}

// UnpackResult decodes the int256 return value of op.
func (c *Codec) UnpackResult(op string, data []byte) (wad.Wad, error) {
	vals, err := c.abi.Unpack(op, data)
	if err != nil {
		return wad.Wad{}, fmt.Errorf("解析%s结果失败: %w", op, err)
	}
	if len(vals) != 1 {
		return wad.Wad{}, fmt.Errorf("unexpected result count %d", len(vals))
	}
	out, ok := vals[0].(*big.Int)
	if !ok {
		return wad.Wad{}, fmt.Errorf("unexpected result type %T", vals[0])
	}
	return wad.FromBig(out)
}
