// internal/blockchain/contract.go
package blockchain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Contract operation names exposed by the deployed marketplace contract.
const (
	MethodRegisterFarmer   = "registerFarmer"
	MethodRegisterConsumer = "registerConsumer"
	MethodRegisterProduct  = "registerProduct"
	MethodBuyProduct       = "buyProduct"
)

// ContractCall names a contract operation and its already validated arguments.
// Integer arguments may be int64, uint64 or *big.Int; they are converted to
// the width the ABI declares.
type ContractCall struct {
	Method string
	Args   []interface{}
	// Value is the payment attached to the call, in base units. Nil for none.
	Value *big.Int
}

type Contract struct {
	Address common.Address
	ABI     abi.ABI
}

// LoadContract reads the ABI descriptor at abiPath. Both a Hardhat/Truffle
// artifact ({"abi": [...]}) and a bare ABI array are accepted.
func LoadContract(address, abiPath string) (*Contract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}

	data, err := os.ReadFile(abiPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract ABI %s: %w", abiPath, err)
	}

	parsed, err := ParseABI(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI %s: %w", abiPath, err)
	}

	return &Contract{Address: common.HexToAddress(address), ABI: parsed}, nil
}

func ParseABI(data []byte) (abi.ABI, error) {
	raw := bytes.TrimSpace(data)
	if len(raw) > 0 && raw[0] == '{' {
		var artifact struct {
			ABI json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(raw, &artifact); err != nil {
			return abi.ABI{}, err
		}
		if len(artifact.ABI) == 0 {
			return abi.ABI{}, fmt.Errorf("artifact has no abi field")
		}
		raw = artifact.ABI
	}
	return abi.JSON(bytes.NewReader(raw))
}

// Pack encodes call into transaction input data.
func (c *Contract) Pack(call ContractCall) ([]byte, error) {
	method, ok := c.ABI.Methods[call.Method]
	if !ok {
		return nil, fmt.Errorf("contract has no method %q", call.Method)
	}
	if len(call.Args) != len(method.Inputs) {
		return nil, fmt.Errorf("%s: expected %d arguments, got %d", call.Method, len(method.Inputs), len(call.Args))
	}

	args := make([]interface{}, len(call.Args))
	for i, input := range method.Inputs {
		v, err := coerceArg(input.Type, call.Args[i])
		if err != nil {
			return nil, fmt.Errorf("%s: argument %q: %w", call.Method, input.Name, err)
		}
		args[i] = v
	}

	return c.ABI.Pack(call.Method, args...)
}

var bigIntType = reflect.TypeOf((*big.Int)(nil))

func coerceArg(t abi.Type, v interface{}) (interface{}, error) {
	if t.T != abi.IntTy && t.T != abi.UintTy {
		return v, nil
	}

	var n *big.Int
	switch x := v.(type) {
	case *big.Int:
		n = x
	case int64:
		n = big.NewInt(x)
	case uint64:
		n = new(big.Int).SetUint64(x)
	case int:
		n = big.NewInt(int64(x))
	default:
		return v, nil
	}

	if t.T == abi.UintTy && n.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s for %s", n, t)
	}

	target := t.GetType()
	if target == bigIntType {
		return new(big.Int).Set(n), nil
	}

	if t.T == abi.UintTy {
		if n.BitLen() > t.Size {
			return nil, fmt.Errorf("value %s overflows %s", n, t)
		}
		return reflect.ValueOf(n.Uint64()).Convert(target).Interface(), nil
	}

	if n.BitLen() >= t.Size {
		return nil, fmt.Errorf("value %s overflows %s", n, t)
	}
	return reflect.ValueOf(n.Int64()).Convert(target).Interface(), nil
}
