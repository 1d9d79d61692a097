package txrouter

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// hexTxParams converts raw transaction parameters to the hex-encoded form
// stored in TransactionMeta. Absent fields stay empty instead of being
// encoded as 0x0, so readers can tell "not specified" from "zero".
func hexTxParams(params TransactionParams) TxParamsHex {
	out := TxParamsHex{
		From: params.From.Hex(),
	}
	if params.To != nil {
		out.To = params.To.Hex()
	}
	if params.Value != nil {
		out.Value = hexutil.EncodeBig(params.Value)
	}
	if len(params.Data) > 0 {
		out.Data = hexutil.Encode(params.Data)
	}
	if params.Gas > 0 {
		out.Gas = hexutil.EncodeUint64(params.Gas)
	}
	if params.MaxFeePerGas != nil {
		out.MaxFeePerGas = hexutil.EncodeBig(params.MaxFeePerGas)
	}
	if params.MaxPriorityFeePerGas != nil {
		out.MaxPriorityFeePerGas = hexutil.EncodeBig(params.MaxPriorityFeePerGas)
	}
	if params.GasPrice != nil {
		out.GasPrice = hexutil.EncodeBig(params.GasPrice)
	}
	return out
}

// applyUserOperationGas overwrites the gas fields of hex params with the
// values the bundler actually negotiated for the user operation. The
// original request values are irrelevant once the controller repriced the
// operation; metadata must reflect what will hit the chain.
func applyUserOperationGas(params TxParamsHex, result *UserOperationResult) TxParamsHex {
	if result.Gas > 0 {
		params.Gas = hexutil.EncodeUint64(result.Gas)
	}
	if result.MaxFeePerGas != nil {
		params.MaxFeePerGas = hexutil.EncodeBig(result.MaxFeePerGas)
	}
	if result.MaxPriorityFeePerGas != nil {
		params.MaxPriorityFeePerGas = hexutil.EncodeBig(result.MaxPriorityFeePerGas)
	}
	// User operations are always EIP-1559 priced; a legacy gas price from
	// the request must not leak into the metadata.
	params.GasPrice = ""
	return params
}

// stripSwapsMetadata returns a copy of the options with swap bookkeeping
// removed. The caller's struct is never mutated.
func stripSwapsMetadata(opts AddTransactionOptions) AddTransactionOptions {
	opts.Swaps = nil
	return opts
}

// dappOptions builds the dispatch options for a dapp-originated request:
// the dapp's origin and action ID are injected, swap metadata is stripped,
// and the dispatch always waits for submission so the dapp gets a hash or
// an error back.
func dappOptions(req DappTransactionRequest) AddTransactionOptions {
	return stripSwapsMetadata(AddTransactionOptions{
		NetworkClientID:       req.NetworkClientID,
		Origin:                req.Origin,
		ActionID:              req.ActionID,
		Type:                  TypeDapp,
		WaitForSubmit:         true,
		SecurityAlertResponse: req.SecurityAlertResponse,
	})
}
