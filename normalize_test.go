package txrouter

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHexTxParams_EncodesAllFields(t *testing.T) {
	to := testAddr2
	params := TransactionParams{
		From:                 testAddr1,
		To:                   &to,
		Value:                oneEth,
		Data:                 []byte{0xde, 0xad, 0xbe, 0xef},
		Gas:                  21000,
		MaxFeePerGas:         twentyGwei,
		MaxPriorityFeePerGas: twoGwei,
		GasPrice:             big.NewInt(30000000000),
	}

	out := hexTxParams(params)

	assert.Equal(t, testAddr1.Hex(), out.From)
	assert.Equal(t, testAddr2.Hex(), out.To)
	assert.Equal(t, "0xde0b6b3a7640000", out.Value)
	assert.Equal(t, "0xdeadbeef", out.Data)
	assert.Equal(t, "0x5208", out.Gas)
	assert.Equal(t, "0x4a817c800", out.MaxFeePerGas)
	assert.Equal(t, "0x77359400", out.MaxPriorityFeePerGas)
	assert.Equal(t, "0x6fc23ac00", out.GasPrice)
}

func TestHexTxParams_AbsentFieldsStayEmpty(t *testing.T) {
	out := hexTxParams(TransactionParams{From: testAddr1})

	assert.Equal(t, testAddr1.Hex(), out.From)
	assert.Empty(t, out.To, "contract creation has no destination")
	assert.Empty(t, out.Value)
	assert.Empty(t, out.Data)
	assert.Empty(t, out.Gas)
	assert.Empty(t, out.MaxFeePerGas)
	assert.Empty(t, out.MaxPriorityFeePerGas)
	assert.Empty(t, out.GasPrice)
}

func TestHexTxParams_ZeroValueIsEncoded(t *testing.T) {
	out := hexTxParams(TransactionParams{From: testAddr1, Value: big.NewInt(0)})

	// A present-but-zero value is distinguishable from an absent one
	assert.Equal(t, "0x0", out.Value)
}

func TestApplyUserOperationGas_DropsLegacyGasPrice(t *testing.T) {
	params := hexTxParams(TransactionParams{
		From:     testAddr1,
		Gas:      21000,
		GasPrice: big.NewInt(30000000000),
	})

	out := applyUserOperationGas(params, &UserOperationResult{Gas: 90000})

	assert.Equal(t, "0x15f90", out.Gas)
	assert.Empty(t, out.GasPrice)
}

func TestApplyUserOperationGas_KeepsRequestFeesWhenBundlerSilent(t *testing.T) {
	params := hexTxParams(TransactionParams{
		From:                 testAddr1,
		MaxFeePerGas:         twentyGwei,
		MaxPriorityFeePerGas: twoGwei,
	})

	out := applyUserOperationGas(params, &UserOperationResult{})

	assert.Equal(t, "0x4a817c800", out.MaxFeePerGas)
	assert.Equal(t, "0x77359400", out.MaxPriorityFeePerGas)
}

func TestStripSwapsMetadata_DoesNotMutateCaller(t *testing.T) {
	opts := AddTransactionOptions{
		Origin: "wallet",
		Swaps:  &SwapsMeta{HasApproveTx: true, SourceToken: "USDC"},
	}

	stripped := stripSwapsMetadata(opts)

	assert.Nil(t, stripped.Swaps)
	assert.NotNil(t, opts.Swaps, "caller's options must be left alone")
	assert.Equal(t, "wallet", stripped.Origin)
}

func TestDappOptions(t *testing.T) {
	req := DappTransactionRequest{
		Origin:                "https://app.example",
		ActionID:              "action-9",
		NetworkClientID:       "137",
		SecurityAlertResponse: &SecurityAlertResponse{ResultType: "Malicious"},
	}

	opts := dappOptions(req)

	assert.Equal(t, "https://app.example", opts.Origin)
	assert.Equal(t, "action-9", opts.ActionID)
	assert.Equal(t, "137", opts.NetworkClientID)
	assert.Equal(t, TypeDapp, opts.Type)
	assert.True(t, opts.WaitForSubmit)
	assert.Nil(t, opts.Swaps)
	assert.Equal(t, "Malicious", opts.SecurityAlertResponse.ResultType)
}
