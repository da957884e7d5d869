package rpc

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"perkledger/core"
	"perkledger/crypto"
	"perkledger/storage"
)

func newTestServer(t *testing.T, tokenEnv string) *Server {
	t.Helper()
	ledger := core.NewLedger(storage.NewMemDB())
	ledger.SetNowFunc(func() uint64 { return 1_700_000_000 })
	return NewServer(ledger, slog.Default(), tokenEnv, "")
}

func rpcCall(t *testing.T, s *Server, token, method string, params interface{}) *RPCResponse {
	t.Helper()
	body := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  []interface{}{params},
	}
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(encoded))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	resp := new(RPCResponse)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	return resp
}

func resultField(t *testing.T, resp *RPCResponse, field string) string {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected error: %+v", resp.Error)
	obj, ok := resp.Result.(map[string]interface{})
	require.True(t, ok, "result is %T", resp.Result)
	value, ok := obj[field].(string)
	require.True(t, ok, "missing field %q in %v", field, obj)
	return value
}

func bech32Account(t *testing.T, b byte) string {
	t.Helper()
	raw := make([]byte, crypto.AddressLength)
	raw[0] = b
	return crypto.MustNewAddress(raw).String()
}

func setupProgramAndMerchant(t *testing.T, s *Server) (authority, program, merchant string) {
	t.Helper()
	authority = bech32Account(t, 0xA1)
	resp := rpcCall(t, s, "", "loyalty_initializeProgram", initializeProgramParams{
		Authority: authority, Name: "Main Street Rewards", InterestRateBp: 250,
	})
	program = resultField(t, resp, "program")

	resp = rpcCall(t, s, "", "loyalty_registerMerchant", registerMerchantParams{
		Authority: authority, Program: program, Name: "Corner Cafe", Category: "food", RewardRate: 10,
	})
	merchant = resultField(t, resp, "merchant")
	return authority, program, merchant
}

func TestRPCLifecycle(t *testing.T) {
	s := newTestServer(t, "")
	authority, program, merchant := setupProgramAndMerchant(t, s)
	wallet := bech32Account(t, 0xC1)

	resp := rpcCall(t, s, "", "loyalty_issueReward", issueRewardParams{
		Authority: authority, Merchant: merchant, Wallet: wallet, PurchaseAmount: 1_000,
	})
	require.Nil(t, resp.Error)
	issued, ok := resp.Result.(map[string]interface{})["issued"].(float64)
	require.True(t, ok)
	require.Equal(t, float64(100), issued)

	resp = rpcCall(t, s, "", "loyalty_createRedemptionOffer", createOfferParams{
		Authority: authority, Merchant: merchant, Name: "Free Espresso", Cost: 50, Kind: "freeProduct",
	})
	offer := resultField(t, resp, "offer")

	resp = rpcCall(t, s, "", "loyalty_redeemRewards", redeemParams{
		Wallet: wallet, Merchant: merchant, Offer: offer, Seed: 1,
	})
	require.Nil(t, resp.Error)
	voucher := resp.Result.(map[string]interface{})
	require.Equal(t, "active", voucher["status"])
	require.NotEmpty(t, voucher["code"])

	resp = rpcCall(t, s, "", "loyalty_setVoucherStatus", setVoucherStatusParams{
		Authority: authority, Voucher: voucher["address"].(string), Status: "used",
	})
	require.Nil(t, resp.Error)

	resp = rpcCall(t, s, "", "loyalty_getProgram", recordRefParams{Address: program})
	require.Nil(t, resp.Error)
	got := resp.Result.(map[string]interface{})
	require.Equal(t, float64(100), got["totalTokensIssued"])
	require.Equal(t, float64(50), got["totalTokensRedeemed"])
}

func TestRPCErrorCodes(t *testing.T) {
	s := newTestServer(t, "")
	authority, _, merchant := setupProgramAndMerchant(t, s)

	resp := rpcCall(t, s, "", "loyalty_getMerchant", recordRefParams{Address: "0x" + string(bytes.Repeat([]byte("00"), 32))})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeNotFound, resp.Error.Code)

	resp = rpcCall(t, s, "", "loyalty_initializeProgram", initializeProgramParams{Authority: authority, Name: "Again"})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeDuplicate, resp.Error.Code)

	resp = rpcCall(t, s, "", "loyalty_issueReward", issueRewardParams{
		Authority: bech32Account(t, 0xFF), Merchant: merchant, Wallet: bech32Account(t, 0xC1), PurchaseAmount: 100,
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeForbidden, resp.Error.Code)

	resp = rpcCall(t, s, "", "loyalty_issueReward", issueRewardParams{
		Authority: "not-an-address", Merchant: merchant, Wallet: bech32Account(t, 0xC1), PurchaseAmount: 100,
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	resp = rpcCall(t, s, "", "loyalty_unknownMethod", struct{}{})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestRPCAuthorization(t *testing.T) {
	t.Setenv("PERK_RPC_TOKEN_TEST", "sekrit")
	s := newTestServer(t, "PERK_RPC_TOKEN_TEST")
	authority := bech32Account(t, 0xA1)
	params := initializeProgramParams{Authority: authority, Name: "Main Street Rewards"}

	resp := rpcCall(t, s, "", "loyalty_initializeProgram", params)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	resp = rpcCall(t, s, "wrong", "loyalty_initializeProgram", params)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	resp = rpcCall(t, s, "sekrit", "loyalty_initializeProgram", params)
	require.Nil(t, resp.Error)

	// Reads stay open even when mutations require a token.
	resp = rpcCall(t, s, "", "loyalty_getProgramByAuthority", authorityRefParams{Authority: authority})
	require.Nil(t, resp.Error)
}

func TestRPCInvalidEnvelope(t *testing.T) {
	s := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body, _ := json.Marshal(map[string]interface{}{"jsonrpc": "1.0", "method": "loyalty_getProgram", "id": 1})
	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	resp := new(RPCResponse)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidRequest, resp.Error.Code)
}

func TestRPCParamCount(t *testing.T) {
	s := newTestServer(t, "")
	body := []byte(`{"jsonrpc":"2.0","id":1,"method":"loyalty_getProgram","params":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	resp := new(RPCResponse)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}
