package dian_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-api/internal/domain/dian"
)

func TestPendingAcceptance_GuardaYRecupera(t *testing.T) {
	res := &dian.SubmissionResult{
		CUFE:           "cufe-abc",
		QRPayload:      "https://catalogo-vpfe.dian.gov.co/document/searchqr?documentkey=cufe-abc",
		DocumentNumber: "SETP990000007",
		Message:        "Documento validado",
		Raw:            json.RawMessage(`{"status":"Created"}`),
	}
	raw, err := json.Marshal(dian.NewPendingAcceptance(res))
	require.NoError(t, err)

	pending, ok := dian.DecodePendingAcceptance(raw)
	require.True(t, ok)
	got := pending.Result()
	assert.Equal(t, res.CUFE, got.CUFE)
	assert.Equal(t, res.QRPayload, got.QRPayload)
	assert.Equal(t, res.DocumentNumber, got.DocumentNumber)
	assert.JSONEq(t, string(res.Raw), string(got.Raw))
}

func TestDecodePendingAcceptance_RespuestaComun(t *testing.T) {
	for _, raw := range []string{``, `{}`, `{"status":"Created"}`, `no es json`} {
		_, ok := dian.DecodePendingAcceptance(json.RawMessage(raw))
		assert.False(t, ok, raw)
	}
}
