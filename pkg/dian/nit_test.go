package dian_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-api/pkg/dian"
)

// NIT de la DIAN: 800.197.268-4
func TestComputeNITVerificationDigit(t *testing.T) {
	dv, err := dian.ComputeNITVerificationDigit("800.197.268")
	require.NoError(t, err)
	assert.Equal(t, byte('4'), dv)

	dv, err = dian.ComputeNITVerificationDigit("900123456")
	require.NoError(t, err)
	assert.Equal(t, byte('0'), dv)
}

func TestComputeNITVerificationDigit_Vacio(t *testing.T) {
	_, err := dian.ComputeNITVerificationDigit("--")
	assert.Error(t, err)
}

func TestSplitNIT(t *testing.T) {
	number, dv, err := dian.SplitNIT("800197268-4")
	require.NoError(t, err)
	assert.Equal(t, "800197268", number)
	assert.Equal(t, "4", dv)

	number, dv, err = dian.SplitNIT("800.197.268")
	require.NoError(t, err)
	assert.Equal(t, "800197268", number)
	assert.Equal(t, "4", dv, "sin guion el DV se calcula")

	_, _, err = dian.SplitNIT("800197268-")
	assert.Error(t, err)
}

func TestValidateNITVerificationDigit(t *testing.T) {
	assert.NoError(t, dian.ValidateNITVerificationDigit("800197268-4"))
	assert.Error(t, dian.ValidateNITVerificationDigit("800197268-5"))
}
