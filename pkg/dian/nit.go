package dian

import (
	"fmt"
	"strings"
	"unicode"
)

// pesos para el cálculo del dígito de verificación NIT (Orden Administrativa 4 de 1989, DIAN).
// Se aplican de derecha a izquierda: el último dígito del NIT se multiplica por 3.
var nitWeights = [15]int{3, 7, 13, 17, 19, 23, 29, 37, 41, 43, 47, 53, 59, 67, 71}

// ComputeNITVerificationDigit calcula el dígito de verificación (módulo 11) del NIT sin DV.
// taxID puede traer puntos o espacios: "800.197.268" → '4'.
func ComputeNITVerificationDigit(taxID string) (byte, error) {
	digits := extractDigits(taxID)
	if len(digits) == 0 {
		return 0, fmt.Errorf("dian: NIT vacío")
	}
	if len(digits) > len(nitWeights) {
		return 0, fmt.Errorf("dian: NIT de %d dígitos supera el máximo de %d", len(digits), len(nitWeights))
	}
	var sum int
	for i := range digits {
		d := digits[len(digits)-1-i]
		sum += int(d-'0') * nitWeights[i]
	}
	remainder := sum % 11
	if remainder == 0 || remainder == 1 {
		return byte('0' + remainder), nil
	}
	return byte('0' + (11 - remainder)), nil
}

// SplitNIT separa número y dígito de verificación.
// Si taxID trae guion ("900123456-7") el DV es lo que sigue al guion; si no, se calcula.
func SplitNIT(taxID string) (number, dv string, err error) {
	base, check, hasDV := strings.Cut(taxID, "-")
	number = string(extractDigits(base))
	if number == "" {
		return "", "", fmt.Errorf("dian: NIT sin dígitos: %q", taxID)
	}
	if hasDV {
		if d := extractDigits(check); len(d) == 1 {
			return number, string(d), nil
		}
		return "", "", fmt.Errorf("dian: dígito de verificación inválido en %q", taxID)
	}
	c, err := ComputeNITVerificationDigit(number)
	if err != nil {
		return "", "", err
	}
	return number, string(c), nil
}

// ValidateNITVerificationDigit valida que "NIT-DV" tenga un dígito de verificación correcto.
func ValidateNITVerificationDigit(taxID string) error {
	number, dv, err := SplitNIT(taxID)
	if err != nil {
		return err
	}
	expected, err := ComputeNITVerificationDigit(number)
	if err != nil {
		return err
	}
	if dv[0] != expected {
		return fmt.Errorf("dian: dígito de verificación del NIT inválido: esperado %c, recibido %s", expected, dv)
	}
	return nil
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			out = append(out, byte(r))
		}
	}
	return out
}
