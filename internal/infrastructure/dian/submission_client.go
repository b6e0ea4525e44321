package dian

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	domdian "github.com/jhoicas/facturador-api/internal/domain/dian"
)

// SubmissionClient envía el documento fiscal al proveedor. Una llamada HTTP por invocación,
// sin reintentos internos; la política de reintentos vive en la capa de aplicación.
type SubmissionClient struct {
	cfg        ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSubmissionClient construye el cliente con timeout de red y límite de ritmo de salida.
func NewSubmissionClient(cfg ClientConfig) *SubmissionClient {
	limit := rate.Inf
	burst := 1
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
		if cfg.Burst > 0 {
			burst = cfg.Burst
		}
	}
	return &SubmissionClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.timeout()},
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// Submit llama POST /v1/bills/validate con el token bearer.
// Errores: *domdian.SubmissionError (transporte o rechazo).
func (c *SubmissionClient) Submit(ctx context.Context, environment, token string, doc domdian.FiscalDocumentV1) (*domdian.SubmissionResult, error) {
	base, err := c.cfg.baseURL(environment)
	if err != nil {
		return nil, domdian.NewTransportError(err.Error())
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, domdian.NewTransportError("serializar documento: " + err.Error())
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domdian.NewTransportError("espera de ritmo de envío: " + err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+pathValidate, bytes.NewReader(body))
	if err != nil {
		return nil, domdian.NewTransportError("crear request: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domdian.NewTransportError("timeout esperando respuesta del proveedor")
		}
		return nil, domdian.NewTransportError("llamada HTTP fallida: " + err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, domdian.NewTransportError("leer respuesta: " + err.Error())
	}

	var parsed validateResponseV1
	parseErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := ""
		if parseErr == nil {
			msg = parsed.rejectionMessage()
		}
		if msg == "" {
			msg = truncate(string(raw), 500)
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, domdian.NewRejectionError(resp.StatusCode, msg)
	}
	if parseErr != nil {
		return nil, domdian.NewRejectionError(resp.StatusCode, fmt.Sprintf("respuesta no JSON: %s", truncate(string(raw), 200)))
	}
	if parsed.Data.Bill.CUFE == "" {
		return nil, domdian.NewRejectionError(resp.StatusCode, firstNonEmpty(parsed.rejectionMessage(), "respuesta sin CUFE"))
	}

	return &domdian.SubmissionResult{
		CUFE:           parsed.Data.Bill.CUFE,
		QRPayload:      parsed.Data.Bill.QR,
		DocumentNumber: parsed.Data.Bill.Number,
		Message:        parsed.Message,
		Raw:            json.RawMessage(raw),
	}, nil
}
