package lambdatransport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/awmpietro/shunting-action-validator/internal/app"
	"github.com/awmpietro/shunting-action-validator/internal/logging"
	"github.com/awmpietro/shunting-action-validator/internal/transport/validatedto"
)

type Handler struct {
	svc    app.ValidateService
	logger *slog.Logger
}

func NewHandler(svc app.ValidateService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Validate(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	body, err := readBody(req)
	if err != nil {
		return jsonResp(http.StatusBadRequest, validatedto.ErrorBody("invalid body", err)), nil
	}

	var in validatedto.ValidateRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return jsonResp(http.StatusBadRequest, validatedto.ErrorBody("invalid json", err)), nil
	}

	vreq, err := in.ToRequest()
	if err != nil {
		return jsonResp(http.StatusBadRequest, validatedto.ErrorBody("validate failed", err)), nil
	}

	rep, err := h.svc.Validate(ctx, vreq)
	if err != nil {
		status := validatedto.ErrorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("validate_failed", "error", err)
		}
		return jsonResp(status, validatedto.ErrorBody("validate failed", err)), nil
	}

	return jsonResp(http.StatusOK, validatedto.FromReport(rep, in.Debug)), nil
}

func readBody(req events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if req.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(req.Body)
	}
	return []byte(req.Body), nil
}

func jsonResp(status int, body any) events.APIGatewayV2HTTPResponse {
	b, _ := json.Marshal(body)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       string(b),
	}
}
