// Package momo integrates the MoMo all-in-one gateway (v2 API).
package momo

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/moda-commerce/moda-backend/internal/payments"
	"github.com/moda-commerce/moda-backend/pkg/config"
	"github.com/moda-commerce/moda-backend/pkg/enums"
)

var tracer = otel.Tracer("github.com/moda-commerce/moda-backend/internal/payments/momo")

const (
	createPath = "/v2/gateway/api/create"
	refundPath = "/v2/gateway/api/refund"
	lang       = "vi"
)

type Client struct {
	cfg  config.MoMoConfig
	http *resty.Client
}

func New(cfg config.MoMoConfig) (*Client, error) {
	if cfg.PartnerCode == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("momo partner code and keys required")
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{cfg: cfg, http: httpClient}, nil
}

func (c *Client) Name() enums.PaymentGateway { return enums.GatewayMoMo }

type createRequest struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	RequestType string `json:"requestType"`
	ExtraData   string `json:"extraData"`
	Lang        string `json:"lang"`
	Signature   string `json:"signature"`
}

type createResponse struct {
	PartnerCode string `json:"partnerCode"`
	OrderID     string `json:"orderId"`
	RequestID   string `json:"requestId"`
	ResultCode  int    `json:"resultCode"`
	Message     string `json:"message"`
	PayURL      string `json:"payUrl"`
}

func (c *Client) CreatePayment(ctx context.Context, req payments.CreateRequest) (result *payments.CreateResult, err error) {
	ctx, span := tracer.Start(ctx, "momo.CreatePayment")
	span.SetAttributes(attribute.String("order_ref", req.OrderRef))
	defer endSpan(span, &err)

	body := createRequest{
		PartnerCode: c.cfg.PartnerCode,
		RequestID:   uuid.NewString(),
		Amount:      req.Amount,
		OrderID:     req.OrderRef,
		OrderInfo:   req.Description,
		RedirectURL: c.cfg.RedirectURL,
		IPNURL:      c.cfg.IPNURL,
		RequestType: c.cfg.RequestType,
		Lang:        lang,
	}
	if body.OrderInfo == "" {
		body.OrderInfo = "Thanh toan don hang " + req.OrderRef
	}
	body.Signature = c.sign(map[string]string{
		"accessKey":   c.cfg.AccessKey,
		"amount":      strconv.FormatInt(body.Amount, 10),
		"extraData":   body.ExtraData,
		"ipnUrl":      body.IPNURL,
		"orderId":     body.OrderID,
		"orderInfo":   body.OrderInfo,
		"partnerCode": body.PartnerCode,
		"redirectUrl": body.RedirectURL,
		"requestId":   body.RequestID,
		"requestType": body.RequestType,
	})

	var out createResponse
	resp, err := c.http.R().SetContext(ctx).SetBody(body).SetResult(&out).Post(createPath)
	if err != nil {
		return nil, payments.Unavailable(enums.GatewayMoMo, err)
	}
	if resp.IsError() {
		return nil, payments.Unavailable(enums.GatewayMoMo, fmt.Errorf("status %d", resp.StatusCode()))
	}
	if out.ResultCode != 0 || out.PayURL == "" {
		return nil, payments.Unavailable(enums.GatewayMoMo, fmt.Errorf("create rejected: %d %s", out.ResultCode, out.Message))
	}
	return &payments.CreateResult{PayURL: out.PayURL}, nil
}

// IPN is the body MoMo posts to the ipnUrl.
type IPN struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	OrderInfo    string `json:"orderInfo"`
	OrderType    string `json:"orderType"`
	TransID      int64  `json:"transId"`
	ResultCode   int    `json:"resultCode"`
	Message      string `json:"message"`
	PayType      string `json:"payType"`
	ResponseTime int64  `json:"responseTime"`
	ExtraData    string `json:"extraData"`
	Signature    string `json:"signature"`
}

func (n IPN) fields(accessKey string) map[string]string {
	return map[string]string{
		"accessKey":    accessKey,
		"amount":       strconv.FormatInt(n.Amount, 10),
		"extraData":    n.ExtraData,
		"message":      n.Message,
		"orderId":      n.OrderID,
		"orderInfo":    n.OrderInfo,
		"orderType":    n.OrderType,
		"partnerCode":  n.PartnerCode,
		"payType":      n.PayType,
		"requestId":    n.RequestID,
		"responseTime": strconv.FormatInt(n.ResponseTime, 10),
		"resultCode":   strconv.Itoa(n.ResultCode),
		"transId":      strconv.FormatInt(n.TransID, 10),
	}
}

// SignIPN returns the signature MoMo would attach to n.
func (c *Client) SignIPN(n IPN) string {
	return c.sign(n.fields(c.cfg.AccessKey))
}

func (c *Client) VerifyIPN(n IPN) (*payments.Callback, error) {
	expected := c.SignIPN(n)
	if n.Signature == "" || !hmac.Equal([]byte(expected), []byte(strings.ToLower(n.Signature))) {
		return nil, payments.InvalidSignature(enums.GatewayMoMo)
	}
	cb := &payments.Callback{
		Gateway:       enums.GatewayMoMo,
		OrderRef:      n.OrderID,
		Amount:        n.Amount,
		TransactionNo: strconv.FormatInt(n.TransID, 10),
		ResponseCode:  strconv.Itoa(n.ResultCode),
		Success:       n.ResultCode == 0,
	}
	if n.ResponseTime > 0 {
		paid := time.UnixMilli(n.ResponseTime).UTC()
		cb.PaidAt = &paid
	}
	return cb, nil
}

type refundRequest struct {
	PartnerCode string `json:"partnerCode"`
	OrderID     string `json:"orderId"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	TransID     int64  `json:"transId"`
	Lang        string `json:"lang"`
	Description string `json:"description"`
	Signature   string `json:"signature"`
}

type refundResponse struct {
	OrderID    string `json:"orderId"`
	RequestID  string `json:"requestId"`
	TransID    int64  `json:"transId"`
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
}

func (c *Client) Refund(ctx context.Context, req payments.RefundRequest) (result *payments.RefundResult, err error) {
	ctx, span := tracer.Start(ctx, "momo.Refund")
	span.SetAttributes(attribute.String("order_ref", req.OrderRef), attribute.Int("attempt", req.Attempt))
	defer endSpan(span, &err)

	transID, err := strconv.ParseInt(req.TransactionNo, 10, 64)
	if err != nil {
		return nil, payments.Declined(enums.GatewayMoMo, "invalid_trans_id", req.TransactionNo)
	}
	body := refundRequest{
		PartnerCode: c.cfg.PartnerCode,
		OrderID:     fmt.Sprintf("%s-RF%d", req.OrderRef, req.Attempt),
		RequestID:   uuid.NewString(),
		Amount:      req.Amount,
		TransID:     transID,
		Lang:        lang,
		Description: req.Reason,
	}
	body.Signature = c.sign(map[string]string{
		"accessKey":   c.cfg.AccessKey,
		"amount":      strconv.FormatInt(body.Amount, 10),
		"description": body.Description,
		"orderId":     body.OrderID,
		"partnerCode": body.PartnerCode,
		"requestId":   body.RequestID,
		"transId":     strconv.FormatInt(body.TransID, 10),
	})

	var out refundResponse
	resp, err := c.http.R().SetContext(ctx).SetBody(body).SetResult(&out).Post(refundPath)
	if err != nil {
		return nil, payments.Unavailable(enums.GatewayMoMo, err)
	}
	if resp.IsError() {
		return nil, payments.Unavailable(enums.GatewayMoMo, fmt.Errorf("status %d", resp.StatusCode()))
	}
	if out.ResultCode != 0 {
		return nil, payments.Declined(enums.GatewayMoMo, strconv.Itoa(out.ResultCode), out.Message)
	}
	return &payments.RefundResult{Reference: strconv.FormatInt(out.TransID, 10)}, nil
}

// sign builds MoMo's raw signature string, key=value pairs in alphabetical
// key order, and returns its HMAC-SHA256 hex digest.
func (c *Client) sign(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}
	mac := hmac.New(sha256.New, []byte(c.cfg.SecretKey))
	mac.Write([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
