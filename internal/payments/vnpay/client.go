// Package vnpay integrates the VNPay hosted checkout: signed redirect URLs,
// IPN verification and the merchant refund API.
package vnpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/moda-commerce/moda-backend/internal/payments"
	"github.com/moda-commerce/moda-backend/pkg/config"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
)

var tracer = otel.Tracer("github.com/moda-commerce/moda-backend/internal/payments/vnpay")

const (
	version      = "2.1.0"
	dateLayout   = "20060102150405"
	successCode  = "00"
	hashParam    = "vnp_SecureHash"
	hashTypeName = "vnp_SecureHashType"
	// VNPay amounts carry two implied decimal places.
	amountScale = 100
	payExpiry   = 15 * time.Minute
)

// VNPay timestamps are always Indochina time.
var vnLocation = time.FixedZone("ICT", 7*60*60)

type Client struct {
	cfg  config.VNPayConfig
	http *resty.Client
	now  func() time.Time
}

func New(cfg config.VNPayConfig) (*Client, error) {
	if cfg.TmnCode == "" || cfg.HashSecret == "" {
		return nil, fmt.Errorf("vnpay tmn code and hash secret required")
	}
	httpClient := resty.New().SetTimeout(cfg.Timeout)
	return &Client{cfg: cfg, http: httpClient, now: time.Now}, nil
}

func (c *Client) Name() enums.PaymentGateway { return enums.GatewayVNPay }

// CreatePayment builds the signed redirect URL. No network call is made.
func (c *Client) CreatePayment(_ context.Context, req payments.CreateRequest) (*payments.CreateResult, error) {
	now := c.now().In(vnLocation)
	params := url.Values{}
	params.Set("vnp_Version", version)
	params.Set("vnp_Command", "pay")
	params.Set("vnp_TmnCode", c.cfg.TmnCode)
	params.Set("vnp_Amount", strconv.FormatInt(req.Amount*amountScale, 10))
	params.Set("vnp_CurrCode", "VND")
	params.Set("vnp_TxnRef", req.OrderRef)
	params.Set("vnp_OrderInfo", orderInfo(req))
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_Locale", "vn")
	params.Set("vnp_ReturnUrl", c.cfg.ReturnURL)
	params.Set("vnp_IpAddr", clientIP(req.ClientIP))
	params.Set("vnp_CreateDate", now.Format(dateLayout))
	params.Set("vnp_ExpireDate", now.Add(payExpiry).Format(dateLayout))

	query := canonicalQuery(params)
	signature := sign(c.cfg.HashSecret, query)
	return &payments.CreateResult{
		PayURL: c.cfg.PayURL + "?" + query + "&" + hashParam + "=" + signature,
	}, nil
}

// VerifyCallback checks vnp_SecureHash over the remaining vnp_* params and
// decodes the payment outcome.
func (c *Client) VerifyCallback(values url.Values) (*payments.Callback, error) {
	given := values.Get(hashParam)
	if given == "" {
		return nil, payments.InvalidSignature(enums.GatewayVNPay)
	}
	signed := url.Values{}
	for key, vals := range values {
		if key == hashParam || key == hashTypeName || !strings.HasPrefix(key, "vnp_") || len(vals) == 0 {
			continue
		}
		signed.Set(key, vals[0])
	}
	expected := sign(c.cfg.HashSecret, canonicalQuery(signed))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(given))) {
		return nil, payments.InvalidSignature(enums.GatewayVNPay)
	}

	raw, err := strconv.ParseInt(values.Get("vnp_Amount"), 10, 64)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid vnp_Amount")
	}
	cb := &payments.Callback{
		Gateway:       enums.GatewayVNPay,
		OrderRef:      values.Get("vnp_TxnRef"),
		Amount:        raw / amountScale,
		TransactionNo: values.Get("vnp_TransactionNo"),
		ResponseCode:  values.Get("vnp_ResponseCode"),
		Success:       values.Get("vnp_ResponseCode") == successCode && values.Get("vnp_TransactionStatus") == successCode,
	}
	if paid, err := time.ParseInLocation(dateLayout, values.Get("vnp_PayDate"), vnLocation); err == nil {
		paidUTC := paid.UTC()
		cb.PaidAt = &paidUTC
	}
	return cb, nil
}

type refundRequest struct {
	RequestID       string `json:"vnp_RequestId"`
	Version         string `json:"vnp_Version"`
	Command         string `json:"vnp_Command"`
	TmnCode         string `json:"vnp_TmnCode"`
	TransactionType string `json:"vnp_TransactionType"`
	TxnRef          string `json:"vnp_TxnRef"`
	Amount          string `json:"vnp_Amount"`
	OrderInfo       string `json:"vnp_OrderInfo"`
	TransactionNo   string `json:"vnp_TransactionNo"`
	TransactionDate string `json:"vnp_TransactionDate"`
	CreateBy        string `json:"vnp_CreateBy"`
	CreateDate      string `json:"vnp_CreateDate"`
	IPAddr          string `json:"vnp_IpAddr"`
	SecureHash      string `json:"vnp_SecureHash"`
}

type refundResponse struct {
	ResponseID    string `json:"vnp_ResponseId"`
	ResponseCode  string `json:"vnp_ResponseCode"`
	Message       string `json:"vnp_Message"`
	TransactionNo string `json:"vnp_TransactionNo"`
}

// Refund requests a full refund through the merchant_webapi endpoint.
func (c *Client) Refund(ctx context.Context, req payments.RefundRequest) (result *payments.RefundResult, err error) {
	ctx, span := tracer.Start(ctx, "vnpay.Refund")
	span.SetAttributes(attribute.String("order_ref", req.OrderRef), attribute.Int("attempt", req.Attempt))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "refund failed")
		}
		span.End()
	}()

	now := c.now().In(vnLocation)
	paidAt := now
	if req.PaidAt != nil {
		paidAt = req.PaidAt.In(vnLocation)
	}
	body := refundRequest{
		RequestID:       strings.ReplaceAll(uuid.NewString(), "-", ""),
		Version:         version,
		Command:         "refund",
		TmnCode:         c.cfg.TmnCode,
		TransactionType: "02",
		TxnRef:          req.OrderRef,
		Amount:          strconv.FormatInt(req.Amount*amountScale, 10),
		OrderInfo:       "Refund " + req.OrderRef,
		TransactionNo:   req.TransactionNo,
		TransactionDate: paidAt.Format(dateLayout),
		CreateBy:        "moda",
		CreateDate:      now.Format(dateLayout),
		IPAddr:          "127.0.0.1",
	}
	body.SecureHash = sign(c.cfg.HashSecret, strings.Join([]string{
		body.RequestID, body.Version, body.Command, body.TmnCode, body.TransactionType,
		body.TxnRef, body.Amount, body.TransactionNo, body.TransactionDate, body.CreateBy,
		body.CreateDate, body.IPAddr, body.OrderInfo,
	}, "|"))

	var out refundResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post(c.cfg.APIURL)
	if err != nil {
		return nil, payments.Unavailable(enums.GatewayVNPay, err)
	}
	if resp.IsError() {
		return nil, payments.Unavailable(enums.GatewayVNPay, fmt.Errorf("status %d", resp.StatusCode()))
	}
	if out.ResponseCode != successCode {
		return nil, payments.Declined(enums.GatewayVNPay, out.ResponseCode, out.Message)
	}
	ref := out.TransactionNo
	if ref == "" {
		ref = out.ResponseID
	}
	return &payments.RefundResult{Reference: ref}, nil
}

// SignParams returns the secure hash VNPay expects for params.
func (c *Client) SignParams(params url.Values) string {
	return sign(c.cfg.HashSecret, canonicalQuery(params))
}

// canonicalQuery sorts keys and form-encodes values, the exact string VNPay signs.
func canonicalQuery(params url.Values) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(params.Get(key)))
	}
	return strings.Join(parts, "&")
}

func sign(secret, data string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func orderInfo(req payments.CreateRequest) string {
	if req.Description != "" {
		return req.Description
	}
	return "Thanh toan don hang " + req.OrderRef
}

func clientIP(ip string) string {
	if ip == "" {
		return "127.0.0.1"
	}
	return ip
}
