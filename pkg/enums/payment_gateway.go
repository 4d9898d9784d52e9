package enums

import "slices"

// PaymentGateway names the hosted payment provider.
type PaymentGateway string

const (
	GatewayVNPay PaymentGateway = "VNPAY"
	GatewayMoMo  PaymentGateway = "MOMO"
)

var validPaymentGateways = []PaymentGateway{
	GatewayVNPay,
	GatewayMoMo,
}

func (p PaymentGateway) String() string {
	return string(p)
}

func (p PaymentGateway) IsValid() bool { return slices.Contains(validPaymentGateways, p) }

func ParsePaymentGateway(value string) (PaymentGateway, error) {
	return parseEnum(validPaymentGateways, value, "payment gateway")
}
