package daraja

import (
	"fmt"
	"strconv"
	"time"
)

// Paths the gateway is told to POST callbacks to. The router serves these and
// the client advertises them on every initiation request; they must not drift
// apart or callbacks land on a 404 and intents stay pending forever.
const (
	STKCallbackPath = "/webhooks/daraja/stk"
	B2CResultPath   = "/webhooks/daraja/b2c/result"
	B2CTimeoutPath  = "/webhooks/daraja/b2c/timeout"
)

// CallbackEnvelope is the body Daraja POSTs to the STK callback URL. Every
// level is a pointer so a missing envelope or result object is detectable
// rather than silently zero-valued.
type CallbackEnvelope struct {
	Body *CallbackBody `json:"Body"`
}

type CallbackBody struct {
	STKCallback *STKCallback `json:"stkCallback"`
}

type STKCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata"`
}

type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

// MetadataItem is one entry of the untyped Name/Value list Daraja sends on
// success. Value is a string, a number, or absent depending on Name.
type MetadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// TransactionDetails is the typed view of the callback metadata. Fields stay
// nil when the corresponding item is absent or carries an unexpected type.
type TransactionDetails struct {
	Amount          *int
	Receipt         *string
	TransactionDate *time.Time
	Phone           *string
}

// Details maps the metadata item list into TransactionDetails in one pass.
// Unknown item names are ignored; items whose value does not have the type
// their name implies are dropped.
func (m *CallbackMetadata) Details() TransactionDetails {
	var d TransactionDetails
	if m == nil {
		return d
	}
	for _, item := range m.Item {
		switch item.Name {
		case "Amount":
			if v, ok := item.Value.(float64); ok {
				amount := int(v)
				d.Amount = &amount
			}
		case "MpesaReceiptNumber":
			if v, ok := item.Value.(string); ok {
				receipt := v
				d.Receipt = &receipt
			}
		case "TransactionDate":
			if v, ok := item.Value.(float64); ok {
				if t, err := ParseTransactionDate(strconv.FormatInt(int64(v), 10)); err == nil {
					d.TransactionDate = &t
				}
			}
		case "PhoneNumber":
			if v, ok := item.Value.(float64); ok {
				phone := strconv.FormatInt(int64(v), 10)
				d.Phone = &phone
			}
		}
	}
	return d
}

// ParseTransactionDate converts Daraja's compact 14-digit YYYYMMDDHHMMSS
// timestamp into a time.Time by positional slicing.
func ParseTransactionDate(s string) (time.Time, error) {
	if len(s) != 14 {
		return time.Time{}, fmt.Errorf("transaction date %q is not 14 digits", s)
	}
	formatted := s[0:4] + "-" + s[4:6] + "-" + s[6:8] + " " + s[8:10] + ":" + s[10:12] + ":" + s[12:14]
	return time.Parse("2006-01-02 15:04:05", formatted)
}

// B2CResultEnvelope is the body Daraja POSTs to the B2C result URL.
type B2CResultEnvelope struct {
	Result *B2CResult `json:"Result"`
}

type B2CResult struct {
	ResultType               int                  `json:"ResultType"`
	ResultCode               int                  `json:"ResultCode"`
	ResultDesc               string               `json:"ResultDesc"`
	OriginatorConversationID string               `json:"OriginatorConversationID"`
	ConversationID           string               `json:"ConversationID"`
	TransactionID            string               `json:"TransactionID"`
	ResultParameters         *B2CResultParameters `json:"ResultParameters"`
}

type B2CResultParameters struct {
	ResultParameter []B2CResultParameter `json:"ResultParameter"`
}

type B2CResultParameter struct {
	Key   string      `json:"Key"`
	Value interface{} `json:"Value"`
}

// CompletedAt extracts and parses TransactionCompletedDateTime from the B2C
// result parameters ("02.01.2006 15:04:05" wire format). Returns nil when the
// parameter is absent or malformed.
func (r *B2CResult) CompletedAt() *time.Time {
	if r == nil || r.ResultParameters == nil {
		return nil
	}
	for _, p := range r.ResultParameters.ResultParameter {
		if p.Key != "TransactionCompletedDateTime" {
			continue
		}
		if v, ok := p.Value.(string); ok {
			if t, err := time.Parse("02.01.2006 15:04:05", v); err == nil {
				return &t
			}
		}
	}
	return nil
}
