package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bivex/paywall-purchases/internal/domain/entity"
	domainErrors "github.com/bivex/paywall-purchases/internal/domain/errors"
)

// Native event channel names
const (
	EventPurchaserInfoUpdated       = "Purchases-PurchaserInfoUpdated"
	EventShouldPurchasePromoProduct = "Purchases-ShouldPurchasePromoProduct"
)

// EventClass identifies one of the two subscriber lists
type EventClass string

const (
	ClassPurchaserInfoUpdated       EventClass = "purchaser-info-updated"
	ClassShouldPurchasePromoProduct EventClass = "should-purchase-promo-product"
)

// EventNames lists every native event name, in a stable order
func EventNames() []string {
	return []string{EventPurchaserInfoUpdated, EventShouldPurchasePromoProduct}
}

// NativeEvent is one of PurchaserInfoUpdatedEvent or ShouldPurchasePromoProductEvent
type NativeEvent interface {
	Class() EventClass
	Name() string
}

// PurchaserInfoUpdatedEvent carries a state snapshot or a native error
type PurchaserInfoUpdatedEvent struct {
	PurchaserInfo *entity.PurchaserInfo
	Error         *domainErrors.NativeError
}

func (PurchaserInfoUpdatedEvent) Class() EventClass { return ClassPurchaserInfoUpdated }
func (PurchaserInfoUpdatedEvent) Name() string      { return EventPurchaserInfoUpdated }

// ShouldPurchasePromoProductEvent announces a promoted purchase the SDK is
// holding until the app resumes it
type ShouldPurchasePromoProductEvent struct {
	CallbackID int
}

func (ShouldPurchasePromoProductEvent) Class() EventClass { return ClassShouldPurchasePromoProduct }
func (ShouldPurchasePromoProductEvent) Name() string      { return EventShouldPurchasePromoProduct }

type purchaserInfoEnvelope struct {
	PurchaserInfo *entity.PurchaserInfo     `json:"purchaserInfo"`
	Error         *domainErrors.NativeError `json:"error"`
}

type promoProductPayload struct {
	CallbackID *int `json:"callbackID"`
}

// DecodeEvent validates a raw native payload and returns the tagged event.
// Purchaser info updates are accepted both as {purchaserInfo, error}
// envelopes and as a bare purchaser info object.
func DecodeEvent(name string, payload []byte) (NativeEvent, error) {
	switch name {
	case EventPurchaserInfoUpdated:
		return decodePurchaserInfoUpdated(payload)
	case EventShouldPurchasePromoProduct:
		return decodePromoProduct(payload)
	default:
		return nil, &domainErrors.EventError{Event: name, Err: domainErrors.ErrUnknownEvent}
	}
}

func decodePurchaserInfoUpdated(payload []byte) (NativeEvent, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return nil, malformed(EventPurchaserInfoUpdated, "payload is not an object")
	}

	_, hasInfo := fields["purchaserInfo"]
	_, hasError := fields["error"]
	if !hasInfo && !hasError {
		var info entity.PurchaserInfo
		if err := json.Unmarshal(payload, &info); err != nil {
			return nil, malformed(EventPurchaserInfoUpdated, err.Error())
		}
		return PurchaserInfoUpdatedEvent{PurchaserInfo: &info}, nil
	}

	var env purchaserInfoEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, malformed(EventPurchaserInfoUpdated, err.Error())
	}
	if env.PurchaserInfo == nil && env.Error == nil {
		return nil, malformed(EventPurchaserInfoUpdated, "neither purchaserInfo nor error is set")
	}
	return PurchaserInfoUpdatedEvent{PurchaserInfo: env.PurchaserInfo, Error: env.Error}, nil
}

func decodePromoProduct(payload []byte) (NativeEvent, error) {
	var p promoProductPayload
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&p); err != nil {
		return nil, malformed(EventShouldPurchasePromoProduct, err.Error())
	}
	if p.CallbackID == nil {
		return nil, malformed(EventShouldPurchasePromoProduct, "callbackID is required")
	}
	return ShouldPurchasePromoProductEvent{CallbackID: *p.CallbackID}, nil
}

// EncodeEvent serializes an event into its native name and payload
func EncodeEvent(ev NativeEvent) (string, []byte, error) {
	var body any
	switch e := ev.(type) {
	case PurchaserInfoUpdatedEvent:
		body = purchaserInfoEnvelope{PurchaserInfo: e.PurchaserInfo, Error: e.Error}
	case ShouldPurchasePromoProductEvent:
		id := e.CallbackID
		body = promoProductPayload{CallbackID: &id}
	default:
		return "", nil, fmt.Errorf("%w: %T", domainErrors.ErrUnknownEvent, ev)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal %s: %w", ev.Name(), err)
	}
	return ev.Name(), data, nil
}

func malformed(name, reason string) error {
	return &domainErrors.EventError{
		Event: name,
		Err:   fmt.Errorf("%w: %s", domainErrors.ErrMalformedEvent, reason),
	}
}
