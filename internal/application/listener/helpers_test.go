package listener_test

import (
	"github.com/bivex/paywall-purchases/internal/domain/bridge"
	"github.com/bivex/paywall-purchases/internal/domain/entity"
)

func bridgeUpdate(appUserID string) bridge.PurchaserInfoUpdatedEvent {
	return bridge.PurchaserInfoUpdatedEvent{PurchaserInfo: entity.NewPurchaserInfo(appUserID, now)}
}
