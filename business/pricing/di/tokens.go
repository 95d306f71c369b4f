// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/bond-desk/business/pricing/app"
	"github.com/fd1az/bond-desk/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PricingService = di.NewToken[*app.PricingService]("pricing.PricingService")
)

// Private dependency tokens - internal to pricing module
var (
	SpotSource = di.NewToken[app.SpotSource]("pricing:spotSource")
)

// Helper functions for type-safe access
func GetPricingService(c di.ServiceRegistry) *app.PricingService {
	return di.GetToken(c, PricingService)
}

func GetSpotSource(c di.ServiceRegistry) app.SpotSource {
	return di.GetToken(c, SpotSource)
}
