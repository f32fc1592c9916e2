package booking

import "github.com/iliyamo/cinepiu-booking/internal/model"

// Pricing holds the two flat ticket tiers in cents.
type Pricing struct {
	StandardCents uint32
	MemberCents   uint32
}

// DefaultPricing is 8.00 standard and 6.00 for members.
func DefaultPricing() Pricing { return Pricing{StandardCents: 800, MemberCents: 600} }

// UnitPrice picks the member tier only for a non-staff member booking for
// themselves. Walk-in tickets created by staff are always standard.
func (p Pricing) UnitPrice(pr model.Principal) uint32 {
	if !pr.Staff() && pr.Member {
		return p.MemberCents
	}
	return p.StandardCents
}
