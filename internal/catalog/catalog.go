// Package catalog is the hand-authored list of bookable salon services.
// Appointments copy the option type and duration by value at booking time,
// so edits here never rewrite history.
package catalog

import "fmt"

// BookingOption is one bookable variant of a service: the serviceType
// stored on appointments, the selectable durations, and the fixed extra
// time (cleanup/preparation) appended after the serviced duration.
type BookingOption struct {
	Type             string
	DurationsMinutes []int
	ExtraMinutes     int
	Variants         []string
}

type Service struct {
	Slug             string
	Title            string
	Subcategories    []string
	BookingOptions   []BookingOption
	IncludeInBooking bool
}

// Default returns the salon's service catalog.
func Default() []Service {
	return []Service{
		{
			Slug:  "manicure",
			Title: "Manicure",
			BookingOptions: []BookingOption{
				{Type: "classic manicure", DurationsMinutes: []int{30, 45}, ExtraMinutes: 5},
				{Type: "gel manicure", DurationsMinutes: []int{60, 75}, ExtraMinutes: 10, Variants: []string{"new set", "refill"}},
				{Type: "semi-permanent polish", DurationsMinutes: []int{45, 60}, ExtraMinutes: 10, Variants: []string{"with removal", "without removal"}},
			},
			IncludeInBooking: true,
		},
		{
			Slug:  "pedicure",
			Title: "Pedicure",
			BookingOptions: []BookingOption{
				{Type: "aesthetic pedicure", DurationsMinutes: []int{45}, ExtraMinutes: 10},
				{Type: "curative pedicure", DurationsMinutes: []int{60}, ExtraMinutes: 10},
			},
			IncludeInBooking: true,
		},
		{
			Slug:          "facial",
			Title:         "Facial treatments",
			Subcategories: []string{"cleansing", "anti-age", "hydrating"},
			BookingOptions: []BookingOption{
				{Type: "deep cleansing facial", DurationsMinutes: []int{50}, ExtraMinutes: 10},
				{Type: "anti-age facial", DurationsMinutes: []int{60, 75}, ExtraMinutes: 10},
				{Type: "hydrating facial", DurationsMinutes: []int{50}, ExtraMinutes: 10},
			},
			IncludeInBooking: true,
		},
		{
			Slug:  "massage",
			Title: "Massages",
			BookingOptions: []BookingOption{
				{Type: "relaxing massage", DurationsMinutes: []int{30, 50}, ExtraMinutes: 10},
				{Type: "draining massage", DurationsMinutes: []int{50}, ExtraMinutes: 10},
			},
			IncludeInBooking: true,
		},
		{
			Slug:  "waxing",
			Title: "Waxing",
			BookingOptions: []BookingOption{
				{Type: "partial waxing", DurationsMinutes: []int{20, 30}, ExtraMinutes: 5},
				{Type: "full body waxing", DurationsMinutes: []int{60}, ExtraMinutes: 10},
			},
			IncludeInBooking: true,
		},
		{
			Slug:  "lashes-brows",
			Title: "Lashes & brows",
			BookingOptions: []BookingOption{
				{Type: "lash lift", DurationsMinutes: []int{45}, ExtraMinutes: 5},
				{Type: "brow shaping", DurationsMinutes: []int{20}, ExtraMinutes: 5},
				{Type: "lash and brow tint", DurationsMinutes: []int{30}, ExtraMinutes: 5},
			},
			IncludeInBooking: true,
		},
		{
			// Display-only entry: sold as a gift card, never booked online.
			Slug:             "rituals",
			Title:            "Seasonal rituals",
			BookingOptions:   nil,
			IncludeInBooking: false,
		},
	}
}

// Catalog indexes services and options for lookup during booking.
type Catalog struct {
	services []Service
	byType   map[string]BookingOption
}

func New(services []Service) (*Catalog, error) {
	c := &Catalog{services: services, byType: map[string]BookingOption{}}
	for _, svc := range services {
		if svc.IncludeInBooking && len(svc.BookingOptions) == 0 {
			return nil, fmt.Errorf("service %q is bookable but has no booking options", svc.Slug)
		}
		for _, opt := range svc.BookingOptions {
			if svc.IncludeInBooking && len(opt.DurationsMinutes) == 0 {
				return nil, fmt.Errorf("service %q option %q has no durations", svc.Slug, opt.Type)
			}
			for _, d := range opt.DurationsMinutes {
				if d <= 0 {
					return nil, fmt.Errorf("service %q option %q has non-positive duration %d", svc.Slug, opt.Type, d)
				}
			}
			if opt.ExtraMinutes < 0 {
				return nil, fmt.Errorf("service %q option %q has negative extra time", svc.Slug, opt.Type)
			}
			if _, dup := c.byType[opt.Type]; dup {
				return nil, fmt.Errorf("duplicate booking option type %q", opt.Type)
			}
			if svc.IncludeInBooking {
				c.byType[opt.Type] = opt
			}
		}
	}
	return c, nil
}

// Services returns the full catalog in declaration order.
func (c *Catalog) Services() []Service {
	return c.services
}

// Bookable returns only services offered through the booking flow.
func (c *Catalog) Bookable() []Service {
	var out []Service
	for _, svc := range c.services {
		if svc.IncludeInBooking {
			out = append(out, svc)
		}
	}
	return out
}

// Option resolves a serviceType to its booking option.
func (c *Catalog) Option(serviceType string) (BookingOption, bool) {
	opt, ok := c.byType[serviceType]
	return opt, ok
}

// AllowsDuration reports whether the option offers the given length.
func (o BookingOption) AllowsDuration(minutes int) bool {
	for _, d := range o.DurationsMinutes {
		if d == minutes {
			return true
		}
	}
	return false
}
