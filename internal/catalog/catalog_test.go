package catalog

import "testing"

func TestDefaultCatalogValid(t *testing.T) {
	c, err := New(Default())
	if err != nil {
		t.Fatalf("default catalog invalid: %v", err)
	}
	for _, svc := range c.Bookable() {
		if len(svc.BookingOptions) == 0 {
			t.Fatalf("bookable service %q has no options", svc.Slug)
		}
		for _, opt := range svc.BookingOptions {
			if len(opt.DurationsMinutes) == 0 {
				t.Fatalf("option %q has no durations", opt.Type)
			}
		}
	}
}

func TestOptionLookup(t *testing.T) {
	c, err := New(Default())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	opt, ok := c.Option("gel manicure")
	if !ok {
		t.Fatal("expected gel manicure to be bookable")
	}
	if !opt.AllowsDuration(60) || opt.AllowsDuration(55) {
		t.Fatalf("unexpected durations: %v", opt.DurationsMinutes)
	}

	if _, ok := c.Option("no such service"); ok {
		t.Fatal("unknown type must not resolve")
	}
}

func TestDisplayOnlyServiceNotBookable(t *testing.T) {
	c, err := New(Default())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for _, svc := range c.Bookable() {
		if svc.Slug == "rituals" {
			t.Fatal("display-only service leaked into bookable list")
		}
	}
}

func TestNewRejectsInvalidCatalog(t *testing.T) {
	cases := []struct {
		name     string
		services []Service
	}{
		{"bookable without options", []Service{{Slug: "x", IncludeInBooking: true}}},
		{"option without durations", []Service{{
			Slug: "x", IncludeInBooking: true,
			BookingOptions: []BookingOption{{Type: "t"}},
		}}},
		{"duplicate option type", []Service{{
			Slug: "x", IncludeInBooking: true,
			BookingOptions: []BookingOption{
				{Type: "t", DurationsMinutes: []int{30}},
				{Type: "t", DurationsMinutes: []int{45}},
			},
		}}},
		{"negative extra time", []Service{{
			Slug: "x", IncludeInBooking: true,
			BookingOptions: []BookingOption{{Type: "t", DurationsMinutes: []int{30}, ExtraMinutes: -5}},
		}}},
	}
	for _, c := range cases {
		if _, err := New(c.services); err == nil {
			t.Fatalf("%s: expected validation error", c.name)
		}
	}
}
