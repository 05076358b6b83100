package marketplace

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/kilianp07/freightmarket/core/apperr"
	"github.com/kilianp07/freightmarket/core/audit"
	"github.com/kilianp07/freightmarket/core/events"
	"github.com/kilianp07/freightmarket/core/ids"
	"github.com/kilianp07/freightmarket/core/model"
)

// Feed page sizes.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// NewShipment holds the shipper supplied fields of a shipment.
type NewShipment struct {
	Title       string  `json:"title"`
	Pickup      string  `json:"pickup"`
	Dropoff     string  `json:"dropoff"`
	ReadyDate   string  `json:"readyDate"`
	WeightKg    float64 `json:"weightKg"`
	VolumeM3    float64 `json:"volumeM3"`
	CrossBorder bool    `json:"crossBorder"`
	Service     string  `json:"service"`
	Hazardous   bool    `json:"adr"`
	Notes       string  `json:"notes"`
	OwnerID     string  `json:"ownerId"`
}

func (n NewShipment) validate() error {
	if strings.TrimSpace(n.Pickup) == "" || strings.TrimSpace(n.Dropoff) == "" {
		return apperr.Validation("pickup and dropoff are required")
	}
	if n.ReadyDate != "" {
		if _, err := time.Parse(model.ReadyDateLayout, n.ReadyDate); err != nil {
			return apperr.Validation("readyDate must be YYYY-MM-DD")
		}
	}
	if n.WeightKg < 0 || n.VolumeM3 < 0 {
		return apperr.Validation("weightKg and volumeM3 must not be negative")
	}
	return nil
}

// ShipmentFilter narrows the shipment feed. Zero values match everything.
type ShipmentFilter struct {
	Status          model.ShipmentStatus
	PickupContains  string
	DropoffContains string
	Service         string
	Hazardous       *bool
	EarliestDate    string
}

func (f ShipmentFilter) match(s model.Shipment) bool {
	if s.Hidden {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.PickupContains != "" && !containsFold(s.Pickup, f.PickupContains) {
		return false
	}
	if f.DropoffContains != "" && !containsFold(s.Dropoff, f.DropoffContains) {
		return false
	}
	if f.Service != "" && s.Service != f.Service {
		return false
	}
	if f.Hazardous != nil && s.Hazardous != *f.Hazardous {
		return false
	}
	if f.EarliestDate != "" && (s.ReadyDate == "" || s.ReadyDate < f.EarliestDate) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// Page selects a window of the feed. Limit 0 means DefaultLimit.
type Page struct {
	Limit  int
	Cursor string
}

// ShipmentPage is one page of the feed.
type ShipmentPage struct {
	Data       []model.Shipment `json:"data"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// CreateShipment validates and stores a new OPEN shipment.
func (s *Service) CreateShipment(ctx context.Context, actor model.Actor, in NewShipment) (model.Shipment, error) {
	if err := in.validate(); err != nil {
		return model.Shipment{}, err
	}
	owner := in.OwnerID
	if actor.UserID != "" {
		owner = actor.UserID
	}
	sh := model.Shipment{
		ID:          s.ids.Next(ids.Shipment),
		Title:       strings.TrimSpace(in.Title),
		Pickup:      strings.TrimSpace(in.Pickup),
		Dropoff:     strings.TrimSpace(in.Dropoff),
		ReadyDate:   in.ReadyDate,
		WeightKg:    in.WeightKg,
		VolumeM3:    in.VolumeM3,
		CrossBorder: in.CrossBorder,
		Service:     strings.TrimSpace(in.Service),
		Hazardous:   in.Hazardous,
		Notes:       in.Notes,
		Status:      model.ShipmentOpen,
		OwnerID:     owner,
		CreatedAt:   s.clock(),
	}
	if err := s.repo.CreateShipment(ctx, sh); err != nil {
		return model.Shipment{}, storeErr("create shipment", err)
	}
	s.audit.Record(ctx, actor.Label(string(model.RoleShipper)), audit.TypeShipment, sh.ID, "Created shipment")
	s.pub.EmitPublic(events.ShipmentNew, sh)
	return sh, nil
}

// QueryShipments returns one page of visible shipments matching f, newest
// first. Following NextCursor until it is empty walks the whole result set.
func (s *Service) QueryShipments(ctx context.Context, f ShipmentFilter, p Page) (ShipmentPage, error) {
	limit, err := pageLimit(p.Limit)
	if err != nil {
		return ShipmentPage{}, err
	}
	if f.Status != "" {
		if _, ok := model.ParseShipmentStatus(string(f.Status)); !ok {
			return ShipmentPage{}, apperr.Validation("invalid status: %s", f.Status)
		}
	}
	if f.EarliestDate != "" {
		if _, err := time.Parse(model.ReadyDateLayout, f.EarliestDate); err != nil {
			return ShipmentPage{}, apperr.Validation("earliestDate must be YYYY-MM-DD")
		}
	}
	var after *cursorKey
	if p.Cursor != "" {
		k, err := decodeCursor(p.Cursor)
		if err != nil {
			return ShipmentPage{}, err
		}
		after = &k
	}

	all, err := s.repo.ListShipments(ctx)
	if err != nil {
		return ShipmentPage{}, storeErr("list shipments", err)
	}
	matched := make([]model.Shipment, 0, len(all))
	for _, sh := range all {
		if !f.match(sh) {
			continue
		}
		if after != nil && !after.before(keyOf(sh)) {
			continue
		}
		matched = append(matched, sh)
	}
	sort.Slice(matched, func(i, j int) bool { return keyOf(matched[i]).before(keyOf(matched[j])) })

	page := ShipmentPage{Data: matched}
	if len(matched) > limit {
		page.Data = matched[:limit]
		page.NextCursor = encodeCursor(keyOf(page.Data[limit-1]))
	}
	return page, nil
}

func pageLimit(n int) (int, error) {
	switch {
	case n == 0:
		return DefaultLimit, nil
	case n < 0:
		return 0, apperr.Validation("limit must be positive")
	case n > MaxLimit:
		return MaxLimit, nil
	}
	return n, nil
}

// Shipment returns one shipment.
func (s *Service) Shipment(ctx context.Context, id string) (model.Shipment, error) {
	sh, err := s.repo.Shipment(ctx, id)
	if err != nil {
		return model.Shipment{}, lookup(err, "shipment not found")
	}
	return sh, nil
}

// ShipmentDetail returns a shipment with its quotes, newest first, and the
// price summary of its live quotes.
func (s *Service) ShipmentDetail(ctx context.Context, id string) (model.ShipmentDetail, error) {
	sh, err := s.Shipment(ctx, id)
	if err != nil {
		return model.ShipmentDetail{}, err
	}
	quotes, err := s.quotesNewestFirst(ctx, id)
	if err != nil {
		return model.ShipmentDetail{}, err
	}
	return model.ShipmentDetail{Shipment: sh, Quotes: quotes, QuoteSummary: summarize(quotes)}, nil
}

// FlagShipment raises a moderation flag. A shipment carries at most one flag;
// flagging it again returns the existing one.
func (s *Service) FlagShipment(ctx context.Context, actor model.Actor, shipmentID, reason string) (model.Flag, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.Flag{}, apperr.Validation("reason required")
	}
	if _, err := s.Shipment(ctx, shipmentID); err != nil {
		return model.Flag{}, err
	}
	unlock := s.locks.Lock(shipmentID)
	defer unlock()
	if f, err := s.repo.FlagByShipment(ctx, shipmentID); err == nil {
		return f, nil
	}
	f := model.Flag{
		ID:         s.ids.Next(ids.Flag),
		ShipmentID: shipmentID,
		Reason:     reason,
		Reporter:   actor.Label("anonymous"),
		CreatedAt:  s.clock(),
	}
	if err := s.repo.CreateFlag(ctx, f); err != nil {
		return model.Flag{}, storeErr("create flag", err)
	}
	s.audit.Record(ctx, f.Reporter, audit.TypeFlag, shipmentID, "Flagged: "+reason)
	return f, nil
}
