package marketplace

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/freightmarket/core/ids"
	"github.com/kilianp07/freightmarket/core/model"
)

//go:embed seed.yaml
var seedYAML []byte

type seedQuote struct {
	Shipment    int               `yaml:"shipment"`
	Transporter int               `yaml:"transporter"`
	Price       float64           `yaml:"price"`
	EtaDays     *int              `yaml:"etaDays"`
	Message     string            `yaml:"message"`
	Status      model.QuoteStatus `yaml:"status"`
}

type seedMessage struct {
	SenderRole string `yaml:"senderRole"`
	Text       string `yaml:"text"`
}

type seedBooking struct {
	Quote    int                 `yaml:"quote"`
	Status   model.BookingStatus `yaml:"status"`
	Messages []seedMessage       `yaml:"messages"`
}

type seedFlag struct {
	Shipment int    `yaml:"shipment"`
	Reason   string `yaml:"reason"`
}

type seedLog struct {
	Actor   string `yaml:"actor"`
	Type    string `yaml:"type"`
	Subject string `yaml:"subject"`
	Detail  string `yaml:"detail"`
}

type fixture struct {
	Users     []model.User     `yaml:"users"`
	Shipments []model.Shipment `yaml:"shipments"`
	Quotes    []seedQuote      `yaml:"quotes"`
	Bookings  []seedBooking    `yaml:"bookings"`
	Flags     []seedFlag       `yaml:"flags"`
	Logs      []seedLog        `yaml:"logs"`
}

// SeedResult describes the reseeded store.
type SeedResult struct {
	Counts model.Counts `json:"counts"`
	Users  []model.User `json:"users"`
}

func loadFixture() (fixture, error) {
	var f fixture
	if err := yaml.Unmarshal(seedYAML, &f); err != nil {
		return f, fmt.Errorf("marketplace: decode seed: %w", err)
	}
	return f, nil
}

// Seed wipes the store and loads the demo data set. Seeding emits no events.
func (s *Service) Seed(ctx context.Context) (SeedResult, error) {
	f, err := loadFixture()
	if err != nil {
		return SeedResult{}, err
	}
	if err := s.reset(ctx); err != nil {
		return SeedResult{}, err
	}
	now := s.clock()
	today := now.Format(model.ReadyDateLayout)
	refs := map[string][]string{}

	users := make([]model.User, 0, len(f.Users))
	for _, u := range f.Users {
		u.ID = s.ids.Next(ids.User)
		u.CreatedAt = now
		if err := s.repo.CreateUser(ctx, u); err != nil {
			return SeedResult{}, storeErr("seed user", err)
		}
		users = append(users, u)
	}
	shipper := firstWithRole(users, model.RoleShipper)

	ships := make([]model.Shipment, 0, len(f.Shipments))
	for _, sh := range f.Shipments {
		sh.ID = s.ids.Next(ids.Shipment)
		sh.ReadyDate = today
		sh.OwnerID = shipper
		sh.CreatedAt = now
		if err := s.repo.CreateShipment(ctx, sh); err != nil {
			return SeedResult{}, storeErr("seed shipment", err)
		}
		ships = append(ships, sh)
		refs["shipment"] = append(refs["shipment"], sh.ID)
	}

	quotes := make([]model.Quote, 0, len(f.Quotes))
	for _, sq := range f.Quotes {
		if sq.Shipment >= len(ships) || sq.Transporter >= len(users) {
			return SeedResult{}, fmt.Errorf("marketplace: seed quote references a missing record")
		}
		t := users[sq.Transporter]
		q := model.Quote{
			ID:                s.ids.Next(ids.Quote),
			ShipmentID:        ships[sq.Shipment].ID,
			CompanyName:       t.Name,
			ContactEmail:      t.Email,
			Price:             sq.Price,
			EtaDays:           sq.EtaDays,
			Message:           sq.Message,
			Status:            sq.Status,
			CreatedAt:         now,
			TransporterUserID: t.ID,
		}
		if err := s.repo.CreateQuote(ctx, q); err != nil {
			return SeedResult{}, storeErr("seed quote", err)
		}
		quotes = append(quotes, q)
		refs["quote"] = append(refs["quote"], q.ID)
	}

	for _, sb := range f.Bookings {
		if sb.Quote >= len(quotes) {
			return SeedResult{}, fmt.Errorf("marketplace: seed booking references a missing quote")
		}
		q := quotes[sb.Quote]
		th := model.Thread{ID: s.ids.Next(ids.Thread), CreatedAt: now}
		b := model.Booking{
			ID:                 s.ids.Next(ids.Booking),
			ShipmentID:         q.ShipmentID,
			QuoteID:            q.ID,
			TransporterCompany: q.CompanyName,
			Price:              q.Price,
			Status:             sb.Status,
			ThreadID:           th.ID,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		th.BookingID = b.ID
		if err := s.repo.CreateBooking(ctx, b, th); err != nil {
			return SeedResult{}, storeErr("seed booking", err)
		}
		for _, sm := range sb.Messages {
			m := model.Message{ID: s.ids.Next(ids.Message), ThreadID: th.ID, SenderRole: sm.SenderRole, Text: sm.Text, TS: now}
			if err := s.repo.AppendMessage(ctx, m); err != nil {
				return SeedResult{}, storeErr("seed message", err)
			}
		}
		refs["booking"] = append(refs["booking"], b.ID)
	}

	for _, sf := range f.Flags {
		if sf.Shipment >= len(ships) {
			return SeedResult{}, fmt.Errorf("marketplace: seed flag references a missing shipment")
		}
		fl := model.Flag{
			ID:         s.ids.Next(ids.Flag),
			ShipmentID: ships[sf.Shipment].ID,
			Reason:     sf.Reason,
			Reporter:   shipper,
			CreatedAt:  now,
		}
		if err := s.repo.CreateFlag(ctx, fl); err != nil {
			return SeedResult{}, storeErr("seed flag", err)
		}
	}

	for _, l := range f.Logs {
		s.audit.Record(ctx, l.Actor, l.Type, resolveRef(refs, l.Subject), l.Detail)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		return SeedResult{}, err
	}
	s.log.Infof("seeded %d users, %d shipments, %d quotes, %d bookings", counts.Users, counts.Shipments, counts.Quotes, counts.Bookings)
	return SeedResult{Counts: counts, Users: users}, nil
}

func firstWithRole(users []model.User, role model.Role) string {
	for _, u := range users {
		if u.Role == role {
			return u.ID
		}
	}
	return ""
}

// resolveRef maps "<kind>:<index>" to the id of a seeded record. Anything
// else is returned unchanged.
func resolveRef(refs map[string][]string, subject string) string {
	kind, idx, ok := strings.Cut(subject, ":")
	if !ok {
		return subject
	}
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 || i >= len(refs[kind]) {
		return subject
	}
	return refs[kind][i]
}
